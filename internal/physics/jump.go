package physics

// jumpState integrates the vertical motion of a jumping car one tick at a time.
type jumpState struct {
	gravity float64
	double  bool
	t       float64
	tick    int
	v       float64
	z       float64
}

func newJump(gravity float64, double bool) *jumpState {
	return &jumpState{gravity: gravity, double: double, z: CarRestHeight}
}

func (j *jumpState) step() {
	if j.tick == 0 {
		j.v += JumpImpulse
	}
	if j.tick < jumpHoldTicks {
		j.v += JumpHoldAccel * SimulationDT
	} else if j.double && j.tick == jumpHoldTicks+1 {
		j.v += JumpImpulse
	}
	if j.tick < StickyTicks {
		j.v += StickyForce * SimulationDT
	}
	j.v += j.gravity * SimulationDT
	j.z += j.v * SimulationDT
	j.t += SimulationDT
	j.tick++
}

const jumpHoldTicks = 24

// maxJumpTicks bounds every jump integration at ten seconds.
const maxJumpTicks = 10 * TicksPerSecond

func apex(gravity float64, double bool) (height, t float64) {
	j := newJump(gravity, double)
	for j.tick < maxJumpTicks {
		j.step()
		if j.v <= 0 && j.tick > jumpHoldTicks+1 {
			break
		}
	}
	return j.z, j.t
}

// MaxJumpHeight is the apex height of a held single jump.
func MaxJumpHeight(gravity float64) float64 {
	h, _ := apex(gravity, false)
	return h
}

// MaxDoubleJumpHeight is the apex height of a held jump followed by a second jump.
func MaxDoubleJumpHeight(gravity float64) float64 {
	h, _ := apex(gravity, true)
	return h
}

// MaxJumpTime is the time a held single jump takes to reach its apex.
func MaxJumpTime(gravity float64) float64 {
	_, t := apex(gravity, false)
	return t
}

// maxDoubleJumpTime is the time a double jump takes to reach its apex.
func maxDoubleJumpTime(gravity float64) float64 {
	_, t := apex(gravity, true)
	return t
}

func timeToHeight(gravity, height float64, double bool) float64 {
	j := newJump(gravity, double)
	for j.z < height && j.tick < maxJumpTicks {
		j.step()
		if j.v <= 0 && j.tick > jumpHoldTicks+1 {
			break
		}
	}
	return j.t
}

// JumpTimeToHeight is the time a single jump needs to lift the car centre to
// height. Heights above the apex return the apex time.
func JumpTimeToHeight(gravity, height float64) float64 {
	return timeToHeight(gravity, height, false)
}

// DoubleJumpTimeToHeight is JumpTimeToHeight for a double jump.
func DoubleJumpTimeToHeight(gravity, height float64) float64 {
	return timeToHeight(gravity, height, true)
}
