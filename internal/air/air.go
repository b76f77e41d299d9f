// Package air decides whether a car can reach a point in the air with
// jumps and boost, and how cheaply.
package air

import (
	"fmt"
	"math"

	"github.com/arenabot/shotfinder/internal/car"
	"github.com/arenabot/shotfinder/internal/physics"
	"github.com/arenabot/shotfinder/internal/vec"
	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// Strategy is how the car leaves the ground, or what it does if it already has.
type Strategy int

const (
	DoubleJump Strategy = iota
	Jump
	SecondaryJump
	NoJump
)

// Strategies lists every strategy in evaluation order.
var Strategies = [...]Strategy{DoubleJump, Jump, SecondaryJump, NoJump}

func (s Strategy) String() string {
	switch s {
	case DoubleJump:
		return "DoubleJump"
	case Jump:
		return "Jump"
	case SecondaryJump:
		return "SecondaryJump"
	case NoJump:
		return "NoJump"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Grounded reports whether the strategy starts with the wheels on the floor.
func (s Strategy) Grounded() bool {
	return s == DoubleJump || s == Jump
}

// TargetInfo is an accepted aerial.
type TargetInfo struct {
	ShotVector  mgl64.Vec3
	Strategy    Strategy
	Target      mgl64.Vec3
	WaitForLand bool
	// BoostUsed is the projected boost consumption.
	BoostUsed float64
	TurnTime  float64
	// FinalVelocity is the velocity the car arrives with.
	FinalVelocity mgl64.Vec3
}

// BasicShotInfo reports the aerial as a found shot at time t.
func (ti TargetInfo) BasicShotInfo(t float64) core.BasicShotInfo {
	return core.BasicShotInfo{
		Found:      true,
		Time:       t,
		ShotType:   core.ShotAerial,
		ShotVector: core.FromVec(ti.ShotVector),
		IsForwards: true,
	}
}

// Request is one aerial question.
type Request struct {
	Target        mgl64.Vec3
	ShotVector    mgl64.Vec3
	TimeRemaining float64
	// BallLocation enables the facing check when set: the car must be
	// behind the ball relative to the shot.
	BallLocation *mgl64.Vec3
}

// start is the car state at the moment a strategy begins boosting toward
// the target, offset in time from now.
type start struct {
	offset   float64
	location mgl64.Vec3
	velocity mgl64.Vec3
	forward  mgl64.Vec3
}

// Analyze evaluates every strategy and returns the one using the least boost.
func Analyze(c *car.Car, req Request) (TargetInfo, bool) {
	t := req.TimeRemaining
	if t <= 0 {
		return TargetInfo{}, false
	}
	if !c.Airborne && c.Jumped {
		return TargetInfo{}, false
	}
	if !reachableAtAll(c, req.Target, t) {
		return TargetInfo{}, false
	}
	if req.BallLocation != nil {
		behind := c.Location.Sub(*req.BallLocation)
		if behind.Dot(req.ShotVector.Mul(-1)) <= 0 {
			return TargetInfo{}, false
		}
	}

	g := mgl64.Vec3{0, 0, c.Gravity}
	best := TargetInfo{}
	found := false

	for _, s := range Strategies {
		st, ok := strategyStart(c, s)
		if !ok {
			continue
		}
		info, ok := evaluate(c, st, req.Target, t, g)
		if !ok {
			continue
		}
		if !found || info.BoostUsed < best.BoostUsed {
			info.Strategy = s
			info.ShotVector = req.ShotVector
			info.Target = req.Target
			info.WaitForLand = s.Grounded() && c.Airborne
			best = info
			found = true
		}
	}
	return best, found
}

// reachableAtAll rejects targets that are too far for any strategy: the
// average speed must stay under the cap, and the distance must be coverable
// by current speed plus all remaining boost plus gravity.
func reachableAtAll(c *car.Car, target mgl64.Vec3, t float64) bool {
	dist := target.Sub(c.Location).Len()
	if dist/t > physics.MaxSpeed {
		return false
	}

	accel := c.Mutators.BoostAccel
	boostTime := t
	if !c.Mutators.Unlimited() {
		boostTime = math.Max(0, math.Min(t, c.Mutators.UsableBoost(float64(c.Boost))/physics.BoostConsumption))
	}
	// two jump impulses plus the held bonus
	const jumpSpeed = 3 * physics.JumpImpulse
	reach := c.Velocity.Len()*t +
		0.5*accel*boostTime*boostTime + accel*boostTime*(t-boostTime) +
		0.5*math.Abs(c.Gravity)*t*t +
		jumpSpeed*t
	return dist <= reach
}

func strategyStart(c *car.Car, s Strategy) (start, bool) {
	switch s {
	case DoubleJump, Jump:
		if c.Airborne && c.DoubleJumped {
			return start{}, false
		}
		return groundJump(c, s == DoubleJump), true
	case SecondaryJump:
		if !c.Airborne || c.DoubleJumped {
			return start{}, false
		}
		return start{
			location: c.Location,
			velocity: c.Velocity.Add(c.Up.Mul(physics.JumpImpulse)),
			forward:  c.Forward,
		}, true
	default:
		if !c.Airborne {
			return start{}, false
		}
		return start{location: c.Location, velocity: c.Velocity, forward: c.Forward}, true
	}
}

// groundJump simulates a held jump from wherever the car next has its
// wheels down.
func groundJump(c *car.Car, double bool) start {
	offset := c.JumpReadyTime() - c.GameTime
	loc, v := c.LandingLocation, c.LandingVelocity
	up, forward := c.Up, c.Forward
	if c.Airborne {
		v[2] = 0
		up = vec.Up
		forward = c.LandingForward
	}

	g := mgl64.Vec3{0, 0, c.Gravity}
	ticks := holdTicks
	if double {
		ticks += 2
	}
	for i := 0; i < ticks; i++ {
		if i == 0 {
			v = v.Add(up.Mul(physics.JumpImpulse))
		}
		if i < holdTicks {
			v = v.Add(up.Mul(physics.JumpHoldAccel * physics.SimulationDT))
		} else if double && i == holdTicks+1 {
			v = v.Add(up.Mul(physics.JumpImpulse))
		}
		if i < physics.StickyTicks {
			v = v.Add(up.Mul(physics.StickyForce * physics.SimulationDT))
		}
		v = v.Add(g.Mul(physics.SimulationDT))
		loc = loc.Add(v.Mul(physics.SimulationDT))
	}

	return start{
		offset:   offset + float64(ticks)*physics.SimulationDT,
		location: loc,
		velocity: v,
		forward:  forward,
	}
}

const holdTicks = 24

func evaluate(c *car.Car, st start, target mgl64.Vec3, t float64, g mgl64.Vec3) (TargetInfo, bool) {
	remaining := t - st.offset
	if remaining <= 0 {
		return TargetInfo{}, false
	}

	coast := ballistic(st.location, st.velocity, g, remaining)
	aim := target.Sub(coast)
	turn := physics.AerialTurnTime(headingDelta(st.forward, aim))
	if turn >= remaining {
		return TargetInfo{}, false
	}

	loc := ballistic(st.location, st.velocity, g, turn)
	v := st.velocity.Add(g.Mul(turn))
	tb := remaining - turn

	gap := target.Sub(ballistic(loc, v, g, tb))
	required := 2 * gap.Len() / (tb * tb)
	ratio := required / c.Mutators.BoostAccel
	if ratio > physics.AerialMaxBoostRatio {
		return TargetInfo{}, false
	}

	used := physics.BoostConsumption * tb * ratio
	if !c.Mutators.Unlimited() && used > 0 && used >= c.Mutators.UsableBoost(float64(c.Boost)) {
		return TargetInfo{}, false
	}

	final := v.Add(g.Mul(tb)).Add(gap.Mul(2 / tb))
	if final.Len() >= physics.AerialMaxFinalSpeed {
		return TargetInfo{}, false
	}

	return TargetInfo{BoostUsed: used, TurnTime: turn, FinalVelocity: final}, true
}

func ballistic(p, v, g mgl64.Vec3, t float64) mgl64.Vec3 {
	return p.Add(v.Mul(t)).Add(g.Mul(0.5 * t * t))
}

// headingDelta splits the rotation from one direction to another into yaw
// and pitch angles.
func headingDelta(from, to mgl64.Vec3) (yaw, pitch float64) {
	if to.Len() == 0 {
		return 0, 0
	}
	yaw = math.Abs(math.Remainder(vec.Heading(to)-vec.Heading(from), 2*math.Pi))
	pitch = math.Abs(pitchOf(to) - pitchOf(from))
	return yaw, pitch
}

func pitchOf(v mgl64.Vec3) float64 {
	return math.Atan2(v[2], math.Hypot(v[0], v[1]))
}
