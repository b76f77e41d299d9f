// Package car derives the kinematic capabilities of a car from its state.
package car

import (
	"math"

	"github.com/arenabot/shotfinder/internal/physics"
	"github.com/arenabot/shotfinder/internal/vec"
	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// Car is one car's primary state plus everything derived from it.
// Derived fields are recomputed on every Update.
type Car struct {
	Location         mgl64.Vec3
	Velocity         mgl64.Vec3
	AngularVelocity  mgl64.Vec3
	Pitch, Yaw, Roll float64
	Hitbox           core.Hitbox
	HitboxOffset     mgl64.Vec3
	Boost            uint8
	Demolished       bool
	Airborne         bool
	Jumped           bool
	DoubleJumped     bool

	// Orientation has forward, right and up as its columns.
	Orientation   mgl64.Mat3
	Forward       mgl64.Vec3
	Right         mgl64.Vec3
	Up            mgl64.Vec3
	LocalVelocity mgl64.Vec3
	Field         Field

	// MaxSpeed is the top speed reachable on the current boost.
	MaxSpeed float64
	// CTRMS is the turn radius at MaxSpeed.
	CTRMS float64

	// SliceMaxSpeeds and SliceCTRMS hold the speed the car can reach by
	// each prediction slice, and the turn radius at that speed.
	SliceMaxSpeeds []float64
	SliceCTRMS     []float64

	TimeToLand      float64
	LandingLocation mgl64.Vec3
	LandingVelocity mgl64.Vec3
	LandingYaw      float64
	LandingForward  mgl64.Vec3
	LandingRight    mgl64.Vec3
	// LastLanding is the game time the wheels last touched down after being
	// airborne. -Inf for a car never seen in the air.
	LastLanding float64
	GameTime    float64

	MaxJumpHeight       float64
	MaxDoubleJumpHeight float64
	MaxJumpTime         float64

	Gravity  float64
	Mutators physics.Mutators

	seen        bool
	jumpGravity float64
}

// New returns a car with no state yet.
func New() *Car {
	return &Car{LastLanding: math.Inf(-1), Mutators: physics.DefaultMutators()}
}

// Update replaces the primary state and recomputes every derived field.
func (c *Car) Update(info core.CarInfo, gameTime, gravity float64, m physics.Mutators) {
	wasAirborne := c.Airborne

	p := info.Physics
	c.Location = p.Location.Vec()
	c.Velocity = p.Velocity.Vec()
	c.AngularVelocity = p.AngularVelocity.Vec()
	c.Pitch, c.Yaw, c.Roll = p.Rotation.Pitch, p.Rotation.Yaw, p.Rotation.Roll
	c.Hitbox = info.Hitbox
	c.HitboxOffset = info.HitboxOffset.Vec()
	c.Boost = info.Boost
	c.Demolished = info.Demolished
	c.Airborne = !info.HasWheelContact
	c.Jumped = info.Jumped
	c.DoubleJumped = info.DoubleJumped
	c.GameTime = gameTime
	c.Gravity = gravity
	c.Mutators = m

	switch {
	case !c.seen:
		c.LastLanding = math.Inf(-1)
		c.seen = true
	case wasAirborne && !c.Airborne:
		c.LastLanding = gameTime
	}

	c.updateOrientation()
	c.LocalVelocity = c.Localize(c.Velocity)
	c.MaxSpeed = c.maxSpeed()
	c.CTRMS = physics.MustTurnRadius(c.MaxSpeed)
	c.Field = NewField(c.Hitbox)
	c.updateLanding()
	c.updateJumpLimits()
	c.SliceMaxSpeeds = c.SliceMaxSpeeds[:0]
	c.SliceCTRMS = c.SliceCTRMS[:0]
}

func (c *Car) updateOrientation() {
	cp, sp := math.Cos(c.Pitch), math.Sin(c.Pitch)
	cy, sy := math.Cos(c.Yaw), math.Sin(c.Yaw)
	cr, sr := math.Cos(c.Roll), math.Sin(c.Roll)

	c.Forward = mgl64.Vec3{cp * cy, cp * sy, sp}
	c.Right = mgl64.Vec3{cy*sp*sr - cr*sy, sy*sp*sr + cr*cy, -cp * sr}
	c.Up = mgl64.Vec3{-cr*cy*sp - sr*sy, -cr*sy*sp + sr*cy, cp * cr}
	c.Orientation = mgl64.Mat3FromCols(c.Forward, c.Right, c.Up)
}

// Localize expresses a world direction in the car's forward, right, up frame.
func (c *Car) Localize(v mgl64.Vec3) mgl64.Vec3 {
	return c.Orientation.Transpose().Mul3x1(v)
}

// LocalizeLanding2D expresses a world point relative to where and how the
// car will be on the ground: x along the landing heading, y to its right.
func (c *Car) LocalizeLanding2D(p mgl64.Vec3) mgl64.Vec3 {
	d := vec.Flat(p.Sub(c.LandingLocation))
	return mgl64.Vec3{d.Dot(c.LandingForward), d.Dot(c.LandingRight), 0}
}

// FrontLength is the distance from the car's centre to its front bumper
// used when offsetting contact points.
func (c *Car) FrontLength() float64 {
	return (c.HitboxOffset[0] + c.Hitbox.Length) / 2
}

func (c *Car) maxSpeed() float64 {
	return MaxSpeedWithBoost(c.Velocity.Dot(c.Forward), float64(c.Boost), c.Mutators)
}

// MaxSpeedWithBoost simulates full throttle plus boost from forward speed v
// until boost runs out or the speed cap is hit.
func MaxSpeedWithBoost(v, boost float64, m physics.Mutators) float64 {
	if m.Unlimited() {
		return physics.MaxSpeed
	}
	b := boost
	if m.NoBoost() {
		b = 0
	}
	consumption := physics.BoostConsumption * physics.SimulationDT
	boostDT := m.BoostAccelDT()

	for {
		if v >= physics.MaxSpeed {
			return physics.MaxSpeed
		}
		if b < consumption {
			return math.Max(v, physics.MaxSpeedNoBoost)
		}
		if v < 0 {
			v += physics.BrakeAccel * physics.SimulationDT
			continue
		}
		v += physics.ThrottleAcceleration(v)*physics.SimulationDT + boostDT
		b -= consumption
	}
}

func (c *Car) updateLanding() {
	c.LandingYaw = c.Yaw
	c.LandingForward = mgl64.Vec3{math.Cos(c.Yaw), math.Sin(c.Yaw), 0}
	c.LandingRight = mgl64.Vec3{-math.Sin(c.Yaw), math.Cos(c.Yaw), 0}

	if !c.Airborne {
		c.TimeToLand = 0
		c.LandingLocation = c.Location
		c.LandingVelocity = c.Velocity
		return
	}

	t := timeToFall(c.Location[2]-physics.CarRestHeight, c.Velocity[2], c.Gravity)
	c.TimeToLand = t
	if math.IsInf(t, 1) {
		c.LandingLocation = c.Location
		c.LandingVelocity = c.Velocity
		return
	}
	g := mgl64.Vec3{0, 0, c.Gravity}
	c.LandingLocation = c.Location.Add(c.Velocity.Mul(t)).Add(g.Mul(0.5 * t * t))
	c.LandingLocation[2] = physics.CarRestHeight
	c.LandingVelocity = c.Velocity.Add(g.Mul(t))
}

// timeToFall solves h + v·t + g·t²/2 = 0 for the first t ≥ 0.
func timeToFall(h, v, g float64) float64 {
	if h <= 0 {
		return 0
	}
	if g >= 0 {
		if v < 0 {
			return -h / v
		}
		return math.Inf(1)
	}
	disc := v*v - 2*g*h
	return (-v - math.Sqrt(disc)) / g
}

func (c *Car) updateJumpLimits() {
	if c.jumpGravity == c.Gravity && c.MaxJumpHeight != 0 {
		return
	}
	c.jumpGravity = c.Gravity
	c.MaxJumpHeight = physics.MaxJumpHeight(c.Gravity)
	c.MaxDoubleJumpHeight = physics.MaxDoubleJumpHeight(c.Gravity)
	c.MaxJumpTime = physics.MaxJumpTime(c.Gravity)
}

// JumpTimeToHeight is the single jump time needed to lift the car to height.
func (c *Car) JumpTimeToHeight(height float64) float64 {
	return physics.JumpTimeToHeight(c.Gravity, height)
}

// DoubleJumpTimeToHeight is JumpTimeToHeight for a double jump.
func (c *Car) DoubleJumpTimeToHeight(height float64) float64 {
	return physics.DoubleJumpTimeToHeight(c.Gravity, height)
}

// JumpReadyTime is the earliest game time the car can jump off the ground.
func (c *Car) JumpReadyTime() float64 {
	if c.Airborne {
		return c.GameTime + c.TimeToLand + physics.WaitToJump
	}
	return math.Max(c.GameTime, c.LastLanding+physics.WaitToJump)
}

// Init fills the per-slice speed and turn radius tables for a prediction of
// numSlices slices.
func (c *Car) Init(numSlices int) {
	if cap(c.SliceMaxSpeeds) < numSlices {
		c.SliceMaxSpeeds = make([]float64, numSlices)
		c.SliceCTRMS = make([]float64, numSlices)
	}
	c.SliceMaxSpeeds = c.SliceMaxSpeeds[:numSlices]
	c.SliceCTRMS = c.SliceCTRMS[:numSlices]

	v := c.LocalVelocity[0]
	b := c.Mutators.UsableBoost(float64(c.Boost))
	consumption := physics.BoostConsumption * physics.SimulationDT
	boostDT := c.Mutators.BoostAccelDT()

	for i := 0; i < numSlices; i++ {
		switch {
		case v < 0:
			v = math.Min(0, v+physics.BrakeAccel*physics.SimulationDT)
		case b >= consumption && v < physics.MaxSpeed:
			v += physics.ThrottleAcceleration(v)*physics.SimulationDT + boostDT
			b -= consumption
		default:
			v += physics.ThrottleAcceleration(v) * physics.SimulationDT
		}
		v = math.Min(v, physics.MaxSpeed)

		c.SliceMaxSpeeds[i] = math.Max(v, 0)
		c.SliceCTRMS[i] = physics.MustTurnRadius(c.SliceMaxSpeeds[i])
	}
}

// SliceMaxSpeed is the per-slice top speed, clamped into the table.
func (c *Car) SliceMaxSpeed(i int) float64 {
	if len(c.SliceMaxSpeeds) == 0 {
		return c.MaxSpeed
	}
	return c.SliceMaxSpeeds[clampIndex(i, len(c.SliceMaxSpeeds))]
}

// SliceTurnRadius is the per-slice turn radius, clamped into the table.
func (c *Car) SliceTurnRadius(i int) float64 {
	if len(c.SliceCTRMS) == 0 {
		return c.CTRMS
	}
	return c.SliceCTRMS[clampIndex(i, len(c.SliceCTRMS))]
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
