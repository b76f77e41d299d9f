// Package physics holds the car dynamics model shared by every shot search:
// throttle and boost acceleration, turning curvature, jump kinematics and the
// aerial turn time estimate.
package physics

import "errors"

const (
	TicksPerSecond = 120
	SimulationDT   = 1.0 / TicksPerSecond

	MaxSpeed        = 2300.0
	MaxSpeedNoBoost = 1410.0
	MinSpeed        = -MaxSpeedNoBoost

	BoostAccel       = 991.0 + 2.0/3.0
	BoostConsumption = 33.3 + 1.0/33.0
	MinBoostTime     = 3.0 / TicksPerSecond
	// MinBoostConsumption is what the shortest possible boost press costs.
	MinBoostConsumption = BoostConsumption * MinBoostTime
	// BoostReserve is held back from every boost budget.
	BoostReserve = 12.0

	BrakeAccel = 3500.0
	CoastAccel = 525.0

	BrakeCoastTransition       = -(0.45*BrakeAccel + 0.55*CoastAccel)
	CoastingThrottleTransition = -0.5 * CoastAccel

	ReactionTime      = 0.04
	SteerReactionTime = 0.25

	JumpImpulse  = 292.0
	JumpHoldTime = 0.2
	// JumpHoldAccel is the extra upward acceleration while jump is held.
	JumpHoldAccel = JumpImpulse * 5
	StickyForce   = -325.0
	StickyTicks   = 3
	// WaitToJump is the settle time after landing before a jump registers.
	WaitToJump = 0.1

	// CarRestHeight is the height of a car's centre when resting on the floor.
	CarRestHeight  = 17.0
	DefaultGravity = -650.0

	// OnPaceTolerance is how close the required and current speed must be to
	// count as already on pace.
	OnPaceTolerance = 100.0
	// CurveDrag scales the extra deceleration v²·κ(v) felt while turning.
	CurveDrag = 0.05
	// PathEndTolerance is the distance at which a path counts as finished.
	PathEndTolerance = 1.0

	// AerialMaxBoostRatio caps the share of boost acceleration an aerial may use.
	AerialMaxBoostRatio = 0.9
	// AerialMaxFinalSpeed caps the speed an aerial may arrive with.
	AerialMaxFinalSpeed = 0.9 * MaxSpeed
)

// ErrInvalidSpeed is returned for speeds outside the curvature table.
var ErrInvalidSpeed = errors.New("invalid speed")
