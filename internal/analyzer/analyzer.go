// Package analyzer turns one predicted ball slice into a candidate shot for
// one car: it picks the shot type, the travel direction and the ground path
// or aerial target.
package analyzer

import (
	"math"

	"github.com/arenabot/shotfinder/internal/air"
	"github.com/arenabot/shotfinder/internal/car"
	"github.com/arenabot/shotfinder/internal/dubins"
	"github.com/arenabot/shotfinder/internal/ground"
	"github.com/arenabot/shotfinder/internal/physics"
	"github.com/arenabot/shotfinder/internal/vec"
	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// alignedDistance is the straight run-up reserved for ground shots the
	// car is not already lined up for.
	alignedDistance = 320.0
	// jumpRunUp is added to the distance covered while jumping.
	jumpRunUp = 128.0
	// reverseWindow is how soon a shot must be for reversing into it.
	reverseWindow = 4.0
	// alignedAngle is the largest shot angle that counts as lined up.
	alignedAngle = 0.02
)

// Options configure an Analyzer.
type Options struct {
	// May enables ground, jump, double jump and aerial shots, in that order.
	May [4]bool
	// Absolute plans with the top speed of the car instead of the speed it
	// can reach by each slice.
	Absolute     bool
	ForwardsOnly bool
}

// Analyzer judges slices for one car.
type Analyzer struct {
	car  *car.Car
	opts Options
}

// New returns an analyzer for c.
func New(c *car.Car, opts Options) Analyzer {
	return Analyzer{car: c, opts: opts}
}

func (a Analyzer) may(t core.ShotType) bool {
	return a.opts.May[t]
}

// MaxSpeed is the speed to plan with for a slice.
func (a Analyzer) MaxSpeed(slice int) float64 {
	if a.opts.Absolute {
		return physics.MaxSpeed
	}
	return a.car.SliceMaxSpeed(slice)
}

// TurnRadius is the turn radius to plan with for a slice.
func (a Analyzer) TurnRadius(slice int) float64 {
	if a.opts.Absolute {
		return physics.MustTurnRadius(physics.MaxSpeed)
	}
	return a.car.SliceTurnRadius(slice)
}

// ShotType picks how a ball at location with the given radius would be hit
// timeRemaining from now. ok is false when no enabled shot type fits.
func (a Analyzer) ShotType(location mgl64.Vec3, radius, timeRemaining float64) (core.ShotType, bool) {
	c := a.car
	bottom := location[2] - radius

	switch {
	case c.Airborne && timeRemaining < c.TimeToLand:
		if a.may(core.ShotAerial) {
			return core.ShotAerial, true
		}
	case bottom < c.Hitbox.Height/2+17:
		if a.may(core.ShotGround) {
			return core.ShotGround, true
		}
	case bottom < c.MaxJumpHeight:
		if a.may(core.ShotJump) {
			return core.ShotJump, true
		}
	case bottom < c.MaxDoubleJumpHeight:
		if a.may(core.ShotDoubleJump) {
			return core.ShotDoubleJump, true
		}
	}

	if a.may(core.ShotAerial) && (c.Airborne || c.JumpReadyTime()-c.GameTime < timeRemaining) {
		return core.ShotAerial, true
	}
	return 0, false
}

// jumpInfo returns the jump time, if any, and the straight distance the car
// needs before the contact point.
func (a Analyzer) jumpInfo(ball, target, shotVector mgl64.Vec3, maxSpeed, timeRemaining float64, st core.ShotType) (jumpTime float64, hasJump bool, end float64, ok bool) {
	c := a.car
	switch st {
	case core.ShotGround:
		local := c.Localize(ball.Sub(c.Location))
		if local[0] >= 0 && local[0] < alignedDistance &&
			math.Abs(local[1]) < c.Hitbox.Width/2 &&
			vec.Angle2D(c.Forward, shotVector) < alignedAngle {
			return 0, false, 0, true
		}
		return 0, false, alignedDistance, true
	case core.ShotJump:
		t := c.JumpTimeToHeight(target[2] - c.Hitbox.Height/2)
		return t, true, t*maxSpeed + jumpRunUp, true
	case core.ShotDoubleJump:
		if timeRemaining < c.MaxJumpTime {
			return 0, false, 0, false
		}
		t := c.DoubleJumpTimeToHeight(target[2] - c.Hitbox.Height/2)
		return t, true, t*maxSpeed + jumpRunUp, true
	default:
		return 0, false, 0, false
	}
}

// ShouldTravelForwards reports whether to drive at the ball forwards. Shots
// soon and behind the landing heading are taken in reverse.
func (a Analyzer) ShouldTravelForwards(timeRemaining float64, shotVector mgl64.Vec3) bool {
	if a.opts.ForwardsOnly {
		return true
	}
	backwards := timeRemaining < reverseWindow && vec.Angle2D(shotVector, a.car.LandingForward) > 2*math.Pi/3
	return !backwards
}

// Target plans a ground path that meets the ball travelling along
// shotVector.
func (a Analyzer) Target(ball mgl64.Vec3, radius float64, shotVector mgl64.Vec3, timeRemaining float64, slice int, st core.ShotType) (ground.TargetInfo, bool) {
	c := a.car
	offsetTarget := ball.Sub(shotVector.Mul(radius))
	front := c.FrontLength()
	maxSpeed := a.MaxSpeed(slice)

	timeRemaining -= c.TimeToLand
	if timeRemaining <= 0 {
		return ground.TargetInfo{}, false
	}
	carLocation := vec.Flat(c.LandingLocation)
	maxDistance := timeRemaining*maxSpeed + front

	if carLocation.Sub(vec.Flat(offsetTarget)).Len() > maxDistance {
		return ground.TargetInfo{}, false
	}

	jumpTime, hasJump, end, ok := a.jumpInfo(ball, offsetTarget, shotVector, maxSpeed, timeRemaining, st)
	if !ok || (hasJump && jumpTime > timeRemaining) {
		return ground.TargetInfo{}, false
	}

	exit := vec.Flat(offsetTarget).Sub(vec.NormalizeOrZero(vec.Flat(shotVector)).Mul(end))
	if !c.Field.Contains(exit) || carLocation.Sub(exit).Len()+end > maxDistance {
		return ground.TargetInfo{}, false
	}

	isForwards := a.ShouldTravelForwards(timeRemaining, shotVector)
	yaw := c.LandingYaw
	if !isForwards {
		yaw += math.Pi
	}

	q0 := dubins.Pose{X: carLocation[0], Y: carLocation[1], Yaw: vec.Mod2Pi(yaw)}
	q1 := dubins.Pose{X: exit[0], Y: exit[1], Yaw: vec.Mod2Pi(vec.Heading(shotVector))}

	path, ok := ground.ShortestPathInField(q0, q1, a.TurnRadius(slice), c.Field, maxDistance)
	if !ok {
		return ground.TargetInfo{}, false
	}

	return ground.TargetInfo{
		Distances:   [4]float64{path.SegmentLength(0), path.SegmentLength(1), path.SegmentLength(2), end - front},
		Path:        path,
		ShotType:    st,
		JumpTime:    jumpTime,
		HasJump:     hasJump,
		IsForwards:  isForwards,
		ShotVector:  shotVector,
		WaitForLand: c.Airborne,
	}, true
}

// NoTarget plans a single turn followed by a straight line into the ball,
// without caring where the ball goes afterwards.
func (a Analyzer) NoTarget(ball mgl64.Vec3, radius, timeRemaining float64, slice int, st core.ShotType) (ground.TargetInfo, bool) {
	c := a.car
	front := c.FrontLength()
	maxSpeed := a.MaxSpeed(slice)

	timeRemaining -= c.TimeToLand
	if timeRemaining <= 0 {
		return ground.TargetInfo{}, false
	}
	carLocation := vec.Flat(c.LandingLocation)
	flatBall := vec.Flat(ball)
	maxDistance := timeRemaining*maxSpeed + front + radius

	if carLocation.Sub(flatBall).Len() > maxDistance {
		return ground.TargetInfo{}, false
	}

	carToBall := vec.NormalizeOrZero(ball.Sub(c.Location))

	var (
		jumpTime float64
		hasJump  bool
		end      float64
	)
	if st != core.ShotGround {
		var ok bool
		jumpTime, hasJump, end, ok = a.jumpInfo(ball, ball, carToBall, maxSpeed, timeRemaining, st)
		if !ok || (hasJump && jumpTime > timeRemaining) {
			return ground.TargetInfo{}, false
		}
	}

	rho := a.TurnRadius(slice)
	isForwards := a.ShouldTravelForwards(timeRemaining, carToBall)

	local := c.LocalizeLanding2D(ball)
	turnLeft := local[1] < 0
	side := c.LandingRight
	if turnLeft {
		side = side.Mul(-1)
	}
	center := carLocation.Add(vec.Flat(side).Mul(rho))

	// the direction of travel around the circle, which flips when reversing
	directionLeft := isForwards == turnLeft

	exit, exit2, ok := ground.TurnExitTangent(flatBall, center, rho, !directionLeft)
	if !ok || !c.Field.Contains(exit) {
		return ground.TargetInfo{}, false
	}

	final := exit.Sub(flatBall).Len() - radius - front
	offset := end - front - radius
	if final < offset || final+exit.Sub(carLocation).Len() > maxDistance {
		return ground.TargetInfo{}, false
	}

	shotVector := vec.NormalizeOrZero(flatBall.Sub(exit))
	forward := c.LandingForward
	if !isForwards {
		forward = forward.Mul(-1)
	}
	var turn float64
	if directionLeft {
		turn = vec.Mod2Pi(vec.Heading(forward) - vec.Heading(shotVector))
	} else {
		turn = vec.Mod2Pi(vec.Heading(shotVector) - vec.Heading(forward))
	}

	arc := turn * rho
	if final+arc > maxDistance {
		return ground.TargetInfo{}, false
	}

	pathType := dubins.LSR
	if directionLeft {
		pathType = dubins.RSL
	}

	return ground.TargetInfo{
		Distances: [4]float64{arc, 0, 0, final},
		Path: dubins.Path{
			Start:  dubins.Pose{X: carLocation[0], Y: carLocation[1], Yaw: vec.Heading(forward)},
			Rho:    rho,
			Params: [3]float64{turn, 0, 0},
			Type:   pathType,
		},
		ShotType:       st,
		JumpTime:       jumpTime,
		HasJump:        hasJump,
		IsForwards:     isForwards,
		ShotVector:     shotVector,
		TurnTargets:    [2]mgl64.Vec3{exit, exit2},
		HasTurnTargets: true,
		WaitForLand:    c.Airborne,
	}, true
}

// Aerial checks an aerial at target. ballLocation, when set, also requires
// the car to be behind the ball.
func (a Analyzer) Aerial(target, shotVector mgl64.Vec3, timeRemaining float64, ballLocation *mgl64.Vec3) (air.TargetInfo, bool) {
	return air.Analyze(a.car, air.Request{
		Target:        target,
		ShotVector:    shotVector,
		TimeRemaining: timeRemaining,
		BallLocation:  ballLocation,
	})
}

// AerialGoalTarget is where the car's nose should be to push the ball
// along a horizontal shot vector.
func (a Analyzer) AerialGoalTarget(ball mgl64.Vec3, radius float64, shotVector mgl64.Vec3) mgl64.Vec3 {
	edge := ball.Sub(vec.Flat(shotVector).Mul(radius))
	return edge.Sub(mgl64.Vec3{0, 0, shotVector[2]}.Mul(a.car.FrontLength()))
}

// AerialAnyTarget is the aerial contact point and shot vector for hitting
// the ball from wherever the car is.
func (a Analyzer) AerialAnyTarget(ball mgl64.Vec3, radius float64) (target, shotVector mgl64.Vec3) {
	c := a.car
	edge := ball.Sub(vec.NormalizeOrZero(vec.Flat(ball.Sub(c.Location))).Mul(radius))
	shotVector = vec.NormalizeOrZero(edge.Sub(c.Location))
	return edge.Sub(shotVector.Mul(c.FrontLength())), shotVector
}
