// Package ballpred predicts the ball's future trajectory in fixed 120 Hz slices.
package ballpred

import (
	"math"

	"github.com/arenabot/shotfinder/internal/physics"
	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultHorizon is how far ahead a prediction runs when the caller does not say.
const DefaultHorizon = 6.0

// Ball is the ball state a prediction starts from.
type Ball struct {
	Time            float64
	Location        mgl64.Vec3
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3
	Radius          float64
}

// BallFromInfo converts a packet ball. A zero radius takes the arena default.
func BallFromInfo(info core.BallInfo, gameTime, defaultRadius float64) Ball {
	r := info.Radius
	if r <= 0 {
		r = defaultRadius
	}
	return Ball{
		Time:            gameTime,
		Location:        info.Physics.Location.Vec(),
		Velocity:        info.Physics.Velocity.Vec(),
		AngularVelocity: info.Physics.AngularVelocity.Vec(),
		Radius:          r,
	}
}

// Predictor produces a prediction from a ball state.
type Predictor interface {
	Predict(ball Ball, gravity, horizon float64) Prediction
}

// Prediction is an ordered, strictly increasing in time, run of slices.
// It is read only once built.
type Prediction struct {
	Slices []core.BallSlice
	Radius float64
}

// Len is the number of slices.
func (p Prediction) Len() int {
	return len(p.Slices)
}

// Empty reports whether there are no slices.
func (p Prediction) Empty() bool {
	return len(p.Slices) == 0
}

// At returns slice i clamped into range. The prediction must not be empty.
func (p Prediction) At(i int) core.BallSlice {
	return p.Slices[p.Clamp(i)]
}

// Clamp maps any index into [0, Len-1].
func (p Prediction) Clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(p.Slices) {
		return len(p.Slices) - 1
	}
	return i
}

// IndexAt maps an absolute game time to the nearest slice index, given the
// game time the prediction was made at.
func (p Prediction) IndexAt(gameTime, t float64) int {
	n := int(math.Round((t - gameTime) * physics.TicksPerSecond))
	if n < 1 {
		n = 1
	}
	if n > len(p.Slices) {
		n = len(p.Slices)
	}
	return n - 1
}

// LastTime is the time of the final slice, or -Inf when empty.
func (p Prediction) LastTime() float64 {
	if len(p.Slices) == 0 {
		return math.Inf(-1)
	}
	return p.Slices[len(p.Slices)-1].Time
}
