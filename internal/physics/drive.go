package physics

import (
	"fmt"
	"math"
)

// ThrottleAcceleration is the full-throttle acceleration at forward speed v.
func ThrottleAcceleration(v float64) float64 {
	v = math.Abs(v)
	switch {
	case v < 1400:
		return 1600 - v*(36.0/35.0)
	case v < 1410:
		return 160 - (v-1400)*16
	default:
		return 0
	}
}

// curvatureBands are [from, to) speed ranges with a linear curvature fit.
var curvatureBands = [...]struct{ from, to, b, m float64 }{
	{0, 500, 0.0069, -5.84e-6},
	{500, 1000, 0.00561, -3.26e-6},
	{1000, 1500, 0.0043, -1.95e-6},
	{1500, 1750, 0.003025, -1.1e-6},
	{1750, 2500, 0.0018, -4e-7},
}

// Curvature returns the turning curvature at forward speed v.
// Speeds outside [0, 2500) have no curvature.
func Curvature(v float64) (float64, error) {
	for _, band := range curvatureBands {
		if v >= band.from && v < band.to {
			return band.b + band.m*v, nil
		}
	}
	return 0, fmt.Errorf("%w: %v", ErrInvalidSpeed, v)
}

// TurnRadius returns 1/Curvature(v).
func TurnRadius(v float64) (float64, error) {
	k, err := Curvature(v)
	if err != nil {
		return 0, err
	}
	return 1 / k, nil
}

// MustTurnRadius is TurnRadius for speeds already clamped to the valid range.
func MustTurnRadius(v float64) float64 {
	r, err := TurnRadius(math.Min(MaxSpeed, math.Abs(v)))
	if err != nil {
		panic(err)
	}
	return r
}
