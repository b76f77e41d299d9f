package physics

import "math"

const (
	aerialAngularAccel   = 9.5
	aerialMaxAngularRate = 5.5
	aerialTurnReaction   = 1.0 / 30

	// below this normalised deviation the closed form is used
	turnSmallDeviation = 0.05
	// above this the estimate grows linearly at the max rotation rate
	turnLargeDeviation = 1.0
)

// turnTimePoly is evaluated on the normalised deviation in
// [turnSmallDeviation, turnLargeDeviation], lowest order first.
var turnTimePoly = [...]float64{
	0.164427,
	2.925886,
	-7.52972,
	16.051382,
	-20.395954,
	13.714218,
	-3.747764,
}

func horner(x float64) float64 {
	r := 0.0
	for i := len(turnTimePoly) - 1; i >= 0; i-- {
		r = r*x + turnTimePoly[i]
	}
	return r
}

// AerialTurnTime estimates the seconds a car in the air needs to re-point its
// nose by the given yaw and pitch deltas (radians).
func AerialTurnTime(yawDelta, pitchDelta float64) float64 {
	x := math.Hypot(yawDelta, pitchDelta) / math.Pi
	x = math.Min(x, math.Sqrt2)

	switch {
	case x < turnSmallDeviation:
		return 2*math.Sqrt(x*math.Pi/aerialAngularAccel) + aerialTurnReaction
	case x <= turnLargeDeviation:
		return horner(x)
	default:
		return horner(turnLargeDeviation) + (x-turnLargeDeviation)*math.Pi/aerialMaxAngularRate
	}
}
