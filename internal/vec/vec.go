// Package vec holds the few vector helpers mgl64 does not provide.
package vec

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Up is the world up axis.
var Up = mgl64.Vec3{0, 0, 1}

// Flat drops the vertical component.
func Flat(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], 0}
}

// NormalizeOrZero returns the unit vector of v, or zero for a zero vector.
// mgl64's Normalize yields NaN for zero input.
func NormalizeOrZero(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / l)
}

// Angle2D is the unsigned angle between the horizontal parts of a and b.
func Angle2D(a, b mgl64.Vec3) float64 {
	d := NormalizeOrZero(Flat(a)).Dot(NormalizeOrZero(Flat(b)))
	return math.Acos(mgl64.Clamp(d, -1, 1))
}

// Angle is the unsigned angle between a and b.
func Angle(a, b mgl64.Vec3) float64 {
	d := NormalizeOrZero(a).Dot(NormalizeOrZero(b))
	return math.Acos(mgl64.Clamp(d, -1, 1))
}

// Heading is the yaw of the horizontal part of v.
func Heading(v mgl64.Vec3) float64 {
	return math.Atan2(v[1], v[0])
}

// Mod2Pi wraps an angle into [0, 2π).
func Mod2Pi(theta float64) float64 {
	m := math.Mod(theta, 2*math.Pi)
	if m < 0 {
		m += 2 * math.Pi
	}
	if m >= 2*math.Pi {
		m = 0
	}
	return m
}
