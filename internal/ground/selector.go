// Package ground plans and checks paths driven along the floor.
package ground

import (
	"math"

	"github.com/arenabot/shotfinder/internal/car"
	"github.com/arenabot/shotfinder/internal/dubins"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// pathCheckStep is the longest chord the swept path is split into.
	pathCheckStep = 100.0
	// pathSag is how far a turn may bulge past its chord.
	pathSag = 1.0
)

// ShortestPathInField returns the shortest word from q0 to q1 no longer than
// maxDistance whose swept path stays inside the field. Ties keep the first
// word in dubins.AllPathTypes order.
func ShortestPathInField(q0, q1 dubins.Pose, rho float64, field car.Field, maxDistance float64) (dubins.Path, bool) {
	in, err := dubins.NewIntermediate(q0, q1, rho)
	if err != nil {
		return dubins.Path{}, false
	}

	bestCost := math.Inf(1)
	var best dubins.Path
	found := false

	for _, t := range dubins.AllPathTypes {
		params, err := in.Word(t)
		if err != nil {
			continue
		}
		cost := params[0] + params[1] + params[2]
		if cost >= bestCost || cost*rho > maxDistance {
			continue
		}
		p := dubins.Path{Start: q0, Rho: rho, Params: params, Type: t}
		if !PathInField(p, field) {
			continue
		}
		bestCost = cost
		best = p
		found = true
	}
	return best, found
}

// PathInField reports whether the swept path stays inside the field. The
// path is split into chords short enough that no turn strays more than
// pathSag from them, and each chord is tested whole against the field
// shrunk by pathSag.
func PathInField(p dubins.Path, field car.Field) bool {
	step := pathCheckStep
	if p.Rho > 0 {
		step = math.Min(step, math.Sqrt(8*p.Rho*pathSag))
	}
	inner := field.Inset(pathSag)
	samples := p.SampleMany(step)
	for i := 1; i < len(samples); i++ {
		a, b := samples[i-1], samples[i]
		if !inner.ContainsSegment(a.X, a.Y, b.X, b.Y) {
			return false
		}
	}
	return true
}

// TurnExitTangent finds where a car circling center with radius rho should
// leave the circle to head straight at target. ccw is the direction of travel
// around the circle. The primary point faces the target; the secondary is the
// other tangent. ok is false when the target is inside the circle.
func TurnExitTangent(target, center mgl64.Vec3, rho float64, ccw bool) (primary, secondary mgl64.Vec3, ok bool) {
	dx, dy := target[0]-center[0], target[1]-center[1]
	d := math.Hypot(dx, dy)
	if d < rho || rho <= 0 {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}

	theta := math.Atan2(dy, dx)
	alpha := math.Acos(rho / d)

	first, second := theta+alpha, theta-alpha
	if ccw {
		first, second = second, first
	}
	a := pointOnCircle(center, rho, first)
	b := pointOnCircle(center, rho, second)

	switch fa, fb := facing(target, center, a, ccw), facing(target, center, b, ccw); {
	case fa:
		return a, b, true
	case fb:
		return b, a, true
	}

	if headingError(target, center, b, ccw) < headingError(target, center, a, ccw) {
		return b, a, true
	}
	return a, b, true
}

func pointOnCircle(center mgl64.Vec3, rho, phi float64) mgl64.Vec3 {
	return mgl64.Vec3{center[0] + rho*math.Cos(phi), center[1] + rho*math.Sin(phi), 0}
}

// travelDir is the direction of motion at p when circling center.
func travelDir(center, p mgl64.Vec3, ccw bool) mgl64.Vec3 {
	rx, ry := p[0]-center[0], p[1]-center[1]
	if ccw {
		return mgl64.Vec3{-ry, rx, 0}
	}
	return mgl64.Vec3{ry, -rx, 0}
}

func facing(target, center, p mgl64.Vec3, ccw bool) bool {
	toTarget := mgl64.Vec3{target[0] - p[0], target[1] - p[1], 0}
	return travelDir(center, p, ccw).Dot(toTarget) > 0
}

func headingError(target, center, p mgl64.Vec3, ccw bool) float64 {
	dir := travelDir(center, p, ccw)
	toTarget := mgl64.Vec3{target[0] - p[0], target[1] - p[1], 0}
	return math.Abs(math.Remainder(math.Atan2(toTarget[1], toTarget[0])-math.Atan2(dir[1], dir[0]), 2*math.Pi))
}
