package analyzer

import (
	"math"

	"github.com/arenabot/shotfinder/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

var down = mgl64.Vec3{0, 0, -1}

// PostCorrection is a goal interval narrowed so the whole ball clears both
// posts.
type PostCorrection struct {
	Left  mgl64.Vec3
	Right mgl64.Vec3
	// Fits is false when the ball is too wide for the opening as seen from
	// where it is.
	Fits bool
}

// CorrectForPosts narrows the left and right targets by the ball radius.
func CorrectForPosts(ball mgl64.Vec3, radius float64, left, right mgl64.Vec3) PostCorrection {
	goalPerp := right.Sub(left).Cross(vec.Up)

	leftAdjusted := left.Add(vec.NormalizeOrZero(left.Sub(ball)).Cross(down).Mul(radius))
	rightAdjusted := right.Add(vec.NormalizeOrZero(right.Sub(ball)).Cross(vec.Up).Mul(radius))

	leftCorrected := leftAdjusted
	if leftAdjusted.Sub(left).Dot(goalPerp) > 0 {
		leftCorrected = left
	}
	rightCorrected := rightAdjusted
	if rightAdjusted.Sub(right).Dot(goalPerp) > 0 {
		rightCorrected = right
	}

	leftToRight := rightCorrected.Sub(leftCorrected)
	width := leftToRight.Len()
	line := vec.NormalizeOrZero(leftToRight)
	perp := line.Cross(vec.Up)
	center := leftCorrected.Add(line.Mul(width / 2))
	ballToGoal := vec.NormalizeOrZero(center.Sub(ball))

	return PostCorrection{
		Left:  leftCorrected,
		Right: rightCorrected,
		Fits:  width*math.Abs(perp.Dot(ballToGoal)) > radius*2,
	}
}

// ShotVector is the horizontal car to ball direction clamped into the cone
// from the ball to the corrected posts.
func (pc PostCorrection) ShotVector(carLocation, ballLocation mgl64.Vec3) mgl64.Vec3 {
	dir := vec.NormalizeOrZero(vec.Flat(ballLocation.Sub(carLocation)))
	start := vec.NormalizeOrZero(vec.Flat(pc.Left.Sub(ballLocation)))
	end := vec.NormalizeOrZero(vec.Flat(pc.Right.Sub(ballLocation)))
	return clamp2D(dir, start, end)
}

// clamp2D returns v when it points between start and end, otherwise the
// closer of the two.
func clamp2D(v, start, end mgl64.Vec3) mgl64.Vec3 {
	s := vec.NormalizeOrZero(v)
	right := s.Dot(end.Cross(down)) < 0
	left := s.Dot(start.Cross(down)) > 0

	inside := right || left
	if end.Dot(start.Cross(down)) > 0 {
		inside = right && left
	}

	switch {
	case inside:
		return v
	case start.Dot(s) < end.Dot(s):
		return end
	default:
		return start
	}
}
