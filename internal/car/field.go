package car

import (
	"math"

	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

// Field is the goal-aware rectangle a car's centre must stay inside, inset
// by the car's dimensions.
type Field struct {
	GoalX  float64
	GoalY  float64
	FieldX float64
	FieldY float64
}

// NewField builds the rectangle for a hitbox.
func NewField(h core.Hitbox) Field {
	halfLength := h.Length / 2
	return Field{
		GoalX:  893 - h.Width,
		GoalY:  6000 - h.Length,
		FieldX: 4093 - halfLength,
		FieldY: 5120 - halfLength,
	}
}

// Contains reports whether the point's horizontal position is inside the
// field. Points within the goal mouth's width may go back into the net.
func (f Field) Contains(p mgl64.Vec3) bool {
	return f.ContainsXY(p[0], p[1])
}

// ContainsXY is Contains on raw coordinates.
func (f Field) ContainsXY(x, y float64) bool {
	x, y = math.Abs(x), math.Abs(y)
	if x > f.GoalX {
		return x < f.FieldX && y < f.FieldY
	}
	return y < f.GoalY
}

// Inset shrinks every edge of the field by d.
func (f Field) Inset(d float64) Field {
	return Field{GoalX: f.GoalX - d, GoalY: f.GoalY - d, FieldX: f.FieldX - d, FieldY: f.FieldY - d}
}

// ContainsSegment reports whether the whole straight line from a to b lies
// inside the field. The field is the union of the pitch and goal mouth
// rectangles, so the segment is clipped against each and the two covered
// stretches must join up.
func (f Field) ContainsSegment(ax, ay, bx, by float64) bool {
	if !f.ContainsXY(ax, ay) || !f.ContainsXY(bx, by) {
		return false
	}
	dx, dy := bx-ax, by-ay
	p0, p1, pok := clipBox(ax, ay, dx, dy, f.FieldX, f.FieldY)
	g0, g1, gok := clipBox(ax, ay, dx, dy, f.GoalX, f.GoalY)

	const eps = 1e-9
	switch {
	case pok && p0 <= eps && p1 >= 1-eps:
		return true
	case gok && g0 <= eps && g1 >= 1-eps:
		return true
	case !pok || !gok:
		return false
	case p0 <= eps && g1 >= 1-eps:
		return g0 <= p1+eps
	case g0 <= eps && p1 >= 1-eps:
		return p0 <= g1+eps
	}
	return false
}

// clipBox returns the stretch [t0, t1] of a+t*d, t in [0, 1], inside the
// box |x| <= hx, |y| <= hy.
func clipBox(ax, ay, dx, dy, hx, hy float64) (t0, t1 float64, ok bool) {
	t0, t1 = 0, 1
	for _, e := range [4][2]float64{
		{-dx, ax + hx},
		{dx, hx - ax},
		{-dy, ay + hy},
		{dy, hy - ay},
	} {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			t0 = math.Max(t0, r)
		} else {
			t1 = math.Min(t1, r)
		}
		if t0 > t1 {
			return 0, 0, false
		}
	}
	return t0, t1, true
}
