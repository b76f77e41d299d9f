package dubins

import (
	"math"

	"github.com/arenabot/shotfinder/internal/vec"
)

// Path is a solved word anchored at a start pose. Params are the segment
// lengths divided by Rho.
type Path struct {
	Start  Pose
	Rho    float64
	Params [3]float64
	Type   PathType
}

// New solves a single word.
func New(q0, q1 Pose, rho float64, t PathType) (Path, error) {
	in, err := NewIntermediate(q0, q1, rho)
	if err != nil {
		return Path{}, err
	}
	params, err := in.Word(t)
	if err != nil {
		return Path{}, err
	}
	return Path{Start: q0, Rho: rho, Params: params, Type: t}, nil
}

// Shortest returns the shortest of all words.
func Shortest(q0, q1 Pose, rho float64) (Path, error) {
	in, err := NewIntermediate(q0, q1, rho)
	if err != nil {
		return Path{}, err
	}
	best := Path{}
	bestCost := math.Inf(1)
	for _, t := range AllPathTypes {
		params, err := in.Word(t)
		if err != nil {
			continue
		}
		if c := params[0] + params[1] + params[2]; c < bestCost {
			bestCost = c
			best = Path{Start: q0, Rho: rho, Params: params, Type: t}
		}
	}
	if math.IsInf(bestCost, 1) {
		return Path{}, ErrNoPath
	}
	return best, nil
}

// Length is the world length of the path.
func (p Path) Length() float64 {
	return (p.Params[0] + p.Params[1] + p.Params[2]) * p.Rho
}

// SegmentLength is the world length of segment i.
func (p Path) SegmentLength(i int) float64 {
	return p.Params[i] * p.Rho
}

// segment advances a unit-radius pose q by t along seg.
func segment(t float64, q Pose, seg Segment) Pose {
	st, ct := math.Sin(q.Yaw), math.Cos(q.Yaw)
	switch seg {
	case L:
		return Pose{q.X + math.Sin(q.Yaw+t) - st, q.Y - math.Cos(q.Yaw+t) + ct, q.Yaw + t}
	case R:
		return Pose{q.X - math.Sin(q.Yaw-t) + st, q.Y + math.Cos(q.Yaw-t) - ct, q.Yaw - t}
	default:
		return Pose{q.X + ct*t, q.Y + st*t, q.Yaw}
	}
}

// Sample returns the pose at distance t along the path, clamped to its ends.
func (p Path) Sample(t float64) Pose {
	tp := math.Max(0, math.Min(t, p.Length())) / p.Rho
	segs := p.Type.Segments()

	qi := Pose{Yaw: p.Start.Yaw}
	q1 := segment(p.Params[0], qi, segs[0])
	q2 := segment(p.Params[1], q1, segs[1])

	var q Pose
	switch {
	case tp < p.Params[0]:
		q = segment(tp, qi, segs[0])
	case tp < p.Params[0]+p.Params[1]:
		q = segment(tp-p.Params[0], q1, segs[1])
	default:
		q = segment(tp-p.Params[0]-p.Params[1], q2, segs[2])
	}

	return Pose{
		X:   q.X*p.Rho + p.Start.X,
		Y:   q.Y*p.Rho + p.Start.Y,
		Yaw: vec.Mod2Pi(q.Yaw),
	}
}

// SampleMany samples every step units from the start. The end pose is always
// the final sample.
func (p Path) SampleMany(step float64) []Pose {
	length := p.Length()
	if step <= 0 {
		return []Pose{p.Sample(0), p.Sample(length)}
	}
	out := make([]Pose, 0, int(length/step)+2)
	for x := 0.0; x < length; x += step {
		out = append(out, p.Sample(x))
	}
	return append(out, p.Sample(length))
}

// End is the final pose.
func (p Path) End() Pose {
	return p.Sample(p.Length())
}
