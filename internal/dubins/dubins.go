// Package dubins solves shortest curvature-bounded paths between two planar
// poses. A path is three segments, each a left turn, a right turn or a
// straight line. Headings increase counter-clockwise.
package dubins

import (
	"errors"
	"fmt"
	"math"

	"github.com/arenabot/shotfinder/internal/vec"
)

var (
	// ErrNoPath is returned when no word connects the two poses.
	ErrNoPath = errors.New("no connection between configurations with this word")
	// ErrBadRho is returned for a non-positive turn radius.
	ErrBadRho = errors.New("turn radius must be positive")
)

// Segment is one piece of a path.
type Segment int

const (
	L Segment = iota
	S
	R
)

// PathType is a three segment word.
type PathType int

const (
	LSL PathType = iota
	LSR
	RSL
	RSR
	RLR
	LRL
)

// AllPathTypes lists every word in evaluation order.
var AllPathTypes = [...]PathType{LSL, LSR, RSL, RSR, RLR, LRL}

var pathSegments = [...][3]Segment{
	LSL: {L, S, L},
	LSR: {L, S, R},
	RSL: {R, S, L},
	RSR: {R, S, R},
	RLR: {R, L, R},
	LRL: {L, R, L},
}

// Segments returns the word's segments.
func (t PathType) Segments() [3]Segment {
	return pathSegments[t]
}

// HasStraight reports whether the middle segment is a straight line.
func (t PathType) HasStraight() bool {
	return pathSegments[t][1] == S
}

func (t PathType) String() string {
	switch t {
	case LSL:
		return "LSL"
	case LSR:
		return "LSR"
	case RSL:
		return "RSL"
	case RSR:
		return "RSR"
	case RLR:
		return "RLR"
	case LRL:
		return "LRL"
	default:
		return fmt.Sprintf("PathType(%d)", int(t))
	}
}

// Pose is a planar position with a heading in radians.
type Pose struct {
	X, Y, Yaw float64
}

// Intermediate holds the normalised problem shared by every word.
type Intermediate struct {
	alpha, beta, d     float64
	sa, sb, ca, cb     float64
	cosAlphaBeta, dSqr float64
}

// NewIntermediate normalises the problem from q0 to q1 with turn radius rho.
func NewIntermediate(q0, q1 Pose, rho float64) (Intermediate, error) {
	if rho <= 0 {
		return Intermediate{}, ErrBadRho
	}
	dx, dy := q1.X-q0.X, q1.Y-q0.Y
	d := math.Hypot(dx, dy) / rho

	theta := 0.0
	if d > 0 {
		theta = vec.Mod2Pi(math.Atan2(dy, dx))
	}
	alpha := vec.Mod2Pi(q0.Yaw - theta)
	beta := vec.Mod2Pi(q1.Yaw - theta)

	return Intermediate{
		alpha:        alpha,
		beta:         beta,
		d:            d,
		sa:           math.Sin(alpha),
		sb:           math.Sin(beta),
		ca:           math.Cos(alpha),
		cb:           math.Cos(beta),
		cosAlphaBeta: math.Cos(alpha - beta),
		dSqr:         d * d,
	}, nil
}

// Word returns the normalised segment lengths of one word.
func (in Intermediate) Word(t PathType) ([3]float64, error) {
	switch t {
	case LSL:
		return in.lsl()
	case LSR:
		return in.lsr()
	case RSL:
		return in.rsl()
	case RSR:
		return in.rsr()
	case RLR:
		return in.rlr()
	case LRL:
		return in.lrl()
	}
	return [3]float64{}, fmt.Errorf("unknown path type %d", int(t))
}

func (in Intermediate) lsl() ([3]float64, error) {
	tmp0 := in.d + in.sa - in.sb
	pSqr := 2 + in.dSqr - 2*in.cosAlphaBeta + 2*in.d*(in.sa-in.sb)
	if pSqr < 0 {
		return [3]float64{}, ErrNoPath
	}
	tmp1 := math.Atan2(in.cb-in.ca, tmp0)
	return [3]float64{vec.Mod2Pi(tmp1 - in.alpha), math.Sqrt(pSqr), vec.Mod2Pi(in.beta - tmp1)}, nil
}

func (in Intermediate) rsr() ([3]float64, error) {
	tmp0 := in.d - in.sa + in.sb
	pSqr := 2 + in.dSqr - 2*in.cosAlphaBeta + 2*in.d*(in.sb-in.sa)
	if pSqr < 0 {
		return [3]float64{}, ErrNoPath
	}
	tmp1 := math.Atan2(in.ca-in.cb, tmp0)
	return [3]float64{vec.Mod2Pi(in.alpha - tmp1), math.Sqrt(pSqr), vec.Mod2Pi(tmp1 - in.beta)}, nil
}

func (in Intermediate) lsr() ([3]float64, error) {
	pSqr := -2 + in.dSqr + 2*in.cosAlphaBeta + 2*in.d*(in.sa+in.sb)
	if pSqr < 0 {
		return [3]float64{}, ErrNoPath
	}
	p := math.Sqrt(pSqr)
	tmp0 := math.Atan2(-in.ca-in.cb, in.d+in.sa+in.sb) - math.Atan2(-2, p)
	return [3]float64{vec.Mod2Pi(tmp0 - in.alpha), p, vec.Mod2Pi(tmp0 - in.beta)}, nil
}

func (in Intermediate) rsl() ([3]float64, error) {
	pSqr := -2 + in.dSqr + 2*in.cosAlphaBeta - 2*in.d*(in.sa+in.sb)
	if pSqr < 0 {
		return [3]float64{}, ErrNoPath
	}
	p := math.Sqrt(pSqr)
	tmp0 := math.Atan2(in.ca+in.cb, in.d-in.sa-in.sb) - math.Atan2(2, p)
	return [3]float64{vec.Mod2Pi(in.alpha - tmp0), p, vec.Mod2Pi(in.beta - tmp0)}, nil
}

func (in Intermediate) rlr() ([3]float64, error) {
	tmp0 := (6 - in.dSqr + 2*in.cosAlphaBeta + 2*in.d*(in.sa-in.sb)) / 8
	if math.Abs(tmp0) > 1 {
		return [3]float64{}, ErrNoPath
	}
	phi := math.Atan2(in.ca-in.cb, in.d-in.sa+in.sb)
	p := vec.Mod2Pi(2*math.Pi - math.Acos(tmp0))
	t := vec.Mod2Pi(in.alpha - phi + vec.Mod2Pi(p/2))
	return [3]float64{t, p, vec.Mod2Pi(in.alpha - in.beta - t + p)}, nil
}

func (in Intermediate) lrl() ([3]float64, error) {
	tmp0 := (6 - in.dSqr + 2*in.cosAlphaBeta + 2*in.d*(in.sb-in.sa)) / 8
	if math.Abs(tmp0) > 1 {
		return [3]float64{}, ErrNoPath
	}
	phi := math.Atan2(in.ca-in.cb, in.d+in.sa-in.sb)
	p := vec.Mod2Pi(2*math.Pi - math.Acos(tmp0))
	t := vec.Mod2Pi(-in.alpha - phi + p/2)
	return [3]float64{t, p, vec.Mod2Pi(in.beta - in.alpha - t + p)}, nil
}
