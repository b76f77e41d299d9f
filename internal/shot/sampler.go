package shot

import (
	"math"

	"github.com/arenabot/shotfinder/internal/dubins"
	"github.com/arenabot/shotfinder/internal/vec"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// StepDistance is the arc length between samples.
	StepDistance = 10.0
	// AllStep thins the combined sample list handed to controllers.
	AllStep = 3
	// coarseStride is the sample stride of the first nearest point pass.
	coarseStride = 8
)

// Samples is a ground path sampled every StepDistance: the three path
// segments followed by the final approach.
type Samples struct {
	Segments [4][]mgl64.Vec3
	// Offsets is the path distance at the start of each segment.
	Offsets [4]float64
	// First is the index into the combined sequence of each segment's first
	// sample.
	First [4]int
	// All is every AllStep-th sample of the combined sequence.
	All []mgl64.Vec3
	// End is where the curved part of the path ends.
	End mgl64.Vec3
	// Length is the full sampled distance.
	Length float64
}

// NewSamples samples path, then extends it along direction for the final
// approach distance.
func NewSamples(path dubins.Path, distances [4]float64, direction mgl64.Vec3) Samples {
	var s Samples
	end := path.End()
	s.End = mgl64.Vec3{end.X, end.Y, 0}
	direction = vec.NormalizeOrZero(vec.Flat(direction))

	offset := 0.0
	total := 0
	for i, d := range distances {
		d = math.Max(d, 0)
		n := int(d/StepDistance) + 1
		seg := make([]mgl64.Vec3, 0, n+1)
		for j := 0; j < n; j++ {
			seg = append(seg, pointAt(path, s.End, direction, i, offset, float64(j)*StepDistance))
		}
		if last := float64(n-1) * StepDistance; d-last > 1e-9 {
			seg = append(seg, pointAt(path, s.End, direction, i, offset, d))
		}

		s.Segments[i] = seg
		s.Offsets[i] = offset
		s.First[i] = total
		offset += d
		total += len(seg)
	}
	s.Length = offset

	s.All = make([]mgl64.Vec3, 0, total/AllStep+1)
	i := 0
	for _, seg := range s.Segments {
		for _, p := range seg {
			if i%AllStep == 0 {
				s.All = append(s.All, p)
			}
			i++
		}
	}
	return s
}

func pointAt(path dubins.Path, end, direction mgl64.Vec3, seg int, offset, along float64) mgl64.Vec3 {
	if seg == 3 {
		return end.Add(direction.Mul(along))
	}
	q := path.Sample(offset + along)
	return mgl64.Vec3{q.X, q.Y, 0}
}

// Len is the number of samples across every segment.
func (s Samples) Len() int {
	n := 0
	for _, seg := range s.Segments {
		n += len(seg)
	}
	return n
}

// Point returns a sample by segment and index.
func (s Samples) Point(segment, index int) mgl64.Vec3 {
	return s.Segments[segment][index]
}

// Nearest finds the sample closest to p in the horizontal plane.
func (s Samples) Nearest(p mgl64.Vec3) (segment, index int) {
	p = vec.Flat(p)
	best := math.Inf(1)
	for i, seg := range s.Segments {
		if len(seg) == 0 {
			continue
		}
		j := nearestIn(seg, p)
		if d := seg[j].Sub(p).Len(); d < best {
			best, segment, index = d, i, j
		}
	}
	return segment, index
}

// nearestIn scans every coarseStride-th sample, then searches around each
// coarse local minimum. Distance along an arc or a line has at most one
// interior minimum, so every true minimum is within a stride of one of
// them.
func nearestIn(seg []mgl64.Vec3, p mgl64.Vec3) int {
	n := len(seg)
	dist := func(i int) float64 { return seg[i].Sub(p).Len() }

	coarse := make([]int, 0, n/coarseStride+2)
	for i := 0; i < n; i += coarseStride {
		coarse = append(coarse, i)
	}
	if coarse[len(coarse)-1] != n-1 {
		coarse = append(coarse, n-1)
	}

	best, bestDist := 0, math.Inf(1)
	for k, c := range coarse {
		d := dist(c)
		if k > 0 && dist(coarse[k-1]) < d {
			continue
		}
		if k < len(coarse)-1 && dist(coarse[k+1]) < d {
			continue
		}
		lo := max(0, c-coarseStride)
		hi := min(n, c+coarseStride+1)
		j := unimodalMin(seg, p, lo, hi)
		if jd := dist(j); jd < bestDist {
			best, bestDist = j, jd
		}
	}
	return best
}

// unimodalMin binary searches [low, high) for the minimum of a distance
// profile that falls then rises.
func unimodalMin(seg []mgl64.Vec3, p mgl64.Vec3, low, high int) int {
	for high-low > 1 {
		mid := (low + high) / 2
		if seg[mid-1].Sub(p).Len() < seg[mid].Sub(p).Len() {
			high = mid
		} else {
			low = mid
		}
	}
	return low
}

// DistanceAlong converts a sample position into the path distance travelled
// and its index into the combined sample sequence.
func (s Samples) DistanceAlong(segment, index int) (distance float64, global int) {
	limit := s.Length
	if segment < 3 {
		limit = s.Offsets[segment+1]
	}
	return math.Min(s.Offsets[segment]+float64(index)*StepDistance, limit), s.First[segment] + index
}
