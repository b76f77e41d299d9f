package dubins

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func angleDiff(a, b float64) float64 {
	return math.Abs(math.Remainder(a-b, 2*math.Pi))
}

func TestWords_ReachGoal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		q0 := Pose{rng.Float64()*2000 - 1000, rng.Float64()*2000 - 1000, rng.Float64() * 2 * math.Pi}
		q1 := Pose{rng.Float64()*2000 - 1000, rng.Float64()*2000 - 1000, rng.Float64() * 2 * math.Pi}
		rho := 100 + rng.Float64()*700

		for _, pt := range AllPathTypes {
			p, err := New(q0, q1, rho, pt)
			if err != nil {
				assert.ErrorIs(t, err, ErrNoPath)
				continue
			}
			end := p.End()
			assert.InDelta(t, q1.X, end.X, 1e-6, "%s", pt)
			assert.InDelta(t, q1.Y, end.Y, 1e-6, "%s", pt)
			assert.Less(t, angleDiff(q1.Yaw, end.Yaw), 1e-6, "%s", pt)
		}
	}
}

func TestShortest_StraightLine(t *testing.T) {
	p, err := Shortest(Pose{0, 0, 0}, Pose{1000, 0, 0}, 200)
	require.NoError(t, err)
	assert.InDelta(t, 1000, p.Length(), 1e-9)
	assert.InDelta(t, 0, p.SegmentLength(0), 1e-9)
	assert.InDelta(t, 1000, p.SegmentLength(1), 1e-9)
	assert.True(t, p.Type.HasStraight())
}

func TestShortest_IsMinimum(t *testing.T) {
	q0, q1 := Pose{0, 0, 0}, Pose{300, 500, math.Pi}
	best, err := Shortest(q0, q1, 250)
	require.NoError(t, err)

	for _, pt := range AllPathTypes {
		p, err := New(q0, q1, 250, pt)
		if err != nil {
			continue
		}
		assert.GreaterOrEqual(t, p.Length()+1e-9, best.Length(), "%s", pt)
	}
}

func TestNew_BadRho(t *testing.T) {
	_, err := New(Pose{}, Pose{X: 10}, 0, LSL)
	assert.ErrorIs(t, err, ErrBadRho)
	_, err = Shortest(Pose{}, Pose{X: 10}, -1)
	assert.ErrorIs(t, err, ErrBadRho)
}

func TestSample_LeftTurnIsCounterClockwise(t *testing.T) {
	p := Path{Start: Pose{0, 0, 0}, Rho: 100, Params: [3]float64{math.Pi / 2, 0, 0}, Type: LSL}
	end := p.End()
	assert.InDelta(t, 100, end.X, 1e-9)
	assert.InDelta(t, 100, end.Y, 1e-9)
	assert.InDelta(t, math.Pi/2, end.Yaw, 1e-9)

	p.Type = RSR
	end = p.End()
	assert.InDelta(t, 100, end.X, 1e-9)
	assert.InDelta(t, -100, end.Y, 1e-9)
	assert.InDelta(t, 3*math.Pi/2, end.Yaw, 1e-9)
}

func TestSample_Clamps(t *testing.T) {
	p, err := Shortest(Pose{0, 0, 0}, Pose{1000, 200, 0}, 200)
	require.NoError(t, err)
	assert.Equal(t, p.Sample(0), p.Sample(-50))
	assert.Equal(t, p.End(), p.Sample(p.Length()+50))
}

func TestSampleMany(t *testing.T) {
	p, err := Shortest(Pose{0, 0, 0}, Pose{1000, 0, 0}, 200)
	require.NoError(t, err)

	samples := p.SampleMany(10)
	require.Len(t, samples, 101)
	assert.InDelta(t, 0, samples[0].X, 1e-9)
	assert.InDelta(t, 990, samples[99].X, 1e-9)
	assert.InDelta(t, 1000, samples[100].X, 1e-9)
}

func TestPathType_String(t *testing.T) {
	assert.Equal(t, "RSL", RSL.String())
	assert.Equal(t, [3]Segment{L, R, L}, LRL.Segments())
	assert.False(t, RLR.HasStraight())
}
