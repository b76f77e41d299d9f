package session

import (
	"math"
	"testing"

	"github.com/arenabot/shotfinder/internal/arena"
	"github.com/arenabot/shotfinder/internal/ballpred"
	"github.com/arenabot/shotfinder/internal/physics"
	"github.com/arenabot/shotfinder/internal/shot"
	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gameTime = 10.0

// scripted predicts a ball that sits still unless at moves it.
type scripted struct {
	at func(i int, start mgl64.Vec3) mgl64.Vec3
}

func (p scripted) Predict(ball ballpred.Ball, _, horizon float64) ballpred.Prediction {
	n := int(math.Round(horizon * physics.TicksPerSecond))
	slices := make([]core.BallSlice, n)
	for i := range slices {
		loc := ball.Location
		if p.at != nil {
			loc = p.at(i, loc)
		}
		slices[i] = core.BallSlice{
			Time:     ball.Time + float64(i+1)*physics.SimulationDT,
			Location: core.FromVec(loc),
		}
	}
	return ballpred.Prediction{Slices: slices, Radius: ball.Radius}
}

func octane(loc core.Vector3, yaw float64, boost uint8) core.CarInfo {
	return core.CarInfo{
		Physics: core.Physics{
			Location: loc,
			Rotation: core.Rotator{Yaw: yaw},
		},
		Boost:           boost,
		HasWheelContact: true,
		Hitbox:          core.Hitbox{Length: 118, Width: 84.2, Height: 36.2},
		HitboxOffset:    core.Vector3{X: 13.9, Z: 20.8},
	}
}

func packet(t float64, ball core.Vector3, cars ...core.CarInfo) core.GamePacket {
	return core.GamePacket{
		GameInfo: core.GameInfo{SecondsElapsed: t, WorldGravityZ: physics.DefaultGravity},
		Ball:     core.BallInfo{Physics: core.Physics{Location: ball}},
		Cars:     cars,
	}
}

func newSession(t *testing.T, p ballpred.Predictor, opts ...Option) *Session {
	t.Helper()
	s := New(append([]Option{WithPredictor(p)}, opts...)...)
	require.NoError(t, s.LoadArena("soccar"))
	return s
}

var (
	carBehind = core.Vector3{Y: -1000, Z: 17}
	ballAhead = core.Vector3{Z: 92.75}
	leftPost  = core.Vector3{X: 800, Y: 5120}
	rightPost = core.Vector3{X: -800, Y: 5120}
)

func horizon(h float64) *float64 { return &h }

// tickedSession has a car at rest 1000 units behind a stationary ball,
// facing it, with a 3 second prediction.
func tickedSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s := newSession(t, scripted{}, opts...)
	require.NoError(t, s.Tick(packet(gameTime, ballAhead, octane(carBehind, math.Pi/2, 100)), horizon(3)))
	return s
}

func TestTick_RequiresArena(t *testing.T) {
	s := New()
	err := s.Tick(packet(gameTime, ballAhead), nil)
	assert.ErrorIs(t, err, ErrNoGame)

	assert.ErrorIs(t, s.LoadArena("rumble"), arena.ErrUnknownArena)
	assert.Empty(t, s.Arena())
}

func TestTick_DefaultHorizon(t *testing.T) {
	s := newSession(t, scripted{})
	require.NoError(t, s.Tick(packet(gameTime, ballAhead), nil))

	assert.Equal(t, int(ballpred.DefaultHorizon*physics.TicksPerSecond), s.NumSlices())
	assert.Equal(t, uint64(1), s.Ticks())
	assert.Equal(t, "soccar", s.Arena())
	assert.Equal(t, gameTime, s.GameTime())
}

func TestSlice_Clamped(t *testing.T) {
	s := newSession(t, scripted{at: func(i int, start mgl64.Vec3) mgl64.Vec3 {
		return start.Add(mgl64.Vec3{float64(i), 0, 0})
	}})

	_, err := s.Slice(gameTime)
	assert.ErrorIs(t, err, ErrNoSlices)
	_, err = s.SliceIndex(1)
	assert.ErrorIs(t, err, ErrNoSlices)

	require.NoError(t, s.Tick(packet(gameTime, ballAhead), horizon(1)))
	require.Equal(t, 120, s.NumSlices())

	first, err := s.SliceIndex(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, first.Location.X)

	last, err := s.SliceIndex(10_000)
	require.NoError(t, err)
	assert.Equal(t, 119.0, last.Location.X)

	half, err := s.Slice(gameTime + 0.5)
	require.NoError(t, err)
	assert.Equal(t, 59.0, half.Location.X)
	assert.InDelta(t, gameTime+0.5, half.Time, 1e-9)

	past, err := s.Slice(gameTime - 100)
	require.NoError(t, err)
	assert.Equal(t, first, past)
}

func TestNewTarget_Preconditions(t *testing.T) {
	s := newSession(t, scripted{})
	_, err := s.NewAnyTarget(0, nil)
	assert.ErrorIs(t, err, ErrNoSlices)

	require.NoError(t, s.Tick(packet(gameTime, ballAhead, octane(carBehind, math.Pi/2, 100)), horizon(3)))
	_, err = s.NewTarget(leftPost, rightPost, 1, nil)
	assert.ErrorIs(t, err, ErrNoCar)

	i, err := s.NewTarget(leftPost, rightPost, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	assert.Equal(t, "[No shot]", s.PrintTargets())
}

func TestShotWithTarget_StraightGroundShot(t *testing.T) {
	var reports []SearchReport
	s := tickedSession(t, WithSearchObserver(func(r SearchReport) { reports = append(reports, r) }))

	i, err := s.NewTarget(leftPost, rightPost, 0, nil)
	require.NoError(t, err)

	info, err := s.ShotWithTarget(i, core.ShotRequest{})
	require.NoError(t, err)
	require.True(t, info.Found)
	assert.Equal(t, core.ShotGround, info.ShotType)
	assert.True(t, info.IsForwards)
	assert.Greater(t, info.Time, gameTime)
	assert.LessOrEqual(t, info.Time, gameTime+3)
	assert.InDelta(t, 1, info.ShotVector.Y, 1e-9)

	target, err := s.Target(i)
	require.NoError(t, err)
	ground, ok := target.Shot.(*shot.GroundBased)
	require.True(t, ok)
	assert.GreaterOrEqual(t, ground.Slack, 0.0)

	require.Len(t, reports, 1)
	assert.Equal(t, 1, reports[0].Feasible)
	assert.Equal(t, reports[0].SlicesTried, int(math.Round((info.Time-gameTime)*physics.TicksPerSecond)))
	assert.Same(t, target.Shot, reports[0].Shot)
}

func TestShotWithTarget_AnyTarget(t *testing.T) {
	s := newSession(t, scripted{})
	require.NoError(t, s.Tick(packet(gameTime, core.Vector3{X: 2500, Y: 1500, Z: 92.75}, octane(core.Vector3{Z: 17}, 0, 100)), horizon(4)))

	i, err := s.NewAnyTarget(0, nil)
	require.NoError(t, err)

	info, err := s.ShotWithTarget(i, core.ShotRequest{})
	require.NoError(t, err)
	require.True(t, info.Found)
	assert.Equal(t, core.ShotGround, info.ShotType)
}

func TestShotWithTarget_NoBoostTooFar(t *testing.T) {
	for _, absolute := range []bool{false, true} {
		s := newSession(t, scripted{})
		require.NoError(t, s.Tick(packet(gameTime, ballAhead, octane(core.Vector3{Y: -4000, Z: 17}, math.Pi/2, 0)), horizon(2)))

		i, err := s.NewTarget(leftPost, rightPost, 0, &core.TargetOptions{UseAbsoluteMaxValues: &absolute})
		require.NoError(t, err)

		info, err := s.ShotWithTarget(i, core.ShotRequest{})
		require.NoError(t, err)
		assert.False(t, info.Found, "absolute=%t", absolute)
		assert.Equal(t, "[No shot]", s.PrintTargets())
	}
}

func TestShotWithTarget_AllSkipsHighSlices(t *testing.T) {
	const highSlices = 200
	var report SearchReport
	s := newSession(t, scripted{at: func(i int, start mgl64.Vec3) mgl64.Vec3 {
		if i < highSlices {
			return mgl64.Vec3{start[0], start[1], 1500}
		}
		return start
	}}, WithSearchObserver(func(r SearchReport) { report = r }))
	require.NoError(t, s.Tick(packet(gameTime, ballAhead, octane(carBehind, math.Pi/2, 100)), horizon(3)))

	all, lo := true, 100
	i, err := s.NewTarget(leftPost, rightPost, 0, &core.TargetOptions{All: &all, MinSlice: &lo})
	require.NoError(t, err)

	noAerial := false
	info, err := s.ShotWithTarget(i, core.ShotRequest{MayAerialShot: &noAerial})
	require.NoError(t, err)
	require.True(t, info.Found)
	assert.GreaterOrEqual(t, info.Time, gameTime+float64(highSlices+1)*physics.SimulationDT-1e-9)
	assert.Equal(t, core.ShotGround, info.ShotType)

	assert.Equal(t, 360-lo, report.SlicesTried, "all scans the whole window")
	assert.Greater(t, report.Feasible, 1)
}

func TestShotWithTarget_Requests(t *testing.T) {
	s := tickedSession(t)
	i, err := s.NewTarget(leftPost, rightPost, 0, nil)
	require.NoError(t, err)

	_, err = s.ShotWithTarget(i, core.ShotRequest{Only: true})
	assert.ErrorIs(t, err, ErrNoShotSelected)

	_, err = s.ShotWithTarget(i+1, core.ShotRequest{})
	assert.ErrorIs(t, err, ErrNoTarget)

	info, err := s.ShotWithTarget(i, core.ShotRequest{Temporary: true})
	require.NoError(t, err)
	assert.True(t, info.Found)
	assert.ErrorIs(t, s.ConfirmTarget(i), ErrNoShot, "temporary searches are not stored")

	yes := true
	info, err = s.ShotWithTarget(i, core.ShotRequest{Only: true, MayGroundShot: &yes})
	require.NoError(t, err)
	assert.True(t, info.Found)
	assert.Equal(t, core.ShotGround, info.ShotType)
	assert.NoError(t, s.ConfirmTarget(i))
}

func TestTick_PrunesUnconfirmed(t *testing.T) {
	s := tickedSession(t)

	kept, err := s.NewTarget(leftPost, rightPost, 0, nil)
	require.NoError(t, err)
	dropped, err := s.NewAnyTarget(0, nil)
	require.NoError(t, err)

	info, err := s.ShotWithTarget(kept, core.ShotRequest{})
	require.NoError(t, err)
	require.True(t, info.Found)
	require.NoError(t, s.ConfirmTarget(kept))

	require.NoError(t, s.Tick(packet(gameTime+1.0/120, ballAhead, octane(carBehind, math.Pi/2, 100)), horizon(3)))

	_, err = s.Target(kept)
	assert.NoError(t, err)
	_, err = s.Target(dropped)
	assert.ErrorIs(t, err, ErrNoTarget)
	assert.Equal(t, 2, s.TargetsLen())
}

func TestRemoveTarget_ThenQuery(t *testing.T) {
	s := tickedSession(t)
	i, err := s.NewAnyTarget(0, nil)
	require.NoError(t, err)

	require.NoError(t, s.RemoveTarget(i))
	assert.ErrorIs(t, s.RemoveTarget(i), ErrNoTarget)
	assert.ErrorIs(t, s.RemoveTarget(99), ErrNoTarget)
	assert.ErrorIs(t, s.RemoveTarget(-1), ErrNoTarget)

	_, err = s.ShotWithTarget(i, core.ShotRequest{})
	assert.ErrorIs(t, err, ErrNoTarget)
	_, err = s.DataForShotWithTarget(i)
	assert.ErrorIs(t, err, ErrNoTarget)
	assert.ErrorIs(t, s.ConfirmTarget(i), ErrNoTarget)
	assert.Equal(t, "[None]", s.PrintTargets())
	live, withShot := s.CountTargets()
	assert.Zero(t, live)
	assert.Zero(t, withShot)
}

// confirmedShot finds and confirms the straight shot of tickedSession.
func confirmedShot(t *testing.T, s *Session) (int, core.BasicShotInfo) {
	t.Helper()
	i, err := s.NewTarget(leftPost, rightPost, 0, nil)
	require.NoError(t, err)
	info, err := s.ShotWithTarget(i, core.ShotRequest{})
	require.NoError(t, err)
	require.True(t, info.Found)
	require.NoError(t, s.ConfirmTarget(i))
	return i, info
}

func TestCountTargets(t *testing.T) {
	s := tickedSession(t)
	confirmedShot(t, s)
	spare, err := s.NewAnyTarget(0, nil)
	require.NoError(t, err)

	live, withShot := s.CountTargets()
	assert.Equal(t, 2, live)
	assert.Equal(t, 1, withShot)

	require.NoError(t, s.RemoveTarget(spare))
	live, _ = s.CountTargets()
	assert.Equal(t, 1, live)
}

func TestDataForShotWithTarget_Ground(t *testing.T) {
	s := tickedSession(t)
	i, _ := confirmedShot(t, s)

	data, err := s.DataForShotWithTarget(i)
	require.NoError(t, err)

	assert.InDelta(t, 0, data.CurrentPathPoint.X, 1e-6)
	assert.InDelta(t, -1000, data.CurrentPathPoint.Y, 1e-6)
	// 500 uu/s of lookahead for a car at rest
	assert.InDelta(t, -875, data.FinalTarget.Y, 1e-6)
	assert.InDelta(t, 1000-91.25-65.95, data.DistanceRemaining, 1e-6)
	assert.NotEmpty(t, data.PathSamples)
	assert.Nil(t, data.RequiredJumpTime)
	assert.InDelta(t, 1, data.ShotVector.Y, 1e-9)
}

func TestDataForShotWithTarget_Errors(t *testing.T) {
	tests := []struct {
		name    string
		after   func(info core.BasicShotInfo) core.GamePacket
		wantErr error
	}{
		{
			name: "strayed from path",
			after: func(core.BasicShotInfo) core.GamePacket {
				return packet(gameTime+0.1, ballAhead, octane(core.Vector3{X: 1500, Y: -1000, Z: 17}, math.Pi/2, 100))
			},
			wantErr: ErrStrayedFromPath,
		},
		{
			name: "ball changed",
			after: func(core.BasicShotInfo) core.GamePacket {
				return packet(gameTime+0.1, core.Vector3{X: 500, Z: 92.75}, octane(carBehind, math.Pi/2, 100))
			},
			wantErr: ErrBallChanged,
		},
		{
			name: "no time remaining",
			after: func(info core.BasicShotInfo) core.GamePacket {
				return packet(info.Time+0.5, ballAhead, octane(carBehind, math.Pi/2, 100))
			},
			wantErr: ErrNoTimeRemaining,
		},
		{
			name: "bad acceleration",
			after: func(info core.BasicShotInfo) core.GamePacket {
				return packet(info.Time-0.05, ballAhead, octane(carBehind, math.Pi/2, 100))
			},
			wantErr: ErrBadAcceleration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tickedSession(t)
			i, info := confirmedShot(t, s)

			require.NoError(t, s.Tick(tt.after(info), horizon(3)))
			_, err := s.DataForShotWithTarget(i)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDataForShotWithTarget_NoShot(t *testing.T) {
	s := tickedSession(t)
	i, err := s.NewAnyTarget(0, nil)
	require.NoError(t, err)

	_, err = s.DataForShotWithTarget(i)
	assert.ErrorIs(t, err, ErrNoShot)
}
