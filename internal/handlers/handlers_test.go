package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/arenabot/shotfinder/internal/ballpred"
	"github.com/arenabot/shotfinder/internal/config"
	"github.com/arenabot/shotfinder/internal/dispatcher"
	"github.com/arenabot/shotfinder/internal/physics"
	"github.com/arenabot/shotfinder/internal/session"
	"github.com/arenabot/shotfinder/internal/storage/memory"
	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// still predicts a ball that never moves.
type still struct{}

func (still) Predict(ball ballpred.Ball, _, horizon float64) ballpred.Prediction {
	n := int(math.Round(horizon * physics.TicksPerSecond))
	slices := make([]core.BallSlice, n)
	for i := range slices {
		slices[i] = core.BallSlice{
			Time:     ball.Time + float64(i+1)*physics.SimulationDT,
			Location: core.FromVec(ball.Location),
		}
	}
	return ballpred.Prediction{Slices: slices, Radius: ball.Radius}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type recordingMetrics struct {
	mu      sync.Mutex
	arenas  []string
	reports []session.SearchReport
}

func (m *recordingMetrics) WriteSearch(arenaName string, r session.SearchReport, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.arenas = append(m.arenas, arenaName)
	m.reports = append(m.reports, r)
	return nil
}

type fixture struct {
	svc     *Service
	d       *dispatcher.Dispatcher
	journal *memory.Backend
	metrics *recordingMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		journal: memory.New(config.MemoryConfig{OutputDir: t.TempDir()}),
		metrics: &recordingMetrics{},
	}

	var err error
	f.svc, err = NewService(Dependencies{
		Backend:        f.journal,
		Metrics:        f.metrics,
		Horizon:        3,
		Version:        "1.2.3",
		Build:          "2026-10-01",
		SessionOptions: []session.Option{session.WithPredictor(still{})},
	})
	require.NoError(t, err)

	f.d, err = dispatcher.New(nopLogger{})
	require.NoError(t, err)
	f.svc.RegisterHandlers(f.d)
	return f
}

func (f *fixture) call(t *testing.T, command string, args any) (any, error) {
	t.Helper()
	var payload []byte
	if args != nil {
		var err error
		payload, err = json.Marshal(args)
		require.NoError(t, err)
	}
	return f.d.Dispatch(dispatcher.Event{Command: command, Payload: payload, Timestamp: time.Now()})
}

func (f *fixture) mustCall(t *testing.T, command string, args any) any {
	t.Helper()
	result, err := f.call(t, command, args)
	require.NoError(t, err, command)
	return result
}

var (
	ballAhead = core.Vector3{Z: 92.75}
	leftPost  = core.Vector3{X: 800, Y: 5120}
	rightPost = core.Vector3{X: -800, Y: 5120}
)

func tickPacket(gameTime float64) map[string]any {
	return map[string]any{
		"game_info": core.GameInfo{SecondsElapsed: gameTime, WorldGravityZ: physics.DefaultGravity},
		"game_ball": core.BallInfo{Physics: core.Physics{Location: ballAhead}},
		"game_cars": []core.CarInfo{{
			Physics: core.Physics{
				Location: core.Vector3{Y: -1000, Z: 17},
				Rotation: core.Rotator{Yaw: math.Pi / 2},
			},
			Boost:           100,
			HasWheelContact: true,
			Hitbox:          core.Hitbox{Length: 118, Width: 84.2, Height: 36.2},
			HitboxOffset:    core.Vector3{X: 13.9, Z: 20.8},
		}},
	}
}

func (f *fixture) loadAndTick(t *testing.T) {
	t.Helper()
	assert.Equal(t, "soccar", f.mustCall(t, ":LOAD:ARENA:", map[string]string{"name": "soccar"}))
	assert.Equal(t, 360, f.mustCall(t, ":TICK:", tickPacket(10)))
}

func TestVersion(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{"1.2.3", "2026-10-01"}, f.mustCall(t, ":VERSION:", nil))
}

func TestCommandsRegistered(t *testing.T) {
	f := newFixture(t)
	for _, cmd := range []string{
		":VERSION:", ":LOAD:ARENA:", ":MUTATORS:", ":TICK:", ":SLICE:", ":SLICE:INDEX:", ":SLICES:",
		":TARGET:NEW:", ":TARGET:ANY:", ":TARGET:CONFIRM:", ":TARGET:REMOVE:", ":TARGET:PRINT:",
		":TARGET:LEN:", ":SHOT:FIND:", ":SHOT:DATA:", ":JOURNAL:SHOT:", ":STATUS:",
	} {
		assert.True(t, f.d.HasHandler(cmd), cmd)
	}
}

func TestMissingAndInvalidArgs(t *testing.T) {
	f := newFixture(t)

	_, err := f.call(t, ":LOAD:ARENA:", nil)
	assert.ErrorIs(t, err, ErrMissingArgs)

	_, err = f.d.Dispatch(dispatcher.Event{Command: ":TICK:", Payload: []byte("{")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ":TICK: invalid arguments")
}

func TestTick_BeforeArena(t *testing.T) {
	f := newFixture(t)
	_, err := f.call(t, ":TICK:", tickPacket(10))
	assert.ErrorIs(t, err, session.ErrNoGame)
}

func TestLoadArena_Unknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.call(t, ":LOAD:ARENA:", map[string]string{"name": "rumble"})
	require.Error(t, err)
	assert.Nil(t, f.svc.LogAttrs())
}

func TestTick_HorizonOverride(t *testing.T) {
	f := newFixture(t)
	f.mustCall(t, ":LOAD:ARENA:", map[string]string{"name": "soccar"})

	args := tickPacket(10)
	args["prediction_horizon"] = 1.0
	assert.Equal(t, 120, f.mustCall(t, ":TICK:", args))
	assert.Equal(t, 120, f.mustCall(t, ":SLICES:", nil))
}

func TestSlices(t *testing.T) {
	f := newFixture(t)
	f.loadAndTick(t)

	slice, ok := f.mustCall(t, ":SLICE:", map[string]float64{"time": 10.5}).(core.BallSlice)
	require.True(t, ok)
	assert.InDelta(t, 10.5, slice.Time, 1e-9)

	last, ok := f.mustCall(t, ":SLICE:INDEX:", map[string]int{"index": 100_000}).(core.BallSlice)
	require.True(t, ok)
	assert.InDelta(t, 13, last.Time, 1e-9)
}

func TestTargets(t *testing.T) {
	f := newFixture(t)
	f.loadAndTick(t)

	first := f.mustCall(t, ":TARGET:NEW:", map[string]any{"left": leftPost, "right": rightPost, "car_index": 0})
	second := f.mustCall(t, ":TARGET:ANY:", map[string]any{"car_index": 0, "options": core.TargetOptions{}})
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 2, f.mustCall(t, ":TARGET:LEN:", nil))
	assert.Equal(t, "[No shot, No shot]", f.mustCall(t, ":TARGET:PRINT:", nil))

	_, err := f.call(t, ":TARGET:CONFIRM:", map[string]int{"target_index": 0})
	assert.ErrorIs(t, err, session.ErrNoShot)

	info := f.mustCall(t, ":SHOT:FIND:", map[string]any{"target_index": 0}).(core.BasicShotInfo)
	require.True(t, info.Found)
	f.mustCall(t, ":TARGET:CONFIRM:", map[string]int{"target_index": 0})
	f.mustCall(t, ":TARGET:REMOVE:", map[string]int{"target_index": 1})
	_, err = f.call(t, ":TARGET:REMOVE:", map[string]int{"target_index": 1})
	assert.ErrorIs(t, err, session.ErrNoTarget)

	// confirmed targets survive the next tick
	f.mustCall(t, ":TICK:", tickPacket(10.1))
	assert.Equal(t, 2, f.mustCall(t, ":TARGET:LEN:", nil))
	printed := f.mustCall(t, ":TARGET:PRINT:", nil).(string)
	assert.Contains(t, printed, ", None]")
	assert.NotContains(t, printed, "No shot")

	_, err = f.call(t, ":TARGET:CONFIRM:", map[string]int{"target_index": 5})
	assert.ErrorIs(t, err, session.ErrNoTarget)

	_, err = f.call(t, ":TARGET:NEW:", map[string]any{"left": leftPost, "right": rightPost, "car_index": 3})
	assert.ErrorIs(t, err, session.ErrNoCar)
}

func TestFindShot_JournalsAndReports(t *testing.T) {
	f := newFixture(t)
	f.loadAndTick(t)

	i := f.mustCall(t, ":TARGET:NEW:", map[string]any{"left": leftPost, "right": rightPost, "car_index": 0})

	result := f.mustCall(t, ":SHOT:FIND:", map[string]any{"target_index": i})
	info, ok := result.(core.BasicShotInfo)
	require.True(t, ok)
	require.True(t, info.Found)
	assert.Equal(t, core.ShotGround, info.ShotType)

	// temporary searches are reported but never journaled
	tmp := f.mustCall(t, ":SHOT:FIND:", map[string]any{"target_index": i, "temporary": true}).(core.BasicShotInfo)
	assert.True(t, tmp.Found)

	data, ok := f.mustCall(t, ":SHOT:DATA:", map[string]any{"target_index": i}).(core.AdvancedShotInfo)
	require.True(t, ok)
	assert.Greater(t, data.DistanceRemaining, 0.0)
	assert.NotEmpty(t, data.PathSamples)

	f.d.Close()

	shots := f.journal.Shots()
	require.Len(t, shots, 1)
	assert.Equal(t, uint(1), shots[0].SessionID)
	assert.Equal(t, 0, shots[0].TargetIndex)
	assert.Equal(t, 10.0, shots[0].GameTime)
	assert.Equal(t, info.Time, shots[0].ShotTime)
	assert.Equal(t, core.ShotGround, shots[0].ShotType)
	assert.NotEmpty(t, shots[0].Samples)
	assert.Positive(t, shots[0].SlicesTried)

	f.metrics.mu.Lock()
	defer f.metrics.mu.Unlock()
	require.Len(t, f.metrics.reports, 2)
	assert.Equal(t, []string{"soccar", "soccar"}, f.metrics.arenas)
	assert.True(t, f.metrics.reports[1].Temporary)
}

func TestFindShot_AllDisabled(t *testing.T) {
	f := newFixture(t)
	f.loadAndTick(t)
	i := f.mustCall(t, ":TARGET:ANY:", map[string]any{"car_index": 0})

	_, err := f.call(t, ":SHOT:FIND:", map[string]any{"target_index": i, "only": true})
	require.ErrorIs(t, err, session.ErrNoShotSelected)
	assert.EqualError(t, err, "All shots were disabled.")
}

func TestShotData_NoShot(t *testing.T) {
	f := newFixture(t)
	f.loadAndTick(t)
	i := f.mustCall(t, ":TARGET:ANY:", map[string]any{"car_index": 0})

	_, err := f.call(t, ":SHOT:DATA:", map[string]any{"target_index": i})
	assert.ErrorIs(t, err, session.ErrNoShot)
}

func TestMutators(t *testing.T) {
	f := newFixture(t)
	f.mustCall(t, ":MUTATORS:", core.MutatorSettings{BoostOption: core.BoostUnlimited, BoostStrengthOption: core.BoostStrength2x})
}

func TestLoadArena_RotatesJournalSession(t *testing.T) {
	f := newFixture(t)
	f.loadAndTick(t)

	f.mustCall(t, ":LOAD:ARENA:", map[string]string{"name": "hoops"})
	assert.NotEmpty(t, f.journal.ExportedFilePath(), "previous session was exported")

	attrs := f.svc.LogAttrs()
	require.Len(t, attrs, 2)
	assert.Equal(t, "hoops", attrs[0].Value.String())
	assert.Equal(t, uint64(1), attrs[1].Value.Uint64())

	require.NoError(t, f.svc.Close())
	require.NoError(t, f.svc.Close())
}

type failingBackend struct {
	memory.Backend
}

func (failingBackend) StartSession(*core.SessionInfo) error { return errors.New("disk full") }

func TestLoadArena_JournalFailureIsNotFatal(t *testing.T) {
	svc, err := NewService(Dependencies{Backend: &failingBackend{}})
	require.NoError(t, err)
	d, err := dispatcher.New(nopLogger{})
	require.NoError(t, err)
	svc.RegisterHandlers(d)

	result, err := d.Dispatch(dispatcher.Event{Command: ":LOAD:ARENA:", Payload: []byte(`{"name":"dropshot"}`)})
	require.NoError(t, err)
	assert.Equal(t, "dropshot", result)
	require.NoError(t, svc.Close())
}

func TestJournalShot_Direct(t *testing.T) {
	f := newFixture(t)
	f.mustCall(t, ":LOAD:ARENA:", map[string]string{"name": "soccar"})

	rec := core.ShotRecord{TargetIndex: 4, ShotTime: 12, ShotType: core.ShotAerial, AirBased: true}
	assert.Equal(t, "queued", f.mustCall(t, ":JOURNAL:SHOT:", rec))
	f.d.Close()

	shots := f.journal.Shots()
	require.Len(t, shots, 1)
	assert.Equal(t, core.ShotAerial, shots[0].ShotType)
	assert.Equal(t, 4, shots[0].TargetIndex)
}

type recordingUploader struct {
	mu    sync.Mutex
	paths []string
	metas []core.UploadMetadata
	err   error
}

func (u *recordingUploader) Upload(_ context.Context, filePath string, meta core.UploadMetadata) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, filePath)
	u.metas = append(u.metas, meta)
	return u.err
}

func newUploadFixture(t *testing.T, up *recordingUploader) (*Service, *dispatcher.Dispatcher, *memory.Backend) {
	t.Helper()
	journal := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	svc, err := NewService(Dependencies{
		Backend:        journal,
		Uploader:       up,
		UploadTag:      "scrim",
		Horizon:        3,
		SessionOptions: []session.Option{session.WithPredictor(still{})},
	})
	require.NoError(t, err)
	d, err := dispatcher.New(nopLogger{})
	require.NoError(t, err)
	svc.RegisterHandlers(d)
	return svc, d, journal
}

func TestClose_UploadsJournal(t *testing.T) {
	up := &recordingUploader{}
	svc, d, journal := newUploadFixture(t, up)

	start := time.Now().Add(-time.Minute).Truncate(time.Second)
	_, err := d.Dispatch(dispatcher.Event{Command: ":LOAD:ARENA:", Payload: []byte(`{"name":"soccar"}`), Timestamp: start})
	require.NoError(t, err)

	d.Close()
	require.NoError(t, svc.Close())

	up.mu.Lock()
	defer up.mu.Unlock()
	require.Len(t, up.paths, 1)
	assert.Equal(t, journal.ExportedFilePath(), up.paths[0])
	assert.Equal(t, "soccar", up.metas[0].Arena)
	assert.Equal(t, uint(1), up.metas[0].SessionID)
	assert.Equal(t, start, up.metas[0].StartTime)
	assert.Equal(t, "scrim", up.metas[0].Tag)
	assert.Positive(t, up.metas[0].Duration)
}

func TestLoadArena_UploadsPreviousSession(t *testing.T) {
	up := &recordingUploader{err: errors.New("server down")}
	svc, d, _ := newUploadFixture(t, up)

	for _, name := range []string{"soccar", "hoops"} {
		_, err := d.Dispatch(dispatcher.Event{Command: ":LOAD:ARENA:", Payload: []byte(`{"name":"` + name + `"}`)})
		require.NoError(t, err)
	}
	// a failed upload is logged only
	require.NoError(t, svc.Close())

	up.mu.Lock()
	defer up.mu.Unlock()
	require.Len(t, up.metas, 2)
	assert.Equal(t, "soccar", up.metas[0].Arena)
	assert.Equal(t, "hoops", up.metas[1].Arena)
	assert.Equal(t, uint(2), up.metas[1].SessionID)
}

func TestClose_NoUploaderNoUpload(t *testing.T) {
	f := newFixture(t)
	f.mustCall(t, ":LOAD:ARENA:", map[string]string{"name": "soccar"})
	require.NoError(t, f.svc.Close())
	assert.NotEmpty(t, f.journal.ExportedFilePath())
}

func TestStatus(t *testing.T) {
	f := newFixture(t)

	st := f.mustCall(t, ":STATUS:", nil).(core.Status)
	assert.Empty(t, st.Arena)
	assert.Zero(t, st.Slices)
	assert.Zero(t, st.JournalSession)

	f.loadAndTick(t)
	i := f.mustCall(t, ":TARGET:NEW:", map[string]any{"left": leftPost, "right": rightPost, "car_index": 0})
	f.mustCall(t, ":SHOT:FIND:", map[string]any{"target_index": i})

	st = f.svc.Status()
	assert.Equal(t, "soccar", st.Arena)
	assert.Equal(t, uint64(1), st.Ticks)
	assert.Equal(t, 10.0, st.GameTime)
	assert.Equal(t, 360, st.Slices)
	assert.Equal(t, 1, st.Targets)
	assert.Equal(t, 1, st.TargetShots)
	assert.Equal(t, uint64(1), st.Searches)
	assert.Equal(t, uint64(1), st.Found)
	assert.Equal(t, uint(1), st.JournalSession)
	assert.False(t, st.Time.IsZero())
}
