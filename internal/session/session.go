// Package session owns the world state a host pushes every tick: the arena,
// the cars, the ball prediction and the targets being tracked against it.
package session

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/arenabot/shotfinder/internal/analyzer"
	"github.com/arenabot/shotfinder/internal/arena"
	"github.com/arenabot/shotfinder/internal/ballpred"
	"github.com/arenabot/shotfinder/internal/car"
	"github.com/arenabot/shotfinder/internal/physics"
	"github.com/arenabot/shotfinder/internal/shot"
	"github.com/arenabot/shotfinder/pkg/core"
)

// SearchReport describes one finished shot search.
type SearchReport struct {
	TargetIndex int
	CarIndex    int
	GameTime    float64
	Temporary   bool
	// SlicesTried counts the slices that were judged before the scan ended.
	SlicesTried int
	// Feasible counts every slice with a shot. It only exceeds one for
	// targets created with All.
	Feasible int
	Duration time.Duration
	// Shot is the first shot found, or nil.
	Shot shot.Shot
}

// Option configures a Session.
type Option func(*Session)

// WithPredictor replaces the ballistic predictor built from the arena.
func WithPredictor(p ballpred.Predictor) Option {
	return func(s *Session) {
		s.customPredictor = p
	}
}

// WithSearchObserver registers fn to be called after every shot search.
// fn runs with the session locked and must not call back into it.
func WithSearchObserver(fn func(SearchReport)) Option {
	return func(s *Session) {
		s.observer = fn
	}
}

// Session is the engine state for one match. It is safe for use by multiple
// goroutines, though calls are serialized.
type Session struct {
	mu sync.Mutex

	arena           *arena.Arena
	predictor       ballpred.Predictor
	customPredictor ballpred.Predictor
	observer        func(SearchReport)

	gravity    float64
	gameTime   float64
	mutators   physics.Mutators
	ticks      uint64
	cars       []*car.Car
	prediction ballpred.Prediction
	targets    shot.Registry
}

// New returns a session with no arena loaded.
func New(opts ...Option) *Session {
	s := &Session{mutators: physics.DefaultMutators()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadArena selects the arena by name. Loading again replaces the prediction.
func (s *Session) LoadArena(name string) error {
	a, err := arena.Get(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.arena = &a
	s.gravity = a.Gravity
	s.prediction = ballpred.Prediction{}
	s.predictor = s.customPredictor
	if s.predictor == nil {
		s.predictor = ballpred.NewBallistic(a)
	}
	return nil
}

// Arena returns the loaded arena name, or "" before LoadArena.
func (s *Session) Arena() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.arena == nil {
		return ""
	}
	return s.arena.Name
}

// SetMutators applies match settings to every following tick.
func (s *Session) SetMutators(m core.MutatorSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutators = physics.MutatorsFrom(m)
}

// Tick drops unconfirmed targets, ingests the packet and predicts the ball
// horizon seconds ahead. A nil horizon takes the default.
func (s *Session) Tick(packet core.GamePacket, horizon *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.arena == nil {
		return ErrNoGame
	}

	s.targets.Prune()

	s.gameTime = packet.GameInfo.SecondsElapsed
	if g := packet.GameInfo.WorldGravityZ; g != 0 {
		s.gravity = g
	}

	h := ballpred.DefaultHorizon
	if horizon != nil {
		h = *horizon
	}
	ball := ballpred.BallFromInfo(packet.Ball, s.gameTime, s.arena.Ball.Radius)
	s.prediction = s.predictor.Predict(ball, s.gravity, h)

	for len(s.cars) < len(packet.Cars) {
		s.cars = append(s.cars, car.New())
	}
	s.cars = s.cars[:len(packet.Cars)]
	for i, info := range packet.Cars {
		s.cars[i].Update(info, s.gameTime, s.gravity, s.mutators)
	}

	s.ticks++
	return nil
}

// Ticks is the number of packets ingested.
func (s *Session) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

// GameTime is the game time of the last packet.
func (s *Session) GameTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameTime
}

// Slice returns the predicted ball nearest the absolute game time t.
func (s *Session) Slice(t float64) (core.BallSlice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prediction.Empty() {
		return core.BallSlice{}, ErrNoSlices
	}
	return s.prediction.At(s.prediction.IndexAt(s.gameTime, t)), nil
}

// SliceIndex returns the nth predicted ball, counting from 1. Out of range
// values are clamped.
func (s *Session) SliceIndex(n int) (core.BallSlice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.prediction.Empty() {
		return core.BallSlice{}, ErrNoSlices
	}
	return s.prediction.At(n - 1), nil
}

// NumSlices is the length of the current prediction.
func (s *Session) NumSlices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prediction.Len()
}

// NewTarget tracks shots that send the ball between left and right.
func (s *Session) NewTarget(left, right core.Vector3, carIndex int, opts *core.TargetOptions) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.prepareTarget(carIndex, opts)
	if err != nil {
		return 0, err
	}
	return s.targets.Add(shot.NewTarget(left.Vec(), right.Vec(), carIndex, o)), nil
}

// NewAnyTarget tracks shots that hit the ball anywhere.
func (s *Session) NewAnyTarget(carIndex int, opts *core.TargetOptions) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, err := s.prepareTarget(carIndex, opts)
	if err != nil {
		return 0, err
	}
	return s.targets.Add(shot.NewAnyTarget(carIndex, o)), nil
}

func (s *Session) prepareTarget(carIndex int, opts *core.TargetOptions) (shot.Options, error) {
	n := s.prediction.Len()
	if n == 0 {
		return shot.Options{}, ErrNoSlices
	}
	c, err := s.car(carIndex)
	if err != nil {
		return shot.Options{}, err
	}
	c.Init(n)
	return shot.OptionsFrom(opts, n), nil
}

func (s *Session) car(i int) (*car.Car, error) {
	if i < 0 || i >= len(s.cars) {
		return nil, fmt.Errorf("%w: %d", ErrNoCar, i)
	}
	return s.cars[i], nil
}

func (s *Session) target(i int) (*shot.Target, error) {
	t, ok := s.targets.Get(i)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoTarget, i)
	}
	return t, nil
}

// ConfirmTarget keeps a target and its shot alive across ticks.
func (s *Session) ConfirmTarget(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.target(i)
	if err != nil {
		return err
	}
	if t.Shot == nil {
		return ErrNoShot
	}
	t.Confirm()
	return nil
}

// RemoveTarget frees a target index. Unknown or already freed indices fail
// with ErrNoTarget.
func (s *Session) RemoveTarget(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.target(i); err != nil {
		return err
	}
	s.targets.Remove(i)
	return nil
}

// PrintTargets renders every slot as its shot time, "No shot" or "None".
func (s *Session) PrintTargets() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targets.String()
}

// TargetsLen is the number of target slots, free ones included.
func (s *Session) TargetsLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targets.Len()
}

// CountTargets reports the live targets and how many of them hold a shot.
func (s *Session) CountTargets() (live, withShot int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets.Each(func(_ int, t *shot.Target) {
		live++
		if t.Shot != nil {
			withShot++
		}
	})
	return live, withShot
}

// Target returns a copy of the target at i.
func (s *Session) Target(i int) (shot.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.target(i)
	if err != nil {
		return shot.Target{}, err
	}
	return *t, nil
}

// ShotWithTarget scans the prediction for the first slice the target's car
// can hit. Unless the request is temporary, the result replaces the
// target's stored shot, including when nothing was found.
func (s *Session) ShotWithTarget(i int, req core.ShotRequest) (core.BasicShotInfo, error) {
	may := req.Allowed()
	if may == [4]bool{} {
		return core.NotFound(), ErrNoShotSelected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.target(i)
	if err != nil {
		return core.NotFound(), err
	}
	c, err := s.car(target.CarIndex)
	if err != nil {
		return core.NotFound(), err
	}

	started := time.Now()
	found, tried, feasible := s.scan(c, target, may)

	if !req.Temporary {
		target.Shot = found
	}
	if s.observer != nil {
		s.observer(SearchReport{
			TargetIndex: i,
			CarIndex:    target.CarIndex,
			GameTime:    s.gameTime,
			Temporary:   req.Temporary,
			SlicesTried: tried,
			Feasible:    feasible,
			Duration:    time.Since(started),
			Shot:        found,
		})
	}

	if found == nil {
		return core.NotFound(), nil
	}
	return found.Basic(), nil
}

func (s *Session) scan(c *car.Car, target *shot.Target, may [4]bool) (found shot.Shot, tried, feasible int) {
	p := s.prediction
	if p.Empty() || c.Demolished || c.GameTime+c.TimeToLand >= p.LastTime() {
		return nil, 0, 0
	}
	if len(c.SliceMaxSpeeds) != p.Len() {
		c.Init(p.Len())
	}

	opts := target.Options
	a := analyzer.New(c, analyzer.Options{May: may, Absolute: opts.Absolute, ForwardsOnly: opts.ForwardsOnly})
	lateral := s.arena.Field.HalfLength + p.Radius

	for idx := opts.MinSlice; idx < min(opts.MaxSlice, p.Len()); idx++ {
		slice := p.Slices[idx]
		ball := slice.Location.Vec()
		if math.Abs(ball[1]) > lateral {
			break
		}
		tried++

		var sh shot.Shot
		if target.Goal != nil {
			sh = s.goalShot(a, c, target.Goal, slice, idx)
		} else {
			sh = s.anyShot(a, c, slice, idx)
		}
		if sh == nil {
			continue
		}

		feasible++
		if found == nil {
			found = sh
		}
		if !opts.All {
			break
		}
	}
	return found, tried, feasible
}

func (s *Session) goalShot(a analyzer.Analyzer, c *car.Car, goal *shot.Goal, slice core.BallSlice, idx int) shot.Shot {
	ball := slice.Location.Vec()
	radius := s.prediction.Radius
	t := slice.Time - s.gameTime

	pc := analyzer.CorrectForPosts(ball, radius, goal.Left, goal.Right)
	if !pc.Fits {
		return nil
	}
	shotVector := pc.ShotVector(c.LandingLocation, ball)

	st, ok := a.ShotType(ball, radius, t)
	if !ok {
		return nil
	}

	if st == core.ShotAerial {
		info, ok := a.Aerial(a.AerialGoalTarget(ball, radius, shotVector), shotVector, t, &ball)
		if !ok {
			return nil
		}
		return shot.NewAirBased(slice.Time, ball, info)
	}

	info, ok := a.Target(ball, radius, shotVector, t, idx, st)
	if !ok {
		return nil
	}
	return reach(a, c, info, slice, idx)
}

func (s *Session) anyShot(a analyzer.Analyzer, c *car.Car, slice core.BallSlice, idx int) shot.Shot {
	ball := slice.Location.Vec()
	radius := s.prediction.Radius
	t := slice.Time - s.gameTime

	st, ok := a.ShotType(ball, radius, t)
	if !ok {
		return nil
	}

	if st == core.ShotAerial {
		target, shotVector := a.AerialAnyTarget(ball, radius)
		info, ok := a.Aerial(target, shotVector, t, nil)
		if !ok {
			return nil
		}
		return shot.NewAirBased(slice.Time, ball, info)
	}

	info, ok := a.NoTarget(ball, radius, t, idx, st)
	if !ok {
		return nil
	}
	return reach(a, c, info, slice, idx)
}
