// Package handlers binds host commands to a shot-finding session. Every
// command takes a JSON document of pkg/core types and returns a value the
// host loop serializes back.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arenabot/shotfinder/internal/dispatcher"
	"github.com/arenabot/shotfinder/internal/session"
	"github.com/arenabot/shotfinder/internal/shot"
	"github.com/arenabot/shotfinder/internal/storage"
	"github.com/arenabot/shotfinder/pkg/core"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/arenabot/shotfinder/internal/handlers"

const (
	journalCommand = ":JOURNAL:SHOT:"
	// journalQueueSize bounds the shots waiting for the journal.
	journalQueueSize = 1000
	uploadTimeout    = 2 * time.Minute
)

// SearchWriter receives a report for every shot search.
type SearchWriter interface {
	WriteSearch(arenaName string, r session.SearchReport, at time.Time) error
}

// Uploader sends an exported journal file to the review server.
type Uploader interface {
	Upload(ctx context.Context, filePath string, meta core.UploadMetadata) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Backend storage.Backend
	// Metrics is optional.
	Metrics SearchWriter
	// Uploader is optional. It is used when Backend is a storage.Exporter.
	Uploader  Uploader
	UploadTag string
	Logger    *slog.Logger
	// Horizon is the prediction length used when a tick does not name one.
	Horizon float64
	Version string
	Build   string
	// SessionOptions are passed to session.New after the search observer.
	SessionOptions []session.Option
}

// Service provides handler methods for host commands.
type Service struct {
	deps    Dependencies
	session *session.Session
	logger  *slog.Logger

	searchDuration metric.Float64Histogram
	// ticks mirrors the session counter so log attributes never take the
	// session lock.
	ticks    atomic.Uint64
	searches atomic.Uint64
	found    atomic.Uint64

	mu         sync.Mutex
	dispatcher *dispatcher.Dispatcher
	arena      string
	journal    *core.SessionInfo
	uploads    sync.WaitGroup
}

// NewService creates a new handler service and the session it drives.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Backend == nil {
		deps.Backend = storage.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Service{deps: deps, logger: deps.Logger}

	var err error
	s.searchDuration, err = otel.Meter(instrumentationName).Float64Histogram(
		"shot.search.duration",
		metric.WithDescription("Time spent scanning the prediction for a shot"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating search duration histogram: %w", err)
	}

	opts := append([]session.Option{session.WithSearchObserver(s.observe)}, deps.SessionOptions...)
	s.session = session.New(opts...)
	return s, nil
}

// Session returns the session the service drives.
func (s *Service) Session() *session.Session {
	return s.session
}

// RegisterHandlers registers every host command with the dispatcher.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	s.mu.Lock()
	s.dispatcher = d
	s.mu.Unlock()

	d.Register(":VERSION:", s.handleVersion)
	d.Register(":STATUS:", s.handleStatus)

	// Setup
	d.Register(":LOAD:ARENA:", s.handleLoadArena, dispatcher.Logged())
	d.Register(":MUTATORS:", s.handleMutators, dispatcher.Logged())

	// Per tick
	d.Register(":TICK:", s.handleTick)
	d.Register(":SLICE:", s.handleSlice)
	d.Register(":SLICE:INDEX:", s.handleSliceIndex)
	d.Register(":SLICES:", s.handleSlices)

	// Targets
	d.Register(":TARGET:NEW:", s.handleNewTarget, dispatcher.Logged())
	d.Register(":TARGET:ANY:", s.handleNewAnyTarget, dispatcher.Logged())
	d.Register(":TARGET:CONFIRM:", s.handleConfirmTarget)
	d.Register(":TARGET:REMOVE:", s.handleRemoveTarget)
	d.Register(":TARGET:PRINT:", s.handlePrintTargets)
	d.Register(":TARGET:LEN:", s.handleTargetsLen)

	// Shots
	d.Register(":SHOT:FIND:", s.handleFindShot)
	d.Register(":SHOT:DATA:", s.handleShotData)

	// Journal writes never block a search
	d.Register(journalCommand, s.handleJournalShot, dispatcher.Buffered(journalQueueSize))
}

// LogAttrs returns the live session attributes attached to every log record.
func (s *Service) LogAttrs() []slog.Attr {
	s.mu.Lock()
	name := s.arena
	s.mu.Unlock()
	if name == "" {
		return nil
	}
	return []slog.Attr{
		slog.String("arena", name),
		slog.Uint64("ticks", s.ticks.Load()),
	}
}

// Status snapshots the session for the status monitor and :STATUS:.
func (s *Service) Status() core.Status {
	st := core.Status{
		Time:     time.Now(),
		Ticks:    s.ticks.Load(),
		GameTime: s.session.GameTime(),
		Slices:   s.session.NumSlices(),
		Searches: s.searches.Load(),
		Found:    s.found.Load(),
	}
	st.Targets, st.TargetShots = s.session.CountTargets()

	s.mu.Lock()
	st.Arena = s.arena
	if s.journal != nil {
		st.JournalSession = s.journal.ID
	}
	d := s.dispatcher
	s.mu.Unlock()

	if d != nil {
		st.JournalQueued = d.QueueLen(journalCommand)
	}
	return st
}

// Close ends the journal session, if one is open, and waits for its upload.
func (s *Service) Close() error {
	s.mu.Lock()
	err := s.endJournal(time.Now())
	s.mu.Unlock()

	s.uploads.Wait()
	return err
}

// endJournal closes the open journal session and uploads its export.
// Callers hold s.mu.
func (s *Service) endJournal(at time.Time) error {
	info := s.journal
	if info == nil {
		return nil
	}
	s.journal = nil
	if err := s.deps.Backend.EndSession(); err != nil {
		return err
	}

	exporter, ok := s.deps.Backend.(storage.Exporter)
	if !ok || s.deps.Uploader == nil {
		return nil
	}
	path := exporter.ExportedFilePath()
	if path == "" {
		return nil
	}
	meta := core.UploadMetadata{
		Arena:     info.Arena,
		SessionID: info.ID,
		StartTime: info.StartTime,
		Duration:  at.Sub(info.StartTime).Seconds(),
		Tag:       s.deps.UploadTag,
	}
	s.uploads.Add(1)
	go func() {
		defer s.uploads.Done()
		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		defer cancel()
		if err := s.deps.Uploader.Upload(ctx, path, meta); err != nil {
			s.logger.Error("Failed to upload journal", "error", err, "path", path)
			return
		}
		s.logger.Info("Journal uploaded", "path", path)
	}()
	return nil
}

// observe runs inside every search with the session locked.
func (s *Service) observe(r session.SearchReport) {
	s.mu.Lock()
	arenaName := s.arena
	d := s.dispatcher
	journaling := s.journal != nil
	s.mu.Unlock()

	found := r.Shot != nil
	s.searches.Add(1)
	if found {
		s.found.Add(1)
	}
	s.searchDuration.Record(context.Background(), float64(r.Duration)/float64(time.Millisecond),
		metric.WithAttributes(
			attribute.String("arena", arenaName),
			attribute.Bool("found", found),
		))

	if s.deps.Metrics != nil {
		if err := s.deps.Metrics.WriteSearch(arenaName, r, time.Now()); err != nil {
			s.logger.Warn("Failed to write search metrics", "error", err)
		}
	}

	if !found || r.Temporary || !journaling || d == nil {
		return
	}

	rec := shot.Record(r.Shot)
	rec.TargetIndex = r.TargetIndex
	rec.CarIndex = r.CarIndex
	rec.GameTime = r.GameTime
	rec.SlicesTried = r.SlicesTried
	rec.SearchTime = r.Duration

	payload, err := json.Marshal(rec)
	if err != nil {
		s.logger.Error("Failed to encode shot record", "error", err)
		return
	}
	if _, err := d.Dispatch(dispatcher.Event{
		Command:   journalCommand,
		Payload:   payload,
		Timestamp: time.Now(),
	}); err != nil {
		s.logger.Warn("Shot not journaled", "error", err)
	}
}

func (s *Service) handleVersion(e dispatcher.Event) (any, error) {
	return []string{s.deps.Version, s.deps.Build}, nil
}

func (s *Service) handleStatus(e dispatcher.Event) (any, error) {
	return s.Status(), nil
}

func (s *Service) handleLoadArena(e dispatcher.Event) (any, error) {
	var args loadArenaArgs
	if err := decode(e, &args); err != nil {
		return nil, err
	}
	if err := s.session.LoadArena(args.Name); err != nil {
		return nil, err
	}
	name := s.session.Arena()

	now := e.Timestamp
	if now.IsZero() {
		now = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.arena = name

	if err := s.endJournal(now); err != nil {
		s.logger.Error("Failed to end journal session", "error", err)
	}
	info := &core.SessionInfo{
		Arena:     name,
		StartTime: now,
		Version:   s.deps.Version,
	}
	if err := s.deps.Backend.StartSession(info); err != nil {
		// the engine works without a journal
		s.logger.Error("Failed to start journal session", "error", err, "arena", name)
		return name, nil
	}
	s.journal = info
	s.logger.Info("Arena loaded", "arena", name, "journalSession", info.ID)
	return name, nil
}

func (s *Service) handleMutators(e dispatcher.Event) (any, error) {
	var m core.MutatorSettings
	if err := decode(e, &m); err != nil {
		return nil, err
	}
	s.session.SetMutators(m)
	return nil, nil
}

func (s *Service) handleTick(e dispatcher.Event) (any, error) {
	var args tickArgs
	if err := decode(e, &args); err != nil {
		return nil, err
	}
	horizon := args.Horizon
	if horizon == nil && s.deps.Horizon > 0 {
		horizon = &s.deps.Horizon
	}
	if err := s.session.Tick(args.GamePacket, horizon); err != nil {
		return nil, err
	}
	s.ticks.Store(s.session.Ticks())
	return s.session.NumSlices(), nil
}

func (s *Service) handleSlice(e dispatcher.Event) (any, error) {
	var args sliceArgs
	if err := decode(e, &args); err != nil {
		return nil, err
	}
	return s.session.Slice(args.Time)
}

func (s *Service) handleSliceIndex(e dispatcher.Event) (any, error) {
	var args sliceIndexArgs
	if err := decode(e, &args); err != nil {
		return nil, err
	}
	return s.session.SliceIndex(args.Index)
}

func (s *Service) handleSlices(e dispatcher.Event) (any, error) {
	return s.session.NumSlices(), nil
}

func (s *Service) handleNewTarget(e dispatcher.Event) (any, error) {
	var args newTargetArgs
	if err := decode(e, &args); err != nil {
		return nil, err
	}
	return s.session.NewTarget(args.Left, args.Right, args.CarIndex, args.Options)
}

func (s *Service) handleNewAnyTarget(e dispatcher.Event) (any, error) {
	var args anyTargetArgs
	if err := decode(e, &args); err != nil {
		return nil, err
	}
	return s.session.NewAnyTarget(args.CarIndex, args.Options)
}

func (s *Service) handleConfirmTarget(e dispatcher.Event) (any, error) {
	var args targetArgs
	if err := decode(e, &args); err != nil {
		return nil, err
	}
	return nil, s.session.ConfirmTarget(args.TargetIndex)
}

func (s *Service) handleRemoveTarget(e dispatcher.Event) (any, error) {
	var args targetArgs
	if err := decode(e, &args); err != nil {
		return nil, err
	}
	return nil, s.session.RemoveTarget(args.TargetIndex)
}

func (s *Service) handlePrintTargets(e dispatcher.Event) (any, error) {
	return s.session.PrintTargets(), nil
}

func (s *Service) handleTargetsLen(e dispatcher.Event) (any, error) {
	return s.session.TargetsLen(), nil
}

func (s *Service) handleFindShot(e dispatcher.Event) (any, error) {
	var args findShotArgs
	if err := decode(e, &args); err != nil {
		return nil, err
	}
	info, err := s.session.ShotWithTarget(args.TargetIndex, args.ShotRequest)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Service) handleShotData(e dispatcher.Event) (any, error) {
	var args targetArgs
	if err := decode(e, &args); err != nil {
		return nil, err
	}
	info, err := s.session.DataForShotWithTarget(args.TargetIndex)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Service) handleJournalShot(e dispatcher.Event) (any, error) {
	var rec core.ShotRecord
	if err := decode(e, &rec); err != nil {
		return nil, err
	}
	if err := s.deps.Backend.RecordShot(&rec); err != nil {
		return nil, fmt.Errorf("failed to journal shot: %w", err)
	}
	return nil, nil
}
