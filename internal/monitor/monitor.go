package monitor

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/arenabot/shotfinder/pkg/core"
)

// StatusWriter receives every status snapshot the monitor takes.
type StatusWriter interface {
	WriteStatus(st core.Status) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Status   func() core.Status
	Path     string
	Interval time.Duration
	Writer   StatusWriter
	Logger   *slog.Logger
}

// Service periodically writes the engine status to a file.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// WriteOnce takes a snapshot and writes it out.
func (s *Service) WriteOnce() (core.Status, error) {
	st := s.deps.Status()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return st, err
	}
	// write then rename so readers never see a partial file
	tmp := s.deps.Path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return st, err
	}
	if err := os.Rename(tmp, s.deps.Path); err != nil {
		return st, err
	}

	if s.deps.Writer != nil {
		if err := s.deps.Writer.WriteStatus(st); err != nil {
			s.deps.Logger.Warn("Failed to write status metrics", "error", err)
		}
	}
	return st, nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.deps.Path), 0755); err != nil {
		s.mu.Unlock()
		return err
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor", "path", s.deps.Path, "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				if _, err := s.WriteOnce(); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
				return
			case <-ticker.C:
				if _, err := s.WriteOnce(); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for its final write.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.isRunning = false
	done := s.done
	s.mu.Unlock()
	<-done
}
