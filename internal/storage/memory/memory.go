// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sync"

	"github.com/arenabot/shotfinder/internal/config"
	"github.com/arenabot/shotfinder/pkg/core"
)

// Backend keeps the session's shots in memory and exports them as JSON
// when the session ends.
type Backend struct {
	cfg     config.MemoryConfig
	session *core.SessionInfo
	shots   []core.ShotRecord

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins a new journal session, discarding unexported shots.
func (b *Backend) StartSession(s *core.SessionInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	s.ID = b.idCounter
	session := *s
	b.session = &session
	b.shots = nil
	return nil
}

// EndSession exports the session and clears it.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return fmt.Errorf("no session to end")
	}
	if err := b.exportJSON(); err != nil {
		return err
	}
	b.session = nil
	b.shots = nil
	return nil
}

// RecordShot appends a copy of r stamped with the current session.
func (b *Backend) RecordShot(r *core.ShotRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := *r
	if b.session != nil {
		rec.SessionID = b.session.ID
	}
	b.shots = append(b.shots, rec)
	return nil
}

// Shots returns a copy of the shots recorded in the current session.
func (b *Backend) Shots() []core.ShotRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]core.ShotRecord, len(b.shots))
	copy(out, b.shots)
	return out
}

// ExportedFilePath returns the path of the last export.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
