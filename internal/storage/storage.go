// Package storage defines the shot journal. Backends record the shots found
// during a session; nothing is ever read back into the engine.
package storage

import "github.com/arenabot/shotfinder/pkg/core"

// Backend is the interface all journal implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management. StartSession assigns SessionInfo.ID.
	StartSession(s *core.SessionInfo) error
	EndSession() error

	RecordShot(r *core.ShotRecord) error
}

// Exporter is an optional interface for backends that write a file when a
// session ends.
type Exporter interface {
	ExportedFilePath() string
}

// Nop discards everything. It backs storage.type "none".
type Nop struct{}

func (Nop) Init() error                          { return nil }
func (Nop) Close() error                         { return nil }
func (Nop) StartSession(*core.SessionInfo) error { return nil }
func (Nop) EndSession() error                    { return nil }
func (Nop) RecordShot(*core.ShotRecord) error    { return nil }
