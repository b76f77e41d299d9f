// Package websocket streams the journal to a live shot viewer. Frames are
// msgpack envelopes sent as binary WebSocket messages.
package websocket

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/arenabot/shotfinder/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
	Logger *slog.Logger
}

// Backend streams found shots over WebSocket.
// It implements storage.Backend but not storage.Exporter.
type Backend struct {
	conn          *connection
	cfg           Config
	nextSessionID atomic.Uint64
	sessionID     atomic.Uint64
}

// New creates a new WebSocket journal backend.
func New(cfg Config) *Backend {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped counts frames lost to a full send queue.
func (b *Backend) Dropped() uint64 {
	return b.conn.dropped.Load()
}

// sendEnvelope encodes the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msgType, err)
	}
	b.conn.send(data)
	return nil
}

// StartSession assigns a stream-local session ID, sends the session and
// waits for the server ack.
func (b *Backend) StartSession(s *core.SessionInfo) error {
	s.ID = uint(b.nextSessionID.Add(1))
	b.sessionID.Store(uint64(s.ID))

	data, err := streaming.Marshal(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", streaming.TypeStartSession, err)
	}

	b.conn.setStartFrame(data)
	return b.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// EndSession sends end_session and waits for server ack.
func (b *Backend) EndSession() error {
	data, err := streaming.Marshal(streaming.TypeEndSession, nil)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", streaming.TypeEndSession, err)
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndSession, ackTimeout)

	b.conn.setStartFrame(nil)
	b.sessionID.Store(0)

	return err
}

// RecordShot streams a shot stamped with the current session.
func (b *Backend) RecordShot(r *core.ShotRecord) error {
	rec := *r
	rec.SessionID = uint(b.sessionID.Load())
	return b.sendEnvelope(streaming.TypeShot, &rec)
}
