// Package sqlitestorage keeps the journal in an in-memory SQLite database and
// dumps it to disk periodically via VACUUM INTO.
// It wraps the GORM backend; the only SQLite-specific concerns are the
// in-memory connection and the dump loop.
package sqlitestorage

import (
	"fmt"
	"time"

	"github.com/arenabot/shotfinder/internal/database"
	gormstorage "github.com/arenabot/shotfinder/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Config holds configuration for the SQLite journal.
type Config struct {
	// Name identifies the in-memory database. Defaults to "shotfinder".
	Name         string
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	cfg      Config
	log      zerolog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new SQLite journal backend.
func New(cfg Config, log zerolog.Logger) (*Backend, error) {
	if cfg.Name == "" {
		cfg.Name = "shotfinder"
	}
	db, err := database.GetSqliteDB(database.MemoryPath(cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: db, Logger: log}),
		cfg:     cfg,
		log:     log,
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.stopChan = make(chan struct{})
		b.done = make(chan struct{})
		go b.dumpLoop()
	}
	return nil
}

// EndSession closes the session and writes a final dump.
func (b *Backend) EndSession() error {
	if err := b.Backend.EndSession(); err != nil {
		return err
	}
	return b.Dump()
}

// Close stops the dump goroutine, closes the GORM backend and dumps once more.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.Dump()
}

// Dump flushes queued shots and writes the database to DumpPath.
func (b *Backend) Dump() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	if err := b.Flush(); err != nil {
		return err
	}
	return database.DumpMemoryDBToDisk(b.DB(), b.cfg.DumpPath, b.log)
}

func (b *Backend) dumpLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error().Err(err).Msg("Error dumping journal to disk")
			}
		}
	}
}
