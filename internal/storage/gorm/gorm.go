// Package gormstorage implements the journal over any GORM dialect. Shots
// are queued and written in batches by a background writer.
package gormstorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/arenabot/shotfinder/internal/database"
	"github.com/arenabot/shotfinder/internal/model"
	"github.com/arenabot/shotfinder/internal/model/convert"
	"github.com/arenabot/shotfinder/internal/queue"
	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	defaultFlushInterval = 2 * time.Second
	batchSize            = 500
)

// Dependencies holds all dependencies for the GORM journal.
type Dependencies struct {
	// DB may be nil, in which case shots stay queued.
	DB            *gorm.DB
	Logger        zerolog.Logger
	FlushInterval time.Duration
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps  Dependencies
	shots *queue.Queue[model.Shot]

	mu      sync.Mutex
	session *model.Session

	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM journal backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		deps:  deps,
		shots: queue.New[model.Shot](),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// SetDB injects a connection opened after New.
func (b *Backend) SetDB(db *gorm.DB) {
	b.deps.DB = db
}

// Init migrates the schema and starts the writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB != nil {
		if err := database.Setup(b.deps.DB, b.deps.Logger); err != nil {
			return fmt.Errorf("failed to setup DB: %w", err)
		}
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writerLoop()
	return nil
}

// Close stops the writer and flushes what is left.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return b.Flush()
}

// StartSession inserts the session row and assigns its ID.
func (b *Backend) StartSession(s *core.SessionInfo) error {
	row := convert.CoreToSession(*s)
	if b.deps.DB != nil {
		if err := b.deps.DB.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		s.ID = row.ID
	}

	b.mu.Lock()
	b.session = &row
	b.mu.Unlock()

	b.deps.Logger.Info().Uint("session", row.ID).Str("arena", row.Arena).Msg("Journal session started")
	return nil
}

// EndSession flushes queued shots and stamps the session end time.
func (b *Backend) EndSession() error {
	if err := b.Flush(); err != nil {
		return err
	}

	b.mu.Lock()
	row := b.session
	b.session = nil
	b.mu.Unlock()

	if row == nil || b.deps.DB == nil {
		return nil
	}
	ended := convert.EndedSession(*row, time.Now())
	if err := b.deps.DB.Model(&model.Session{}).Where("id = ?", ended.ID).
		Update("end_time", ended.EndTime).Error; err != nil {
		return fmt.Errorf("failed to end session %d: %w", ended.ID, err)
	}
	return nil
}

// RecordShot converts and queues a shot for the current session.
func (b *Backend) RecordShot(r *core.ShotRecord) error {
	row := convert.CoreToShot(*r)

	b.mu.Lock()
	if b.session != nil {
		row.SessionID = b.session.ID
	}
	b.mu.Unlock()

	b.shots.Push(row)
	return nil
}

// Queued returns the number of shots waiting for the writer.
func (b *Backend) Queued() int {
	return b.shots.Len()
}

// Flush writes every queued shot. Failed batches are put back.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return nil
	}
	for {
		batch := b.shots.Drain(batchSize)
		if len(batch) == 0 {
			return nil
		}
		if err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&batch).Error
		}); err != nil {
			b.shots.Requeue(batch)
			return fmt.Errorf("failed to write %d shots: %w", len(batch), err)
		}
		b.deps.Logger.Debug().Int("count", len(batch)).Msg("Wrote shots")
	}
}

func (b *Backend) writerLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error().Err(err).Msg("Journal writer failed")
			}
		}
	}
}
