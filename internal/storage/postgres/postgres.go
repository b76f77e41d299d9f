// Package postgres implements the journal on PostgreSQL through the shared
// GORM backend.
package postgres

import (
	"fmt"

	"github.com/arenabot/shotfinder/internal/config"
	"github.com/arenabot/shotfinder/internal/database"
	gormstorage "github.com/arenabot/shotfinder/internal/storage/gorm"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Dependencies holds the connection settings and logger.
type Dependencies struct {
	DB     config.DBConfig
	Logger zerolog.Logger
	// Conn is used instead of dialing DB when set.
	Conn *gorm.DB
}

// Backend is the GORM journal connected to Postgres on Init.
type Backend struct {
	*gormstorage.Backend
	deps Dependencies
}

// New creates a Postgres journal. No connection is made until Init.
func New(deps Dependencies) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: deps.Conn, Logger: deps.Logger}),
		deps:    deps,
	}
}

// Init connects, migrates and starts the writer.
func (b *Backend) Init() error {
	if b.DB() == nil {
		db, err := database.GetPostgresDB(b.deps.DB, b.deps.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		b.SetDB(db)
	}
	return b.Backend.Init()
}
