package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/arenabot/shotfinder/internal/config"
	"github.com/arenabot/shotfinder/internal/storage"
	"github.com/arenabot/shotfinder/internal/storage/memory"
	pgstorage "github.com/arenabot/shotfinder/internal/storage/postgres"
	sqlitestorage "github.com/arenabot/shotfinder/internal/storage/sqlite"
	wsstorage "github.com/arenabot/shotfinder/internal/storage/websocket"
	"github.com/rs/zerolog"
)

// storageDeps carries what the journal backends log through.
type storageDeps struct {
	Logger       *slog.Logger
	DBLogger     zerolog.Logger
	SessionStart time.Time
}

func createStorageBackend(storageCfg config.StorageConfig, deps storageDeps) (storage.Backend, error) {
	switch storageCfg.Type {
	case "none":
		deps.Logger.Info("Shot journal disabled")
		return storage.Nop{}, nil

	case "postgres":
		deps.Logger.Info("Postgres storage backend initialized", "host", storageCfg.DB.Host)
		return pgstorage.New(pgstorage.Dependencies{
			DB:     storageCfg.DB,
			Logger: deps.DBLogger,
		}), nil

	case "sqlite":
		dumpPath := storageCfg.SQLite.DumpPath
		if dumpPath != "" {
			// one file per process so restarts never overwrite a journal
			ext := filepath.Ext(dumpPath)
			dumpPath = fmt.Sprintf("%s_%s%s", dumpPath[:len(dumpPath)-len(ext)], deps.SessionStart.Format("20060102_150405"), ext)
		}
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     dumpPath,
		}, deps.DBLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		deps.Logger.Info("SQLite storage backend initialized", "dumpPath", dumpPath)
		return backend, nil

	case "websocket":
		deps.Logger.Info("WebSocket storage backend initialized", "url", storageCfg.WebSocket.URL)
		return wsstorage.New(wsstorage.Config{
			URL:    storageCfg.WebSocket.URL,
			Secret: storageCfg.WebSocket.Secret,
			Logger: deps.Logger,
		}), nil

	case "memory", "":
		deps.Logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}
