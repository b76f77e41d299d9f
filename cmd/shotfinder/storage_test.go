package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/arenabot/shotfinder/internal/config"
	"github.com/arenabot/shotfinder/internal/storage"
	"github.com/arenabot/shotfinder/internal/storage/memory"
	pgstorage "github.com/arenabot/shotfinder/internal/storage/postgres"
	sqlitestorage "github.com/arenabot/shotfinder/internal/storage/sqlite"
	wsstorage "github.com/arenabot/shotfinder/internal/storage/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDeps() storageDeps {
	return storageDeps{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		DBLogger:     zerolog.Nop(),
		SessionStart: time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC),
	}
}

func TestCreateStorageBackend_Types(t *testing.T) {
	b, err := createStorageBackend(config.StorageConfig{Type: "memory"}, testDeps())
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	b, err = createStorageBackend(config.StorageConfig{}, testDeps())
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	b, err = createStorageBackend(config.StorageConfig{Type: "none"}, testDeps())
	require.NoError(t, err)
	assert.Equal(t, storage.Nop{}, b)

	b, err = createStorageBackend(config.StorageConfig{Type: "postgres"}, testDeps())
	require.NoError(t, err)
	assert.IsType(t, &pgstorage.Backend{}, b)

	b, err = createStorageBackend(config.StorageConfig{Type: "websocket", WebSocket: config.WebSocketConfig{URL: "ws://localhost:1/shots"}}, testDeps())
	require.NoError(t, err)
	assert.IsType(t, &wsstorage.Backend{}, b)

	_, err = createStorageBackend(config.StorageConfig{Type: "mongo"}, testDeps())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown storage type "mongo"`)
}

func TestCreateStorageBackend_SQLiteDumpPerProcess(t *testing.T) {
	dir := t.TempDir()
	b, err := createStorageBackend(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{DumpPath: filepath.Join(dir, "shots.db")},
	}, testDeps())
	require.NoError(t, err)
	require.IsType(t, &sqlitestorage.Backend{}, b)

	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
	assert.FileExists(t, filepath.Join(dir, "shots_20261019_083000.db"))
}
