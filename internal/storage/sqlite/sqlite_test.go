package sqlitestorage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/arenabot/shotfinder/internal/database"
	"github.com/arenabot/shotfinder/internal/model"
	"github.com/arenabot/shotfinder/internal/storage"
	"github.com/arenabot/shotfinder/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ storage.Backend = (*Backend)(nil)

func TestEndSession_Dumps(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "shots.db")
	b, err := New(Config{Name: t.Name(), DumpPath: dump}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.StartSession(&core.SessionInfo{Arena: "dropshot", StartTime: time.Now()}))
	require.NoError(t, b.RecordShot(&core.ShotRecord{ShotType: core.ShotAerial, AirBased: true}))
	require.NoError(t, b.EndSession())
	require.NoError(t, b.Close())

	disk, err := database.GetSqliteDB(dump)
	require.NoError(t, err)
	var shots []model.Shot
	require.NoError(t, disk.Find(&shots).Error)
	require.Len(t, shots, 1)
	assert.Equal(t, "AERIAL", shots[0].ShotType)
	assert.True(t, shots[0].AirBased)
}

func TestDumpLoop(t *testing.T) {
	dump := filepath.Join(t.TempDir(), "shots.db")
	b, err := New(Config{Name: t.Name(), DumpPath: dump, DumpInterval: 20 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(&core.SessionInfo{Arena: "soccar"}))
	require.NoError(t, b.RecordShot(&core.ShotRecord{TargetIndex: 4}))

	assert.Eventually(t, func() bool {
		disk, err := database.GetSqliteDB(dump)
		if err != nil {
			return false
		}
		var n int64
		if disk.Model(&model.Shot{}).Count(&n).Error != nil {
			return false
		}
		return n == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestNoDumpPath(t *testing.T) {
	b, err := New(Config{Name: t.Name()}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	assert.NoError(t, b.Dump())
	assert.NoError(t, b.Close())
}
