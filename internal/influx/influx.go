// Package influx writes shot search metrics to InfluxDB, falling back to a
// gzipped line-protocol file when the server cannot be reached.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/arenabot/shotfinder/internal/config"
	"github.com/arenabot/shotfinder/internal/session"
	"github.com/arenabot/shotfinder/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

const (
	// Measurement is the name of the shot search points.
	Measurement = "shot_search"
	// StatusMeasurement is the name of the periodic engine status points.
	StatusMeasurement = "engine_status"
)

// retention applied to a bucket created on first connect
const retentionSeconds = 60 * 60 * 24 * 90

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx is disabled")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	cfg        config.InfluxConfig
	backupPath string
	logger     zerolog.Logger

	client influxdb2.Client
	writer influxdb2_api.WriteAPI

	mu         sync.Mutex
	backupFile *os.File
	backup     *gzip.Writer
	valid      bool
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, backupPath string, log zerolog.Logger) *Manager {
	return &Manager{
		cfg:        cfg,
		backupPath: backupPath,
		logger:     log,
	}
}

// Connect establishes a connection to InfluxDB. When the server does not
// answer a ping, points go to the backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		m.logger.Warn().Err(err).Str("backupPath", m.backupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}

	m.writer = m.client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.writer.Errors())

	m.mu.Lock()
	m.valid = true
	m.mu.Unlock()
	m.logger.Info().Str("url", m.cfg.URL()).Msg("InfluxDB client initialized")
	return nil
}

// UseBackup skips the server and writes line protocol to the backup file.
func (m *Manager) UseBackup() error {
	return m.openBackup()
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backup != nil {
		return nil
	}
	file, err := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backup = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgs := m.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("creating organization %q: %w", m.cfg.Org, err)
		}
	}

	if _, err := m.client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err != nil {
		m.logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err = m.client.BucketsAPI().CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionSeconds,
		})
		if err != nil {
			return fmt.Errorf("creating bucket %q: %w", m.cfg.Bucket, err)
		}
	}
	return nil
}

// Valid reports whether points go to the server.
func (m *Manager) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		m.writer.WritePoint(point)
		return nil
	}
	if m.backup == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backup.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteSearch records one shot search.
func (m *Manager) WriteSearch(arenaName string, r session.SearchReport, at time.Time) error {
	return m.WritePoint(SearchPoint(arenaName, r, at))
}

// WriteStatus records one engine status snapshot.
func (m *Manager) WriteStatus(st core.Status) error {
	return m.WritePoint(StatusPoint(st))
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writer != nil {
		m.writer.Flush()
	}
	if m.client != nil {
		m.client.Close()
	}
	m.valid = false

	var err error
	if m.backup != nil {
		err = errors.Join(m.backup.Close(), m.backupFile.Close())
		m.backup = nil
		m.backupFile = nil
	}
	return err
}

// SearchPoint renders a search report as a shot_search point.
func SearchPoint(arenaName string, r session.SearchReport, at time.Time) *influxdb2_write.Point {
	point := influxdb2_write.NewPointWithMeasurement(Measurement).
		AddTag("arena", arenaName).
		AddTag("target", strconv.Itoa(r.TargetIndex)).
		AddTag("car", strconv.Itoa(r.CarIndex)).
		AddTag("found", strconv.FormatBool(r.Shot != nil)).
		AddTag("temporary", strconv.FormatBool(r.Temporary)).
		AddField("slices_tried", r.SlicesTried).
		AddField("feasible", r.Feasible).
		AddField("duration_ms", float64(r.Duration)/float64(time.Millisecond)).
		AddField("game_time", r.GameTime).
		SetTime(at)

	if r.Shot != nil {
		basic := r.Shot.Basic()
		point.AddTag("shot_type", basic.ShotType.String()).
			AddField("shot_time", r.Shot.Time()).
			AddField("lead_time", r.Shot.Time()-r.GameTime)
	}
	return point
}

// StatusPoint renders a status snapshot as an engine_status point.
func StatusPoint(st core.Status) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(StatusMeasurement).
		AddTag("arena", st.Arena).
		AddField("ticks", st.Ticks).
		AddField("game_time", st.GameTime).
		AddField("slices", st.Slices).
		AddField("targets", st.Targets).
		AddField("target_shots", st.TargetShots).
		AddField("searches", st.Searches).
		AddField("found", st.Found).
		AddField("journal_queued", st.JournalQueued).
		SetTime(st.Time)
}
