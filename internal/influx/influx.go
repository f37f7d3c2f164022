// Package influx writes session telemetry to InfluxDB. When the server
// cannot be reached, points are appended to a gzip line-protocol backup.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aircraftstudio/skirmish/internal/config"
	"github.com/aircraftstudio/skirmish/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

const (
	BucketSessions    = "skirmish_sessions"
	BucketPerformance = "skirmish_performance"

	retention = 60 * 60 * 24 * 90
)

// DefaultBucketNames are the buckets created on connect.
var DefaultBucketNames = []string{BucketSessions, BucketPerformance}

// ErrDisabled is returned by Connect when telemetry is switched off.
var ErrDisabled = errors.New("influx telemetry disabled")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	cfg        config.InfluxConfig
	logger     zerolog.Logger
	backupPath string

	mu           sync.Mutex
	client       influxdb2.Client
	writers      map[string]influxdb2_api.WriteAPI
	backupFile   *os.File
	backupWriter *gzip.Writer
	valid        bool

	BucketNames []string
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		cfg:         cfg,
		logger:      log,
		backupPath:  backupPath,
		writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: DefaultBucketNames,
	}
}

// IsValid reports whether points go to a live server.
func (m *Manager) IsValid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

// Connect establishes a connection to InfluxDB, falling back to the
// backup file when the server does not answer a ping.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		m.valid = false
		m.logger.Warn().Err(err).Str("backupPath", m.backupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.createWriters()
	m.valid = true
	m.logger.Info().Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.backupWriter != nil {
		return nil
	}
	if m.backupPath == "" {
		return errors.New("influx unreachable and no backup path configured")
	}
	file, err := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgs := m.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			m.logger.Error().Err(err).Str("org", m.cfg.Org).Msg("Error creating organization")
			return err
		}
	}

	buckets := m.client.BucketsAPI()
	for _, bucket := range m.BucketNames {
		if _, err := buckets.FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err := buckets.CreateBucketWithName(ctx, org, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retention,
		})
		if err != nil {
			m.logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}
	return nil
}

func (m *Manager) createWriters() {
	for _, bucket := range m.BucketNames {
		w := m.client.WriteAPI(m.cfg.Org, bucket)
		m.writers[bucket] = w

		go func(bucket string, errs <-chan error) {
			for err := range errs {
				m.logger.Error().Err(err).Str("bucket", bucket).Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}
	m.logger.Debug().Int("buckets", len(m.writers)).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		w, ok := m.writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.backupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	line := strings.TrimRight(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.backupWriter.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// RecordPerformance writes a per-second session sample.
func (m *Manager) RecordPerformance(s *core.PerformanceSample) error {
	return m.WritePoint(BucketPerformance, PerformancePoint(s))
}

// Submit writes a cleared session's result. It has the shape of a
// session result submitter.
func (m *Manager) Submit(_ context.Context, result core.SessionResult) error {
	return m.WritePoint(BucketSessions, ResultPoint(result, time.Now()))
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.writers {
		w.Flush()
	}
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.valid = false

	var errs []error
	if m.backupWriter != nil {
		errs = append(errs, m.backupWriter.Close())
		m.backupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

// PerformancePoint converts a session sample to a point.
func PerformancePoint(s *core.PerformanceSample) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		"session_frames",
		map[string]string{
			"session": s.SessionID,
			"state":   string(s.State),
		},
		map[string]any{
			"frames": s.Frames,
			"alive":  s.Alive,
			"beams":  s.Beams,
			"score":  s.Score,
		},
		s.Time,
	)
}

// ResultPoint converts a session result to a point.
func ResultPoint(r core.SessionResult, at time.Time) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement("session_result").
		AddField("score", r.Score).
		AddField("enemies_destroyed", r.EnemiesDestroyed).
		AddField("shots_fired", r.ShotsFired).
		AddField("hits", r.Hits).
		SetTime(at)
	if r.ModelID != "" {
		p.AddTag("model", r.ModelID)
	}
	if r.ClearTime != nil {
		p.AddField("clear_time", *r.ClearTime)
	}
	return p
}
