package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aircraftstudio/skirmish/internal/api"
	"github.com/aircraftstudio/skirmish/internal/assets"
	"github.com/aircraftstudio/skirmish/internal/cache"
	"github.com/aircraftstudio/skirmish/internal/config"
	"github.com/aircraftstudio/skirmish/internal/database"
	"github.com/aircraftstudio/skirmish/internal/influx"
	"github.com/aircraftstudio/skirmish/internal/storage"
	gormstorage "github.com/aircraftstudio/skirmish/internal/storage/gorm"
	"github.com/aircraftstudio/skirmish/internal/storage/memory"
	pgstorage "github.com/aircraftstudio/skirmish/internal/storage/postgres"
	sqlitestorage "github.com/aircraftstudio/skirmish/internal/storage/sqlite"
	wsstorage "github.com/aircraftstudio/skirmish/internal/storage/websocket"
	"github.com/spf13/viper"
)

// openStorage creates and initializes the configured backend.
func (a *app) openStorage() (storage.Backend, error) {
	cfg := config.GetStorageConfig()
	backend, err := a.createStorageBackend(cfg)
	if err != nil {
		a.logger.Error("Failed to create storage backend", "type", cfg.Type, "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		a.logger.Error("Failed to initialize storage backend", "type", cfg.Type, "error", err)
		return nil, err
	}
	return backend, nil
}

func (a *app) createStorageBackend(cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Type {
	case "postgres":
		// Postgres first; the manager falls back to a local SQLite file
		conn, err := database.Connect(a.zlog, database.PostgresConfigFromViper(), a.sqlitePath(cfg))
		if err != nil {
			return nil, err
		}
		a.logger.Info("Postgres storage backend initialized", "local", conn.Local)
		return pgstorage.New(pgstorage.Dependencies{
			DB:         conn.DB,
			LogManager: a.logs,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     a.sqlitePath(cfg),
		}, a.logs)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		a.logger.Info("SQLite storage backend initialized", "dump", a.sqlitePath(cfg))
		return backend, nil

	case "websocket":
		wsURL := httpToWS(viper.GetString("api.serverUrl")) + "/api/ingest"
		a.logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:     wsURL,
			Secret:  viper.GetString("api.apiKey"),
			Version: Version,
			Logger:  a.logger,
		}), nil

	case "", "memory":
		a.logger.Info("Memory storage backend initialized", "outputDir", cfg.Memory.OutputDir)
		return memory.New(cfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// sqlitePath is the dump file of the SQLite backend.
func (a *app) sqlitePath(cfg config.StorageConfig) string {
	if cfg.SQLite.Path != "" {
		return cfg.SQLite.Path
	}
	return filepath.Join(a.dataDir(), fmt.Sprintf("%s_%s.db", BinaryName, a.startedAt.Format("20060102_150405")))
}

// openDump opens a SQLite dump file read-write as a leaderboard backend.
func (a *app) openDump(path string) (storage.Backend, error) {
	db, err := database.OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	backend := gormstorage.New(gormstorage.Dependencies{DB: db, LogManager: a.logs})
	if err := backend.Init(); err != nil {
		return nil, err
	}
	return backend, nil
}

// catalogueOf returns the backend's model catalogue, or nil.
func catalogueOf(backend storage.Backend) storage.Catalogue {
	if c, ok := backend.(storage.Catalogue); ok {
		return c
	}
	return nil
}

// newResolver resolves models from the backend's catalogue, falling back to
// the remote server when one is configured.
func (a *app) newResolver(backend storage.Backend) *assets.Resolver {
	deps := assets.Dependencies{
		Catalogue: catalogueOf(backend),
		Cache:     cache.NewAssetCache(),
		Logger:    a.logger,
	}
	if viper.GetString("api.serverUrl") != "" {
		deps.Fetcher = apiClient()
	}
	return assets.New(deps)
}

// apiClient talks to the configured remote server.
func apiClient() *api.Client {
	return api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
}

// connectInflux returns a telemetry manager, or nil when disabled or
// unusable.
func (a *app) connectInflux(ctx context.Context) *influx.Manager {
	backup := filepath.Join(a.dataDir(), fmt.Sprintf("influx_backup_%s.log.gz", a.startedAt.Format("20060102_150405")))
	m := influx.NewManager(config.GetInfluxConfig(), a.zlog, backup)
	if err := m.Connect(ctx); err != nil {
		if !errors.Is(err, influx.ErrDisabled) {
			a.logger.Warn("InfluxDB telemetry unavailable", "error", err)
		}
		return nil
	}
	return m
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
