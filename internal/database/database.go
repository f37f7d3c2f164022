// Package database opens the GORM connections behind the SQL storage
// backends and keeps the SQLite dump files.
package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aircraftstudio/skirmish/internal/model"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryDSN is a shared in-memory SQLite database.
const MemoryDSN = "file::memory:?cache=shared"

// DumpExt is the extension of SQLite dump files.
const DumpExt = ".db"

// PostgresConfig is the db.* block of the config file.
type PostgresConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
}

func PostgresConfigFromViper() PostgresConfig {
	return PostgresConfig{
		Host:         viper.GetString("db.host"),
		Port:         viper.GetString("db.port"),
		User:         viper.GetString("db.username"),
		Password:     viper.GetString("db.password"),
		Database:     viper.GetString("db.database"),
		SSLMode:      viper.GetString("db.sslmode"),
		MaxOpenConns: viper.GetInt("db.maxOpenConns"),
	}
}

// DSN renders c in libpq keyword/value form. Values with spaces or quotes
// are single-quoted.
func (c PostgresConfig) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	pairs := [][2]string{
		{"host", c.Host},
		{"port", c.Port},
		{"user", c.User},
		{"password", c.Password},
		{"dbname", c.Database},
		{"sslmode", sslmode},
	}
	parts := make([]string, 0, len(pairs))
	for _, kv := range pairs {
		parts = append(parts, kv[0]+"="+quoteDSN(kv[1]))
	}
	return strings.Join(parts, " ")
}

func quoteDSN(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
	return "'" + v + "'"
}

var quiet = logger.Default.LogMode(logger.Silent)

// OpenPostgres connects and pings.
func OpenPostgres(c PostgresConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  c.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 quiet,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if c.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	}
	return db, nil
}

// sqlitePragmas trade durability for speed: the live database is either in
// memory or a scratch file that gets dumped.
var sqlitePragmas = []string{
	"PRAGMA user_version = 1",
	"PRAGMA journal_mode = MEMORY",
	"PRAGMA synchronous = OFF",
	"PRAGMA cache_size = -32000",
	"PRAGMA temp_store = MEMORY",
}

// OpenSQLite opens path, or MemoryDSN when path is empty.
func OpenSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		path = MemoryDSN
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 quiet,
	})
	if err != nil {
		return nil, err
	}
	for _, p := range sqlitePragmas {
		if err := db.Exec(p).Error; err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return db, nil
}

// Migrate creates or updates the tables of model.DatabaseModels.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Conn is a migrated database. Local is set when Postgres was unreachable
// and Path names the SQLite file used instead.
type Conn struct {
	DB    *gorm.DB
	Local bool
	Path  string
}

// Connect opens Postgres and falls back to a SQLite file at fallback
// (in memory when empty). Either way the schema is migrated.
func Connect(log zerolog.Logger, pg PostgresConfig, fallback string) (*Conn, error) {
	db, err := OpenPostgres(pg)
	conn := &Conn{DB: db}
	if err != nil {
		log.Error().Err(err).Str("host", pg.Host).Msg("Postgres unreachable, falling back to SQLite")
		db, err = OpenSQLite(fallback)
		if err != nil {
			return nil, fmt.Errorf("open local SQLite: %w", err)
		}
		conn = &Conn{DB: db, Local: true, Path: fallback}
	}
	if err := Migrate(conn.DB); err != nil {
		return nil, err
	}
	log.Info().Bool("local", conn.Local).Str("path", conn.Path).Msg("Database ready")
	return conn, nil
}

// VacuumInto writes a compacted copy of db to path, replacing any file
// already there.
func VacuumInto(db *gorm.DB, path string) error {
	if path == "" {
		return errors.New("no dump path")
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove old dump: %w", err)
	}
	if err := db.Exec("VACUUM INTO ?", "file:"+path).Error; err != nil {
		return fmt.Errorf("vacuum into %s: %w", path, err)
	}
	return nil
}

// ListDumps returns the dump files in dir, sorted by name.
func ListDumps(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == DumpExt {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(out)
	return out, nil
}
