package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aircraftstudio/skirmish/internal/model"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresConfig_DSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  PostgresConfig
		want string
	}{
		{
			name: "plain",
			cfg:  PostgresConfig{Host: "db.local", Port: "6543", User: "pilot", Password: "secret", Database: "skirmish"},
			want: "host=db.local port=6543 user=pilot password=secret dbname=skirmish sslmode=disable",
		},
		{
			name: "quoted",
			cfg:  PostgresConfig{Host: "db", Port: "5432", User: "pilot", Password: `it's a secret`, Database: "skirmish", SSLMode: "require"},
			want: `host=db port=5432 user=pilot password='it\'s a secret' dbname=skirmish sslmode=require`,
		},
		{
			name: "empty password",
			cfg:  PostgresConfig{Host: "db", Port: "5432", User: "pilot", Database: "skirmish"},
			want: "host=db port=5432 user=pilot password='' dbname=skirmish sslmode=disable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}

func TestPostgresConfigFromViper(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "10.0.0.7")
	viper.Set("db.port", "5433")
	viper.Set("db.username", "ace")
	viper.Set("db.password", "pw")
	viper.Set("db.database", "board")
	viper.Set("db.maxOpenConns", 4)

	cfg := PostgresConfigFromViper()
	assert.Equal(t, PostgresConfig{
		Host: "10.0.0.7", Port: "5433", User: "ace", Password: "pw", Database: "board", MaxOpenConns: 4,
	}, cfg)
}

func TestConnect_FallsBackToSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fallback.db")
	conn, err := Connect(zerolog.Nop(), PostgresConfig{Host: "127.0.0.1", Port: "1", User: "x", Database: "x"}, path)
	require.NoError(t, err)

	assert.True(t, conn.Local)
	assert.Equal(t, path, conn.Path)
	assert.True(t, conn.DB.Migrator().HasTable(&model.LeaderboardEntry{}))
}

func TestVacuumIntoAndListDumps(t *testing.T) {
	dir := t.TempDir()
	db, err := OpenSQLite(filepath.Join(dir, "live.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	assert.True(t, db.Migrator().HasTable(&model.ModelAsset{}))

	dump := filepath.Join(dir, "b-dump.db")
	require.NoError(t, os.WriteFile(dump, []byte("stale"), 0o644))
	require.NoError(t, VacuumInto(db, dump))

	info, err := os.Stat(dump)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(len("stale")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.db"), 0o755))

	paths, err := ListDumps(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{dump, filepath.Join(dir, "live.db")}, paths)
}

func TestVacuumInto_NoPath(t *testing.T) {
	assert.Error(t, VacuumInto(nil, ""))
}
