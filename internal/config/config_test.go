package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadJSON writes body as the config file of a fresh directory and loads it.
func loadJSON(t *testing.T, body string) {
	t.Helper()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	require.NoError(t, Load(dir))
}

func TestLoad_EveryDefaultApplied(t *testing.T) {
	loadJSON(t, `{}`)

	for key, want := range defaults {
		if got := viper.Get(key); got != want {
			t.Errorf("%s = %v, want %v", key, got, want)
		}
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	loadJSON(t, `{
		"logLevel": "debug",
		"db": { "host": "10.0.0.1", "port": "5433" },
		"sim": { "minEnemies": 4 }
	}`)

	assert.Equal(t, "debug", GetString("logLevel"))
	assert.Equal(t, "10.0.0.1", GetString("db.host"))
	assert.Equal(t, "5433", GetString("db.port"))
	assert.Equal(t, 4, GetInt("sim.minEnemies"))
	// untouched keys keep their default
	assert.Equal(t, "skirmish", GetString("db.database"))
	assert.False(t, GetBool("influx.enabled"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load(filepath.Join(t.TempDir(), "absent"))
	require.ErrorContains(t, err, "read config file")
	assert.Equal(t, 6, GetInt("sim.maxEnemies"))
}

func TestGetStorageConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
		want StorageConfig
	}{
		{
			name: "defaults",
			body: `{}`,
			want: StorageConfig{
				Type:   "memory",
				Memory: MemoryConfig{OutputDir: "./results", CompressOutput: true},
				SQLite: SQLiteConfig{DumpInterval: 3 * time.Minute},
			},
		},
		{
			name: "sqlite",
			body: `{"storage": {
				"type": "sqlite",
				"memory": { "outputDir": "/tmp/out", "compressOutput": false },
				"sqlite": { "dumpInterval": "10m", "path": "/tmp/board.db" }
			}}`,
			want: StorageConfig{
				Type:   "sqlite",
				Memory: MemoryConfig{OutputDir: "/tmp/out"},
				SQLite: SQLiteConfig{DumpInterval: 10 * time.Minute, Path: "/tmp/board.db"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loadJSON(t, tt.body)
			assert.Equal(t, tt.want, GetStorageConfig())
		})
	}
}

func TestGetSimConfig_Bounds(t *testing.T) {
	tests := []struct {
		name     string
		min, max int
		wantMin  int
		wantMax  int
	}{
		{"defaults", 3, 6, 3, 6},
		{"inverted", 5, 2, 5, 5},
		{"zero min", 0, 4, 1, 4},
		{"both zero", 0, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loadJSON(t, `{}`)
			viper.Set("sim.minEnemies", tt.min)
			viper.Set("sim.maxEnemies", tt.max)

			sc := GetSimConfig()
			if sc.MinEnemies != tt.wantMin || sc.MaxEnemies != tt.wantMax {
				t.Errorf("enemies = [%d, %d], want [%d, %d]", sc.MinEnemies, sc.MaxEnemies, tt.wantMin, tt.wantMax)
			}
			assert.Equal(t, 50*time.Millisecond, sc.MaxFrameDelta)
			assert.Zero(t, sc.Seed)
		})
	}
}

func TestSectionGetters(t *testing.T) {
	loadJSON(t, `{
		"audio": {"volume": 0.25},
		"player": {"name": "Maverick"},
		"api": {"apiKey": "k"},
		"otel": {"enabled": true, "endpoint": "collector:4318"}
	}`)

	assert.Equal(t, AudioConfig{Enabled: true, Volume: 0.25}, GetAudioConfig())
	assert.Equal(t, PlayerConfig{Sub: "local|pilot", Name: "Maverick"}, GetPlayerConfig())
	assert.Equal(t, ServerConfig{Listen: ":8080", APIKey: "k"}, GetServerConfig())
	assert.Equal(t, "8086", GetInfluxConfig().Port)

	oc := GetOTelConfig()
	assert.True(t, oc.Enabled)
	assert.Equal(t, "collector:4318", oc.Endpoint)
	assert.Equal(t, 5*time.Second, oc.BatchTimeout)
	assert.True(t, oc.Insecure)
}
