package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "skirmish.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the in-memory SQLite backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	Path         string        `json:"path" mapstructure:"path"`
}

// StorageConfig selects and configures the leaderboard backend
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// SimConfig holds simulation tuning
type SimConfig struct {
	MinEnemies    int
	MaxEnemies    int
	MaxFrameDelta time.Duration
	// Seed of the simulation random source; 0 seeds from the clock.
	Seed uint64
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Listen    string
	APIKey    string
	StaticDir string
}

// AudioConfig holds sound cue settings
type AudioConfig struct {
	Enabled bool
	Volume  float64
}

// InfluxConfig holds InfluxDB connection settings
type InfluxConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Protocol string
	Token    string
	Org      string
}

// PlayerConfig is the identity used by the terminal front-end
type PlayerConfig struct {
	Sub  string
	Name string
}

// defaults holds the value of every key a config file may leave out.
var defaults = map[string]any{
	"logLevel": "info",
	"logsDir":  "./skirmishlogs",

	"api.serverUrl": "http://localhost:3000",
	"api.apiKey":    "",

	"db.host":         "localhost",
	"db.port":         "5432",
	"db.username":     "postgres",
	"db.password":     "postgres",
	"db.database":     "skirmish",
	"db.sslmode":      "disable",
	"db.maxOpenConns": 10,

	"storage.type":                  "memory",
	"storage.memory.outputDir":      "./results",
	"storage.memory.compressOutput": true,
	"storage.sqlite.dumpInterval":   "3m",
	"storage.sqlite.path":           "",

	"influx.enabled":  false,
	"influx.host":     "localhost",
	"influx.port":     "8086",
	"influx.protocol": "http",
	"influx.token":    "supersecrettoken",
	"influx.org":      "skirmish-metrics",

	"graylog.enabled": false,
	"graylog.address": "localhost:12201",

	"otel.enabled":      false,
	"otel.serviceName":  "skirmish",
	"otel.batchTimeout": "5s",
	"otel.endpoint":     "",
	"otel.insecure":     true,

	"sim.minEnemies":    3,
	"sim.maxEnemies":    6,
	"sim.maxFrameDelta": "50ms",
	"sim.seed":          0,

	"server.listen":    ":8080",
	"server.staticDir": "",

	"audio.enabled": true,
	"audio.volume":  0.6,

	"player.sub":  "local|pilot",
	"player.name": "Pilot",
}

// Load applies the defaults and reads FileName from configDir. The defaults
// stay in place when the file cannot be read.
func Load(configDir string) error {
	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			Path:         viper.GetString("storage.sqlite.path"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetSimConfig returns simulation tuning, correcting inverted enemy bounds.
func GetSimConfig() SimConfig {
	cfg := SimConfig{
		MinEnemies:    viper.GetInt("sim.minEnemies"),
		MaxEnemies:    viper.GetInt("sim.maxEnemies"),
		MaxFrameDelta: viper.GetDuration("sim.maxFrameDelta"),
		Seed:          viper.GetUint64("sim.seed"),
	}
	if cfg.MinEnemies < 1 {
		cfg.MinEnemies = 1
	}
	if cfg.MaxEnemies < cfg.MinEnemies {
		cfg.MaxEnemies = cfg.MinEnemies
	}
	return cfg
}

// GetServerConfig returns the HTTP server configuration.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Listen:    viper.GetString("server.listen"),
		APIKey:    viper.GetString("api.apiKey"),
		StaticDir: viper.GetString("server.staticDir"),
	}
}

// GetAudioConfig returns the sound cue configuration.
func GetAudioConfig() AudioConfig {
	return AudioConfig{
		Enabled: viper.GetBool("audio.enabled"),
		Volume:  viper.GetFloat64("audio.volume"),
	}
}

// GetInfluxConfig returns the InfluxDB configuration.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
	}
}

// GetPlayerConfig returns the local player identity.
func GetPlayerConfig() PlayerConfig {
	return PlayerConfig{
		Sub:  viper.GetString("player.sub"),
		Name: viper.GetString("player.name"),
	}
}
