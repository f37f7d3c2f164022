package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aircraftstudio/skirmish/internal/config"
	"github.com/aircraftstudio/skirmish/internal/logging"
	intOtel "github.com/aircraftstudio/skirmish/internal/otel"
	"github.com/aircraftstudio/skirmish/internal/session"
	"github.com/aircraftstudio/skirmish/internal/sortie"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// BuildDate and Version can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const BinaryName = "skirmish"

var commands = []struct {
	name, usage string
	run         func(args []string) error
}{
	{"serve", "run the leaderboard, model catalogue and session bridge server", cmdServe},
	{"play", "fly a sortie in the terminal: play [modelId]", cmdPlay},
	{"top", "print the leaderboard: top [--limit n] [--sort score|time] [--remote] [--from file.db]", cmdTop},
	{"models", "manage the model catalogue: models list|import <file.glb> [name]|delete <id>", cmdModels},
	{"export", "write the leaderboard to a JSON file: export [--from file.db]", cmdExport},
	{"backups", "list SQLite leaderboard dumps", cmdBackups},
	{"version", "print the version", cmdVersion},
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", BinaryName, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage(os.Stdout)
		return nil
	}
	name := strings.ToLower(args[0])
	for _, c := range commands {
		if c.name == name {
			return c.run(args[1:])
		}
	}
	if name == "help" || name == "-h" || name == "--help" {
		usage(os.Stdout)
		return nil
	}
	usage(os.Stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: %s <command> [flags]\n\ncommands:\n", BinaryName)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.usage)
	}
}

func cmdVersion([]string) error {
	fmt.Printf("%s %s (built %s)\n", BinaryName, Version, BuildDate)
	return nil
}

// newFlagSet returns a flag set with the flags every command shares.
func newFlagSet(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	fs.String("log-level", "", "override logLevel")
	fs.String("storage", "", "override storage.type (memory, sqlite, postgres, websocket)")
	return fs, configDir
}

// app holds the process-wide services set up for a command.
type app struct {
	command   string
	startedAt time.Time

	logs    *logging.SlogManager
	logger  *slog.Logger
	zlog    zerolog.Logger
	otel    *intOtel.Provider
	sortie  *sortie.Context
	logFile *os.File
	logPath string
}

// setup loads configuration and wires logging. When console is set, log
// records are mirrored to stdout.
func setup(command string, fs *pflag.FlagSet, configDir string, console bool) (*app, error) {
	a := &app{
		command:   command,
		startedAt: time.Now(),
		logs:      logging.NewSlogManager(),
		sortie:    sortie.NewContext(),
	}

	cfgErr := config.Load(configDir)
	if f := fs.Lookup("log-level"); f != nil && f.Changed {
		_ = viper.BindPFlag("logLevel", f)
	}
	if f := fs.Lookup("storage"); f != nil && f.Changed {
		_ = viper.BindPFlag("storage.type", f)
	}

	logsDir := viper.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	a.logPath = logging.LogFilePath(logsDir, BinaryName+"."+command, a.startedAt)
	if err := logging.RotateLogFile(a.logPath); err != nil {
		return nil, fmt.Errorf("rotate log file: %w", err)
	}
	file, err := os.OpenFile(a.logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	a.logFile = file

	var out io.Writer = file
	if console {
		out = io.MultiWriter(os.Stdout, file)
	}

	level := viper.GetString("logLevel")
	a.zlog = zerolog.New(out).Level(logging.ZerologLevel(level)).With().Timestamp().Str("cmd", command).Logger()

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		a.otel, err = intOtel.New(intOtel.Config{
			Enabled:        true,
			ServiceName:    otelCfg.ServiceName,
			ServiceVersion: Version,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      file,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		})
		if err != nil {
			a.zlog.Error().Err(err).Msg("Failed to initialize OTel provider")
			a.otel = nil
		}
	}

	var extra []slog.Handler
	if viper.GetBool("graylog.enabled") {
		gelfHandler, err := logging.NewGELFHandler(viper.GetString("graylog.address"), level)
		if err != nil {
			a.zlog.Error().Err(err).Msg("Failed to connect GELF writer")
		} else {
			extra = append(extra, gelfHandler)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if a.otel != nil {
		otelLogProvider = a.otel.LoggerProvider()
	}
	a.logs.SetContextProvider(a.sortie.Attrs)
	a.logs.Setup(out, level, otelLogProvider, extra...)
	a.logger = a.logs.Logger()

	if cfgErr != nil {
		a.logger.Warn("Failed to load config, using defaults", "error", cfgErr)
	} else {
		a.logger.Info("Loaded config", "dir", configDir)
	}
	a.logger.Info("Starting", "command", command, "version", Version, "log", a.logPath)
	return a, nil
}

// close flushes telemetry and closes the log file.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.logs.Flush(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "flush logs: %v\n", err)
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			fmt.Fprintf(os.Stderr, "shutdown otel: %v\n", err)
		}
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// dataDir is where dumps and backups are written.
func (a *app) dataDir() string {
	return filepath.Clean(viper.GetString("logsDir"))
}

// sessionConfig converts the simulation settings for a new session.
func sessionConfig() session.Config {
	sim := config.GetSimConfig()
	return session.Config{
		MinEnemies:    sim.MinEnemies,
		MaxEnemies:    sim.MaxEnemies,
		MaxFrameDelta: sim.MaxFrameDelta.Seconds(),
	}
}

// newRand returns the session random source. A zero seed means seeded
// from the clock.
func newRand() *rand.Rand {
	seed := config.GetSimConfig().Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
