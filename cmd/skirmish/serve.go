package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aircraftstudio/skirmish/internal/config"
	"github.com/aircraftstudio/skirmish/internal/handlers"
	"github.com/aircraftstudio/skirmish/internal/logging"
	"github.com/aircraftstudio/skirmish/internal/monitor"
	"github.com/aircraftstudio/skirmish/internal/session"
	"github.com/aircraftstudio/skirmish/internal/storage"
	"github.com/aircraftstudio/skirmish/internal/worker"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func cmdServe(args []string) error {
	fs, configDir := newFlagSet("serve")
	fs.String("listen", "", "override server.listen")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup("serve", fs, *configDir, true)
	if err != nil {
		return err
	}
	defer a.close()
	if fs.Changed("listen") {
		_ = viper.BindPFlag("server.listen", fs.Lookup("listen"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := a.openStorage()
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			a.logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	workerManager := worker.NewManager(worker.Dependencies{LogManager: a.logs}, backend)
	workerManager.Start()
	defer workerManager.Stop()

	telemetry := a.connectInflux(ctx)
	if telemetry != nil {
		defer telemetry.Close()
	}

	resolver := a.newResolver(backend)

	var recorder storage.PerformanceRecorder
	if telemetry != nil {
		recorder = telemetry
	} else if r, ok := backend.(storage.PerformanceRecorder); ok {
		recorder = r
	}

	var srv *handlers.Server
	mon := monitor.NewService(monitor.Dependencies{
		LogManager:  a.logs,
		Recorder:    recorder,
		Pending:     workerManager.Pending,
		Connections: func() int { return srv.Bridges() },
		StatusDir:   a.dataDir(),
	})

	serverCfg := config.GetServerConfig()
	simCfg := sessionConfig()
	srv = handlers.New(handlers.Dependencies{
		LogManager:       a.logs,
		DispatcherLogger: logging.NewDispatcherLogger(a.zlog),
		Worker:           workerManager,
		Catalogue:        catalogueOf(backend),
		Performance:      recorder,
		Monitor:          mon,
		APIKey:           serverCfg.APIKey,
		StaticDir:        serverCfg.StaticDir,
		AccessLog:        a.logFile,
		NewSession: func(poses session.PoseSource, user core.User) *session.Session {
			submit := session.Submitters{workerManager.ForUser(user)}
			if telemetry != nil {
				submit = append(submit, telemetry)
			}
			return session.New(simCfg, session.Dependencies{
				Poses:     poses,
				Assets:    resolver,
				Submitter: submit,
				Logger:    a.logger.With("user", user.Sub),
				Rand:      newRand(),
			})
		},
	})

	if err := mon.Start(); err != nil {
		a.logger.Warn("Status monitor not started", "error", err)
	}
	defer mon.Stop()

	httpServer := &http.Server{
		Addr:              viper.GetString("server.listen"),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		a.logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Graceful shutdown failed", "error", err)
	}
	return nil
}
