package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode"

	"github.com/aircraftstudio/skirmish/internal/api"
	"github.com/aircraftstudio/skirmish/internal/audio"
	"github.com/aircraftstudio/skirmish/internal/config"
	"github.com/aircraftstudio/skirmish/internal/monitor"
	"github.com/aircraftstudio/skirmish/internal/session"
	"github.com/aircraftstudio/skirmish/internal/storage"
	"github.com/aircraftstudio/skirmish/internal/worker"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	frameInterval = 16 * time.Millisecond
	// restartWait bounds how long a new sortie waits on the previous
	// result submission before cancelling it.
	restartWait = 2 * time.Second
)

// cameraEye is where the terminal camera hangs, above and behind the
// player's start so the whole enemy ring is in view.
var cameraEye = mgl64.Vec3{0, 2.2, 2.8}

// cameraPose looks from cameraEye down at the player's start.
func cameraPose() core.Pose {
	dir := session.PlayerStart.Sub(cameraEye)
	pitch := math.Atan2(dir.Y(), math.Hypot(dir.X(), dir.Z()))
	return core.Pose{
		Position:    cameraEye,
		Orientation: mgl64.QuatRotate(pitch, mgl64.Vec3{1, 0, 0}),
	}
}

// fixedCamera is the pose source of the terminal: it is always available
// and never moves.
type fixedCamera struct{}

func (fixedCamera) Open(context.Context) error { return nil }
func (fixedCamera) Close()                     {}

// remoteSubmitter posts results to the configured server.
type remoteSubmitter struct {
	client *api.Client
	user   core.User
}

func (r remoteSubmitter) Submit(ctx context.Context, result core.SessionResult) error {
	return r.client.SubmitResult(ctx, r.user, result)
}

func localUser() core.User {
	pc := config.GetPlayerConfig()
	user := core.User{Sub: pc.Sub, Name: pc.Name}
	if user.Sub == "" {
		user.Sub = "local|" + pc.Name
	}
	return user
}

func cmdPlay(args []string) error {
	fs, configDir := newFlagSet("play")
	submitRemote := fs.Bool("submit-remote", false, "also post results to api.serverUrl")
	mute := fs.Bool("mute", false, "disable sound cues")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := setup("play", fs, *configDir, false)
	if err != nil {
		return err
	}
	defer a.close()

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
	modelID := fs.Arg(0)
	if modelID == "" {
		models, err := resolver.List(ctx)
		if err != nil {
			return fmt.Errorf("list models: %w", err)
		}
		if len(models) == 0 {
			return errors.New("no models available; add one with 'skirmish models import <file.glb>'")
		}
		modelID = models[0].ID
	}

	user := localUser()
	submit := session.Submitters{workerManager.ForUser(user)}
	if telemetry != nil {
		submit = append(submit, telemetry)
	}
	if *submitRemote {
		submit = append(submit, remoteSubmitter{client: apiClient(), user: user})
	}

	var cues session.Cues = audio.Nop{}
	audioCfg := config.GetAudioConfig()
	if audioCfg.Enabled && !*mute {
		player := audio.New(audioCfg)
		if err := player.Init(); err != nil {
			a.logger.Warn("Sound disabled", "error", err)
		} else {
			defer player.Close()
			cues = player
		}
	}

	sess := session.New(sessionConfig(), session.Dependencies{
		Poses:     fixedCamera{},
		Assets:    resolver,
		Submitter: submit,
		Cues:      cues,
		Sortie:    a.sortie,
		Logger:    a.logger,
		Rand:      newRand(),
	})
	defer func() {
		if !sess.WaitSubmissions(remoteTimeout) {
			a.logger.Warn("Result submission still pending at exit")
		}
		sess.Exit()
	}()

	var recorder storage.PerformanceRecorder
	if telemetry != nil {
		recorder = telemetry
	}
	mon := monitor.NewService(monitor.Dependencies{
		LogManager: a.logs,
		Recorder:   recorder,
		Pending:    workerManager.Pending,
		StatusDir:  a.dataDir(),
	})
	defer mon.Track(sess)()
	if err := mon.Start(); err != nil {
		a.logger.Warn("Status monitor not started", "error", err)
	}
	defer mon.Stop()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}
	defer screen.Fini()
	screen.HideCursor()

	w, h := screen.Size()
	sess.SetViewport(viewportFor(w, h))
	if err := sess.Start(ctx, modelID); err != nil {
		return err
	}

	g := &game{
		ctx:     ctx,
		screen:  screen,
		sess:    sess,
		modelID: modelID,
		keys:    newKeyState(holdWindow),
		cam:     cameraPose(),
		w:       w,
		h:       h,
		logger:  a.logger,
	}
	g.run()
	return nil
}

// game is the terminal front-end loop of one play command.
type game struct {
	ctx     context.Context
	screen  tcell.Screen
	sess    *session.Session
	modelID string
	keys    *keyState
	cam     core.Pose
	w, h    int
	logger  *slog.Logger
}

func (g *game) run() {
	events := make(chan tcell.Event, 64)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-g.ctx.Done():
			return
		case ev := <-events:
			if !g.handle(ev) {
				return
			}
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			g.sess.SetInput(g.keys.input(now))
			g.sess.OnFrame(g.cam, dt)
			canvas{screen: g.screen, w: g.w, h: g.h, cam: g.cam, vp: viewportFor(g.w, g.h)}.
				draw(g.sess.Snapshot())
		}
	}
}

// handle applies one terminal event and reports whether to keep playing.
func (g *game) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		g.w, g.h = ev.Size()
		g.sess.SetViewport(viewportFor(g.w, g.h))
		g.screen.Sync()
	case *tcell.EventKey:
		now := ev.When()
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyUp:
			g.keys.press(ctrlForward, now)
		case tcell.KeyDown:
			g.keys.press(ctrlBack, now)
		case tcell.KeyLeft:
			g.keys.press(ctrlLeft, now)
		case tcell.KeyRight:
			g.keys.press(ctrlRight, now)
		case tcell.KeyRune:
			return g.letter(unicode.ToLower(ev.Rune()), now)
		}
	}
	return true
}

func (g *game) letter(r rune, now time.Time) bool {
	switch r {
	case 'q':
		return false
	case 'w':
		g.keys.press(ctrlForward, now)
	case 's':
		g.keys.press(ctrlBack, now)
	case 'a':
		g.keys.press(ctrlLeft, now)
	case 'd':
		g.keys.press(ctrlRight, now)
	case ' ':
		g.keys.press(ctrlFire, now)
	case 'r':
		if g.sess.State() != core.StateCleared {
			break
		}
		g.keys.reset()
		g.sess.WaitSubmissions(restartWait)
		g.sess.Exit()
		if err := g.sess.Start(g.ctx, g.modelID); err != nil {
			g.logger.Error("Failed to start new sortie", "error", err)
			return false
		}
	}
	return true
}
