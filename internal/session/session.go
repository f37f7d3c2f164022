// Package session runs one skirmish: it owns the player craft, the enemy
// wave, every beam and explosion in flight, and the live score, and it
// advances all of them once per rendered frame.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aircraftstudio/skirmish/internal/channel"
	"github.com/aircraftstudio/skirmish/internal/combat"
	"github.com/aircraftstudio/skirmish/internal/enemy"
	"github.com/aircraftstudio/skirmish/internal/flight"
	"github.com/aircraftstudio/skirmish/internal/hud"
	"github.com/aircraftstudio/skirmish/internal/score"
	"github.com/aircraftstudio/skirmish/internal/sortie"
	"github.com/aircraftstudio/skirmish/internal/weapon"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

var (
	ErrUnsupported = errors.New("pose session unavailable")
	ErrNotIdle     = errors.New("session already running")
)

const (
	DefaultMinEnemies    = 3
	DefaultMaxEnemies    = 6
	DefaultMaxFrameDelta = 0.05

	PlayerScale = 0.3
	EnemyScale  = 0.25

	// TrackInterval is the spacing of flight track samples in seconds.
	TrackInterval = 0.25
)

// PlayerStart is where the player craft appears, just ahead of and below
// the camera.
var PlayerStart = mgl64.Vec3{0, -0.2, -1.5}

// PoseSource is the platform session feeding camera poses. Open fails when
// the platform cannot provide one.
type PoseSource interface {
	Open(ctx context.Context) error
	Close()
}

// Assets resolves models and lists the ones available.
type Assets interface {
	Resolve(ctx context.Context, id string) (core.ModelHandle, error)
	List(ctx context.Context) ([]core.ModelEntry, error)
	Placeholder(id string) core.ModelHandle
}

// Submitter hands a cleared session's result to the leaderboard.
type Submitter interface {
	Submit(ctx context.Context, result core.SessionResult) error
}

// Submitters hands a result to each submitter in turn and returns the
// joined errors.
type Submitters []Submitter

func (s Submitters) Submit(ctx context.Context, result core.SessionResult) error {
	var errs []error
	for _, sub := range s {
		if err := sub.Submit(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Cues plays audio for simulation events.
type Cues interface {
	Play(cue core.Cue)
}

// Config tunes a session.
type Config struct {
	MinEnemies    int
	MaxEnemies    int
	MaxFrameDelta float64
	Anchor        *core.GeoAnchor
}

// Dependencies are the collaborators of a session. Poses, Submitter, Cues
// and Sortie may be nil.
type Dependencies struct {
	Poses     PoseSource
	Assets    Assets
	Submitter Submitter
	Cues      Cues
	Sortie    *sortie.Context
	Logger    *slog.Logger
	Rand      *rand.Rand
}

// Session is one run of the simulation. All methods are safe for
// concurrent use; frames are processed one at a time.
type Session struct {
	mu   sync.Mutex
	cfg  Config
	deps Dependencies
	rng  *rand.Rand

	state  core.State
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	clock    float64
	frames   int
	viewport core.Viewport
	camera   core.Pose
	input    *channel.Latest[core.Input]

	model      core.ModelHandle
	player     *flight.Craft
	gun        *weapon.Gun
	enemies    []enemy.State
	spawned    int
	beams      []*weapon.Beam
	nextBeamID int
	explosions []*combat.Explosion
	stats      core.Stats
	tracker    *score.Tracker
	indicator  core.Indicator

	track       []mgl64.Vec2
	nextTrackAt float64
	result      *core.SessionResult

	submits sync.WaitGroup
}

// New creates an idle session.
func New(cfg Config, deps Dependencies) *Session {
	if cfg.MinEnemies < 1 {
		cfg.MinEnemies = DefaultMinEnemies
	}
	if cfg.MaxEnemies < cfg.MinEnemies {
		cfg.MaxEnemies = max(DefaultMaxEnemies, cfg.MinEnemies)
	}
	if cfg.MaxFrameDelta <= 0 {
		cfg.MaxFrameDelta = DefaultMaxFrameDelta
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	rng := deps.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Session{
		cfg:      cfg,
		deps:     deps,
		rng:      rng,
		state:    core.StateIdle,
		viewport: core.DefaultViewport(1280, 720),
		camera:   core.IdentityPose(),
		input:    channel.NewLatest(core.Input{}),
	}
}

// Start acquires a pose session, loads the player's model and spawns the
// enemy wave. On any failure the session stays idle.
func (s *Session) Start(ctx context.Context, modelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != core.StateIdle {
		return ErrNotIdle
	}
	if s.deps.Assets == nil {
		return errors.New("no asset source configured")
	}

	if s.deps.Poses != nil {
		if err := s.deps.Poses.Open(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
	}

	model, err := s.deps.Assets.Resolve(ctx, modelID)
	if err != nil {
		if s.deps.Poses != nil {
			s.deps.Poses.Close()
		}
		return fmt.Errorf("failed to load model %s: %w", modelID, err)
	}

	available, err := s.deps.Assets.List(ctx)
	if err != nil {
		s.deps.Logger.Warn("model list unavailable, flying against own model", "error", err)
		available = nil
	}

	s.id = uuid.NewString()
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.model = model
	s.reset()
	s.player = flight.New(PlayerStart, PlayerScale)
	s.tracker = score.NewTracker(0)
	s.spawn(ctx, Roster(available, model.ID, s.cfg.MinEnemies, s.cfg.MaxEnemies))
	s.state = core.StateActive

	if s.deps.Sortie != nil {
		s.deps.Sortie.Begin(sortie.Info{
			SessionID: s.id,
			ModelID:   model.ID,
			ModelName: model.Name,
			State:     core.StateActive,
			StartedAt: time.Now(),
		})
	}
	s.deps.Logger.Info("session started", "session", s.id, "model", model.ID, "enemies", s.spawned)
	return nil
}

func (s *Session) spawn(ctx context.Context, roster []string) {
	positions := Ring(PlayerStart, len(roster), s.rng)
	handles := make(map[string]core.ModelHandle)

	for i, id := range roster {
		h, ok := handles[id]
		if !ok {
			var err error
			h, err = s.deps.Assets.Resolve(ctx, id)
			if err != nil {
				s.deps.Logger.Warn("enemy model failed to load, using placeholder", "model", id, "error", err)
				h = s.deps.Assets.Placeholder(id)
			}
			handles[id] = h
		}

		e := enemy.New(i+1, positions[i], s.clock, s.rng)
		e.ModelID = id
		e.Placeholder = h.Placeholder
		e.Scale = EnemyScale
		s.enemies = append(s.enemies, e)
	}
	s.spawned = len(s.enemies)
}

// reset drops every per-session object.
func (s *Session) reset() {
	s.clock = 0
	s.frames = 0
	s.input.Reset()
	s.player = nil
	s.gun = weapon.NewGun(weapon.PlayerCooldown)
	s.enemies = nil
	s.spawned = 0
	s.beams = nil
	s.nextBeamID = 0
	s.explosions = nil
	s.stats = core.Stats{}
	s.tracker = nil
	s.indicator = core.Indicator{}
	s.track = nil
	s.nextTrackAt = 0
	s.result = nil
}

// SetInput replaces the current control input. The latest value set before
// a frame is the one that frame uses.
func (s *Session) SetInput(in core.Input) {
	s.input.Store(in.Clamp())
}

// SetViewport updates the rendering surface used for the HUD projection.
func (s *Session) SetViewport(vp core.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = vp
}

// SetAnchor records the geographic location of the AR session. It is
// stored with the result of the next clear.
func (s *Session) SetAnchor(anchor *core.GeoAnchor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Anchor = anchor
}

// OnFrame advances the simulation by dt seconds seen from the camera pose.
// It does nothing while idle.
func (s *Session) OnFrame(cam core.Pose, dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == core.StateIdle {
		return
	}
	dt = mgl64.Clamp(dt, 0, s.cfg.MaxFrameDelta)
	s.clock += dt
	s.frames++
	s.camera = cam

	if s.state == core.StateCleared {
		s.advanceBeams(dt)
		s.advanceExplosions()
		s.project()
		return
	}

	in := s.input.Load()
	s.player.Step(in, dt)
	s.stepEnemies(dt)
	s.enemyFire()
	s.advanceBeams(dt)
	s.resolve()
	s.advanceExplosions()
	s.project()
	if in.Fire {
		s.playerFire()
	}

	s.tracker.Update(s.clock, s.stats)
	s.sampleTrack()

	if s.spawned > 0 && len(s.enemies) == 0 {
		s.finish()
	}
}

func (s *Session) stepEnemies(dt float64) {
	positions := make([]mgl64.Vec3, len(s.enemies))
	for i, e := range s.enemies {
		positions[i] = e.Position
	}

	neighbors := make([]mgl64.Vec3, 0, len(positions))
	for i := range s.enemies {
		neighbors = neighbors[:0]
		for j, p := range positions {
			if j != i {
				neighbors = append(neighbors, p)
			}
		}
		s.guard("enemy", s.enemies[i].ID, func() {
			s.enemies[i] = enemy.Step(s.enemies[i], dt, s.player.Position, neighbors, s.rng)
		})
	}
}

func (s *Session) enemyFire() {
	for i := range s.enemies {
		e := &s.enemies[i]
		if !e.ReadyToFire(s.clock) {
			continue
		}
		muzzle := e.Position.Add(e.Orientation.Rotate(weapon.MuzzleOffset))
		nose := e.Orientation.Rotate(mgl64.Vec3{0, 0, -1})
		target := s.player.Position
		dir, length := weapon.Aim(muzzle, nose, &target, weapon.EnemySpread, s.rng)
		s.fire(core.OwnerEnemy, muzzle, dir, length)
		*e = e.Reschedule(s.clock, s.rng)
		s.cue(core.CueEnemyShot)
	}
}

func (s *Session) playerFire() {
	if !s.gun.TryFire(s.clock) {
		return
	}
	muzzle := s.player.LocalToWorld(weapon.MuzzleOffset)
	nose := s.player.Orientation.Rotate(mgl64.Vec3{0, 0, -1})

	targets := make([]weapon.Target, 0, len(s.enemies))
	for _, e := range s.enemies {
		targets = append(targets, weapon.Target{ID: e.ID, Position: e.Position})
	}
	var aimAt *mgl64.Vec3
	if t, ok := weapon.Nearest(muzzle, targets); ok {
		aimAt = &t.Position
	}
	dir, length := weapon.Aim(muzzle, nose, aimAt, weapon.PlayerSpread, s.rng)
	s.fire(core.OwnerPlayer, muzzle, dir, length)
	s.stats.ShotsFired++
	s.cue(core.CuePlayerShot)
}

func (s *Session) fire(owner core.Owner, muzzle, dir mgl64.Vec3, length float64) {
	s.nextBeamID++
	s.beams = append(s.beams, weapon.Spawn(s.nextBeamID, owner, s.clock, muzzle, dir, length))
}

func (s *Session) advanceBeams(dt float64) {
	live := s.beams[:0]
	for _, b := range s.beams {
		if !b.Advance(s.clock, dt) {
			live = append(live, b)
		}
	}
	clear(s.beams[len(live):])
	s.beams = live
}

func (s *Session) resolve() {
	kills := combat.Resolve(s.beams, s.enemies, &s.stats)
	if len(kills) == 0 {
		return
	}
	for _, k := range kills {
		s.explosions = append(s.explosions, combat.NewExplosion(k.Position, s.clock))
		s.cue(core.CueExplosion)
		s.deps.Logger.Debug("enemy destroyed", "enemy", k.EnemyID)
	}

	alive := s.enemies[:0]
	for _, e := range s.enemies {
		if e.Alive {
			alive = append(alive, e)
		}
	}
	s.enemies = alive
}

func (s *Session) advanceExplosions() {
	live := s.explosions[:0]
	for _, e := range s.explosions {
		if !e.Advance(s.clock) {
			live = append(live, e)
		}
	}
	clear(s.explosions[len(live):])
	s.explosions = live
}

func (s *Session) project() {
	if s.player == nil {
		return
	}
	s.guard("hud", 0, func() {
		ind, err := hud.Project(s.player.Position, s.camera, s.viewport)
		if err != nil {
			s.indicator = core.Indicator{}
			return
		}
		s.indicator = ind
	})
}

func (s *Session) sampleTrack() {
	if s.clock < s.nextTrackAt {
		return
	}
	s.track = append(s.track, mgl64.Vec2{s.player.Position.X(), s.player.Position.Z()})
	s.nextTrackAt = s.clock + TrackInterval
}

// finish freezes the session at wave clear and hands the result to the
// submitter on its own goroutine. It runs once per session: the state
// change guards any later frame.
func (s *Session) finish() {
	final := s.tracker.Final(s.clock, s.stats)
	res := score.Result(final, s.clock, s.stats, s.model, s.track, s.cfg.Anchor)
	s.result = &res
	s.state = core.StateCleared

	if s.deps.Sortie != nil {
		s.deps.Sortie.SetState(core.StateCleared)
	}
	s.cue(core.CueClear)
	s.deps.Logger.Info("wave cleared", "session", s.id, "score", final, "clearTime", s.clock,
		"shots", s.stats.ShotsFired, "hits", s.stats.Hits)

	if s.deps.Submitter == nil {
		return
	}
	s.submits.Add(1)
	go s.submit(s.ctx, s.id, res)
}

// submit runs without the session lock; Exit cancels ctx.
func (s *Session) submit(ctx context.Context, id string, res core.SessionResult) {
	defer s.submits.Done()
	if err := s.deps.Submitter.Submit(ctx, res); err != nil {
		s.deps.Logger.Error("result submission failed", "session", id, "error", err)
		return
	}
	s.deps.Logger.Debug("result submitted", "session", id)
}

// WaitSubmissions blocks until every handed-off result has been submitted
// or timeout passes. It reports whether all submissions returned.
func (s *Session) WaitSubmissions(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.submits.Wait()
		close(done)
	}()
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}

// Exit stops the session and releases everything it holds. Calling it on
// an idle session does nothing.
func (s *Session) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == core.StateIdle {
		return
	}
	id := s.id
	s.state = core.StateIdle
	s.reset()
	s.model = core.ModelHandle{}
	s.id = ""
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.deps.Poses != nil {
		s.deps.Poses.Close()
	}
	if s.deps.Sortie != nil {
		s.deps.Sortie.End()
	}
	s.deps.Logger.Info("session exited", "session", id)
}

// guard runs fn and swallows a panic so one failing entity cannot stop the
// rest of the frame.
func (s *Session) guard(subsystem string, id int, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.deps.Logger.Error("recovered from panic", "subsystem", subsystem, "id", id, "panic", r)
		}
	}()
	fn()
}

func (s *Session) cue(c core.Cue) {
	if s.deps.Cues != nil {
		s.deps.Cues.Play(c)
	}
}

// State returns the lifecycle state.
func (s *Session) State() core.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the identifier of the running session, or "" when idle.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Result returns the cleared session's result, or nil.
func (s *Session) Result() *core.SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	r := *s.result
	return &r
}

// Snapshot copies the state needed to render the current frame.
func (s *Session) Snapshot() core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := core.Snapshot{
		SessionID:  s.id,
		State:      s.state,
		Time:       s.clock,
		Stats:      s.stats,
		Alive:      len(s.enemies),
		Enemies:    make([]core.CraftView, 0, len(s.enemies)),
		Beams:      make([]core.BeamView, 0, len(s.beams)),
		Explosions: make([]core.ExplosionView, 0, len(s.explosions)),
		HUD:        s.indicator,
	}
	if s.tracker != nil {
		snap.Score = s.tracker.Value()
	}
	if s.player != nil {
		snap.Player = s.player.View(s.model.ID)
	}
	for _, e := range s.enemies {
		snap.Enemies = append(snap.Enemies, e.View())
	}
	for _, b := range s.beams {
		snap.Beams = append(snap.Beams, b.View())
	}
	for _, e := range s.explosions {
		snap.Explosions = append(snap.Explosions, e.View())
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}

// Sample reports frame statistics since the previous call.
func (s *Session) Sample(now time.Time) core.PerformanceSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample := core.PerformanceSample{
		Time:      now,
		SessionID: s.id,
		State:     s.state,
		Frames:    s.frames,
		Alive:     len(s.enemies),
		Beams:     len(s.beams),
	}
	if s.tracker != nil {
		sample.Score = s.tracker.Value()
	}
	s.frames = 0
	return sample
}
