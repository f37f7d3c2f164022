// Package audio synthesizes the simulation's sound cues and plays them
// through the system speaker.
package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/aircraftstudio/skirmish/internal/config"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

const (
	SampleRate = beep.SampleRate(44100)
	bufferSize = 100 * time.Millisecond
)

// Streamer returns the sound for cue, or nil for unknown cues.
func Streamer(cue core.Cue, rate beep.SampleRate) beep.Streamer {
	switch cue {
	case core.CuePlayerShot:
		return PlayerShot(rate)
	case core.CueEnemyShot:
		return EnemyShot(rate)
	case core.CueExplosion:
		return Explosion(rate)
	case core.CueClear:
		return Clear(rate)
	default:
		return nil
	}
}

// Player mixes cues onto the speaker.
type Player struct {
	volume float64

	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
}

// New creates a player with the configured master volume.
func New(cfg config.AudioConfig) *Player {
	return &Player{
		volume: math.Max(0, math.Min(1, cfg.Volume)),
		mixer:  &beep.Mixer{},
	}
}

// Init opens the speaker. Cues played before Init are dropped.
func (p *Player) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}
	if err := speaker.Init(SampleRate, SampleRate.N(bufferSize)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(p.mixer)
	p.initialized = true
	return nil
}

// Play starts cue without blocking.
func (p *Player) Play(cue core.Cue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized || p.volume == 0 {
		return
	}
	s := Streamer(cue, SampleRate)
	if s == nil {
		return
	}
	speaker.Lock()
	p.mixer.Add(gain(s, p.volume))
	speaker.Unlock()
}

// Close silences all playing cues.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized {
		return
	}
	speaker.Clear()
	p.mixer.Clear()
	p.initialized = false
}

// Nop discards every cue.
type Nop struct{}

func (Nop) Play(core.Cue) {}
