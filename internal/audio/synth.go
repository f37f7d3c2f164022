package audio

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// Wave is an oscillator shape.
type Wave int

const (
	WaveSine Wave = iota
	WaveSquare
	WaveSaw
	WaveNoise
)

// sweep is an oscillator whose frequency glides linearly from start to end
// over its duration.
type sweep struct {
	start, end float64
	wave       Wave
	rate       beep.SampleRate
	total      int
	pos        int
	phase      float64
	rng        *rand.Rand
}

// NewSweep returns a finite streamer gliding from start Hz to end Hz.
func NewSweep(start, end float64, d time.Duration, wave Wave, rate beep.SampleRate) beep.Streamer {
	return &sweep{
		start: start,
		end:   end,
		wave:  wave,
		rate:  rate,
		total: rate.N(d),
		rng:   rand.New(rand.NewPCG(uint64(start), uint64(end))),
	}
}

// NewTone returns a finite streamer at a fixed frequency.
func NewTone(freq float64, d time.Duration, wave Wave, rate beep.SampleRate) beep.Streamer {
	return NewSweep(freq, freq, d, wave, rate)
}

func (s *sweep) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		if s.pos >= s.total {
			return i, i > 0
		}

		var v float64
		switch s.wave {
		case WaveSine:
			v = math.Sin(2 * math.Pi * s.phase)
		case WaveSquare:
			v = 1
			if s.phase >= 0.5 {
				v = -1
			}
		case WaveSaw:
			v = 2 * (s.phase - 0.5)
		case WaveNoise:
			v = s.rng.Float64()*2 - 1
		}
		samples[i][0] = v
		samples[i][1] = v

		t := float64(s.pos) / float64(s.total)
		freq := s.start + (s.end-s.start)*t
		s.phase += freq / float64(s.rate)
		s.phase -= math.Floor(s.phase)
		s.pos++
	}
	return len(samples), true
}

func (s *sweep) Err() error { return nil }

// decay shapes a streamer with a linear attack and an exponential tail.
type decay struct {
	streamer beep.Streamer
	attack   int
	rate     float64
	pos      int
}

// NewDecay applies a short attack then e^(-k*t) decay, k per second.
func NewDecay(s beep.Streamer, attack time.Duration, k float64, rate beep.SampleRate) beep.Streamer {
	return &decay{streamer: s, attack: rate.N(attack), rate: k / float64(rate)}
}

func (d *decay) Stream(samples [][2]float64) (int, bool) {
	n, ok := d.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		vol := math.Exp(-d.rate * float64(d.pos))
		if d.pos < d.attack {
			vol *= float64(d.pos) / float64(d.attack)
		}
		samples[i][0] *= vol
		samples[i][1] *= vol
		d.pos++
	}
	return n, ok
}

func (d *decay) Err() error { return d.streamer.Err() }

func gain(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol)}
}

// Sound durations per cue.
const (
	PlayerShotDuration = 90 * time.Millisecond
	EnemyShotDuration  = 140 * time.Millisecond
	ExplosionDuration  = 450 * time.Millisecond
	ClearNoteDuration  = 120 * time.Millisecond
)

// PlayerShot is a bright downward laser zap.
func PlayerShot(rate beep.SampleRate) beep.Streamer {
	zap := NewSweep(1600, 500, PlayerShotDuration, WaveSquare, rate)
	return gain(NewDecay(zap, 3*time.Millisecond, 18, rate), 0.35)
}

// EnemyShot is a lower, buzzier zap.
func EnemyShot(rate beep.SampleRate) beep.Streamer {
	zap := NewSweep(700, 220, EnemyShotDuration, WaveSaw, rate)
	return gain(NewDecay(zap, 5*time.Millisecond, 14, rate), 0.3)
}

// Explosion mixes filtered noise with a low rumble.
func Explosion(rate beep.SampleRate) beep.Streamer {
	noise := NewTone(0, ExplosionDuration, WaveNoise, rate)
	rumble := NewSweep(90, 40, ExplosionDuration, WaveSine, rate)
	mixed := beep.Mix(gain(noise, 0.5), gain(rumble, 0.6))
	return gain(NewDecay(mixed, 2*time.Millisecond, 7, rate), 0.8)
}

// Clear is a rising C major arpeggio.
func Clear(rate beep.SampleRate) beep.Streamer {
	notes := []float64{523.25, 659.25, 783.99, 1046.5}
	parts := make([]beep.Streamer, 0, len(notes))
	for _, f := range notes {
		tone := NewTone(f, ClearNoteDuration, WaveSine, rate)
		parts = append(parts, NewDecay(tone, 4*time.Millisecond, 6, rate))
	}
	return gain(beep.Seq(parts...), 0.5)
}
