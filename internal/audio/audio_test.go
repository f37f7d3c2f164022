package audio

import (
	"math"
	"testing"
	"time"

	"github.com/aircraftstudio/skirmish/internal/config"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/gopxl/beep"
)

// drain streams s to exhaustion and returns the sample count and peak.
func drain(t *testing.T, s beep.Streamer) (int, float64) {
	t.Helper()
	buf := make([][2]float64, 512)
	total, peak := 0, 0.0
	for i := 0; i < 10000; i++ {
		n, ok := s.Stream(buf)
		for _, smp := range buf[:n] {
			peak = math.Max(peak, math.Abs(smp[0]))
		}
		total += n
		if !ok {
			return total, peak
		}
	}
	t.Fatal("streamer never finished")
	return 0, 0
}

func TestSweepLength(t *testing.T) {
	rate := beep.SampleRate(8000)
	n, peak := drain(t, NewSweep(440, 220, 50*time.Millisecond, WaveSine, rate))
	if want := rate.N(50 * time.Millisecond); n != want {
		t.Errorf("Expected %d samples, got %d", want, n)
	}
	if peak > 1.0 {
		t.Errorf("Sine peak out of range: %f", peak)
	}
}

func TestSquareValues(t *testing.T) {
	s := NewTone(100, 10*time.Millisecond, WaveSquare, beep.SampleRate(8000))
	buf := make([][2]float64, 40)
	n, _ := s.Stream(buf)
	for i := 0; i < n; i++ {
		if v := buf[i][0]; v != 1 && v != -1 {
			t.Fatalf("Square sample %d = %f", i, v)
		}
	}
}

func TestDecayFades(t *testing.T) {
	rate := beep.SampleRate(8000)
	s := NewDecay(NewTone(0, 500*time.Millisecond, WaveSquare, rate), 0, 10, rate)
	buf := make([][2]float64, rate.N(500*time.Millisecond))
	n, _ := s.Stream(buf)
	if n == 0 {
		t.Fatal("Expected samples")
	}
	if buf[0][0] != 1 {
		t.Errorf("Expected full volume at start, got %f", buf[0][0])
	}
	if last := math.Abs(buf[n-1][0]); last > 0.01 {
		t.Errorf("Expected tail below 0.01, got %f", last)
	}
}

func TestCueStreamers(t *testing.T) {
	rate := beep.SampleRate(8000)
	tests := []struct {
		cue  core.Cue
		want time.Duration
	}{
		{core.CuePlayerShot, PlayerShotDuration},
		{core.CueEnemyShot, EnemyShotDuration},
		{core.CueExplosion, ExplosionDuration},
		{core.CueClear, 4 * ClearNoteDuration},
	}
	for _, tt := range tests {
		t.Run(string(tt.cue), func(t *testing.T) {
			s := Streamer(tt.cue, rate)
			if s == nil {
				t.Fatal("Expected a streamer")
			}
			n, peak := drain(t, s)
			if want := rate.N(tt.want); n != want {
				t.Errorf("Expected %d samples, got %d", want, n)
			}
			if peak == 0 || peak > 1.5 {
				t.Errorf("Unexpected peak %f", peak)
			}
		})
	}

	if Streamer("unknown", rate) != nil {
		t.Error("Expected nil for unknown cue")
	}
}

func TestPlayerWithoutSpeaker(t *testing.T) {
	p := New(config.AudioConfig{Enabled: true, Volume: 2})
	if p.volume != 1 {
		t.Errorf("Expected volume clamped to 1, got %f", p.volume)
	}
	// not initialized: both are no-ops
	p.Play(core.CueExplosion)
	p.Close()
	if p.mixer.Len() != 0 {
		t.Errorf("Expected nothing queued, got %d", p.mixer.Len())
	}
	Nop{}.Play(core.CueClear)
}
