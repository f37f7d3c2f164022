package score

import (
	"testing"

	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/go-gl/mathgl/mgl64"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name                   string
		destroyed, hits, shots int
		elapsed                float64
		want                   int
	}{
		{"fresh", 0, 0, 0, 0, 1000},
		{"two kills in thirty seconds", 2, 6, 10, 30, 1000},
		{"elapsed is floored to tenths", 0, 0, 0, 1.29, 988},
		{"never negative", 0, 0, 500, 100, 0},
		{"kills and hits", 4, 40, 50, 12.5, 1000 + 400 + 1000 - 250 - 125},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.destroyed, tt.hits, tt.shots, tt.elapsed); got != tt.want {
				t.Errorf("Compute() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCompute_Deterministic(t *testing.T) {
	a := Compute(3, 17, 29, 41.7)
	for i := 0; i < 5; i++ {
		if b := Compute(3, 17, 29, 41.7); a != b {
			t.Fatalf("Compute not deterministic: %d vs %d", a, b)
		}
	}
}

func TestTracker_Throttles(t *testing.T) {
	tr := NewTracker(10)
	s := core.Stats{ShotsFired: 1}

	if got := tr.Update(10, s); got != 995 {
		t.Fatalf("first update = %d, want 995", got)
	}
	s.ShotsFired = 2
	if got := tr.Update(10.1, s); got != 995 {
		t.Errorf("update inside interval = %d, want cached 995", got)
	}
	if got := tr.Update(10.25, s); got != 1000-10-2 {
		t.Errorf("update after interval = %d, want %d", got, 1000-10-2)
	}
	if got := tr.Final(10.3, s); got != 1000-10-3 {
		t.Errorf("Final = %d, want %d", got, 1000-10-3)
	}
}

func TestResult(t *testing.T) {
	s := core.Stats{ShotsFired: 10, Hits: 6, EnemiesDestroyed: 2}
	model := core.ModelHandle{ID: "m1", Name: "Falcon", Source: "/api/models/m1"}
	track := []mgl64.Vec2{{0, 0}, {1, 1}}

	r := Result(1000, 30, s, model, track, nil)
	if r.ClearTime == nil || *r.ClearTime != 30 {
		t.Fatalf("ClearTime = %v, want 30", r.ClearTime)
	}
	if r.Score != 1000 || r.Hits != 6 || r.ShotsFired != 10 || r.EnemiesDestroyed != 2 {
		t.Errorf("unexpected counters: %+v", r)
	}
	if r.ModelID != "m1" || r.ModelName != "Falcon" || r.ModelPath != "/api/models/m1" {
		t.Errorf("unexpected model fields: %+v", r)
	}
	if len(r.Track) != 2 {
		t.Errorf("Track len = %d, want 2", len(r.Track))
	}
}
