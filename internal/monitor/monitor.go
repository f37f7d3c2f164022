// Package monitor writes a status file for the running sessions and
// records one performance sample per session per interval.
package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aircraftstudio/skirmish/internal/logging"
	"github.com/aircraftstudio/skirmish/internal/storage"
	"github.com/aircraftstudio/skirmish/pkg/core"
)

// DefaultInterval is the sampling period.
const DefaultInterval = time.Second

// StatusFileName is written inside Dependencies.StatusDir.
const StatusFileName = "status.txt"

// Sampler is a session that can report and reset its frame statistics.
type Sampler interface {
	Sample(now time.Time) core.PerformanceSample
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager *logging.SlogManager
	// Recorder receives a sample for every non-idle session. Optional.
	Recorder storage.PerformanceRecorder
	// Pending reports queued leaderboard submissions. Optional.
	Pending func() int
	// Connections reports open bridge connections. Optional.
	Connections func() int
	StatusDir   string
	Interval    time.Duration
	Now         func() time.Time
}

// Status is the content of the status file.
type Status struct {
	Time        time.Time                `json:"time"`
	Sessions    []core.PerformanceSample `json:"sessions"`
	Pending     int                      `json:"pendingSubmissions"`
	Connections int                      `json:"connections"`
}

// Service manages status monitoring
type Service struct {
	deps Dependencies

	mu       sync.Mutex
	tracked  map[int]Sampler
	nextID   int
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		deps:    deps,
		tracked: make(map[int]Sampler),
	}
}

// Track adds a session to the status report. The returned func removes it.
func (s *Service) Track(sampler Sampler) (untrack func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.tracked[id] = sampler
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.tracked, id)
			s.mu.Unlock()
		})
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Collect samples every tracked session and records the active ones.
func (s *Service) Collect() Status {
	now := s.deps.Now()

	s.mu.Lock()
	samplers := make([]Sampler, 0, len(s.tracked))
	for _, t := range s.tracked {
		samplers = append(samplers, t)
	}
	s.mu.Unlock()

	status := Status{Time: now, Sessions: make([]core.PerformanceSample, 0, len(samplers))}
	for _, t := range samplers {
		sample := t.Sample(now)
		if sample.State == core.StateIdle {
			continue
		}
		status.Sessions = append(status.Sessions, sample)

		if s.deps.Recorder != nil {
			if err := s.deps.Recorder.RecordPerformance(&sample); err != nil {
				s.deps.LogManager.WriteLog("monitor:Collect", fmt.Sprintf("Failed to record performance: %v", err), "WARN")
			}
		}
	}
	if s.deps.Pending != nil {
		status.Pending = s.deps.Pending()
	}
	if s.deps.Connections != nil {
		status.Connections = s.deps.Connections()
	}
	return status
}

// WriteStatus replaces the status file with status.
func (s *Service) WriteStatus(status Status) error {
	if s.deps.StatusDir == "" {
		return nil
	}
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(s.deps.StatusDir, StatusFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	if s.deps.StatusDir != "" {
		if err := os.MkdirAll(s.deps.StatusDir, 0755); err != nil {
			return fmt.Errorf("create status dir: %w", err)
		}
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(s.stopChan, s.done)
	return nil
}

func (s *Service) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	logger := s.deps.LogManager.Logger()
	logger.Debug("Starting status monitor", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := s.WriteStatus(s.Collect()); err != nil {
				logger.Error("Error writing status file", "error", err)
			}
		}
	}
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
