package dispatcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recordedLog struct {
	level string
	msg   string
}

// captureLogger records every call.
type captureLogger struct {
	mu   sync.Mutex
	logs []recordedLog
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.add("error", msg) }

func (l *captureLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, recordedLog{level, msg})
}

func (l *captureLogger) at(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.logs {
		if r.level == level {
			n++
		}
	}
	return n
}

func setup(t *testing.T) (*Dispatcher, *captureLogger) {
	t.Helper()
	logger := &captureLogger{}
	d, err := New(logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(d.Close)
	return d, logger
}

// gate is a handler that parks every call until released.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (g *gate) handle(Event) (any, error) {
	g.entered <- struct{}{}
	<-g.release
	return nil, nil
}

func TestDispatch_Inline(t *testing.T) {
	d, _ := setup(t)

	var seen Event
	d.Register("frame", func(e Event) (any, error) {
		seen = e
		return 42, nil
	})

	res, err := d.Dispatch(Event{Command: "frame", Payload: json.RawMessage(`{"dt":0.016}`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != 42 {
		t.Errorf("result = %v, want 42", res)
	}
	if string(seen.Payload) != `{"dt":0.016}` {
		t.Errorf("payload = %s", seen.Payload)
	}
	if seen.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}

	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	d.Dispatch(Event{Command: "frame", Timestamp: stamp})
	if !seen.Timestamp.Equal(stamp) {
		t.Errorf("timestamp overwritten: %v", seen.Timestamp)
	}
}

func TestDispatch_Unknown(t *testing.T) {
	d, _ := setup(t)
	_, err := d.Dispatch(Event{Command: "warp"})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("err = %v, want ErrUnknownCommand", err)
	}
}

func TestHasHandler(t *testing.T) {
	d, _ := setup(t)
	d.Register("frame", func(Event) (any, error) { return nil, nil })

	if !d.HasHandler("frame") || d.HasHandler("input") {
		t.Error("HasHandler mismatch")
	}
}

func TestBuffered_DrainsOnClose(t *testing.T) {
	d, _ := setup(t)

	var n atomic.Int32
	d.Register("submit_result", func(Event) (any, error) {
		n.Add(1)
		return nil, nil
	}, Buffered(8))

	for range 5 {
		res, err := d.Dispatch(Event{Command: "submit_result"})
		if err != nil || res != Queued {
			t.Fatalf("Dispatch = %v, %v", res, err)
		}
	}
	d.Close()

	if n.Load() != 5 {
		t.Errorf("handled %d events, want 5", n.Load())
	}
}

func TestBuffered_Full(t *testing.T) {
	d, _ := setup(t)
	g := newGate()
	d.Register("input", g.handle, Buffered(1))

	d.Dispatch(Event{Command: "input"})
	<-g.entered
	if _, err := d.Dispatch(Event{Command: "input"}); err != nil {
		t.Fatalf("second event should queue: %v", err)
	}

	count := 0
	d.depths(func(command string, depth int) {
		count++
		if command != "input" || depth != 1 {
			t.Errorf("depth %s = %d, want input = 1", command, depth)
		}
	})
	if count != 1 {
		t.Errorf("reported %d queues, want 1", count)
	}

	_, err := d.Dispatch(Event{Command: "input"})
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
	close(g.release)
}

func TestBuffered_Blocking(t *testing.T) {
	d, _ := setup(t)
	g := newGate()
	d.Register("exit", g.handle, Buffered(1), Blocking())

	d.Dispatch(Event{Command: "exit"})
	<-g.entered
	d.Dispatch(Event{Command: "exit"})

	returned := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: "exit"})
		close(returned)
	}()

	select {
	case <-returned:
		t.Fatal("dispatch returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}
	close(g.release)
	<-returned
}

func TestBuffered_AfterClose(t *testing.T) {
	d, _ := setup(t)
	d.Register("input", func(Event) (any, error) { return nil, nil }, Buffered(2))

	d.Close()
	d.Close()

	if _, err := d.Dispatch(Event{Command: "input"}); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestBuffered_ErrorLogged(t *testing.T) {
	d, logger := setup(t)
	d.Register("submit_result", func(Event) (any, error) {
		return nil, errors.New("backend down")
	}, Buffered(2))

	d.Dispatch(Event{Command: "submit_result"})
	d.Close()

	if got := logger.at("error"); got != 1 {
		t.Errorf("error logs = %d, want 1", got)
	}
}

func TestLogged(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantDebug  int
		wantErrors int
	}{
		{"success", nil, 2, 0},
		{"failure", fmt.Errorf("unsupported model"), 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, logger := setup(t)
			d.Register("start", func(Event) (any, error) { return nil, tt.err }, Logged())

			_, err := d.Dispatch(Event{Command: "start", Payload: json.RawMessage(`{"modelId":"m"}`)})
			if !errors.Is(err, tt.err) {
				t.Errorf("err = %v, want %v", err, tt.err)
			}
			if got := logger.at("debug"); got != tt.wantDebug {
				t.Errorf("debug logs = %d, want %d", got, tt.wantDebug)
			}
			if got := logger.at("error"); got != tt.wantErrors {
				t.Errorf("error logs = %d, want %d", got, tt.wantErrors)
			}
		})
	}
}

func TestLogged_Buffered(t *testing.T) {
	d, logger := setup(t)

	var n atomic.Int32
	d.Register("submit_result", func(Event) (any, error) {
		n.Add(1)
		return nil, nil
	}, Buffered(4), Logged())

	if res, _ := d.Dispatch(Event{Command: "submit_result"}); res != Queued {
		t.Errorf("result = %v, want %s", res, Queued)
	}
	d.Close()

	if n.Load() != 1 {
		t.Errorf("handled %d, want 1", n.Load())
	}
	if logger.at("debug") != 2 {
		t.Errorf("debug logs = %d, want 2", logger.at("debug"))
	}
}
