// Package dispatcher routes bridge messages to per-command handlers. A
// handler runs inline by default; Buffered moves it onto its own worker
// goroutine fed by a bounded queue.
package dispatcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrClosed is returned when dispatching to a queue after Close.
	ErrClosed = errors.New("dispatcher closed")
	// ErrUnknownCommand is returned for commands nobody registered.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrQueueFull is returned when a non-blocking queue has no room.
	ErrQueueFull = errors.New("queue full")
)

// Queued is the result of handing an event to a buffered handler.
const Queued = "queued"

// Event is one inbound bridge message.
type Event struct {
	Command   string
	Payload   json.RawMessage
	Timestamp time.Time
}

type HandlerFunc func(Event) (any, error)

// Logger is satisfied by logging.DispatcherLogger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type Option func(*routeOptions)

type routeOptions struct {
	queue    int
	blocking bool
	logged   bool
}

// Buffered queues up to size events for a dedicated worker.
func Buffered(size int) Option {
	return func(o *routeOptions) { o.queue = size }
}

// Blocking makes a full queue wait for room instead of failing.
func Blocking() Option {
	return func(o *routeOptions) { o.blocking = true }
}

// Logged logs each event's start, finish and duration at debug level.
func Logged() Option {
	return func(o *routeOptions) { o.logged = true }
}

// queue is the worker side of a buffered route.
type queue struct {
	command  string
	events   chan Event
	blocking bool
}

// Dispatcher holds the routes of one bridge connection. All Register calls
// happen before the first Dispatch.
type Dispatcher struct {
	routes  map[string]HandlerFunc
	logger  Logger
	metrics *instruments

	mu      sync.RWMutex
	queues  []*queue
	closed  bool
	workers sync.WaitGroup
}

// New builds a dispatcher reporting to the global OTel meter.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{routes: make(map[string]HandlerFunc), logger: logger}
	m, err := newInstruments(meter(), d.depths)
	if err != nil {
		return nil, err
	}
	d.metrics = m
	return d, nil
}

func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var o routeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.queue > 0 {
		h = d.enqueue(d.startWorker(command, o.queue, o.blocking, h))
	}
	if o.logged {
		h = d.traced(command, h)
	}
	d.routes[command] = h
}

func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.routes[command]
	return ok
}

// Dispatch stamps e if needed and runs its route.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	h, ok := d.routes[e.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// Close refuses new queued events, lets every worker drain its queue and
// waits for them. It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q.events)
	}
	d.mu.Unlock()

	d.workers.Wait()
	d.metrics.close()
}

func (d *Dispatcher) startWorker(command string, size int, blocking bool, h HandlerFunc) *queue {
	q := &queue{command: command, events: make(chan Event, size), blocking: blocking}
	d.mu.Lock()
	d.queues = append(d.queues, q)
	d.mu.Unlock()

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for e := range q.events {
			if _, err := h(e); err != nil {
				d.logger.Error("buffered event failed", "command", command, "error", err)
			}
			d.metrics.processed(command)
		}
	}()
	return q
}

// enqueue returns the dispatch side of q. The read lock keeps Close from
// closing the channel under a pending send.
func (d *Dispatcher) enqueue(q *queue) HandlerFunc {
	return func(e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return nil, ErrClosed
		}
		if q.blocking {
			q.events <- e
			return Queued, nil
		}
		select {
		case q.events <- e:
			return Queued, nil
		default:
			d.metrics.dropped(q.command)
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, q.command)
		}
	}
}

func (d *Dispatcher) traced(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "bytes", len(e.Payload))
		res, err := h(e)
		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
			return res, err
		}
		d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		return res, nil
	}
}

// depths reports the length of every queue.
func (d *Dispatcher) depths(report func(command string, n int)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, q := range d.queues {
		report(q.command, len(q.events))
	}
}
