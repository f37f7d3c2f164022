// Package sortie tracks the session currently being flown so that log
// records and status output can refer to it.
package sortie

import (
	"log/slog"
	"sync"
	"time"

	"github.com/aircraftstudio/skirmish/pkg/core"
)

// Info describes one sortie.
type Info struct {
	SessionID string
	ModelID   string
	ModelName string
	State     core.State
	StartedAt time.Time
}

// Context holds the current sortie.
type Context struct {
	mu   sync.RWMutex
	info Info
}

// NewContext creates a Context with no sortie in progress.
func NewContext() *Context {
	return &Context{info: Info{State: core.StateIdle}}
}

// Get returns the current sortie.
func (c *Context) Get() Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info
}

// Begin records a newly started sortie.
func (c *Context) Begin(info Info) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info = info
}

// SetState updates the state of the current sortie.
func (c *Context) SetState(s core.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info.State = s
}

// End clears the sortie, keeping nothing but the idle state.
func (c *Context) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info = Info{State: core.StateIdle}
}

// Attrs returns log attributes for the current sortie. It has the shape of
// a logging context provider.
func (c *Context) Attrs() []slog.Attr {
	info := c.Get()
	if info.SessionID == "" {
		return nil
	}
	return []slog.Attr{
		slog.String("session", info.SessionID),
		slog.String("model", info.ModelID),
		slog.String("state", string(info.State)),
	}
}
