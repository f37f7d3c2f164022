package logging

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	mu   sync.Mutex
	msgs []*gelf.Message
}

func (c *captureWriter) WriteMessage(m *gelf.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return nil
}

func TestGELFHandler_Message(t *testing.T) {
	w := &captureWriter{}
	logger := slog.New(NewGELFHandlerWithWriter(w, "info")).With("session", "abc")

	logger.Debug("dropped")
	logger.Warn("asset fallback", "model", "jet")

	require.Len(t, w.msgs, 1)
	m := w.msgs[0]
	assert.Equal(t, "asset fallback", m.Short)
	assert.Equal(t, int32(4), m.Level)
	assert.Equal(t, "1.1", m.Version)
	assert.Equal(t, "abc", m.Extra["_session"])
	assert.Equal(t, "jet", m.Extra["_model"])
	assert.Greater(t, m.TimeUnix, 0.0)
}

func TestGELFHandler_Group(t *testing.T) {
	w := &captureWriter{}
	logger := slog.New(NewGELFHandlerWithWriter(w, "debug")).WithGroup("sim")

	logger.Error("boom", "enemy", 3)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, int32(3), w.msgs[0].Level)
	assert.EqualValues(t, 3, w.msgs[0].Extra["_sim.enemy"])
}

func TestSyslogLevel(t *testing.T) {
	assert.Equal(t, int32(7), syslogLevel(slog.LevelDebug))
	assert.Equal(t, int32(6), syslogLevel(slog.LevelInfo))
	assert.Equal(t, int32(4), syslogLevel(slog.LevelWarn))
	assert.Equal(t, int32(3), syslogLevel(slog.LevelError))
}
