package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
)

// MessageWriter is the part of gelf.Writer used by GELFHandler.
type MessageWriter interface {
	WriteMessage(m *gelf.Message) error
}

// GELFHandler sends slog records to Graylog as GELF messages.
type GELFHandler struct {
	w     MessageWriter
	host  string
	level slog.Leveler
	attrs []slog.Attr
	group string
}

// NewGELFHandler dials addr over UDP and returns a handler writing to it.
func NewGELFHandler(addr string, level string) (*GELFHandler, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create GELF writer: %w", err)
	}
	w.Facility = InstrumentationName
	return NewGELFHandlerWithWriter(w, level), nil
}

// NewGELFHandlerWithWriter builds a handler around an existing writer.
func NewGELFHandlerWithWriter(w MessageWriter, level string) *GELFHandler {
	host, _ := os.Hostname()
	return &GELFHandler{w: w, host: host, level: ParseLevel(level)}
}

// Enabled reports whether level meets the configured minimum.
func (h *GELFHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle converts the record into a GELF message.
func (h *GELFHandler) Handle(_ context.Context, r slog.Record) error {
	extra := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		extra["_"+a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		extra["_"+key] = a.Value.Resolve().Any()
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	return h.w.WriteMessage(&gelf.Message{
		Version:  "1.1",
		Host:     h.host,
		Short:    r.Message,
		TimeUnix: float64(ts.UnixNano()) / float64(time.Second),
		Level:    syslogLevel(r.Level),
		Facility: InstrumentationName,
		Extra:    extra,
	})
}

// WithAttrs returns a handler that adds attrs to every message.
func (h *GELFHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

// WithGroup prefixes record attribute keys with name.
func (h *GELFHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if next.group != "" {
		next.group += "." + name
	} else {
		next.group = name
	}
	return &next
}

// syslogLevel maps slog levels to the syslog severities GELF expects.
func syslogLevel(l slog.Level) int32 {
	switch {
	case l >= slog.LevelError:
		return 3
	case l >= slog.LevelWarn:
		return 4
	case l >= slog.LevelInfo:
		return 6
	}
	return 7
}
