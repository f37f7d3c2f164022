package logging

import (
	"context"
	"errors"
	"log/slog"
)

// Tee hands each record to every enabled handler. A failing handler does
// not keep the record from the others; its error is returned joined.
type Tee struct {
	handlers []slog.Handler
}

// NewTee drops nil handlers and returns a Tee over the rest.
func NewTee(handlers ...slog.Handler) *Tee {
	t := &Tee{}
	for _, h := range handlers {
		if h != nil {
			t.handlers = append(t.handlers, h)
		}
	}
	return t
}

// Len is the number of handlers.
func (t *Tee) Len() int { return len(t.handlers) }

func (t *Tee) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *Tee) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *Tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t *Tee) WithGroup(name string) slog.Handler {
	if name == "" {
		return t
	}
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t *Tee) derive(fn func(slog.Handler) slog.Handler) *Tee {
	out := &Tee{handlers: make([]slog.Handler, len(t.handlers))}
	for i, h := range t.handlers {
		out.handlers[i] = fn(h)
	}
	return out
}
