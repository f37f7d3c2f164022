package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns the attributes of whatever is currently running,
// such as the active sortie. It is called once per record.
type ContextProvider func() []slog.Attr

// SortieHandler adds the provider's attributes to every record. Keys the
// record or the logger already carries win, so a session logging its own
// id does not print it twice.
type SortieHandler struct {
	next     slog.Handler
	provider ContextProvider
	bound    map[string]struct{}
}

// NewSortieHandler wraps next.
func NewSortieHandler(next slog.Handler, provider ContextProvider) *SortieHandler {
	return &SortieHandler{next: next, provider: provider}
}

func (h *SortieHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SortieHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider == nil {
		return h.next.Handle(ctx, r)
	}
	extra := h.provider()
	if len(extra) == 0 {
		return h.next.Handle(ctx, r)
	}

	seen := make(map[string]struct{}, r.NumAttrs()+len(h.bound))
	for k := range h.bound {
		seen[k] = struct{}{}
	}
	r.Attrs(func(a slog.Attr) bool {
		seen[a.Key] = struct{}{}
		return true
	})
	for _, a := range extra {
		if _, dup := seen[a.Key]; !dup {
			r.AddAttrs(a)
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *SortieHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make(map[string]struct{}, len(h.bound)+len(attrs))
	for k := range h.bound {
		bound[k] = struct{}{}
	}
	for _, a := range attrs {
		bound[a.Key] = struct{}{}
	}
	return &SortieHandler{next: h.next.WithAttrs(attrs), provider: h.provider, bound: bound}
}

// WithGroup nests the caller's attributes; the sortie attributes land in
// the group too.
func (h *SortieHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SortieHandler{next: h.next.WithGroup(name), provider: h.provider}
}
