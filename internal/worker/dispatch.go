package worker

import (
	"context"
	"fmt"

	"github.com/aircraftstudio/skirmish/internal/dispatcher"
	"github.com/aircraftstudio/skirmish/internal/session"
	"github.com/aircraftstudio/skirmish/pkg/core"
	"github.com/aircraftstudio/skirmish/pkg/streaming"
)

// Sortie is one bridge connection's session and the user flying it.
type Sortie struct {
	Ctx     context.Context
	Session *session.Session
	User    core.User
}

// RegisterHandlers registers the bridge event handlers for one connection.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher, s Sortie) {
	h := &sortieHandlers{m: m, s: s}

	// Session control - sync, the caller answers every frame with a snapshot
	d.Register(streaming.TypeStart, h.handleStart, dispatcher.Logged())
	d.Register(streaming.TypeFrame, h.handleFrame)
	d.Register(streaming.TypeInput, h.handleInput)
	d.Register(streaming.TypeExit, h.handleExit, dispatcher.Logged())

	// Results from clients running their own simulation - buffered
	d.Register(streaming.TypeSubmitResult, h.handleSubmit, dispatcher.Buffered(16), dispatcher.Logged())
}

type sortieHandlers struct {
	m *Manager
	s Sortie
}

func (h *sortieHandlers) handleStart(e dispatcher.Event) (any, error) {
	start, err := h.m.deps.Parser.ParseStart(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse start: %w", err)
	}

	h.s.Session.SetViewport(start.Viewport)
	h.s.Session.SetAnchor(start.Anchor)
	if err := h.s.Session.Start(h.s.Ctx, start.ModelID); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	snap := h.s.Session.Snapshot()
	return &snap, nil
}

func (h *sortieHandlers) handleFrame(e dispatcher.Event) (any, error) {
	frame, err := h.m.deps.Parser.ParseFrame(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse frame: %w", err)
	}

	if frame.Viewport != nil {
		h.s.Session.SetViewport(*frame.Viewport)
	}
	h.s.Session.OnFrame(frame.Pose, frame.DT)
	snap := h.s.Session.Snapshot()
	return &snap, nil
}

func (h *sortieHandlers) handleInput(e dispatcher.Event) (any, error) {
	in, err := h.m.deps.Parser.ParseInput(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}
	h.s.Session.SetInput(in)
	return nil, nil
}

func (h *sortieHandlers) handleExit(dispatcher.Event) (any, error) {
	h.s.Session.Exit()
	return nil, nil
}

func (h *sortieHandlers) handleSubmit(e dispatcher.Event) (any, error) {
	sub, err := h.m.deps.Parser.ParseSubmit(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to parse submission: %w", err)
	}

	user := sub.User
	if user.Sub == "" {
		user = h.s.User
	}
	entry, err := h.m.Store(user, sub.Result)
	if err != nil {
		return nil, err
	}
	return entry.ID, nil
}
