package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sortieLogger(buf *bytes.Buffer, provider ContextProvider) *slog.Logger {
	return slog.New(NewSortieHandler(slog.NewTextHandler(buf, nil), provider))
}

func TestSortieHandler_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	id := "s-1"
	logger := sortieLogger(&buf, func() []slog.Attr {
		return []slog.Attr{slog.String("sortie", id)}
	})

	logger.Info("first")
	id = "s-2"
	logger.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	assert.Contains(t, lines[0], "sortie=s-1")
	assert.Contains(t, lines[1], "sortie=s-2")
}

func TestSortieHandler_RecordKeyWins(t *testing.T) {
	var buf bytes.Buffer
	logger := sortieLogger(&buf, func() []slog.Attr {
		return []slog.Attr{slog.String("sortie", "ambient")}
	})

	logger.Info("explicit", "sortie", "own")
	assert.Equal(t, 1, strings.Count(buf.String(), "sortie="))
	assert.Contains(t, buf.String(), "sortie=own")
}

func TestSortieHandler_BoundKeyWins(t *testing.T) {
	var buf bytes.Buffer
	logger := sortieLogger(&buf, func() []slog.Attr {
		return []slog.Attr{slog.String("sortie", "ambient"), slog.Int("wave", 1)}
	}).With("sortie", "bound")

	logger.Info("bound")
	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "sortie="))
	assert.Contains(t, out, "sortie=bound")
	assert.Contains(t, out, "wave=1")
}

func TestSortieHandler_NoProvider(t *testing.T) {
	var buf bytes.Buffer
	sortieLogger(&buf, nil).Info("plain")
	sortieLogger(&buf, func() []slog.Attr { return nil }).Info("empty")

	assert.Contains(t, buf.String(), "msg=plain")
	assert.Contains(t, buf.String(), "msg=empty")
}

func TestSortieHandler_Group(t *testing.T) {
	var buf bytes.Buffer
	h := NewSortieHandler(slog.NewTextHandler(&buf, nil), func() []slog.Attr {
		return []slog.Attr{slog.String("sortie", "s-9")}
	})
	assert.Same(t, h, h.WithGroup(""))

	slog.New(h.WithGroup("hud")).Info("indicator", "visible", true)
	assert.Contains(t, buf.String(), "hud.visible=true")
	assert.Contains(t, buf.String(), "hud.sortie=s-9")
}
