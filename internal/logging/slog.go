package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// InstrumentationName names the OTel logger used by the slog bridge.
const InstrumentationName = "skirmish"

// timeLayout keeps milliseconds so frame-level records stay ordered.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// console is where records go when Setup gets no writer. Tests swap it.
var console io.Writer = os.Stdout

// SlogManager owns the application logger. Its level can be changed at
// runtime without rebuilding the handler tree.
type SlogManager struct {
	logger   *slog.Logger
	level    slog.LevelVar
	provider *sdklog.LoggerProvider
	context  ContextProvider
}

// NewSlogManager returns a manager whose Logger is slog.Default until
// Setup runs.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// SetContextProvider attaches provider's attributes to every record. It
// takes effect on the next Setup.
func (m *SlogManager) SetContextProvider(provider ContextProvider) {
	m.context = provider
}

// Setup builds the handler tree: a text handler on out (stdout when out is
// nil), the OTel bridge when provider is set, and any extra handlers.
func (m *SlogManager) Setup(out io.Writer, level string, provider *sdklog.LoggerProvider, extra ...slog.Handler) {
	m.level.Set(ParseLevel(level))
	m.provider = provider

	if out == nil {
		out = console
	}
	text := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: &m.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().UTC().Format(timeLayout))
			}
			return a
		},
	})

	handlers := []slog.Handler{text}
	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler(InstrumentationName, otelslog.WithLoggerProvider(provider)))
	}
	handlers = append(handlers, extra...)

	var root slog.Handler = NewTee(handlers...)
	if m.context != nil {
		root = NewSortieHandler(root, m.context)
	}
	m.logger = slog.New(root)
	m.logger.Info("Logging initialized", "level", m.level.Level().String(), "sinks", len(handlers))
}

// SetLevel changes the minimum level of the text handler.
func (m *SlogManager) SetLevel(level string) {
	m.level.Set(ParseLevel(level))
}

// Logger returns the configured logger, or slog.Default before Setup.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes buffered OTel records to their exporter.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.ForceFlush(ctx)
}

// WriteLog records data at level, tagged with the calling function. It is
// a no-op before Setup.
func (m *SlogManager) WriteLog(function, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.LogAttrs(context.Background(), ParseLevel(level), data,
		slog.String("function", function))
}
