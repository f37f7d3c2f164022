package logging

import "github.com/rs/zerolog"

// DispatcherLogger lets the bridge dispatcher log through zerolog. Every
// line carries component=dispatcher.
type DispatcherLogger struct {
	logger zerolog.Logger
}

// NewDispatcherLogger derives a dispatcher logger from logger.
func NewDispatcherLogger(logger zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{logger: logger.With().Str("component", "dispatcher").Logger()}
}

func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	l.write(l.logger.Debug(), msg, keysAndValues)
}

func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	l.write(l.logger.Info(), msg, keysAndValues)
}

func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	l.write(l.logger.Error(), msg, keysAndValues)
}

func (l *DispatcherLogger) write(e *zerolog.Event, msg string, kv []any) {
	if e == nil {
		return
	}
	e.Fields(toFields(kv)).Msg(msg)
}

// badKey holds a value whose key was missing or not a string, as slog does.
const badKey = "!BADKEY"

// toFields pairs up key/value arguments. Errors are logged by message.
func toFields(kv []any) map[string]any {
	fields := make(map[string]any, (len(kv)+1)/2)
	for i := 0; i < len(kv); {
		key, ok := kv[i].(string)
		if !ok || i+1 == len(kv) {
			fields[badKey] = kv[i]
			i++
			continue
		}
		v := kv[i+1]
		if err, isErr := v.(error); isErr && err != nil {
			v = err.Error()
		}
		fields[key] = v
		i += 2
	}
	return fields
}
