package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/aircraftstudio/skirmish/internal/dispatcher"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// instruments are the dispatcher's bridge.* metrics.
type instruments struct {
	handled metric.Int64Counter
	drops   metric.Int64Counter
	reg     metric.Registration
}

func newInstruments(m metric.Meter, depths func(func(string, int))) (*instruments, error) {
	depth, err := m.Int64ObservableGauge("bridge.queue.size",
		metric.WithDescription("Bridge events waiting in a handler queue"))
	if err != nil {
		return nil, fmt.Errorf("queue size gauge: %w", err)
	}
	handled, err := m.Int64Counter("bridge.events.processed",
		metric.WithDescription("Bridge events handled by a queue worker"))
	if err != nil {
		return nil, fmt.Errorf("processed counter: %w", err)
	}
	drops, err := m.Int64Counter("bridge.events.dropped",
		metric.WithDescription("Bridge events refused by a full queue"))
	if err != nil {
		return nil, fmt.Errorf("dropped counter: %w", err)
	}
	reg, err := m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		depths(func(command string, n int) {
			o.ObserveInt64(depth, int64(n), metric.WithAttributes(commandAttr(command)))
		})
		return nil
	}, depth)
	if err != nil {
		return nil, fmt.Errorf("queue size callback: %w", err)
	}
	return &instruments{handled: handled, drops: drops, reg: reg}, nil
}

func commandAttr(command string) attribute.KeyValue {
	return attribute.String("command", command)
}

func (i *instruments) processed(command string) {
	i.handled.Add(context.Background(), 1, metric.WithAttributes(commandAttr(command)))
}

func (i *instruments) dropped(command string) {
	i.drops.Add(context.Background(), 1, metric.WithAttributes(commandAttr(command)))
}

func (i *instruments) close() {
	if i.reg != nil {
		_ = i.reg.Unregister()
	}
}
