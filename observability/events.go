package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"creditpool/core/events"
)

// EventLog writes every ledger event to a structured logger and counts it on
// the global OpenTelemetry meter.
type EventLog struct {
	logger  *slog.Logger
	counter metric.Int64Counter
}

// NewEventLog returns an emitter bound to logger. A nil logger uses
// slog.Default.
func NewEventLog(logger *slog.Logger) (*EventLog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	counter, err := otel.Meter("creditpool/events").Int64Counter(
		"creditpool.events",
		metric.WithDescription("Ledger events emitted by the credit engine."),
	)
	if err != nil {
		return nil, err
	}
	return &EventLog{logger: logger.With("component", "events"), counter: counter}, nil
}

// Emit implements events.Emitter.
func (l *EventLog) Emit(evt events.Event) {
	if l == nil || evt == nil {
		return
	}
	rendered := evt.Event()
	l.logger.Info("ledger event", rendered.LogArgs()...)
	l.counter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("type", rendered.Type)))
}
