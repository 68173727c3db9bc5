package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/clinicadesk/clinica_backend"

// DomainMetrics counts business events for the Prometheus endpoint.
type DomainMetrics struct {
	events       metric.Int64Counter
	overdue      metric.Int64Counter
	notifyFailed metric.Int64Counter
}

// NewDomainMetrics registers the counters on the global meter provider, so
// call it after InitTelemetry.
func NewDomainMetrics() (*DomainMetrics, error) {
	meter := otel.Meter(meterName)

	events, err := meter.Int64Counter("clinica_domain_events_total",
		metric.WithDescription("Domain events observed, by event name"),
		metric.WithUnit("{event}"))
	if err != nil {
		return nil, err
	}
	overdue, err := meter.Int64Counter("clinica_overdue_visits_processed_total",
		metric.WithDescription("Visits reported by overdue processing runs"),
		metric.WithUnit("{visit}"))
	if err != nil {
		return nil, err
	}
	notifyFailed, err := meter.Int64Counter("clinica_notification_failures_total",
		metric.WithDescription("Patient notifications that could not be sent"),
		metric.WithUnit("{message}"))
	if err != nil {
		return nil, err
	}
	return &DomainMetrics{events: events, overdue: overdue, notifyFailed: notifyFailed}, nil
}

func (m *DomainMetrics) Event(ctx context.Context, name string) {
	m.events.Add(ctx, 1, metric.WithAttributes(attribute.String("event", name)))
}

func (m *DomainMetrics) OverdueProcessed(ctx context.Context, n int, trigger string) {
	m.overdue.Add(ctx, int64(n), metric.WithAttributes(attribute.String("trigger", trigger)))
}

func (m *DomainMetrics) NotificationFailed(ctx context.Context, kind string) {
	m.notifyFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
