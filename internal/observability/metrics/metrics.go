package metrics

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	reconciliations metric.Int64Counter
	driftDetected   metric.Int64Counter
	creditDenials   metric.Int64Counter
	alertsEmitted   metric.Int64Counter
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "hexabill"
	}
	meter := provider.Meter(name)

	reconciliations, err := meter.Int64Counter("hexabill_balance_reconciliations_total")
	if err != nil {
		return nil, err
	}
	driftDetected, err := meter.Int64Counter("hexabill_balance_drift_detected_total")
	if err != nil {
		return nil, err
	}
	creditDenials, err := meter.Int64Counter("hexabill_credit_denials_total")
	if err != nil {
		return nil, err
	}
	alertsEmitted, err := meter.Int64Counter("hexabill_alerts_emitted_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		reconciliations: reconciliations,
		driftDetected:   driftDetected,
		creditDenials:   creditDenials,
		alertsEmitted:   alertsEmitted,
	}, nil
}

// RecordReconciliation counts one recompute-and-apply, by outcome.
func (m *Metrics) RecordReconciliation(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.reconciliations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordDriftDetected counts a validator mismatch.
func (m *Metrics) RecordDriftDetected(ctx context.Context) {
	if m == nil {
		return
	}
	m.driftDetected.Add(ctx, 1)
}

// RecordCreditDenial counts a rejected charge.
func (m *Metrics) RecordCreditDenial(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.creditDenials.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// RecordAlertEmitted counts an alert write, by kind.
func (m *Metrics) RecordAlertEmitted(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.alertsEmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
