package metrics

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"gorm.io/gorm"
)

func TestSweepMetricsCountsFailuresByReason(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	ResetSweepMetricsForTest()
	m := SweepWithConfig(Config{ServiceName: "hexabill", Environment: "test"})

	m.IncCustomerFailed(gorm.ErrRecordNotFound)
	m.IncCustomerFailed(&pgconn.PgError{Code: "40001"})
	m.IncCustomerFailed(errors.New("boom"))

	labels := map[string]string{
		"service": "hexabill",
		"env":     "test",
		"reason":  SweepErrorReasonNotFound,
	}
	if got := getCounterValue(t, registry, "hexabill_reconcile_customers_failed_total", labels); got != 1 {
		t.Fatalf("expected not_found count 1, got %v", got)
	}

	labels["reason"] = SweepErrorReasonSerializationFailure
	if got := getCounterValue(t, registry, "hexabill_reconcile_customers_failed_total", labels); got != 1 {
		t.Fatalf("expected serialization_failure count 1, got %v", got)
	}

	labels["reason"] = SweepErrorReasonUnknown
	if got := getCounterValue(t, registry, "hexabill_reconcile_customers_failed_total", labels); got != 1 {
		t.Fatalf("expected unknown count 1, got %v", got)
	}
}

func TestSweepMetricsSchedulerStateGauge(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	ResetSweepMetricsForTest()
	m := SweepWithConfig(Config{ServiceName: "hexabill", Environment: "test"})

	states := []string{"idle", "running", "backing_off"}
	m.SetSchedulerState("running", states)

	for _, state := range states {
		labels := map[string]string{
			"service": "hexabill",
			"env":     "test",
			"state":   state,
		}
		want := 0.0
		if state == "running" {
			want = 1.0
		}
		if got := getGaugeValue(t, registry, "hexabill_reconcile_scheduler_state", labels); got != want {
			t.Fatalf("state %s: expected %v, got %v", state, want, got)
		}
	}
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		ResetSweepMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metric := findMetric(t, registry, name, labels)
	if metric.Counter == nil {
		t.Fatalf("metric %s is not a counter", name)
	}
	return metric.GetCounter().GetValue()
}

func getGaugeValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metric := findMetric(t, registry, name, labels)
	if metric.Gauge == nil {
		t.Fatalf("metric %s is not a gauge", name)
	}
	return metric.GetGauge().GetValue()
}

func findMetric(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if labelsMatch(metric, labels) {
				return metric
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return nil
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
