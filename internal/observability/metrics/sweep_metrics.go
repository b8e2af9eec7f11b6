package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	SweepErrorReasonNotFound             = "not_found"
	SweepErrorReasonDeadlineExceeded     = "deadline_exceeded"
	SweepErrorReasonSerializationFailure = "serialization_failure"
	SweepErrorReasonUniqueViolation      = "unique_violation"
	SweepErrorReasonDB                   = "db"
	SweepErrorReasonUnknown              = "unknown"
)

// SweepMetrics captures reconciliation sweep health signals.
type SweepMetrics struct {
	sweepRuns          *prometheus.CounterVec
	sweepDuration      prometheus.Histogram
	customersProcessed prometheus.Counter
	customersFailed    *prometheus.CounterVec
	driftRepaired      prometheus.Counter
	schedulerState     *prometheus.GaugeVec
}

var (
	sweepMetricsOnce sync.Once
	sweepMetrics     *SweepMetrics
)

// Sweep returns the singleton sweep metrics registry.
func Sweep() *SweepMetrics {
	return SweepWithConfig(Config{})
}

// SweepWithConfig returns the singleton sweep metrics registry using config labels.
func SweepWithConfig(cfg Config) *SweepMetrics {
	sweepMetricsOnce.Do(func() {
		sweepMetrics = newSweepMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return sweepMetrics
}

// ResetSweepMetricsForTest resets the sweep metrics singleton for tests.
func ResetSweepMetricsForTest() {
	sweepMetricsOnce = sync.Once{}
	sweepMetrics = nil
}

func newSweepMetrics(registerer prometheus.Registerer, cfg Config) *SweepMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "hexabill"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	sweepRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "hexabill_reconcile_sweep_runs_total",
		Help:        "Reconciliation sweeps by outcome.",
		ConstLabels: constLabels,
	}, []string{"outcome"})
	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:        "hexabill_reconcile_sweep_duration_seconds",
		Help:        "Full sweep latency.",
		Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800},
		ConstLabels: constLabels,
	})
	customersProcessed := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "hexabill_reconcile_customers_processed_total",
		Help:        "Customers successfully reconciled during sweeps.",
		ConstLabels: constLabels,
	})
	customersFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "hexabill_reconcile_customers_failed_total",
		Help:        "Per-customer reconciliation failures by low-cardinality reason.",
		ConstLabels: constLabels,
	}, []string{"reason"})
	driftRepaired := prometheus.NewCounter(prometheus.CounterOpts{
		Name:        "hexabill_reconcile_drift_repaired_total",
		Help:        "Reconciliations that changed the stored balance figures.",
		ConstLabels: constLabels,
	})
	schedulerState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:        "hexabill_reconcile_scheduler_state",
		Help:        "Current scheduler state (1 for active state, 0 otherwise).",
		ConstLabels: constLabels,
	}, []string{"state"})

	registerer.MustRegister(sweepRuns, sweepDuration, customersProcessed, customersFailed, driftRepaired, schedulerState)

	return &SweepMetrics{
		sweepRuns:          sweepRuns,
		sweepDuration:      sweepDuration,
		customersProcessed: customersProcessed,
		customersFailed:    customersFailed,
		driftRepaired:      driftRepaired,
		schedulerState:     schedulerState,
	}
}

func (m *SweepMetrics) IncSweepRun(outcome string) {
	if m == nil {
		return
	}
	m.sweepRuns.WithLabelValues(outcome).Inc()
}

func (m *SweepMetrics) ObserveSweepDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(d.Seconds())
}

func (m *SweepMetrics) IncCustomerProcessed() {
	if m == nil {
		return
	}
	m.customersProcessed.Inc()
}

func (m *SweepMetrics) IncCustomerFailed(err error) {
	if m == nil {
		return
	}
	m.customersFailed.WithLabelValues(ClassifySweepError(err)).Inc()
}

func (m *SweepMetrics) IncDriftRepaired() {
	if m == nil {
		return
	}
	m.driftRepaired.Inc()
}

// SetSchedulerState marks one state active and the others inactive.
func (m *SweepMetrics) SetSchedulerState(active string, all []string) {
	if m == nil {
		return
	}
	for _, state := range all {
		value := 0.0
		if state == active {
			value = 1.0
		}
		m.schedulerState.WithLabelValues(state).Set(value)
	}
}

// ClassifySweepError maps an error to a low-cardinality failure reason.
func ClassifySweepError(err error) string {
	if err == nil {
		return SweepErrorReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return SweepErrorReasonDeadlineExceeded
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SweepErrorReasonNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001":
			return SweepErrorReasonSerializationFailure
		case "23505":
			return SweepErrorReasonUniqueViolation
		default:
			return SweepErrorReasonDB
		}
	}
	if strings.Contains(err.Error(), "not_found") {
		return SweepErrorReasonNotFound
	}
	return SweepErrorReasonUnknown
}
