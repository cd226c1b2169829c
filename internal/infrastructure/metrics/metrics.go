package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger core.
type Metrics struct {
	// Ledger metrics
	LedgerOperations *prometheus.CounterVec // op, tier
	LedgerErrors     *prometheus.CounterVec // error_type

	// Transfer metrics
	TransfersByState *prometheus.CounterVec // state
	TransferAmount   prometheus.Histogram

	// Cold store metrics
	ColdLoadDuration prometheus.Histogram
	ColdSaveDuration prometheus.Histogram
	ColdIOFailures   *prometheus.CounterVec // op

	// Session metrics
	ActiveSessions prometheus.Gauge
	DetachFailures prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates all metrics on the given registerer. Tests pass a fresh
// registry to avoid duplicate registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LedgerOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playerbank_ledger_operations_total",
				Help: "Total ledger operations by operation and storage tier",
			},
			[]string{"op", "tier"},
		),
		LedgerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playerbank_ledger_errors_total",
				Help: "Total ledger operation errors by type",
			},
			[]string{"error_type"},
		),

		TransfersByState: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playerbank_transfers_total",
				Help: "Total transfer attempts by terminal state",
			},
			[]string{"state"},
		),
		TransferAmount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "playerbank_transfer_amount",
			Help:    "Transfer amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
		}),

		ColdLoadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "playerbank_cold_load_duration_seconds",
			Help:    "Duration of cold store loads",
			Buckets: prometheus.DefBuckets,
		}),
		ColdSaveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "playerbank_cold_save_duration_seconds",
			Help:    "Duration of cold store saves",
			Buckets: prometheus.DefBuckets,
		}),
		ColdIOFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playerbank_cold_io_failures_total",
				Help: "Total cold store I/O failures by operation",
			},
			[]string{"op"},
		),

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "playerbank_active_sessions",
			Help: "Number of players currently attached to a live session",
		}),
		DetachFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "playerbank_detach_persist_failures_total",
			Help: "Total failures to persist a record on session detach",
		}),
	}
}

// RecordLedgerOp counts one ledger operation. Nil-safe so use cases can run
// without metrics in tests.
func (m *Metrics) RecordLedgerOp(op, tier string) {
	if m == nil {
		return
	}
	m.LedgerOperations.WithLabelValues(op, tier).Inc()
}

// RecordLedgerError counts one ledger error by type.
func (m *Metrics) RecordLedgerError(errorType string) {
	if m == nil {
		return
	}
	m.LedgerErrors.WithLabelValues(errorType).Inc()
}

// RecordTransfer counts one transfer terminal state and observes its amount.
func (m *Metrics) RecordTransfer(state string, amount float64) {
	if m == nil {
		return
	}
	m.TransfersByState.WithLabelValues(state).Inc()
	m.TransferAmount.Observe(amount)
}

// ObserveColdLoad records the duration of one cold store load.
func (m *Metrics) ObserveColdLoad(seconds float64) {
	if m == nil {
		return
	}
	m.ColdLoadDuration.Observe(seconds)
}

// ObserveColdSave records the duration of one cold store save.
func (m *Metrics) ObserveColdSave(seconds float64) {
	if m == nil {
		return
	}
	m.ColdSaveDuration.Observe(seconds)
}

// RecordColdIOFailure counts one cold store I/O failure.
func (m *Metrics) RecordColdIOFailure(op string) {
	if m == nil {
		return
	}
	m.ColdIOFailures.WithLabelValues(op).Inc()
}
