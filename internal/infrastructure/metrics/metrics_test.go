package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/playerbank/internal/infrastructure/metrics"
)

func TestRecordTransfer(t *testing.T) {
	m := metrics.NewWith(prometheus.NewRegistry())

	m.RecordTransfer("committed", 30)
	m.RecordTransfer("committed", 5)
	m.RecordTransfer("rejected", 1000)

	if got := testutil.ToFloat64(m.TransfersByState.WithLabelValues("committed")); got != 2 {
		t.Errorf("expected 2 committed transfers, got %v", got)
	}
	if got := testutil.ToFloat64(m.TransfersByState.WithLabelValues("rejected")); got != 1 {
		t.Errorf("expected 1 rejected transfer, got %v", got)
	}
}

func TestRecordLedgerOp(t *testing.T) {
	m := metrics.NewWith(prometheus.NewRegistry())

	m.RecordLedgerOp("modify", "active")
	m.RecordLedgerOp("modify", "cold")
	m.RecordLedgerOp("modify", "cold")

	if got := testutil.ToFloat64(m.LedgerOperations.WithLabelValues("modify", "cold")); got != 2 {
		t.Errorf("expected 2 cold modifies, got %v", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *metrics.Metrics

	// Must not panic.
	m.RecordLedgerOp("modify", "active")
	m.RecordLedgerError("io_failure")
	m.RecordTransfer("committed", 1)
	m.RecordColdIOFailure("save")
}
