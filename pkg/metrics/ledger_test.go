package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLedgerMetricsRecordsTransitionsAndAmounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)

	m.IncTransition("BEING_ASSESSED", "APPROVED")
	m.IncTransition("BEING_ASSESSED", "APPROVED")
	m.IncInsufficientCoverage("approve")
	m.AddApproved(decimal.RequireFromString("150.50"))
	m.AddApproved(decimal.RequireFromString("-1"))
	m.IncBestEffortFailure("audit")
	m.IncNumberAllocated("CLAIM")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	require.Equal(t, float64(2), mustValue(t, mfs, "ledger_claim_transitions_total", map[string]string{"from": "BEING_ASSESSED", "to": "APPROVED"}))
	require.Equal(t, float64(1), mustValue(t, mfs, "ledger_insufficient_coverage_total", map[string]string{"operation": "approve"}))
	require.InDelta(t, 150.5, mustValue(t, mfs, "ledger_approved_amount_total", nil), 0.0001)
	require.Equal(t, float64(1), mustValue(t, mfs, "ledger_best_effort_failures_total", map[string]string{"component": "audit"}))
	require.Equal(t, float64(1), mustValue(t, mfs, "ledger_numbers_allocated_total", map[string]string{"kind": "CLAIM"}))
}

func TestLedgerMetricsNilReceiver(t *testing.T) {
	var m *LedgerMetrics
	m.IncTransition("a", "b")
	m.IncInsufficientCoverage("file")
	m.AddApproved(decimal.NewFromInt(1))
	m.IncBestEffortFailure("notification")
	m.IncNumberAllocated("POLICY")
}
