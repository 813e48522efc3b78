package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// LedgerMetrics exposes claim lifecycle and coverage counters. A nil
// *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	transitions       *prometheus.CounterVec
	coverageRejected  *prometheus.CounterVec
	approvedAmount    prometheus.Counter
	bestEffortFailure *prometheus.CounterVec
	numbersAllocated  *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_claim_transitions_total",
		Help: "Claim status transitions committed by the ledger.",
	}, []string{"from", "to"})
	coverageRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_insufficient_coverage_total",
		Help: "Claims refused because the coverage ceiling would be exceeded.",
	}, []string{"operation"})
	approvedAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_approved_amount_total",
		Help: "Sum of approved claim amounts added to coverage usage.",
	})
	bestEffortFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_best_effort_failures_total",
		Help: "Audit or notification side effects that failed after commit.",
	}, []string{"component"})
	numbersAllocated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_numbers_allocated_total",
		Help: "Human-readable numbers handed out per kind.",
	}, []string{"kind"})
	reg.MustRegister(transitions, coverageRejected, approvedAmount, bestEffortFailure, numbersAllocated)
	return &LedgerMetrics{
		transitions:       transitions,
		coverageRejected:  coverageRejected,
		approvedAmount:    approvedAmount,
		bestEffortFailure: bestEffortFailure,
		numbersAllocated:  numbersAllocated,
	}
}

// IncTransition counts a committed claim status change.
func (m *LedgerMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncInsufficientCoverage counts a ceiling refusal for file or approve.
func (m *LedgerMetrics) IncInsufficientCoverage(operation string) {
	if m == nil || m.coverageRejected == nil {
		return
	}
	m.coverageRejected.WithLabelValues(normalizeLabel(operation)).Inc()
}

// AddApproved adds an approved amount to the running total.
func (m *LedgerMetrics) AddApproved(amount decimal.Decimal) {
	if m == nil || m.approvedAmount == nil || amount.IsNegative() {
		return
	}
	m.approvedAmount.Add(amount.InexactFloat64())
}

// IncBestEffortFailure counts a swallowed audit or notification error.
func (m *LedgerMetrics) IncBestEffortFailure(component string) {
	if m == nil || m.bestEffortFailure == nil {
		return
	}
	m.bestEffortFailure.WithLabelValues(normalizeLabel(component)).Inc()
}

// IncNumberAllocated counts a number handed out by the numbering service.
func (m *LedgerMetrics) IncNumberAllocated(kind string) {
	if m == nil || m.numbersAllocated == nil {
		return
	}
	m.numbersAllocated.WithLabelValues(normalizeLabel(kind)).Inc()
}
