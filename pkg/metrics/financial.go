package metrics

import "github.com/prometheus/client_golang/prometheus"

// FinancialMetrics tracks money-movement operations across the control core.
type FinancialMetrics struct {
	ledgerAppends     *prometheus.CounterVec
	withdrawals       *prometheus.CounterVec
	reconcileDrift    *prometheus.GaugeVec
	pacingEvaluations *prometheus.CounterVec
}

// NewFinancialMetrics registers the financial metrics on the provided registerer.
func NewFinancialMetrics(reg prometheus.Registerer) *FinancialMetrics {
	if reg == nil {
		return &FinancialMetrics{}
	}
	ledgerAppends := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_appends_total",
		Help: "Ledger entries appended, by account type and entry type.",
	}, []string{"account_type", "entry_type"})
	withdrawals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "withdrawal_transitions_total",
		Help: "Withdrawal state transitions, by target status.",
	}, []string{"status"})
	reconcileDrift := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "reconciliation_drift_accounts",
		Help: "Accounts whose projected balance diverged from the ledger sum in the last reconciliation run.",
	}, []string{"account_type"})
	pacingEvaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pacing_evaluations_total",
		Help: "Pacing controller evaluations, by recommended action.",
	}, []string{"action"})
	reg.MustRegister(ledgerAppends, withdrawals, reconcileDrift, pacingEvaluations)
	return &FinancialMetrics{
		ledgerAppends:     ledgerAppends,
		withdrawals:       withdrawals,
		reconcileDrift:    reconcileDrift,
		pacingEvaluations: pacingEvaluations,
	}
}

// IncLedgerAppend counts a ledger append.
func (f *FinancialMetrics) IncLedgerAppend(accountType, entryType string) {
	if f == nil || f.ledgerAppends == nil {
		return
	}
	f.ledgerAppends.WithLabelValues(accountType, entryType).Inc()
}

// IncWithdrawalTransition counts a withdrawal state transition.
func (f *FinancialMetrics) IncWithdrawalTransition(status string) {
	if f == nil || f.withdrawals == nil {
		return
	}
	f.withdrawals.WithLabelValues(status).Inc()
}

// SetReconcileDrift records how many accounts drifted during reconciliation.
func (f *FinancialMetrics) SetReconcileDrift(accountType string, count float64) {
	if f == nil || f.reconcileDrift == nil {
		return
	}
	f.reconcileDrift.WithLabelValues(accountType).Set(count)
}

// IncPacingEvaluation counts a pacing evaluation by action.
func (f *FinancialMetrics) IncPacingEvaluation(action string) {
	if f == nil || f.pacingEvaluations == nil {
		return
	}
	f.pacingEvaluations.WithLabelValues(action).Inc()
}
