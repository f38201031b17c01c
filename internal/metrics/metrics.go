package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Webhook deliveries by event type and outcome (processed|ignored|rejected|failed)
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Total payment webhook deliveries",
		},
		[]string{"event", "outcome"},
	)

	// Referral bonuses awarded
	ReferralBonusesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "referral_bonuses_total",
			Help: "Total referral bonuses awarded",
		},
	)

	// Ledger writes by transaction type
	LedgerTransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transactions_total",
			Help: "Total wallet ledger transactions",
		},
		[]string{"type"},
	)
)

// Handler serves the /metrics endpoint
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(WebhookEventsTotal)
	prometheus.MustRegister(ReferralBonusesTotal)
	prometheus.MustRegister(LedgerTransactionsTotal)
}
