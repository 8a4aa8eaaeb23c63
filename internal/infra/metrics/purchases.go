package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		PurchasesTotal,
		CreditsGrantedTotal,
	)
}

var (
	// outcome: granted|duplicate|rejected|error
	PurchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_total",
			Help: "Purchase verification attempts by platform and outcome.",
		},
		[]string{"platform", "outcome"},
	)

	CreditsGrantedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credits_granted_total",
			Help: "Sum of credits granted per platform.",
		},
		[]string{"platform"},
	)
)

func IncPurchase(platform, outcome string) {
	PurchasesTotal.WithLabelValues(platform, outcome).Inc()
}

func AddCreditsGranted(platform string, credits int64) {
	CreditsGrantedTotal.WithLabelValues(platform).Add(float64(credits))
}
