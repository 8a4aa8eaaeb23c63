package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		CouponRedemptionsTotal,
		SubscriptionPurchasesTotal,
	)
}

var (
	// outcome: redeemed|replayed|exhausted|rejected|error
	CouponRedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coupon_redemptions_total",
			Help: "Coupon redemption attempts by outcome.",
		},
		[]string{"outcome"},
	)

	SubscriptionPurchasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_purchases_total",
			Help: "Credit-funded subscription purchases by tier and outcome.",
		},
		[]string{"tier", "outcome"},
	)
)

func IncCouponRedemption(outcome string) {
	CouponRedemptionsTotal.WithLabelValues(outcome).Inc()
}

func IncSubscriptionPurchase(tier, outcome string) {
	SubscriptionPurchasesTotal.WithLabelValues(tier, outcome).Inc()
}
