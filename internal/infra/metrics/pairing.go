package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		PairingIssuedTotal,
		PairingClaimsTotal,
		PairingSecretsExpiredTotal,
		DeviceRevocationsTotal,
	)
}

var (
	PairingIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pairing_secrets_issued_total",
			Help: "Count of pairing secrets issued.",
		},
	)

	// result: ok|not_found|denied|expired|locked_out|mint_failed|invalid|error
	PairingClaimsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairing_claims_total",
			Help: "Count of pairing claim attempts by result.",
		},
		[]string{"result"},
	)

	PairingSecretsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pairing_secrets_expired_total",
			Help: "Count of pairing secrets deactivated after their TTL ran out.",
		},
	)

	DeviceRevocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "device_revocations_total",
			Help: "Count of device revocations by result.",
		},
		[]string{"result"},
	)
)

func IncPairingIssued() { PairingIssuedTotal.Inc() }

func IncPairingClaim(result string) { PairingClaimsTotal.WithLabelValues(result).Inc() }

func AddPairingSecretsExpired(n int) { PairingSecretsExpiredTotal.Add(float64(n)) }

func IncDeviceRevocation(result string) { DeviceRevocationsTotal.WithLabelValues(result).Inc() }
