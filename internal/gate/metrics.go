package gate

import "github.com/prometheus/client_golang/prometheus"

// Stages and outcomes used as metric labels and in logs.
const (
	stageIdentity  = "identity"
	stageRateLimit = "ratelimit"
	stageAuthz     = "authz"

	outcomeAllowed = "allowed"
	outcomeMissing = "missing"
	outcomeInvalid = "invalid"
	outcomeDenied  = "denied"
	outcomeError   = "error"
)

var decisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "backoffice",
		Name:      "gate_decisions_total",
		Help:      "Gatekeeping decisions by stage and outcome.",
	},
	[]string{"stage", "outcome"},
)

func init() {
	prometheus.MustRegister(decisions)
}

func observe(stage, outcome string) {
	decisions.WithLabelValues(stage, outcome).Inc()
}
