package ratelimit

import "github.com/prometheus/client_golang/prometheus"

// storeLatency records the duration of Store.Take calls by store name.
var storeLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "ratelimit_store_duration_seconds",
		Help:    "Duration of atomic rate-limit store operations in seconds.",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	},
	[]string{"store"},
)

func init() {
	prometheus.MustRegister(storeLatency)
}
