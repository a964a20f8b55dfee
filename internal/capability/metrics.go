package capability

import "github.com/prometheus/client_golang/prometheus"

var (
	capabilityLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "capability",
			Name:      "loads_total",
			Help:      "Total capability load attempts by outcome",
		},
		[]string{"capability", "outcome"},
	)

	capabilityInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "capability",
			Name:      "invocations_total",
			Help:      "Total successful capability invocations",
		},
		[]string{"capability"},
	)
)

func init() {
	prometheus.MustRegister(capabilityLoads, capabilityInvocations)
}
