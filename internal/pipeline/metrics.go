package pipeline

import "github.com/prometheus/client_golang/prometheus"

var (
	moderationBlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "pipeline",
			Name:      "moderation_blocked_total",
			Help:      "Texts blocked by a safety gate, by gate",
		},
		[]string{"gate"},
	)

	summariesProduced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "pipeline",
			Name:      "conversation_summaries_total",
			Help:      "Conversation summaries produced",
		},
	)
)

func init() {
	prometheus.MustRegister(moderationBlocked, summariesProduced)
}
