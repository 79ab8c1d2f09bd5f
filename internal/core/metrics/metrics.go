package metrics

import "github.com/prometheus/client_golang/prometheus"

// 业务指标
var (
	HiringTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hiring_transitions_total", Help: "Hiring record state changes by target status"},
		[]string{"status"},
	)
	HiringRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "hiring_rejected_total", Help: "Hiring operations rejected by reason"},
		[]string{"reason"},
	)
	ReviewMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "review_mutations_total", Help: "Review create/update/delete operations"},
		[]string{"op"},
	)
	RatingRecomputes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "rating_recompute_total", Help: "Employee rating aggregate recomputations"},
		[]string{"result"},
	)
	EventPublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "event_publish_failures_total", Help: "Domain events that failed to publish"},
	)
)

func init() {
	prometheus.MustRegister(HiringTransitions, HiringRejected, ReviewMutations, RatingRecomputes, EventPublishFailures)
}
