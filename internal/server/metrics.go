package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docuchat_requests_total",
		Help: "API requests by route and outcome.",
	}, []string{"route", "outcome"})

	workflowStepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docuchat_workflow_step_duration_seconds",
		Help:    "Duration of workflow steps by workflow and step name.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"workflow", "step"})

	passagesIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docuchat_passages_indexed_total",
		Help: "Passages added to the vector index.",
	})
)

// StepObserver adapts the workflow step hooks to the prometheus histogram.
func StepObserver(workflow string) func(step string, d time.Duration) {
	return func(step string, d time.Duration) {
		workflowStepDuration.WithLabelValues(workflow, step).Observe(d.Seconds())
	}
}

func countRequest(route string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	requestsTotal.WithLabelValues(route, outcome).Inc()
}
