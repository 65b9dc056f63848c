package coordinator

import "github.com/prometheus/client_golang/prometheus"

const (
	MetricRequests            = "requests_total"
	MetricCheckpointsReported = "checkpoints_reported_total"
	MetricWorkersMarkedDead   = "workers_marked_dead_total"
)

var counterRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "coordinator",
		Name:      MetricRequests,
		Help:      "Requests served, partitioned by operation and outcome.",
	},
	[]string{
		"op",
		"outcome",
	},
)

var counterCheckpointsReported = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "coordinator",
		Name:      MetricCheckpointsReported,
		Help:      "Checkpoint completions reported by workers.",
	},
)

var counterWorkersMarkedDead = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "coordinator",
		Name:      MetricWorkersMarkedDead,
		Help:      "Workers declared dead by the liveness sweep.",
	},
)

func init() {
	prometheus.MustRegister(counterRequests)
	prometheus.MustRegister(counterCheckpointsReported)
	prometheus.MustRegister(counterWorkersMarkedDead)
}

func countRequest(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	counterRequests.WithLabelValues(op, outcome).Inc()
}
