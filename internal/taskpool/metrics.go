package taskpool

import "github.com/prometheus/client_golang/prometheus"

var (
	runningTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "puppilot_taskpool_running",
			Help: "Number of tasks currently admitted across all task pools.",
		},
	)

	waitingTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "puppilot_taskpool_waiting",
			Help: "Number of tasks queued for admission across all task pools.",
		},
	)

	admittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "puppilot_taskpool_admitted_total",
			Help: "Total number of tasks admitted by task pools.",
		},
	)
)

func init() {
	prometheus.MustRegister(runningTasks)
	prometheus.MustRegister(waitingTasks)
	prometheus.MustRegister(admittedTotal)
}
