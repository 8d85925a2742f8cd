package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	sailsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "puppilot_sails_total",
			Help: "Total number of sails started.",
		},
	)

	routinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "puppilot_routines_total",
			Help: "Total number of routine runs by terminal status.",
		},
		[]string{"status"},
	)

	routineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "puppilot_routine_duration_seconds",
			Help:    "Routine run duration in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)
)

func init() {
	prometheus.MustRegister(sailsTotal)
	prometheus.MustRegister(routinesTotal)
	prometheus.MustRegister(routineDuration)
}
