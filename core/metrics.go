package core

import "github.com/prometheus/client_golang/prometheus"

var (
	sweepTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdrive_account_sweep_total",
			Help: "Total number of account update sweeps.",
		},
		[]string{"result"},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cdrive_sweep_duration_seconds",
			Help:    "Duration of a full update sweep across all accounts.",
			Buckets: prometheus.DefBuckets,
		},
	)

	vehiclesCached = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cdrive_vehicles_cached",
			Help: "Number of vehicle snapshots in cache.",
		},
	)

	commandTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cdrive_command_total",
			Help: "Total number of dispatched remote commands.",
		},
		[]string{"command", "state"},
	)

	commandLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cdrive_command_latency_seconds",
			Help:    "Latency of remote commands including confirmation polling.",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 90, 120},
		},
		[]string{"command"},
	)
)

func init() {
	prometheus.MustRegister(sweepTotal, sweepDuration, vehiclesCached, commandTotal, commandLatency)
}
