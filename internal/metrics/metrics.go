// Package metrics exposes the prometheus instruments for the kernel layer
// and the serve surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	KernelLaunchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parallax_kernel_launches_total",
		Help: "Kernel launches enqueued, per kernel",
	}, []string{"kernel"})

	LaunchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parallax_launch_failures_total",
		Help: "Launches rejected at enqueue time, per kernel",
	}, []string{"kernel"})

	ExecutionFaultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parallax_execution_faults_total",
		Help: "Faults raised while a kernel body was running, per kernel",
	}, []string{"kernel"})

	KernelDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parallax_kernel_duration_seconds",
		Help:    "Histogram of kernel execution times",
		Buckets: prometheus.DefBuckets,
	}, []string{"kernel"})

	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parallax_api_requests_total",
		Help: "API requests served, per operation and outcome",
	}, []string{"operation", "outcome"})
)
