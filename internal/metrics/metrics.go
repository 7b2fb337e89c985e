// SPDX-License-Identifier: MIT

// Package metrics exposes Prometheus counters for the render pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reelsmith",
			Name:      "jobs_total",
			Help:      "Render jobs by terminal outcome",
		},
		[]string{"outcome"},
	)

	ScenesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reelsmith",
			Name:      "scenes_dropped_total",
			Help:      "Scenes dropped during assembly",
		},
	)

	RenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reelsmith",
			Name:      "render_duration_seconds",
			Help:      "Wall-clock time of whole render jobs",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	OutputSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reelsmith",
			Name:      "output_seconds",
			Help:      "Duration of produced master files in seconds",
			Buckets:   prometheus.LinearBuckets(10, 10, 12),
		},
	)
)

// ObserveJob records a finished job.
func ObserveJob(outcome string, wall time.Duration, output time.Duration) {
	JobsTotal.WithLabelValues(outcome).Inc()
	RenderDuration.Observe(wall.Seconds())
	if output > 0 {
		OutputSeconds.Observe(output.Seconds())
	}
}
