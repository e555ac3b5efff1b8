package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storybook_stage_runs_total",
			Help: "Total number of pipeline stage runs by outcome.",
		},
		[]string{"stage", "outcome"},
	)
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storybook_stage_duration_seconds",
			Help:    "Histogram of pipeline stage durations.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)
	slideImagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storybook_slide_images_total",
			Help: "Total number of slide image attempts by outcome.",
		},
		[]string{"outcome"},
	)
)
