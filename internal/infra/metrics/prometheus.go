package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipstream_jobs_processed_total",
		Help: "Total number of extraction jobs processed, by status",
	}, []string{"status"})

	ItemsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipstream_items_processed_total",
		Help: "Total number of batch items processed, by outcome",
	}, []string{"outcome"})

	ChunksExtractedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipstream_chunks_extracted_total",
		Help: "Total number of chunks extracted, by modality",
	}, []string{"modality"})

	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clipstream_extraction_duration_seconds",
		Help:    "Duration of extraction pipeline stages",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	ModalityFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipstream_modality_failures_total",
		Help: "Total number of per-modality extraction failures",
	}, []string{"modality"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "clipstream_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clipstream_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
