package gcs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Builder labels for Metrics vectors.
const (
	builderMemory   = "memory"
	builderExternal = "external"
)

// Metrics holds the Prometheus instruments updated by builders.
// A nil *Metrics disables instrumentation.
type Metrics struct {
	ValuesAdded    *prometheus.CounterVec
	ChunksSpilled  prometheus.Counter
	ChunkBytes     prometheus.Counter
	FiltersWritten *prometheus.CounterVec
	FilterBytes    *prometheus.CounterVec
	FinishDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	valuesAdded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gcs_values_added_total",
		Help: "Values added to finished builds, before deduplication",
	}, []string{"builder"})

	chunksSpilled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gcs_chunks_spilled_total",
		Help: "Sorted chunks written by external builds",
	})

	chunkBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gcs_chunk_bytes_written_total",
		Help: "Bytes written to chunk files",
	})

	filtersWritten := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gcs_filters_written_total",
		Help: "Filters written successfully",
	}, []string{"builder"})

	filterBytes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gcs_filter_bytes_written_total",
		Help: "Bytes of filter output written successfully",
	}, []string{"builder"})

	finishDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gcs_finish_duration_seconds",
		Help:    "Time spent in Finish",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"builder"})

	reg.MustRegister(valuesAdded, chunksSpilled, chunkBytes, filtersWritten, filterBytes, finishDuration)

	return &Metrics{
		ValuesAdded:    valuesAdded,
		ChunksSpilled:  chunksSpilled,
		ChunkBytes:     chunkBytes,
		FiltersWritten: filtersWritten,
		FilterBytes:    filterBytes,
		FinishDuration: finishDuration,
	}
}

func (m *Metrics) chunkSpilled(bytes int64) {
	if m == nil {
		return
	}
	m.ChunksSpilled.Inc()
	m.ChunkBytes.Add(float64(bytes))
}

func (m *Metrics) finished(builder string, stats BuildStats, start time.Time) {
	if m == nil {
		return
	}
	m.ValuesAdded.WithLabelValues(builder).Add(float64(stats.N))
	m.FiltersWritten.WithLabelValues(builder).Inc()
	m.FilterBytes.WithLabelValues(builder).Add(float64(stats.FileSize()))
	m.FinishDuration.WithLabelValues(builder).Observe(time.Since(start).Seconds())
}
