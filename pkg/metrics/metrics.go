// Package metrics provides Prometheus metrics for segment writers, readers and
// the build pipeline.
//
// # Basic Usage
//
//	// Count cell writes per backend
//	metrics.CellsWritten.WithLabelValues("mmap").Inc()
//
//	// Time a finalize
//	timer := metrics.NewTimer("finalize")
//	w.SaveAndClose()
//	metrics.FinalizeDuration.WithLabelValues("mmap").Observe(timer.Stop().Seconds())
//
//	// Track build throughput
//	tracker := metrics.NewThroughputTracker("clicks")
//	tracker.Increment(int64(rows))
//	rowsPerSec := tracker.GetAndReset()
//
// Metrics are registered with the default registry on package load.
// WriteTextfile dumps them for node_exporter's textfile collector, which is
// how a one-shot CLI run publishes them.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CellsWritten counts successful cell writes.
	// Labels: backend (mmap/file)
	CellsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixedseg_cells_written_total",
			Help: "Total number of cells written",
		},
		[]string{"backend"},
	)

	// WriteErrors counts rejected writes and failed finalizes.
	// Labels: kind (layout/bounds/invalid_state/file/...)
	WriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixedseg_write_errors_total",
			Help: "Total number of rejected writer operations",
		},
		[]string{"kind"},
	)

	// BytesAllocated counts bytes allocated for segment files.
	// Labels: backend
	BytesAllocated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixedseg_bytes_allocated_total",
			Help: "Total bytes allocated for segment files",
		},
		[]string{"backend"},
	)

	// OpenWriters tracks writers between creation and finalize or abort
	OpenWriters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fixedseg_open_writers",
			Help: "Number of writers not yet finalized",
		},
	)

	// FinalizeDuration tracks flush-and-close latency in seconds.
	// Labels: backend
	FinalizeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "fixedseg_finalize_duration_seconds",
			Help: "Time spent flushing and closing segment files",
			Buckets: []float64{
				1e-4, // 100μs - small files, page cache only
				1e-3, // 1ms
				1e-2, // 10ms
				1e-1, // 100ms - msync of large mappings
				1,    // 1s
				10,   // 10s - multi-GB segments
			},
		},
		[]string{"backend"},
	)

	// SegmentsBuilt counts pipeline builds.
	// Labels: schema, status (success/failure)
	SegmentsBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fixedseg_segments_built_total",
			Help: "Total number of segment builds",
		},
		[]string{"schema", "status"},
	)

	// Throughput tracks rows per second of the last build
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fixedseg_throughput_rows_per_second",
			Help: "Rows per second of the most recent build",
		},
		[]string{"schema"},
	)
)

// WriteTextfile writes every registered metric to path in the text
// exposition format
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter is for identification in logs or metrics.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer name
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. The timer can be
// stopped multiple times.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ThroughputTracker tracks throughput (rows per second) over time windows.
// Thread-safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64     // Rows processed since last reset
	lastReset time.Time // Time of last reset
	schema    string    // Schema name label
}

// NewThroughputTracker creates a new throughput tracker for one schema
func NewThroughputTracker(schema string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		schema:    schema,
	}
}

// Increment adds n to the row count. Safe for concurrent use.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput, updates the Prometheus
// gauge, resets the counter and returns the throughput
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	// Reset for next period
	t.count = 0
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.schema).Set(throughput)

	return throughput
}
