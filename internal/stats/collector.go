// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names reported by a memoization cache.
const (
	// Call outcomes.
	MetricHits   = "memo_hits_total"
	MetricMisses = "memo_misses_total"
	MetricLoads  = "memo_loads_total"

	// Overflow handling.
	MetricEvictions = "memo_evictions_total"
	MetricSpills    = "memo_spills_total"

	// Archive reads that failed for a reason other than absence.
	MetricArchiveFaults = "memo_archive_faults_total"

	MetricTableSize      = "memo_table_size"
	MetricComputeSeconds = "memo_compute_seconds"

	// Read cache in front of object-store archives.
	MetricReadCacheHits   = "memo_read_cache_hits_total"
	MetricReadCacheMisses = "memo_read_cache_misses_total"
	MetricReadCacheSize   = "memo_read_cache_size"
)

var help = map[string]string{
	MetricHits:           "Calls answered from the in-memory table.",
	MetricMisses:         "Calls that ran the wrapped function.",
	MetricLoads:          "Calls answered from the attached archive.",
	MetricEvictions:      "Entries evicted from the table by the eviction policy.",
	MetricSpills:         "Times the full table was dumped to the archive on overflow.",
	MetricArchiveFaults:  "Archive reads that failed on corrupt data or I/O errors.",
	MetricTableSize:      "Entries currently held in the in-memory table.",
	MetricComputeSeconds: "Time spent in the wrapped function.",

	MetricReadCacheHits:   "Object reads served from the read cache.",
	MetricReadCacheMisses: "Object reads that went to the object store.",
	MetricReadCacheSize:   "Objects held in the read cache.",
}

// Help returns the description of a known metric, or name itself.
func Help(name string) string {
	if h, ok := help[name]; ok {
		return h
	}
	return name
}

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
