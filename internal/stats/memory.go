package stats

import "sync"

// Memory keeps the latest value of every metric in process memory.
// Histograms record the number of observations.
type Memory struct {
	mu     sync.Mutex
	values map[string]int64
}

var _ Collector = (*Memory)(nil)

// NewMemory creates an empty in-memory collector.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]int64)}
}

// IncCounter adds delta to a counter.
func (m *Memory) IncCounter(name string, delta int64) {
	m.mu.Lock()
	m.values[name] += delta
	m.mu.Unlock()
}

// SetGauge sets a gauge.
func (m *Memory) SetGauge(name string, value int64) {
	m.mu.Lock()
	m.values[name] = value
	m.mu.Unlock()
}

// ObserveHistogram counts a histogram observation.
func (m *Memory) ObserveHistogram(name string, _ float64) {
	m.mu.Lock()
	m.values[name]++
	m.mu.Unlock()
}

// Value returns the current value of name, zero if never reported.
func (m *Memory) Value(name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[name]
}

// Snapshot copies all recorded values.
func (m *Memory) Snapshot() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
