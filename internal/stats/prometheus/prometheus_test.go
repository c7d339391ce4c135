package prometheus

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/discochess/memo/internal/stats"
)

func TestNew_DefaultRegistry(t *testing.T) {
	c := New(nil, nil)
	if c == nil {
		t.Fatal("New(nil) returned nil")
	}
	if c.registry == nil {
		t.Error("registry should not be nil")
	}
}

func TestNew_CustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, nil)
	if c.registry != reg {
		t.Error("registry should be the custom registry")
	}
}

func TestCollector_IncCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, nil)

	c.IncCounter("test_counter", 5)
	c.IncCounter("test_counter", 3)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, m := range metrics {
		if m.GetName() == "test_counter" {
			found = true
			if len(m.GetMetric()) == 0 {
				t.Error("counter has no metrics")
				break
			}
			val := m.GetMetric()[0].GetCounter().GetValue()
			if val != 8 {
				t.Errorf("counter value = %v, want 8", val)
			}
		}
	}

	if !found {
		t.Error("counter test_counter not found in registry")
	}
}

func TestCollector_SetGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, nil)

	c.SetGauge("test_gauge", 42)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, m := range metrics {
		if m.GetName() == "test_gauge" {
			found = true
			if len(m.GetMetric()) == 0 {
				t.Error("gauge has no metrics")
				break
			}
			val := m.GetMetric()[0].GetGauge().GetValue()
			if val != 42 {
				t.Errorf("gauge value = %v, want 42", val)
			}
		}
	}

	if !found {
		t.Error("gauge test_gauge not found in registry")
	}
}

func TestCollector_ObserveHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, nil)

	c.ObserveHistogram("test_histogram", 0.5)
	c.ObserveHistogram("test_histogram", 1.5)
	c.ObserveHistogram("test_histogram", 2.5)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, m := range metrics {
		if m.GetName() == "test_histogram" {
			found = true
			if len(m.GetMetric()) == 0 {
				t.Error("histogram has no metrics")
				break
			}
			count := m.GetMetric()[0].GetHistogram().GetSampleCount()
			if count != 3 {
				t.Errorf("histogram count = %v, want 3", count)
			}
		}
	}

	if !found {
		t.Error("histogram test_histogram not found in registry")
	}
}

func TestCollector_ReuseMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, nil)

	c.IncCounter("reuse_test", 1)
	c.IncCounter("reuse_test", 1)
	c.IncCounter("reuse_test", 1)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	count := 0
	for _, m := range metrics {
		if m.GetName() == "reuse_test" {
			count++
		}
	}

	if count != 1 {
		t.Errorf("expected 1 metric named reuse_test, got %d", count)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.IncCounter(stats.MetricHits, 1)
				c.SetGauge(stats.MetricTableSize, int64(j))
				c.ObserveHistogram(stats.MetricComputeSeconds, float64(j)/1000)
			}
		}()
	}
	wg.Wait()

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	foundCounter := false
	foundGauge := false
	foundHistogram := false
	for _, m := range metrics {
		switch m.GetName() {
		case stats.MetricHits:
			foundCounter = true
			val := m.GetMetric()[0].GetCounter().GetValue()
			if val != 1000 {
				t.Errorf("counter value = %v, want 1000", val)
			}
		case stats.MetricTableSize:
			foundGauge = true
		case stats.MetricComputeSeconds:
			foundHistogram = true
			count := m.GetMetric()[0].GetHistogram().GetSampleCount()
			if count != 1000 {
				t.Errorf("histogram count = %v, want 1000", count)
			}
		}
	}

	if !foundCounter {
		t.Error("hits counter not found")
	}
	if !foundGauge {
		t.Error("table size gauge not found")
	}
	if !foundHistogram {
		t.Error("compute histogram not found")
	}
}

func TestCollector_AlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()

	existingCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preexisting_counter",
		Help: "preexisting_counter",
	})
	reg.MustRegister(existingCounter)
	existingCounter.Add(100)

	c := New(reg, nil)
	c.IncCounter("preexisting_counter", 5)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	for _, m := range metrics {
		if m.GetName() == "preexisting_counter" {
			val := m.GetMetric()[0].GetCounter().GetValue()
			if val != 105 {
				t.Errorf("counter value = %v, want 105", val)
			}
		}
	}
}

func TestCollector_Labels(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg, prometheus.Labels{"cache": "fib"})
	b := New(reg, prometheus.Labels{"cache": "primes"})

	a.IncCounter(stats.MetricMisses, 2)
	b.IncCounter(stats.MetricMisses, 5)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	got := make(map[string]float64)
	for _, m := range metrics {
		if m.GetName() != stats.MetricMisses {
			continue
		}
		if m.GetHelp() != stats.Help(stats.MetricMisses) {
			t.Errorf("help = %q, want %q", m.GetHelp(), stats.Help(stats.MetricMisses))
		}
		for _, s := range m.GetMetric() {
			for _, lp := range s.GetLabel() {
				if lp.GetName() == "cache" {
					got[lp.GetValue()] = s.GetCounter().GetValue()
				}
			}
		}
	}
	if got["fib"] != 2 || got["primes"] != 5 {
		t.Errorf("labelled counters = %v, want fib=2 primes=5", got)
	}
}
