package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/discochess/memo/internal/stats"
)

func TestCollector(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := New(zap.New(core))

	c.IncCounter(stats.MetricHits, 1)
	c.SetGauge(stats.MetricTableSize, 3)
	c.ObserveHistogram(stats.MetricComputeSeconds, 0.25)

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("logged %d entries, want 3", len(entries))
	}
	wantMsgs := []string{"counter", "gauge", "histogram"}
	for i, e := range entries {
		if e.Message != wantMsgs[i] {
			t.Errorf("entry %d message = %q, want %q", i, e.Message, wantMsgs[i])
		}
		if e.LoggerName != "stats" {
			t.Errorf("entry %d logger = %q, want %q", i, e.LoggerName, "stats")
		}
	}
	if got := entries[0].ContextMap()["metric"]; got != stats.MetricHits {
		t.Errorf("metric field = %v, want %q", got, stats.MetricHits)
	}
}

func TestNew_NilLogger(t *testing.T) {
	c := New(nil)
	c.IncCounter(stats.MetricMisses, 1)
}
