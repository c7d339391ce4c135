package reporting

import (
	"bytes"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/discochess/memo/benchmark/analysis"
	"github.com/discochess/memo/benchmark/simulation"
)

func TestHitRateHistogram(t *testing.T) {
	got := hitRateHistogram([]float64{0, 5, 15, 99.5, 100, 120})
	want := []float64{2, 1, 0, 0, 0, 0, 0, 0, 0, 3}
	if !slices.Equal(got, want) {
		t.Errorf("hitRateHistogram() = %v, want %v", got, want)
	}

	if got := hitRateHistogram(nil); len(got) != 10 {
		t.Errorf("hitRateHistogram(nil) has %d bins, want 10", len(got))
	}
}

func TestMarkdownReport(t *testing.T) {
	results := map[string]*simulation.AggregateResult{
		"lru": {PolicyName: "lru", TotalCalls: 10, TotalHits: 6, HitRate: 60, HitRatePerSession: []float64{50, 70}, KeyCalls: map[string]int{"a": 10}},
		"lfu": {PolicyName: "lfu", TotalCalls: 10, TotalHits: 5, HitRate: 50, HitRatePerSession: []float64{40, 60}, KeyCalls: map[string]int{"a": 10}},
	}

	var buf bytes.Buffer
	r := NewMarkdownReport(&buf)
	r.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	r.WriteHeader("Policy Benchmark")
	r.WriteMethodology(2, 10, 4)
	r.WriteSummaryTable(results)
	r.WriteWorkload(simulation.ComputeMetrics(results["lru"]))
	r.WriteComparison(analysis.ComparePolicies(results["lfu"], results["lru"], 20, 0.95, 1))
	r.WriteDistributionChart("lru", results["lru"].HitRatePerSession)
	r.WriteFooter()

	out := buf.String()
	for _, want := range []string{
		"# Policy Benchmark",
		"Generated: 2024-01-02T03:04:05Z",
		"- **Cache capacity:** 4 entries",
		"| lru | 60.0% |",
		"## lfu vs lru",
		"### lru Hit Rate Distribution",
		"*Report generated by memo-bench*",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}

	// Rows are in name order.
	if strings.Index(out, "| lfu |") > strings.Index(out, "| lru |") {
		t.Error("summary rows not sorted by policy name")
	}
}
