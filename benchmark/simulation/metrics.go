package simulation

import (
	"cmp"
	"maps"
	"slices"
)

// Metrics contains computed metrics from simulation results.
type Metrics struct {
	// Core metrics.
	TotalCalls     int
	TotalHits      int
	TotalEvictions int
	UniqueKeys     int
	HitRate        float64

	// Distribution of per-session hit rates.
	MedianHitRate float64
	P10HitRate    float64
	P90HitRate    float64
	MinHitRate    float64
	MaxHitRate    float64

	// Workload shape. These are identical across policies.
	KeyConcentration float64 // Gini coefficient of key calls.
	TopKeyPct        float64 // Percentage of calls to the top 10% of keys.
}

// ComputeMetrics computes detailed metrics from aggregate results.
func ComputeMetrics(result *AggregateResult) *Metrics {
	m := &Metrics{
		TotalCalls:     result.TotalCalls,
		TotalHits:      result.TotalHits,
		TotalEvictions: result.TotalEvictions,
		UniqueKeys:     result.UniqueKeys,
		HitRate:        result.HitRate,
	}

	if len(result.HitRatePerSession) > 0 {
		sorted := slices.Sorted(slices.Values(result.HitRatePerSession))

		m.MinHitRate = sorted[0]
		m.MaxHitRate = sorted[len(sorted)-1]
		m.MedianHitRate = percentile(sorted, 50)
		m.P10HitRate = percentile(sorted, 10)
		m.P90HitRate = percentile(sorted, 90)
	}

	if len(result.KeyCalls) > 0 {
		m.KeyConcentration = computeGini(result.KeyCalls)
		m.TopKeyPct = computeTopKeyPct(result.KeyCalls, result.TotalCalls, 0.1)
	}

	return m
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p / 100)
	return sorted[min(idx, len(sorted)-1)]
}

func computeGini(calls map[string]int) float64 {
	if len(calls) == 0 {
		return 0
	}

	values := slices.Sorted(maps.Values(calls))

	n := float64(len(values))
	var sum, cumulativeSum float64
	for i, v := range values {
		sum += float64(v)
		cumulativeSum += float64(i+1) * float64(v)
	}
	if sum == 0 {
		return 0
	}

	return (2*cumulativeSum)/(n*sum) - (n+1)/n
}

func computeTopKeyPct(calls map[string]int, total int, topFraction float64) float64 {
	if total == 0 || len(calls) == 0 {
		return 0
	}

	counts := slices.SortedFunc(maps.Values(calls), func(a, b int) int {
		return cmp.Compare(b, a)
	})

	topCount := max(int(float64(len(counts))*topFraction), 1)

	var topCalls int
	for _, c := range counts[:min(topCount, len(counts))] {
		topCalls += c
	}
	return float64(topCalls) / float64(total) * 100
}

// MetricsComparison holds the differences between two policies.
type MetricsComparison struct {
	Policy1 string
	Policy2 string

	HitRateDiff    float64 // Positive means Policy1 hits more often.
	HitRateDiffPct float64
	EvictionsDiff  int
}

// Compare compares two metrics and returns the differences.
func Compare(m1, m2 *Metrics, name1, name2 string) *MetricsComparison {
	return &MetricsComparison{
		Policy1:        name1,
		Policy2:        name2,
		HitRateDiff:    m1.HitRate - m2.HitRate,
		HitRateDiffPct: safeDiffPct(m1.HitRate, m2.HitRate),
		EvictionsDiff:  m1.TotalEvictions - m2.TotalEvictions,
	}
}

func safeDiffPct(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a - b) / b * 100
}
