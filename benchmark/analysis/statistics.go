// Package analysis provides statistical analysis for policy benchmark results.
package analysis

import (
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// significance is the p-value threshold used throughout the package.
const significance = 0.05

// MannWhitneyResult contains the result of a Mann-Whitney U test.
type MannWhitneyResult struct {
	U           float64 // U statistic.
	Z           float64 // Z score (normal approximation).
	PValue      float64 // Two-tailed p-value.
	Significant bool    // True if p < 0.05.
}

// MannWhitneyU performs the Mann-Whitney U test on two samples.
// This is a non-parametric test to determine if two samples come from
// different distributions.
func MannWhitneyU(sample1, sample2 []float64) *MannWhitneyResult {
	n1 := float64(len(sample1))
	n2 := float64(len(sample2))

	if n1 == 0 || n2 == 0 {
		return &MannWhitneyResult{}
	}

	type rankedValue struct {
		value float64
		first bool
	}

	combined := make([]rankedValue, 0, len(sample1)+len(sample2))
	for _, v := range sample1 {
		combined = append(combined, rankedValue{value: v, first: true})
	}
	for _, v := range sample2 {
		combined = append(combined, rankedValue{value: v})
	}
	slices.SortFunc(combined, func(a, b rankedValue) int {
		switch {
		case a.value < b.value:
			return -1
		case a.value > b.value:
			return 1
		}
		return 0
	})

	// Tied values share the average of their ranks.
	var r1 float64
	for i := 0; i < len(combined); {
		j := i
		for j < len(combined) && combined[j].value == combined[i].value {
			j++
		}
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if combined[k].first {
				r1 += avgRank
			}
		}
		i = j
	}

	u1 := r1 - n1*(n1+1)/2
	u := math.Min(u1, n1*n2-u1)

	mu := n1 * n2 / 2
	sigma := math.Sqrt(n1 * n2 * (n1 + n2 + 1) / 12)

	var z float64
	if sigma > 0 {
		z = (u - mu) / sigma
	}

	pValue := 2 * distuv.UnitNormal.CDF(-math.Abs(z))

	return &MannWhitneyResult{
		U:           u,
		Z:           z,
		PValue:      pValue,
		Significant: pValue < significance,
	}
}

// EffectSize contains effect size metrics.
type EffectSize struct {
	CohensD        float64 // (mean1 - mean2) / pooled standard deviation.
	Interpretation string  // "negligible", "small", "medium" or "large".
}

// ComputeEffectSize computes Cohen's d effect size.
func ComputeEffectSize(sample1, sample2 []float64) *EffectSize {
	if len(sample1) == 0 || len(sample2) == 0 {
		return &EffectSize{Interpretation: "undefined"}
	}

	mean1, std1 := stat.MeanStdDev(sample1, nil)
	mean2, std2 := stat.MeanStdDev(sample2, nil)
	if len(sample1) == 1 {
		std1 = 0
	}
	if len(sample2) == 1 {
		std2 = 0
	}

	n1 := float64(len(sample1))
	n2 := float64(len(sample2))
	var pooledStd float64
	if n1+n2 > 2 {
		pooledStd = math.Sqrt(((n1-1)*std1*std1 + (n2-1)*std2*std2) / (n1 + n2 - 2))
	}

	var d float64
	if pooledStd > 0 {
		d = (mean1 - mean2) / pooledStd
	}

	return &EffectSize{
		CohensD:        d,
		Interpretation: interpretCohensD(math.Abs(d)),
	}
}

func interpretCohensD(d float64) string {
	switch {
	case d < 0.2:
		return "negligible"
	case d < 0.5:
		return "small"
	case d < 0.8:
		return "medium"
	default:
		return "large"
	}
}

// BootstrapResult is a bootstrap confidence interval for the mean difference.
type BootstrapResult struct {
	MeanDiff   float64
	LowerBound float64
	UpperBound float64
	Confidence float64 // e.g., 0.95 for 95% CI.
}

// BootstrapConfidenceInterval computes a percentile bootstrap interval for
// mean(sample1) - mean(sample2). The same seed gives the same interval.
func BootstrapConfidenceInterval(sample1, sample2 []float64, iterations int, confidence float64, seed uint64) *BootstrapResult {
	if len(sample1) == 0 || len(sample2) == 0 || iterations <= 0 {
		return &BootstrapResult{Confidence: confidence}
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	actualDiff := stat.Mean(sample1, nil) - stat.Mean(sample2, nil)

	diffs := make([]float64, iterations)
	buf1 := make([]float64, len(sample1))
	buf2 := make([]float64, len(sample2))
	for i := range diffs {
		resample(rng, sample1, buf1)
		resample(rng, sample2, buf2)
		diffs[i] = stat.Mean(buf1, nil) - stat.Mean(buf2, nil)
	}
	slices.Sort(diffs)

	alpha := 1 - confidence
	return &BootstrapResult{
		MeanDiff:   actualDiff,
		LowerBound: stat.Quantile(alpha/2, stat.Empirical, diffs, nil),
		UpperBound: stat.Quantile(1-alpha/2, stat.Empirical, diffs, nil),
		Confidence: confidence,
	}
}

// resample fills dst by drawing from sample with replacement.
func resample(rng *rand.Rand, sample, dst []float64) {
	for i := range dst {
		dst[i] = sample[rng.IntN(len(sample))]
	}
}

// DescriptiveStats contains basic descriptive statistics.
type DescriptiveStats struct {
	N      int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
	P25    float64
	P75    float64
}

// Describe computes descriptive statistics for a sample.
func Describe(sample []float64) *DescriptiveStats {
	if len(sample) == 0 {
		return &DescriptiveStats{}
	}

	sorted := slices.Clone(sample)
	slices.Sort(sorted)

	ds := &DescriptiveStats{
		N:      len(sorted),
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P25:    stat.Quantile(0.25, stat.Empirical, sorted, nil),
		P75:    stat.Quantile(0.75, stat.Empirical, sorted, nil),
	}
	if len(sorted) > 1 {
		ds.StdDev = stat.StdDev(sorted, nil)
	}
	return ds
}
