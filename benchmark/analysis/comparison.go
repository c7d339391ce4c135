package analysis

import (
	"fmt"
	"slices"

	"github.com/discochess/memo/benchmark/simulation"
)

// PolicyComparison contains a full statistical comparison between two
// eviction policies over per-session hit rates.
type PolicyComparison struct {
	Policy1         string
	Policy2         string
	Stats1          *DescriptiveStats
	Stats2          *DescriptiveStats
	MannWhitney     *MannWhitneyResult
	EffectSize      *EffectSize
	BootstrapCI     *BootstrapResult
	Winner          string // Policy with the higher mean hit rate, or "tie".
	WinnerConfident bool   // True if statistically significant.
}

// ComparePolicies performs a full statistical comparison between two policies.
func ComparePolicies(
	result1, result2 *simulation.AggregateResult,
	bootstrapIterations int,
	confidence float64,
	seed uint64,
) *PolicyComparison {
	sample1 := result1.HitRatePerSession
	sample2 := result2.HitRatePerSession

	mw := MannWhitneyU(sample1, sample2)
	stats1 := Describe(sample1)
	stats2 := Describe(sample2)

	winner := "tie"
	confident := false
	switch {
	case stats1.Mean > stats2.Mean:
		winner, confident = result1.PolicyName, mw.Significant
	case stats2.Mean > stats1.Mean:
		winner, confident = result2.PolicyName, mw.Significant
	}

	return &PolicyComparison{
		Policy1:         result1.PolicyName,
		Policy2:         result2.PolicyName,
		Stats1:          stats1,
		Stats2:          stats2,
		MannWhitney:     mw,
		EffectSize:      ComputeEffectSize(sample1, sample2),
		BootstrapCI:     BootstrapConfidenceInterval(sample1, sample2, bootstrapIterations, confidence, seed),
		Winner:          winner,
		WinnerConfident: confident,
	}
}

// Summary returns a human-readable summary of the comparison.
func (c *PolicyComparison) Summary() string {
	sig := "not statistically significant"
	if c.MannWhitney.Significant {
		sig = fmt.Sprintf("statistically significant (p=%.4f)", c.MannWhitney.PValue)
	}

	return fmt.Sprintf(
		"%s vs %s:\n"+
			"  %s: mean=%.2f%%, median=%.2f%%, std=%.2f\n"+
			"  %s: mean=%.2f%%, median=%.2f%%, std=%.2f\n"+
			"  Difference: %.2f points (%.1f%%)\n"+
			"  Effect size: %.2f (%s)\n"+
			"  Result: %s, %s",
		c.Policy1, c.Policy2,
		c.Policy1, c.Stats1.Mean, c.Stats1.Median, c.Stats1.StdDev,
		c.Policy2, c.Stats2.Mean, c.Stats2.Median, c.Stats2.StdDev,
		c.Stats1.Mean-c.Stats2.Mean,
		safePctDiff(c.Stats1.Mean, c.Stats2.Mean),
		c.EffectSize.CohensD, c.EffectSize.Interpretation,
		c.Winner, sig,
	)
}

func safePctDiff(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return (a - b) / b * 100
}

// MultiPolicyComparison compares several policies against a baseline.
type MultiPolicyComparison struct {
	Baseline    string
	Comparisons []*PolicyComparison
}

// CompareAll compares every policy against baseline, in name order.
// It returns nil when baseline has no result.
func CompareAll(
	results map[string]*simulation.AggregateResult,
	baseline string,
	bootstrapIterations int,
	confidence float64,
	seed uint64,
) *MultiPolicyComparison {
	baseResult, ok := results[baseline]
	if !ok {
		return nil
	}

	multi := &MultiPolicyComparison{Baseline: baseline}

	names := make([]string, 0, len(results))
	for name := range results {
		if name != baseline {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	for _, name := range names {
		comp := ComparePolicies(baseResult, results[name], bootstrapIterations, confidence, seed)
		multi.Comparisons = append(multi.Comparisons, comp)
	}
	return multi
}
