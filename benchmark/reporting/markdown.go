// Package reporting renders policy benchmark results.
package reporting

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/discochess/memo/benchmark/analysis"
	"github.com/discochess/memo/benchmark/simulation"
)

// MarkdownReport generates benchmark reports in Markdown format.
type MarkdownReport struct {
	w   io.Writer
	now func() time.Time
}

// NewMarkdownReport creates a new Markdown report writer.
func NewMarkdownReport(w io.Writer) *MarkdownReport {
	return &MarkdownReport{w: w, now: time.Now}
}

// WriteHeader writes the report header.
func (r *MarkdownReport) WriteHeader(title string) {
	fmt.Fprintf(r.w, "# %s\n\n", title)
	fmt.Fprintf(r.w, "Generated: %s\n\n", r.now().Format(time.RFC3339))
}

// WriteMethodology writes the methodology section.
func (r *MarkdownReport) WriteMethodology(sessions, calls, capacity int) {
	fmt.Fprintln(r.w, "## Methodology")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Sessions replayed:** %d\n", sessions)
	fmt.Fprintf(r.w, "- **Calls:** %d\n", calls)
	fmt.Fprintf(r.w, "- **Cache capacity:** %d entries, no archive\n", capacity)
	fmt.Fprintln(r.w, "- **Metric:** Hit rate per session (higher is better)")
	fmt.Fprintln(r.w, "- **Statistical tests:** Mann-Whitney U (non-parametric), Cohen's d effect size")
	fmt.Fprintln(r.w)
}

// WriteSummaryTable writes the summary table, one row per policy in name order.
func (r *MarkdownReport) WriteSummaryTable(results map[string]*simulation.AggregateResult) {
	fmt.Fprintln(r.w, "## Summary")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Policy | Hit Rate | Median | P10 | P90 | Evictions |")
	fmt.Fprintln(r.w, "|--------|----------|--------|-----|-----|-----------|")

	for _, name := range sortedNames(results) {
		m := simulation.ComputeMetrics(results[name])
		fmt.Fprintf(r.w, "| %s | %.1f%% | %.1f%% | %.1f%% | %.1f%% | %d |\n",
			name, m.HitRate, m.MedianHitRate, m.P10HitRate, m.P90HitRate, m.TotalEvictions)
	}
	fmt.Fprintln(r.w)
}

// WriteWorkload describes the shape of the replayed keys.
func (r *MarkdownReport) WriteWorkload(m *simulation.Metrics) {
	fmt.Fprintln(r.w, "## Workload")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Unique keys:** %d\n", m.UniqueKeys)
	fmt.Fprintf(r.w, "- **Key concentration (Gini):** %.3f\n", m.KeyConcentration)
	fmt.Fprintf(r.w, "- **Calls to top 10%% of keys:** %.1f%%\n", m.TopKeyPct)
	fmt.Fprintln(r.w)
}

// WriteComparison writes a detailed comparison section.
func (r *MarkdownReport) WriteComparison(comp *analysis.PolicyComparison) {
	fmt.Fprintf(r.w, "## %s vs %s\n\n", comp.Policy1, comp.Policy2)

	fmt.Fprintln(r.w, "### Descriptive Statistics")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "| Metric | "+comp.Policy1+" | "+comp.Policy2+" |")
	fmt.Fprintln(r.w, "|--------|"+strings.Repeat("-", len(comp.Policy1)+2)+"|"+strings.Repeat("-", len(comp.Policy2)+2)+"|")
	fmt.Fprintf(r.w, "| Mean | %.2f | %.2f |\n", comp.Stats1.Mean, comp.Stats2.Mean)
	fmt.Fprintf(r.w, "| Median | %.2f | %.2f |\n", comp.Stats1.Median, comp.Stats2.Median)
	fmt.Fprintf(r.w, "| Std Dev | %.2f | %.2f |\n", comp.Stats1.StdDev, comp.Stats2.StdDev)
	fmt.Fprintf(r.w, "| Min | %.1f | %.1f |\n", comp.Stats1.Min, comp.Stats2.Min)
	fmt.Fprintf(r.w, "| Max | %.1f | %.1f |\n", comp.Stats1.Max, comp.Stats2.Max)
	fmt.Fprintln(r.w)

	fmt.Fprintln(r.w, "### Statistical Analysis")
	fmt.Fprintln(r.w)
	fmt.Fprintf(r.w, "- **Mann-Whitney U:** %.2f (z=%.2f, p=%.4f)\n",
		comp.MannWhitney.U, comp.MannWhitney.Z, comp.MannWhitney.PValue)
	fmt.Fprintf(r.w, "- **Effect size (Cohen's d):** %.2f (%s)\n",
		comp.EffectSize.CohensD, comp.EffectSize.Interpretation)
	fmt.Fprintf(r.w, "- **%.0f%% CI for mean difference:** [%.2f, %.2f]\n",
		comp.BootstrapCI.Confidence*100, comp.BootstrapCI.LowerBound, comp.BootstrapCI.UpperBound)
	fmt.Fprintln(r.w)

	fmt.Fprintln(r.w, "### Conclusion")
	fmt.Fprintln(r.w)
	if comp.WinnerConfident {
		fmt.Fprintf(r.w, "**%s** hits significantly more often than %s ",
			comp.Winner, otherPolicy(comp.Winner, comp.Policy1, comp.Policy2))
		fmt.Fprintf(r.w, "(p < 0.05, effect size: %s).\n", comp.EffectSize.Interpretation)
	} else {
		fmt.Fprintln(r.w, "No statistically significant difference detected between policies (p >= 0.05).")
	}
	fmt.Fprintln(r.w)
}

func otherPolicy(winner, p1, p2 string) string {
	if winner == p1 {
		return p2
	}
	return p1
}

// WriteDistributionChart writes an ASCII histogram of per-session hit rates.
func (r *MarkdownReport) WriteDistributionChart(name string, hitRates []float64) {
	fmt.Fprintf(r.w, "### %s Hit Rate Distribution\n\n", name)
	fmt.Fprintln(r.w, "```")

	hist := hitRateHistogram(hitRates)
	maxCount := slices.Max(hist)

	const width = 40
	for i, count := range hist {
		barLen := 0
		if maxCount > 0 {
			barLen = int(count * width / maxCount)
		}
		bar := strings.Repeat("█", barLen)
		fmt.Fprintf(r.w, "%3d-%3d%% │ %s %d\n", i*10, (i+1)*10, bar, int(count))
	}

	fmt.Fprintln(r.w, "```")
	fmt.Fprintln(r.w)
}

// hitRateHistogram buckets percentages into ten bins of width 10. The last
// bin includes 100.
func hitRateHistogram(hitRates []float64) []float64 {
	dividers := make([]float64, 11)
	for i := range dividers {
		dividers[i] = float64(i * 10)
	}
	dividers[10] = math.Nextafter(100, math.Inf(1))

	counts := make([]float64, 10)
	if len(hitRates) == 0 {
		return counts
	}

	sorted := slices.Clone(hitRates)
	for i, v := range sorted {
		sorted[i] = min(max(v, 0), 100)
	}
	slices.Sort(sorted)
	return stat.Histogram(counts, dividers, sorted, nil)
}

// WriteFooter writes the report footer.
func (r *MarkdownReport) WriteFooter() {
	fmt.Fprintln(r.w, "---")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "*Report generated by memo-bench*")
}

func sortedNames(results map[string]*simulation.AggregateResult) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
