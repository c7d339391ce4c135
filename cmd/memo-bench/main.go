// Package main provides the memo-bench CLI tool for comparing eviction
// policies on recorded or synthetic key traces.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/discochess/memo"
	"github.com/discochess/memo/benchmark/analysis"
	"github.com/discochess/memo/benchmark/reporting"
	"github.com/discochess/memo/benchmark/simulation"
	"github.com/discochess/memo/benchmark/trace"
)

type benchOptions struct {
	traceFile    string
	policyNames  []string
	capacity     int
	seed         uint64
	zipf         trace.ZipfConfig
	iterations   int
	outputFormat string
	outputFile   string
	verbose      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "memo-bench",
		Short: "Benchmark eviction policies for memo caches",
		Long: `memo-bench compares eviction policies by replaying key traces.

Each session of the trace is replayed against a fresh bounded cache per
policy, and per-session hit rates are compared statistically.

Examples:
  # Compare all policies on a recorded trace
  memo-bench run --trace calls.txt --capacity 500

  # Compare two policies on a synthetic Zipf workload
  memo-bench run --policies lru,lfu --sessions 200 --skew 1.1

  # Write a synthetic trace for later runs
  memo-bench generate --output calls.txt.zst`,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newRunCmd(), newGenerateCmd())
	return rootCmd
}

func addZipfFlags(cmd *cobra.Command, o *benchOptions) {
	cmd.Flags().IntVar(&o.zipf.Sessions, "sessions", 100, "synthetic sessions")
	cmd.Flags().IntVar(&o.zipf.Length, "length", 1000, "calls per synthetic session")
	cmd.Flags().Uint64Var(&o.zipf.Keys, "keys", 10000, "synthetic key space")
	cmd.Flags().Float64Var(&o.zipf.Skew, "skew", 1.2, "Zipf exponent (> 1)")
	cmd.Flags().Uint64Var(&o.seed, "seed", 1, "random seed")
}

func newRunCmd() *cobra.Command {
	o := &benchOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark simulation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchmark(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), o)
		},
	}
	cmd.Flags().StringVarP(&o.traceFile, "trace", "t", "", "trace file (supports .zst); synthetic Zipf keys when empty")
	cmd.Flags().StringSliceVarP(&o.policyNames, "policies", "p", []string{"lfu", "lru", "mru", "rr"}, "policies to compare; the first is the baseline")
	cmd.Flags().IntVarP(&o.capacity, "capacity", "c", 100, "cache capacity in entries")
	cmd.Flags().IntVar(&o.iterations, "bootstrap", 10000, "bootstrap iterations")
	cmd.Flags().StringVarP(&o.outputFormat, "format", "f", "text", "output format: text, markdown")
	cmd.Flags().StringVarP(&o.outputFile, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "verbose output")
	addZipfFlags(cmd, o)
	return cmd
}

func newGenerateCmd() *cobra.Command {
	o := &benchOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic Zipf trace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			o.zipf.Seed = o.seed
			sessions, err := trace.Zipf(o.zipf)
			if err != nil {
				return err
			}
			return writeTrace(o.outputFile, sessions)
		},
	}
	cmd.Flags().StringVarP(&o.outputFile, "output", "o", "", "trace file to write (.zst compresses)")
	cmd.MarkFlagRequired("output")
	addZipfFlags(cmd, o)
	return cmd
}

func writeTrace(path string, sessions [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	defer f.Close()

	if !strings.HasSuffix(path, ".zst") {
		if err := trace.Write(f, sessions); err != nil {
			return err
		}
		return f.Close()
	}

	encoder, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}
	if err := trace.Write(encoder, sessions); err != nil {
		encoder.Close()
		return err
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("flushing zstd encoder: %w", err)
	}
	return f.Close()
}

func loadSessions(o *benchOptions) ([][]string, error) {
	if o.traceFile == "" {
		o.zipf.Seed = o.seed
		return trace.Zipf(o.zipf)
	}
	return trace.Open(o.traceFile)
}

func runBenchmark(ctx context.Context, stdout, stderr io.Writer, o *benchOptions) error {
	if o.capacity < 1 {
		return fmt.Errorf("capacity must be positive, got %d", o.capacity)
	}

	policies := make([]memo.Policy, 0, len(o.policyNames))
	for _, name := range o.policyNames {
		p, err := memo.ParsePolicy(name)
		if err != nil {
			return err
		}
		policies = append(policies, p)
	}
	if len(policies) == 0 {
		return fmt.Errorf("no policies to compare")
	}

	if o.verbose {
		fmt.Fprintln(stderr, "Loading sessions...")
	}
	sessions, err := loadSessions(o)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return fmt.Errorf("no sessions found in %s", o.traceFile)
	}

	var totalCalls int
	for _, s := range sessions {
		totalCalls += len(s)
	}
	if o.verbose {
		fmt.Fprintf(stderr, "Replaying %d calls from %d sessions...\n", totalCalls, len(sessions))
	}

	sim := simulation.NewSimulator(o.capacity, o.seed, policies...)
	results, err := sim.SimulateSessions(ctx, sessions)
	if err != nil {
		return fmt.Errorf("running simulation: %w", err)
	}

	comparison := analysis.CompareAll(results, policies[0].String(), o.iterations, 0.95, o.seed)

	output := stdout
	if o.outputFile != "" {
		f, err := os.Create(o.outputFile)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	switch o.outputFormat {
	case "markdown":
		writeMarkdownReport(output, o, len(sessions), totalCalls, results, comparison)
	case "text":
		writeTextReport(output, o, len(sessions), totalCalls, results, comparison)
	default:
		return fmt.Errorf("unknown output format: %s", o.outputFormat)
	}
	return nil
}

func writeTextReport(w io.Writer, o *benchOptions, sessions, calls int, results map[string]*simulation.AggregateResult, comp *analysis.MultiPolicyComparison) {
	fmt.Fprintf(w, "Memo Eviction Policy Benchmark\n")
	fmt.Fprintf(w, "==============================\n\n")
	fmt.Fprintf(w, "Sessions: %d\n", sessions)
	fmt.Fprintf(w, "Calls: %d\n", calls)
	fmt.Fprintf(w, "Capacity: %d\n\n", o.capacity)

	fmt.Fprintf(w, "Results:\n")
	fmt.Fprintf(w, "--------\n\n")

	for _, name := range o.policyNames {
		res, ok := results[strings.ToLower(name)]
		if !ok {
			continue
		}
		metrics := simulation.ComputeMetrics(res)
		fmt.Fprintf(w, "%s:\n", res.PolicyName)
		fmt.Fprintf(w, "  Hit rate:        %.1f%%\n", metrics.HitRate)
		fmt.Fprintf(w, "  Median session:  %.1f%%\n", metrics.MedianHitRate)
		fmt.Fprintf(w, "  P10 session:     %.1f%%\n", metrics.P10HitRate)
		fmt.Fprintf(w, "  Evictions:       %d\n", metrics.TotalEvictions)
		fmt.Fprintf(w, "  Unique keys:     %d\n\n", metrics.UniqueKeys)
	}

	if comp != nil && len(comp.Comparisons) > 0 {
		fmt.Fprintf(w, "Statistical Analysis:\n")
		fmt.Fprintf(w, "---------------------\n\n")
		for _, c := range comp.Comparisons {
			fmt.Fprintln(w, c.Summary())
			fmt.Fprintln(w)
		}
	}
}

func writeMarkdownReport(w io.Writer, o *benchOptions, sessions, calls int, results map[string]*simulation.AggregateResult, comp *analysis.MultiPolicyComparison) {
	report := reporting.NewMarkdownReport(w)
	report.WriteHeader("Memo Eviction Policy Benchmark")
	report.WriteMethodology(sessions, calls, o.capacity)
	report.WriteSummaryTable(results)

	for _, res := range results {
		report.WriteWorkload(simulation.ComputeMetrics(res))
		break
	}

	if comp != nil {
		for _, c := range comp.Comparisons {
			report.WriteComparison(c)
		}
	}
	for _, name := range o.policyNames {
		if res, ok := results[strings.ToLower(name)]; ok {
			report.WriteDistributionChart(res.PolicyName, res.HitRatePerSession)
		}
	}

	report.WriteFooter()
}
