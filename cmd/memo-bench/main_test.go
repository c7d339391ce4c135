package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runBench(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRun_Zipf(t *testing.T) {
	out, err := runBench(t, "run",
		"--sessions", "20", "--length", "200", "--keys", "500",
		"--capacity", "50", "--bootstrap", "100", "--policies", "lru,rr")
	if err != nil {
		t.Fatalf("run error = %v\n%s", err, out)
	}

	for _, want := range []string{"Sessions: 20", "Calls: 4000", "lru:", "rr:", "lru vs rr"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerateThenRun_Markdown(t *testing.T) {
	dir := t.TempDir()
	tracePath := filepath.Join(dir, "calls.txt.zst")
	reportPath := filepath.Join(dir, "report.md")

	if out, err := runBench(t, "generate", "--output", tracePath, "--sessions", "5", "--length", "50"); err != nil {
		t.Fatalf("generate error = %v\n%s", err, out)
	}

	out, err := runBench(t, "run", "--trace", tracePath, "--format", "markdown",
		"--output", reportPath, "--bootstrap", "50", "--capacity", "10")
	if err != nil {
		t.Fatalf("run error = %v\n%s", err, out)
	}

	report, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{"# Memo Eviction Policy Benchmark", "**Sessions replayed:** 5", "## lfu vs lru", "## Workload"} {
		if !strings.Contains(string(report), want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRun_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown policy", []string{"run", "--policies", "fifo", "--sessions", "1", "--length", "1"}},
		{"zero capacity", []string{"run", "--capacity", "0"}},
		{"bad skew", []string{"run", "--skew", "0.5"}},
		{"unknown format", []string{"run", "--format", "html", "--sessions", "1", "--length", "5", "--bootstrap", "1"}},
		{"missing trace", []string{"run", "--trace", "/nonexistent/trace.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runBench(t, tt.args...); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
