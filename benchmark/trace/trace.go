// Package trace reads and generates key access traces for policy benchmarks.
//
// A trace file holds one key per line. Blank lines separate sessions, and
// lines starting with '#' are comments. Files ending in .zst are
// decompressed on the fly.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Read parses sessions from r. Empty sessions are dropped.
func Read(r io.Reader) ([][]string, error) {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for long keys.
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var sessions [][]string
	var current []string
	flush := func() {
		if len(current) > 0 {
			sessions = append(sessions, current)
			current = nil
		}
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case strings.HasPrefix(line, "#"):
		default:
			current = append(current, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	flush()
	return sessions, nil
}

// Open reads the trace file at path.
func Open(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".zst") {
		decoder, err := zstd.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer decoder.Close()
		reader = decoder
	}
	return Read(reader)
}

// Write writes sessions in the format Read accepts.
func Write(w io.Writer, sessions [][]string) error {
	bw := bufio.NewWriter(w)
	for i, session := range sessions {
		if i > 0 {
			bw.WriteString("\n")
		}
		for _, key := range session {
			bw.WriteString(key)
			bw.WriteString("\n")
		}
	}
	return bw.Flush()
}

// ZipfConfig describes a synthetic workload.
type ZipfConfig struct {
	Sessions int     // Number of sessions.
	Length   int     // Calls per session.
	Keys     uint64  // Size of the key space.
	Skew     float64 // Zipf exponent, must be > 1.
	Seed     uint64
}

// Zipf generates sessions whose keys follow a Zipf distribution, so a few
// keys are called very often and most rarely.
func Zipf(cfg ZipfConfig) ([][]string, error) {
	if cfg.Skew <= 1 {
		return nil, fmt.Errorf("zipf skew must be > 1, got %v", cfg.Skew)
	}
	if cfg.Keys == 0 {
		return nil, fmt.Errorf("zipf key space is empty")
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	z := rand.NewZipf(rng, cfg.Skew, 1, cfg.Keys-1)

	sessions := make([][]string, cfg.Sessions)
	for i := range sessions {
		session := make([]string, cfg.Length)
		for j := range session {
			session[j] = strconv.FormatUint(z.Uint64(), 10)
		}
		sessions[i] = session
	}
	return sessions, nil
}
