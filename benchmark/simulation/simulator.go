// Package simulation replays key traces against bounded caches to compare
// eviction policies.
package simulation

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/discochess/memo"
	"github.com/discochess/memo/internal/stats"
	"github.com/discochess/memo/keymap"
)

// Simulator replays sessions against one cache per policy.
type Simulator struct {
	policies []memo.Policy
	capacity int
	seed     uint64
}

// NewSimulator creates a Simulator for caches holding capacity entries.
func NewSimulator(capacity int, seed uint64, policies ...memo.Policy) *Simulator {
	return &Simulator{
		policies: policies,
		capacity: capacity,
		seed:     seed,
	}
}

// SimulateSession replays a single session against a fresh cache for each
// policy and returns the outcome per policy name.
func (s *Simulator) SimulateSession(ctx context.Context, keys []string) (map[string]*SessionResult, error) {
	results := make(map[string]*SessionResult, len(s.policies))

	for _, policy := range s.policies {
		collector := stats.NewMemory()
		cache, err := memo.New(identity,
			memo.WithKeyCodec(keymap.Identity()),
			memo.WithMaxSize(s.capacity),
			memo.WithPolicy(policy),
			memo.WithRand(rand.New(rand.NewPCG(s.seed, s.seed))),
			memo.WithStats(collector),
		)
		if err != nil {
			return nil, fmt.Errorf("creating %s cache: %w", policy, err)
		}

		for _, key := range keys {
			if _, err := cache.Call(ctx, key); err != nil {
				return nil, fmt.Errorf("replaying %q: %w", key, err)
			}
		}

		info := cache.Info()
		results[policy.String()] = &SessionResult{
			PolicyName: policy.String(),
			Hits:       int(info.Hit),
			Misses:     int(info.Miss),
			Evictions:  int(collector.Value(stats.MetricEvictions)),
		}
	}

	return results, nil
}

// SimulateSessions replays every session and aggregates results.
func (s *Simulator) SimulateSessions(ctx context.Context, sessions [][]string) (map[string]*AggregateResult, error) {
	results := make(map[string]*AggregateResult, len(s.policies))

	// Initialize results for each policy.
	for _, policy := range s.policies {
		results[policy.String()] = &AggregateResult{
			PolicyName:        policy.String(),
			KeyCalls:          make(map[string]int),
			HitRatePerSession: make([]float64, 0, len(sessions)),
		}
	}

	for _, session := range sessions {
		sessionResults, err := s.SimulateSession(ctx, session)
		if err != nil {
			return nil, err
		}
		for name, sr := range sessionResults {
			agg := results[name]
			agg.TotalCalls += len(session)
			agg.TotalHits += sr.Hits
			agg.TotalEvictions += sr.Evictions
			agg.HitRatePerSession = append(agg.HitRatePerSession, sr.HitRate())

			for _, key := range session {
				agg.KeyCalls[key]++
			}
		}
	}

	for _, agg := range results {
		agg.UniqueKeys = len(agg.KeyCalls)
		if agg.TotalCalls > 0 {
			agg.HitRate = float64(agg.TotalHits) / float64(agg.TotalCalls) * 100
		}
	}

	return results, nil
}

func identity(_ context.Context, key string) (string, error) {
	return key, nil
}

// SessionResult contains the outcome of a single session.
type SessionResult struct {
	PolicyName string
	Hits       int
	Misses     int
	Evictions  int
}

// HitRate returns the percentage of calls answered from the table.
func (r *SessionResult) HitRate() float64 {
	total := r.Hits + r.Misses
	if total == 0 {
		return 0
	}
	return float64(r.Hits) / float64(total) * 100
}

// AggregateResult contains results aggregated across sessions.
type AggregateResult struct {
	PolicyName        string
	TotalCalls        int
	TotalHits         int
	TotalEvictions    int
	UniqueKeys        int
	HitRate           float64        // Percentage over all calls.
	KeyCalls          map[string]int // Key -> call count.
	HitRatePerSession []float64      // For statistical analysis.
}
