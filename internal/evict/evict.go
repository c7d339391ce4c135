// Package evict implements the victim-selection policies of a bounded
// memoization table.
//
// A Policy only tracks keys; the table that owns the values asks it for
// victims once it has grown past its maximum size. Policies are not safe for
// concurrent use: callers serialize access under the table's lock.
package evict

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Kind names an eviction discipline.
type Kind int

const (
	// LFU evicts the least frequently used keys.
	LFU Kind = iota
	// LRU evicts the least recently used key.
	LRU
	// MRU evicts the most recently used key other than the one just added.
	MRU
	// RR evicts a key chosen uniformly at random.
	RR
)

func (k Kind) String() string {
	switch k {
	case LFU:
		return "lfu"
	case LRU:
		return "lru"
	case MRU:
		return "mru"
	case RR:
		return "rr"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses a policy name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "lfu":
		return LFU, nil
	case "lru":
		return LRU, nil
	case "mru":
		return MRU, nil
	case "rr", "random":
		return RR, nil
	default:
		return 0, fmt.Errorf("unknown eviction policy: %q", s)
	}
}

// Policy is the bookkeeping behind an eviction discipline.
type Policy interface {
	// Kind reports the discipline.
	Kind() Kind

	// Touch records a hit on a key already in the table.
	Touch(key string)

	// Admit records a key that just entered the table, either loaded from an
	// archive or freshly computed.
	Admit(key string)

	// Victims selects the keys to evict after fresh was admitted and the
	// table overflowed, and stops tracking them. keys is the current table
	// contents in a stable order.
	Victims(fresh string, keys []string) []string

	// Reset drops all bookkeeping.
	Reset()
}

// New returns a policy of the given kind for a table holding at most
// maxSize entries. rng is only used by RR; nil selects a randomly seeded
// source.
func New(kind Kind, maxSize int, rng *rand.Rand) (Policy, error) {
	if maxSize < 1 {
		return nil, fmt.Errorf("eviction needs a positive size, got %d", maxSize)
	}
	switch kind {
	case LFU:
		return newLFU(maxSize), nil
	case LRU:
		return newLRU(maxSize), nil
	case MRU:
		return newMRU(), nil
	case RR:
		if rng == nil {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		return &random{rng: rng}, nil
	default:
		return nil, fmt.Errorf("unknown eviction policy: %v", kind)
	}
}

// firstOther returns the first of keys that is not fresh.
func firstOther(fresh string, keys []string) (string, bool) {
	for _, k := range keys {
		if k != fresh {
			return k, true
		}
	}
	return "", false
}
