package evict

import (
	"cmp"
	"slices"
)

type usage struct {
	count int
	seq   uint64
}

// lfu counts accesses per key. Ties between equally used keys go to the key
// that started being counted first.
type lfu struct {
	batch int
	next  uint64
	uses  map[string]*usage
}

func newLFU(maxSize int) *lfu {
	return &lfu{
		batch: max(2, maxSize/10),
		uses:  make(map[string]*usage),
	}
}

func (p *lfu) Kind() Kind { return LFU }

func (p *lfu) Touch(key string) { p.count(key) }
func (p *lfu) Admit(key string) { p.count(key) }

func (p *lfu) count(key string) {
	u, ok := p.uses[key]
	if !ok {
		u = &usage{seq: p.next}
		p.next++
		p.uses[key] = u
	}
	u.count++
}

// Victims evicts a batch of the least used keys, which may include fresh.
func (p *lfu) Victims(fresh string, keys []string) []string {
	tracked := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := p.uses[k]; ok {
			tracked = append(tracked, k)
		}
	}
	if len(tracked) == 0 {
		if k, ok := firstOther(fresh, keys); ok {
			return []string{k}
		}
		return nil
	}

	slices.SortFunc(tracked, func(a, b string) int {
		ua, ub := p.uses[a], p.uses[b]
		if c := cmp.Compare(ua.count, ub.count); c != 0 {
			return c
		}
		return cmp.Compare(ua.seq, ub.seq)
	})

	victims := tracked[:min(p.batch, len(tracked))]
	for _, k := range victims {
		delete(p.uses, k)
	}
	return victims
}

func (p *lfu) Reset() {
	clear(p.uses)
	p.next = 0
}
