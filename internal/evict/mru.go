package evict

import "slices"

// mru keeps each tracked key once, ordered by last use.
type mru struct {
	order []string
}

func newMRU() *mru { return &mru{} }

func (p *mru) Kind() Kind { return MRU }

func (p *mru) Touch(key string) {
	p.remove(key)
	p.order = append(p.order, key)
}

func (p *mru) Admit(key string) { p.Touch(key) }

// Victims evicts the most recently used key other than fresh.
func (p *mru) Victims(fresh string, keys []string) []string {
	for i := len(p.order) - 1; i >= 0; i-- {
		if key := p.order[i]; key != fresh {
			p.order = slices.Delete(p.order, i, i+1)
			return []string{key}
		}
	}
	if k, ok := firstOther(fresh, keys); ok {
		return []string{k}
	}
	return nil
}

func (p *mru) remove(key string) {
	if i := slices.Index(p.order, key); i >= 0 {
		p.order = slices.Delete(p.order, i, i+1)
	}
}

func (p *mru) Reset() { p.order = nil }
