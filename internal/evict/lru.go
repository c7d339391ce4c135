package evict

// lru keeps an append-only access history with a reference count per key.
// The history is compacted once it grows past ten times the table size.
type lru struct {
	maxQueue int
	queue    []string
	refs     map[string]int
}

func newLRU(maxSize int) *lru {
	return &lru{
		maxQueue: maxSize * 10,
		refs:     make(map[string]int),
	}
}

func (p *lru) Kind() Kind { return LRU }

func (p *lru) Touch(key string) { p.record(key) }
func (p *lru) Admit(key string) { p.record(key) }

func (p *lru) record(key string) {
	p.queue = append(p.queue, key)
	p.refs[key]++
	if len(p.queue) > p.maxQueue {
		p.compact()
	}
}

// Victims pops the history until a key loses its last reference.
func (p *lru) Victims(fresh string, keys []string) []string {
	for len(p.queue) > 0 {
		key := p.queue[0]
		p.queue = p.queue[1:]
		if p.refs[key] == 0 {
			continue
		}
		p.refs[key]--
		if p.refs[key] == 0 {
			delete(p.refs, key)
			return []string{key}
		}
	}
	if k, ok := firstOther(fresh, keys); ok {
		return []string{k}
	}
	return nil
}

// compact keeps only the latest occurrence of each key, in recency order.
func (p *lru) compact() {
	clear(p.refs)
	kept := make([]string, 0, len(p.queue))
	for i := len(p.queue) - 1; i >= 0; i-- {
		key := p.queue[i]
		if _, seen := p.refs[key]; seen {
			continue
		}
		p.refs[key] = 1
		kept = append(kept, key)
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	p.queue = kept
}

func (p *lru) Reset() {
	p.queue = nil
	clear(p.refs)
}
