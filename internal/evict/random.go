package evict

import "math/rand/v2"

// random keeps no state; victims are drawn from the table at overflow.
type random struct {
	rng *rand.Rand
}

func (p *random) Kind() Kind { return RR }

func (p *random) Touch(string) {}
func (p *random) Admit(string) {}

func (p *random) Victims(_ string, keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	return []string{keys[p.rng.IntN(len(keys))]}
}

func (p *random) Reset() {}
