package memo

import "strconv"

// Info is a snapshot of a cache's statistics.
type Info struct {
	// Hit counts calls answered from the table.
	Hit uint64 `json:"hit"`

	// Miss counts calls that ran the function.
	Miss uint64 `json:"miss"`

	// Load counts calls answered from the archive.
	Load uint64 `json:"load"`

	// MaxSize is the table capacity, nil when unbounded.
	MaxSize *uint64 `json:"maxsize"`

	// Size is the number of entries in the table.
	Size uint64 `json:"size"`
}

// Calls returns the total number of answered calls.
func (i Info) Calls() uint64 {
	return i.Hit + i.Miss + i.Load
}

// HitRate returns the fraction of calls answered without running the
// function, or 0 before the first call.
func (i Info) HitRate() float64 {
	n := i.Calls()
	if n == 0 {
		return 0
	}
	return float64(i.Hit+i.Load) / float64(n)
}

// String renders the snapshot like "hit=1 miss=2 load=0 maxsize=100 size=2".
func (i Info) String() string {
	maxSize := "none"
	if i.MaxSize != nil {
		maxSize = strconv.FormatUint(*i.MaxSize, 10)
	}
	return "hit=" + strconv.FormatUint(i.Hit, 10) +
		" miss=" + strconv.FormatUint(i.Miss, 10) +
		" load=" + strconv.FormatUint(i.Load, 10) +
		" maxsize=" + maxSize +
		" size=" + strconv.FormatUint(i.Size, 10)
}
