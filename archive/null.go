package archive

// Compile-time check that Null implements Archive.
var _ Archive[int] = (*Null[int])(nil)

// Null is a permanently empty archive. Writes are accepted and discarded.
// It is the default archive of every memoization cache.
type Null[V any] struct {
	name string
}

// NewNull returns a null archive with an optional name.
func NewNull[V any](name string) *Null[V] {
	return &Null[V]{name: name}
}

// Get always reports an absent key.
func (n *Null[V]) Get(key string) (V, error) {
	var zero V
	return zero, Miss(key, KindAbsent, nil)
}

// Set discards the value.
func (n *Null[V]) Set(string, V) error { return nil }

// Delete is a no-op for the null archive.
func (n *Null[V]) Delete(string) error { return nil }

// Contains always returns false.
func (n *Null[V]) Contains(string) bool { return false }

// Keys always returns no keys.
func (n *Null[V]) Keys() ([]string, error) { return nil, nil }

// Len always returns 0.
func (n *Null[V]) Len() int { return 0 }

// Clear is a no-op for the null archive.
func (n *Null[V]) Clear() error { return nil }

// Mode returns ModeNull.
func (n *Null[V]) Mode() Mode { return ModeNull }

// Name returns the name given to NewNull.
func (n *Null[V]) Name() string { return n.name }

// Copy returns another null archive named dest.
func (n *Null[V]) Copy(dest string) (Archive[V], error) {
	return NewNull[V](dest), nil
}
