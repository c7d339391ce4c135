package keymap

import (
	"fmt"
	"math"
	"reflect"

	"github.com/go-viper/mapstructure/v2"
)

// Option configures argument normalization.
type Option func(*normalizer)

// WithTolerance rounds floats to digits decimal places. Only top-level
// values are rounded unless WithDeep is also given.
func WithTolerance(digits int) Option {
	return func(n *normalizer) {
		n.tol = &digits
	}
}

// WithDeep extends rounding to floats nested at any depth.
func WithDeep() Option {
	return func(n *normalizer) {
		n.deep = true
	}
}

// Ignore drops struct fields or map entries with the given names. Fields are
// matched by their mapstructure name, which defaults to the Go field name.
func Ignore(names ...string) Option {
	return func(n *normalizer) {
		for _, name := range names {
			n.ignoreNames[name] = true
		}
	}
}

// IgnoreIndex drops slice or array elements at the given positions.
func IgnoreIndex(indexes ...int) Option {
	return func(n *normalizer) {
		for _, i := range indexes {
			n.ignoreIndexes[i] = true
		}
	}
}

type normalizer struct {
	tol           *int
	deep          bool
	ignoreNames   map[string]bool
	ignoreIndexes map[int]bool
}

func newNormalizer(opts []Option) *normalizer {
	n := &normalizer{
		ignoreNames:   make(map[string]bool),
		ignoreIndexes: make(map[int]bool),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *normalizer) passthrough() bool {
	return n.tol == nil && len(n.ignoreNames) == 0 && len(n.ignoreIndexes) == 0
}

// normalize returns arg in canonical form. The top level is the argument
// list: ignore rules apply there, and shallow rounding reaches one level
// into it.
func (n *normalizer) normalize(arg any) (any, error) {
	if n.passthrough() {
		return arg, nil
	}
	return n.walk(reflect.ValueOf(arg), 0)
}

func (n *normalizer) walk(v reflect.Value, depth int) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}
	round := n.tol != nil && (n.deep || depth <= 1)
	top := depth == 0

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil, nil
		}
		return n.walk(v.Elem(), depth)

	case reflect.Float32, reflect.Float64:
		if round {
			return roundTo(v.Float(), *n.tol), nil
		}
		return v.Float(), nil

	case reflect.Struct:
		var m map[string]any
		if err := mapstructure.Decode(v.Interface(), &m); err != nil {
			return nil, fmt.Errorf("keymap: flattening %s: %w", v.Type(), err)
		}
		return n.walk(reflect.ValueOf(m), depth)

	case reflect.Map:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			name := fmt.Sprint(iter.Key().Interface())
			if top && n.ignoreNames[name] {
				continue
			}
			elem, err := n.walk(iter.Value(), depth+1)
			if err != nil {
				return nil, err
			}
			out[name] = elem
		}
		return out, nil

	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil, nil
		}
		out := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			if top && n.ignoreIndexes[i] {
				continue
			}
			elem, err := n.walk(v.Index(i), depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil

	default:
		return v.Interface(), nil
	}
}

// roundTo rounds x half away from zero to digits decimal places.
func roundTo(x float64, digits int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow10(digits)
	return math.Round(x*p) / p
}
