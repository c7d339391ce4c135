// Package keymap turns call arguments into the canonical string keys used by
// memoization tables and archives.
//
// Every codec first normalizes the argument: floats are rounded to a decimal
// tolerance, and ignored fields or positions are dropped. Two arguments map
// to the same key exactly when their normalized forms are equal.
package keymap

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Codec encodes an argument into a key.
type Codec[A any] interface {
	Encode(arg A) (string, error)
}

// CodecFunc adapts a function to Codec.
type CodecFunc[A any] func(arg A) (string, error)

// Encode calls f(arg).
func (f CodecFunc[A]) Encode(arg A) (string, error) { return f(arg) }

// String keys are the fmt rendering of the normalized argument. They are
// readable and, for simple arguments, usable verbatim as file names.
func String[A any](opts ...Option) Codec[A] {
	n := newNormalizer(opts)
	return CodecFunc[A](func(arg A) (string, error) {
		v, err := n.normalize(arg)
		if err != nil {
			return "", err
		}
		return fmt.Sprint(v), nil
	})
}

// Token keys are the JSON serialization of the normalized argument. Map keys
// are sorted, so equal arguments always produce identical tokens.
func Token[A any](opts ...Option) Codec[A] {
	n := newNormalizer(opts)
	return CodecFunc[A](func(arg A) (string, error) {
		return n.token(arg)
	})
}

// Hash keys are the hex xxHash64 digest of the token. They have fixed length
// and are always safe as file names.
func Hash[A any](opts ...Option) Codec[A] {
	n := newNormalizer(opts)
	return CodecFunc[A](func(arg A) (string, error) {
		tok, err := n.token(arg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%016x", xxhash.Sum64String(tok)), nil
	})
}

// Identity uses string arguments as keys unchanged.
func Identity() Codec[string] {
	return CodecFunc[string](func(arg string) (string, error) { return arg, nil })
}

// Int formats integer arguments in base 10.
func Int() Codec[int] {
	return CodecFunc[int](func(arg int) (string, error) { return strconv.Itoa(arg), nil })
}

func (n *normalizer) token(arg any) (string, error) {
	v, err := n.normalize(arg)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("keymap: encoding token: %w", err)
	}
	return string(data), nil
}
