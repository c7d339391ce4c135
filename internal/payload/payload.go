// Package payload turns archived values into stored bytes and back.
package payload

import (
	"errors"
	"fmt"

	"github.com/discochess/memo/archive/serial"
	"github.com/discochess/memo/internal/codec"
	"github.com/discochess/memo/internal/codec/gzipcodec"
	"github.com/discochess/memo/internal/codec/noopcodec"
	"github.com/discochess/memo/internal/codec/zstdcodec"
)

// Format pairs a serializer with a compression codec.
type Format struct {
	Serializer serial.Serializer
	Codec      codec.Codec
}

// Default is uncompressed JSON.
func Default() Format {
	return Format{Serializer: serial.JSON{}, Codec: noopcodec.New()}
}

// SetSerializer replaces the serializer.
func (f *Format) SetSerializer(s serial.Serializer) error {
	if s == nil {
		return fmt.Errorf("nil serializer")
	}
	f.Serializer = s
	return nil
}

// SetGzip selects gzip at level 1 to 9, or no compression for level 0.
func (f *Format) SetGzip(level int) error {
	if level == 0 {
		f.Codec = noopcodec.New()
		return nil
	}
	gz, err := gzipcodec.NewLevel(level)
	if err != nil {
		return fmt.Errorf("compression: %w", err)
	}
	f.Codec = gz
	return nil
}

// SetZstd selects zstd at the given level.
func (f *Format) SetZstd(level int) {
	f.Codec = zstdcodec.NewLevel(level)
}

// Extension returns "<serializer>[.<codec>]".
func (f Format) Extension() string {
	ext := f.Serializer.Extension()
	if cext := f.Codec.Extension(); cext != "" {
		ext += "." + cext
	}
	return ext
}

// Encode serializes and compresses v.
func (f Format) Encode(v any) ([]byte, error) {
	data, err := f.Serializer.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding: %w", err)
	}
	return codec.Compress(f.Codec, data)
}

// Decode reverses Encode. Every failure is a *DecodeError.
func (f Format) Decode(raw []byte, v any) error {
	data, err := codec.Decompress(f.Codec, raw)
	if err != nil {
		return &DecodeError{err}
	}
	if err := f.Serializer.Unmarshal(data, v); err != nil {
		return &DecodeError{fmt.Errorf("decoding: %w", err)}
	}
	return nil
}

// DecodeError marks stored bytes that could not be turned back into a value.
type DecodeError struct{ Err error }

// Error returns the decoder's message.
func (e *DecodeError) Error() string { return e.Err.Error() }

// Unwrap returns the decoder error.
func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err came from Decode.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
