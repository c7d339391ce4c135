// Package codec provides compression and decompression for archived entries.
package codec

import (
	"bytes"
	"fmt"
	"io"
)

// Codec provides compression and decompression functionality.
type Codec interface {
	// Reader wraps r to decompress data read from it.
	Reader(r io.Reader) (io.ReadCloser, error)
	// Writer wraps w to compress data written to it.
	Writer(w io.Writer) (io.WriteCloser, error)
	// Extension returns the file extension without dot (e.g., "zst", "gz").
	// Returns empty string for no compression.
	Extension() string
}

// Compress runs data through c's writer and returns the compressed bytes.
func Compress(c Codec, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := c.Writer(&buf)
	if err != nil {
		return nil, fmt.Errorf("creating compressor: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("flushing compressor: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(c Codec, data []byte) ([]byte, error) {
	r, err := c.Reader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating decompressor: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	return out, nil
}
