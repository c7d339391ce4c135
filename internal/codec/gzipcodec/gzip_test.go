package gzipcodec

import (
	"bytes"
	"io"
	"testing"
)

func TestCodec_Extension(t *testing.T) {
	c := New()
	if got := c.Extension(); got != "gz" {
		t.Errorf("Extension() = %q, want %q", got, "gz")
	}
}

func TestNewLevel(t *testing.T) {
	tests := []struct {
		level   int
		wantErr bool
	}{
		{0, true},
		{1, false},
		{5, false},
		{9, false},
		{10, true},
		{-1, true},
	}

	for _, tt := range tests {
		c, err := NewLevel(tt.level)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewLevel(%d) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			continue
		}
		if err == nil && c.Level() != tt.level {
			t.Errorf("Level() = %d, want %d", c.Level(), tt.level)
		}
	}
}

func TestCodec_RoundTrip_Levels(t *testing.T) {
	original := bytes.Repeat([]byte("memoized result "), 2000)

	for _, level := range []int{1, 6, 9} {
		c, err := NewLevel(level)
		if err != nil {
			t.Fatalf("NewLevel(%d) error = %v", level, err)
		}

		var compressed bytes.Buffer
		writer, err := c.Writer(&compressed)
		if err != nil {
			t.Fatalf("Writer() error = %v", err)
		}
		if _, err := writer.Write(original); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if err := writer.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}

		if compressed.Len() >= len(original) {
			t.Errorf("level %d: expected compression, got %d bytes from %d bytes", level, compressed.Len(), len(original))
		}

		reader, err := c.Reader(&compressed)
		if err != nil {
			t.Fatalf("Reader() error = %v", err)
		}
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}
		reader.Close()

		if !bytes.Equal(decompressed, original) {
			t.Errorf("level %d: round-trip failed", level)
		}
	}
}

func TestCodec_Reader_InvalidData(t *testing.T) {
	c := New()
	_, err := c.Reader(bytes.NewReader([]byte("not gzip data")))
	if err == nil {
		t.Error("Reader() expected error for invalid gzip data, got nil")
	}
}
