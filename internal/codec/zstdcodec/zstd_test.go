package zstdcodec

import (
	"bytes"
	"testing"

	"github.com/discochess/memo/internal/codec"
)

func TestCodec_Extension(t *testing.T) {
	if got := New().Extension(); got != "zst" {
		t.Errorf("Extension() = %q, want %q", got, "zst")
	}
}

func TestCodec_RoundTrip_Levels(t *testing.T) {
	original := bytes.Repeat([]byte("memoized result "), 2000)

	for _, c := range []*Codec{New(), NewLevel(1), NewLevel(19)} {
		compressed, err := codec.Compress(c, original)
		if err != nil {
			t.Fatalf("Compress() error = %v", err)
		}
		if len(compressed) >= len(original) {
			t.Errorf("compressed size %d not smaller than %d", len(compressed), len(original))
		}

		got, err := codec.Decompress(c, compressed)
		if err != nil {
			t.Fatalf("Decompress() error = %v", err)
		}
		if !bytes.Equal(got, original) {
			t.Error("Decompress(Compress()) does not match original")
		}
	}
}

func TestCodec_Decompress_Garbage(t *testing.T) {
	if _, err := codec.Decompress(New(), []byte("not zstd")); err == nil {
		t.Error("Decompress() error = nil, want error")
	}
}
