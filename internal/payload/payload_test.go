package payload

import (
	"errors"
	"testing"

	"github.com/discochess/memo/archive/serial"
)

func TestFormat_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*Format) error
		wantExt string
	}{
		{"default", func(*Format) error { return nil }, "json"},
		{"gzip", func(f *Format) error { return f.SetGzip(6) }, "json.gz"},
		{"gzip off", func(f *Format) error { return f.SetGzip(0) }, "json"},
		{"zstd", func(f *Format) error { f.SetZstd(3); return nil }, "json.zst"},
		{"gob", func(f *Format) error { return f.SetSerializer(serial.Gob{}) }, "gob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Default()
			if err := tt.setup(&f); err != nil {
				t.Fatalf("setup error = %v", err)
			}
			if got := f.Extension(); got != tt.wantExt {
				t.Errorf("Extension() = %q, want %q", got, tt.wantExt)
			}

			data, err := f.Encode(map[string]int{"a": 1})
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			var got map[string]int
			if err := f.Decode(data, &got); err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got["a"] != 1 {
				t.Errorf("Decode() = %v, want map[a:1]", got)
			}
		})
	}
}

func TestFormat_DecodeError(t *testing.T) {
	f := Default()
	if err := f.SetGzip(1); err != nil {
		t.Fatalf("SetGzip() error = %v", err)
	}

	var v int
	err := f.Decode([]byte("plain text"), &v)
	if !IsDecodeError(err) {
		t.Errorf("Decode() error = %v, want DecodeError", err)
	}
	if IsDecodeError(errors.New("other")) {
		t.Error("IsDecodeError() = true for unrelated error")
	}
}

func TestFormat_InvalidSettings(t *testing.T) {
	f := Default()
	if err := f.SetSerializer(nil); err == nil {
		t.Error("SetSerializer(nil) error = nil, want error")
	}
	if err := f.SetGzip(10); err == nil {
		t.Error("SetGzip(10) error = nil, want error")
	}
}
