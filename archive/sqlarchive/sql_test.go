package sqlarchive

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"github.com/discochess/memo/archive"
	"github.com/discochess/memo/archive/serial"
)

type point struct {
	X, Y int
}

func newTestArchive[V any](t *testing.T, opts ...Option) *Archive[V] {
	t.Helper()
	a, err := New[V](filepath.Join(t.TempDir(), "memo.db"), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestArchive_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "json"},
		{name: "gob", opts: []Option{WithSerializer(serial.Gob{})}},
		{name: "yaml", opts: []Option{WithSerializer(serial.YAML{})}},
		{name: "gzip", opts: []Option{WithCompression(9)}},
		{name: "zstd", opts: []Option{WithZstd(1)}},
		{name: "custom table", opts: []Option{WithTable("fib_v2")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestArchive[point](t, tt.opts...)

			if err := a.Set("origin+1", point{1, 2}); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			got, err := a.Get("origin+1")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got != (point{1, 2}) {
				t.Errorf("Get() = %+v, want %+v", got, point{1, 2})
			}
		})
	}
}

func TestArchive_Overwrite(t *testing.T) {
	a := newTestArchive[int](t)

	for _, v := range []int{1, 2} {
		if err := a.Set("k", v); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	if got, _ := a.Get("k"); got != 2 {
		t.Errorf("Get() = %d, want 2", got)
	}
	if got := a.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestArchive_Missing(t *testing.T) {
	a := newTestArchive[int](t)

	_, err := a.Get("nope")
	if !errors.Is(err, archive.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if kind := archive.FaultKind(err); kind != archive.KindAbsent {
		t.Errorf("FaultKind() = %v, want %v", kind, archive.KindAbsent)
	}
}

func TestArchive_CorruptRow(t *testing.T) {
	a := newTestArchive[int](t)

	_, err := a.db.ExecContext(context.Background(),
		`INSERT INTO memo (key, value) VALUES (?, ?)`, "k", []byte("not json"))
	if err != nil {
		t.Fatalf("insert error = %v", err)
	}

	_, err = a.Get("k")
	if !errors.Is(err, archive.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if kind := archive.FaultKind(err); kind != archive.KindCorrupt {
		t.Errorf("FaultKind() = %v, want %v", kind, archive.KindCorrupt)
	}
	if !a.Contains("k") {
		t.Error("Contains() = false for existing row")
	}
}

func TestArchive_KeysDeleteClear(t *testing.T) {
	a := newTestArchive[string](t)

	for _, key := range []string{"b", "a", "c"} {
		if err := a.Set(key, key); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	keys, err := a.Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if !slices.Equal(keys, []string{"a", "b", "c"}) {
		t.Errorf("Keys() = %v, want [a b c]", keys)
	}

	if err := a.Delete("b"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if a.Contains("b") {
		t.Error("Contains() = true after Delete")
	}
	if err := a.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := a.Len(); got != 0 {
		t.Errorf("Len() after Clear = %d, want 0", got)
	}
}

func TestArchive_Copy(t *testing.T) {
	a := newTestArchive[int](t, WithTable("results"), WithCompression(2))
	if err := a.Set("k", 5); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	cp, err := a.Copy(filepath.Join(t.TempDir(), "backup.db"))
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	t.Cleanup(func() { cp.(*Archive[int]).Close() })

	if cp.Name() != "results" {
		t.Errorf("Name() = %q, want %q", cp.Name(), "results")
	}
	if got, err := cp.Get("k"); err != nil || got != 5 {
		t.Errorf("copy Get() = %d, %v, want 5", got, err)
	}
}

func TestArchive_SharedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.db")
	a, err := New[int](path, WithTable("a"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()
	b, err := New[int](path, WithTable("b"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer b.Close()

	if err := a.Set("k", 1); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if b.Contains("k") {
		t.Error("tables in the same file should be independent")
	}
}

func TestWithTable(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"memo", true},
		{"Memo_2", true},
		{"_x", true},
		{"", false},
		{"2memo", false},
		{"memo; DROP TABLE x", false},
		{"memo-v2", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			err := WithTable(tt.name)(&cfg)
			if (err == nil) != tt.valid {
				t.Errorf("WithTable(%q) error = %v, valid %v", tt.name, err, tt.valid)
			}
		})
	}
}
