package diskstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/discochess/memo/internal/store"
)

func TestStore_ReadWrite(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	data := []byte("object data")
	if err := s.Write(ctx, "entries/abc.json", data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "entries", "abc.json")); err != nil {
		t.Errorf("object file missing: %v", err)
	}

	got, err := s.Read(ctx, "entries/abc.json")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Read() = %q, want %q", got, data)
	}
}

func TestStore_ReadNotFound(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = s.Read(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListAndDelete(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	for _, name := range []string{"p/b", "p/a", "q/c"} {
		if err := s.Write(ctx, name, []byte(name)); err != nil {
			t.Fatalf("Write(%q) error = %v", name, err)
		}
	}

	names, err := s.List(ctx, "p/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !slices.Equal(names, []string{"p/a", "p/b"}) {
		t.Errorf("List() = %q, want [p/a p/b]", names)
	}

	if err := s.Delete(ctx, "p/a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "p/a"); err != nil {
		t.Errorf("Delete() of missing object error = %v", err)
	}
	names, err = s.List(ctx, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !slices.Equal(names, []string{"p/b", "q/c"}) {
		t.Errorf("List() = %q, want [p/b q/c]", names)
	}
}

func TestStore_InvalidName(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, name := range []string{"", "../escape", "/abs"} {
		if err := s.Write(context.Background(), name, nil); err == nil {
			t.Errorf("Write(%q) should fail", name)
		}
	}
}

func TestStore_CanceledContext(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Read(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path")
	if err == nil {
		t.Error("New() with invalid path should return error")
	}
}

func TestNew_NotDirectory(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "test")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()

	_, err = New(f.Name())
	if err == nil {
		t.Error("New() with file (not directory) should return error")
	}
}
