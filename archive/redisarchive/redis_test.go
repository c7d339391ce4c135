package redisarchive

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/discochess/memo/archive"
	"github.com/discochess/memo/archive/serial"
)

// fakeRedis implements the commands the archive uses on top of a map.
// Scans return one key per page to exercise cursor handling.
type fakeRedis struct {
	redis.Cmdable

	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Scan(_ context.Context, cursor uint64, match string, _ int64) *redis.ScanCmd {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := strings.ReplaceAll(strings.TrimSuffix(match, "*"), `\`, "")
	var keys []string
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	if int(cursor) >= len(keys) {
		return redis.NewScanCmdResult(nil, 0, nil)
	}
	next := cursor + 1
	if int(next) >= len(keys) {
		next = 0
	}
	return redis.NewScanCmdResult(keys[cursor:cursor+1], next, nil)
}

func newTestArchive[V any](t *testing.T, fake *fakeRedis, opts ...Option) *Archive[V] {
	t.Helper()
	a, err := New[V](fake, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestArchive_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "json"},
		{name: "gob", opts: []Option{WithSerializer(serial.Gob{})}},
		{name: "gzip", opts: []Option{WithCompression(5)}},
		{name: "zstd", opts: []Option{WithZstd(3)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeRedis()
			a := newTestArchive[[]string](t, fake, tt.opts...)

			if err := a.Set("k", []string{"x", "y"}); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if _, ok := fake.data["memo:k"]; !ok {
				t.Errorf("redis keys = %v, want memo:k", fake.data)
			}
			got, err := a.Get("k")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !slices.Equal(got, []string{"x", "y"}) {
				t.Errorf("Get() = %v, want [x y]", got)
			}
		})
	}
}

func TestArchive_Missing(t *testing.T) {
	a := newTestArchive[int](t, newFakeRedis())

	_, err := a.Get("nope")
	if !errors.Is(err, archive.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if kind := archive.FaultKind(err); kind != archive.KindAbsent {
		t.Errorf("FaultKind() = %v, want %v", kind, archive.KindAbsent)
	}
}

func TestArchive_Corrupt(t *testing.T) {
	fake := newFakeRedis()
	fake.data["memo:k"] = "{"
	a := newTestArchive[int](t, fake)

	_, err := a.Get("k")
	if kind := archive.FaultKind(err); kind != archive.KindCorrupt {
		t.Errorf("FaultKind() = %v, want %v", kind, archive.KindCorrupt)
	}
}

func TestArchive_PrefixIsolation(t *testing.T) {
	fake := newFakeRedis()
	fake.data["other:a"] = "1"
	fake.data["memo*:x"] = "1"
	a := newTestArchive[int](t, fake, WithPrefix("memo:"))

	for _, key := range []string{"c", "a", "b"} {
		if err := a.Set(key, 1); err != nil {
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
	if got := a.Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}

	if err := a.Delete("a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if a.Contains("a") {
		t.Error("Contains() = true after Delete")
	}

	if err := a.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if got := a.Len(); got != 0 {
		t.Errorf("Len() after Clear = %d, want 0", got)
	}
	if _, ok := fake.data["other:a"]; !ok {
		t.Error("Clear() removed a key outside the prefix")
	}
	if _, ok := fake.data["memo*:x"]; !ok {
		t.Error("Clear() removed a key outside the prefix")
	}
}

func TestArchive_Copy(t *testing.T) {
	fake := newFakeRedis()
	a := newTestArchive[int](t, fake, WithPrefix("fib:"))
	if err := a.Set("10", 55); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	cp, err := a.Copy("fib-backup:")
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if cp.Name() != "fib-backup" {
		t.Errorf("Name() = %q, want %q", cp.Name(), "fib-backup")
	}
	if got, err := cp.Get("10"); err != nil || got != 55 {
		t.Errorf("copy Get() = %d, %v, want 55", got, err)
	}
	if err := cp.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if !a.Contains("10") {
		t.Error("clearing the copy removed the source entry")
	}
}

func TestArchive_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	a, err := New[int](client, WithCloser(client), WithTimeout(500*time.Millisecond))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer a.Close()

	_, err = a.Get("k")
	if !errors.Is(err, archive.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if kind := archive.FaultKind(err); kind != archive.KindIO {
		t.Errorf("FaultKind() = %v, want %v", kind, archive.KindIO)
	}
	if err := a.Set("k", 1); err == nil {
		t.Error("Set() error = nil, want error")
	}
	if got := a.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}

func TestEscapeGlob(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"memo:", "memo:"},
		{"a*b", `a\*b`},
		{"q?[x]", `q\?\[x\]`},
		{`back\slash`, `back\\slash`},
	}

	for _, tt := range tests {
		if got := escapeGlob(tt.in); got != tt.want {
			t.Errorf("escapeGlob(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New[int](nil); err == nil {
		t.Error("New(nil) error = nil, want error")
	}
	if _, err := New[int](newFakeRedis(), WithTimeout(0)); err == nil {
		t.Error("New() error = nil, want error")
	}
}
