package micro

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"

	"github.com/discochess/memo"
	"github.com/discochess/memo/archive/blobarchive"
	"github.com/discochess/memo/archive/dirarchive"
	"github.com/discochess/memo/benchmark/trace"
	"github.com/discochess/memo/internal/codec"
	"github.com/discochess/memo/internal/codec/gzipcodec"
	"github.com/discochess/memo/internal/codec/zstdcodec"
	"github.com/discochess/memo/internal/store/diskstore"
	"github.com/discochess/memo/keymap"
)

type point struct {
	X, Y  float64
	Label string
}

func square(_ context.Context, n int) (int, error) { return n * n, nil }

// BenchmarkCall_Hit measures a call answered from the table.
func BenchmarkCall_Hit(b *testing.B) {
	cache, err := memo.New(square, memo.WithKeyCodec(keymap.Int()))
	if err != nil {
		b.Fatalf("creating cache: %v", err)
	}
	ctx := context.Background()
	cache.Call(ctx, 7)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := cache.Call(ctx, 7); err != nil {
			b.Fatalf("call error: %v", err)
		}
	}
}

// BenchmarkCall_Hit_Parallel measures table hits under contention.
func BenchmarkCall_Hit_Parallel(b *testing.B) {
	cache, err := memo.New(square, memo.WithKeyCodec(keymap.Int()))
	if err != nil {
		b.Fatalf("creating cache: %v", err)
	}
	ctx := context.Background()
	for n := range 64 {
		cache.Call(ctx, n)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		n := 0
		for pb.Next() {
			cache.Call(ctx, n%64)
			n++
		}
	})
}

// BenchmarkCall_Evicting measures calls that overflow a small table, per policy.
func BenchmarkCall_Evicting(b *testing.B) {
	for _, policy := range []memo.Policy{memo.LFU, memo.LRU, memo.MRU, memo.RR} {
		b.Run(policy.String(), func(b *testing.B) {
			cache, err := memo.New(square,
				memo.WithKeyCodec(keymap.Int()),
				memo.WithMaxSize(128),
				memo.WithPolicy(policy),
			)
			if err != nil {
				b.Fatalf("creating cache: %v", err)
			}
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				cache.Call(ctx, i%1024)
			}
		})
	}
}

// BenchmarkCall_DirArchiveLoad measures calls answered from a directory
// archive after the table was cleared.
func BenchmarkCall_DirArchiveLoad(b *testing.B) {
	a, err := dirarchive.New[int](b.TempDir())
	if err != nil {
		b.Fatalf("creating archive: %v", err)
	}
	cache, err := memo.New(square,
		memo.WithKeyCodec(keymap.Int()),
		memo.WithArchive[int](a),
	)
	if err != nil {
		b.Fatalf("creating cache: %v", err)
	}
	ctx := context.Background()
	for n := range 100 {
		cache.Call(ctx, n)
	}
	cache.Dump()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Clear(true)
		if _, err := cache.Call(ctx, i%100); err != nil {
			b.Fatalf("call error: %v", err)
		}
	}
}

// BenchmarkKeymap compares the key codecs on a struct argument.
func BenchmarkKeymap(b *testing.B) {
	arg := point{X: 1.23456789, Y: -9.87654321, Label: "origin"}
	codecs := map[string]keymap.Codec[point]{
		"string":    keymap.String[point](),
		"token":     keymap.Token[point](),
		"hash":      keymap.Hash[point](),
		"tolerance": keymap.Token[point](keymap.WithTolerance(3)),
	}

	for name, c := range codecs {
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := c.Encode(arg); err != nil {
					b.Fatalf("encode error: %v", err)
				}
			}
		})
	}
}

// BenchmarkBlobArchive_Get measures reads through a disk-backed blob archive,
// with and without the read cache.
func BenchmarkBlobArchive_Get(b *testing.B) {
	for _, readCache := range []int{0, 256} {
		b.Run(fmt.Sprintf("cache=%d", readCache), func(b *testing.B) {
			st, err := diskstore.New(b.TempDir())
			if err != nil {
				b.Fatalf("creating store: %v", err)
			}
			a, err := blobarchive.New[string](st, blobarchive.WithReadCache(readCache))
			if err != nil {
				b.Fatalf("creating archive: %v", err)
			}
			defer a.Close()

			for n := range 100 {
				k := strconv.Itoa(n)
				if err := a.Set(k, "value-"+k); err != nil {
					b.Fatalf("set error: %v", err)
				}
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := a.Get(strconv.Itoa(i % 100)); err != nil {
					b.Fatalf("get error: %v", err)
				}
			}
		})
	}
}

// BenchmarkCompress measures the archive compression codecs.
func BenchmarkCompress(b *testing.B) {
	data := make([]byte, 0, 64*1024)
	for n := 0; len(data) < cap(data)-32; n++ {
		data = strconv.AppendInt(data, int64(n*n), 10)
		data = append(data, ',')
	}

	codecs := map[string]codec.Codec{
		"gzip": gzipcodec.New(),
		"zstd": zstdcodec.New(),
	}
	for name, c := range codecs {
		b.Run(name, func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if _, err := codec.Compress(c, data); err != nil {
					b.Fatalf("compress error: %v", err)
				}
			}
		})
	}
}

// BenchmarkReplay_Trace replays a recorded trace through an LFU cache.
// Requires TRACE_FILE pointing to a trace file.
func BenchmarkReplay_Trace(b *testing.B) {
	path := os.Getenv("TRACE_FILE")
	if path == "" {
		b.Skip("TRACE_FILE not set; skipping benchmark")
	}
	sessions, err := trace.Open(path)
	if err != nil {
		b.Fatalf("reading trace: %v", err)
	}

	identity := func(_ context.Context, k string) (string, error) { return k, nil }
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache, err := memo.New(identity, memo.WithKeyCodec(keymap.Identity()), memo.WithMaxSize(1000))
		if err != nil {
			b.Fatalf("creating cache: %v", err)
		}
		for _, session := range sessions {
			for _, k := range session {
				cache.Call(ctx, k)
			}
		}
	}
}
