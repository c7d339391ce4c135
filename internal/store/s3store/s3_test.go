package s3store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/discochess/memo/internal/store"
)

// fakeS3 keeps objects in a map and pages listings two keys at a time.
type fakeS3 struct {
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	start := 0
	if tok := aws.ToString(in.ContinuationToken); tok != "" {
		start = slices.Index(keys, tok)
	}
	end := min(start+2, len(keys))

	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(end < len(keys))}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

func newTestStore(t *testing.T, fake *fakeS3, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClient(fake)}, opts...)
	s, err := New(context.Background(), "bucket", opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestWithPrefix(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"prefix", "prefix/"},
		{"prefix/", "prefix/"},
		{"a/b/c", "a/b/c/"},
		{"a/b/c/", "a/b/c/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s := &Store{}
			opt := WithPrefix(tt.input)
			if err := opt(s); err != nil {
				t.Fatalf("WithPrefix() error = %v", err)
			}
			if s.prefix != tt.want {
				t.Errorf("prefix = %q, want %q", s.prefix, tt.want)
			}
		})
	}
}

func TestStore_ReadWrite(t *testing.T) {
	fake := newFakeS3()
	s := newTestStore(t, fake, WithPrefix("memo/v1"))
	ctx := context.Background()

	if err := s.Write(ctx, "k.json", []byte(`"v"`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, ok := fake.objects["memo/v1/k.json"]; !ok {
		t.Errorf("objects = %v, want key %q", fake.objects, "memo/v1/k.json")
	}

	got, err := s.Read(ctx, "k.json")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != `"v"` {
		t.Errorf("Read() = %q, want %q", got, `"v"`)
	}
}

func TestStore_ReadNotFound(t *testing.T) {
	s := newTestStore(t, newFakeS3())

	_, err := s.Read(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListPages(t *testing.T) {
	fake := newFakeS3()
	s := newTestStore(t, fake, WithPrefix("p"))
	ctx := context.Background()

	for _, name := range []string{"e/1", "e/2", "e/3", "e/4", "e/5", "other"} {
		if err := s.Write(ctx, name, nil); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	fake.objects["unrelated/e/9"] = nil

	names, err := s.List(ctx, "e/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := []string{"e/1", "e/2", "e/3", "e/4", "e/5"}; !slices.Equal(names, want) {
		t.Errorf("List() = %q, want %q", names, want)
	}

	if err := s.Delete(ctx, "e/1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := fake.objects["p/e/1"]; ok {
		t.Error("Delete() left the object behind")
	}
}

func TestStore_Close(t *testing.T) {
	s := &Store{}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestWithEndpoint_DoesNotPanic(t *testing.T) {
	s := &Store{}
	opt := WithEndpoint("http://localhost:9000")
	_ = opt(s)
}
