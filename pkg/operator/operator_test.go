package operator

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/eniz1806/UniStore/pkg/access"
	"github.com/eniz1806/UniStore/pkg/services/memory"
)

// fakeAccessor counts calls so tests can assert that gated operations never
// reach the backend.
type fakeAccessor struct {
	info        *access.AccessorInfo
	calls       int
	listEntries []access.Entry
	batchSizes  []int
}

func newFakeAccessor(cap access.Capability) *fakeAccessor {
	return &fakeAccessor{info: access.NewAccessorInfo(access.SchemeMemory, "/", "fake", cap)}
}

func (f *fakeAccessor) Info() *access.AccessorInfo { return f.info }

func (f *fakeAccessor) CreateDir(context.Context, string, access.OpCreateDir) (access.RpCreateDir, error) {
	f.calls++
	return access.RpCreateDir{}, nil
}

func (f *fakeAccessor) Read(context.Context, string, access.OpRead) (access.RpRead, io.ReadCloser, error) {
	f.calls++
	return access.RpRead{}, io.NopCloser(strings.NewReader("data")), nil
}

func (f *fakeAccessor) Write(context.Context, string, access.OpWrite) (access.RpWrite, access.Writer, error) {
	f.calls++
	return access.RpWrite{}, access.NewOneShotWriter(nopUpload{}), nil
}

func (f *fakeAccessor) Stat(context.Context, string, access.OpStat) (access.RpStat, error) {
	f.calls++
	return access.RpStat{Meta: access.NewMetadata(access.KindFile)}, nil
}

func (f *fakeAccessor) Delete(context.Context, string, access.OpDelete) (access.RpDelete, error) {
	f.calls++
	return access.RpDelete{}, nil
}

func (f *fakeAccessor) Copy(context.Context, string, string, access.OpCopy) (access.RpCopy, error) {
	f.calls++
	return access.RpCopy{}, nil
}

func (f *fakeAccessor) List(context.Context, string, access.OpList) (access.RpList, access.Pager, error) {
	f.calls++
	return access.RpList{}, access.NewEntryPager(f.listEntries, 0), nil
}

func (f *fakeAccessor) Batch(_ context.Context, args access.OpBatch) (access.RpBatch, error) {
	f.calls++
	f.batchSizes = append(f.batchSizes, len(args.Operations))
	results := make([]access.BatchResult, len(args.Operations))
	for i, op := range args.Operations {
		results[i] = access.BatchResult{Path: op.Path}
	}
	return access.RpBatch{Results: results}, nil
}

func (f *fakeAccessor) Presign(context.Context, string, access.OpPresign) (access.RpPresign, error) {
	f.calls++
	return access.RpPresign{}, nil
}

type nopUpload struct{}

func (nopUpload) UploadAll(context.Context, []byte) error { return nil }

func TestGatingStaysLocal(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		cap  access.Capability
		call func(o *Operator) error
	}{
		{
			name: "read without capability",
			call: func(o *Operator) error {
				_, _, err := o.Read(ctx, "a", access.OpRead{})
				return err
			},
		},
		{
			name: "ranged read without range capability",
			cap:  access.Capability{Read: true},
			call: func(o *Operator) error {
				_, _, err := o.Read(ctx, "a", access.OpRead{Range: access.RangeFrom(1)})
				return err
			},
		},
		{
			name: "conditional stat without capability",
			cap:  access.Capability{Stat: true},
			call: func(o *Operator) error {
				_, err := o.Stat(ctx, "a", access.OpStat{IfMatch: "etag"})
				return err
			},
		},
		{
			name: "recursive list without capability",
			cap:  access.Capability{List: true},
			call: func(o *Operator) error {
				_, err := o.List(ctx, "a/", access.OpList{Recursive: true})
				return err
			},
		},
		{
			name: "batch without capability",
			call: func(o *Operator) error {
				_, err := o.Batch(ctx, access.OpBatch{})
				return err
			},
		},
		{
			name: "presigned write without capability",
			cap:  access.Capability{Presign: true, PresignRead: true},
			call: func(o *Operator) error {
				_, err := o.Presign(ctx, "a", access.OpPresign{Kind: access.PresignWrite})
				return err
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := newFakeAccessor(tc.cap)
			if err := tc.call(New(fake)); !access.IsUnsupported(err) {
				t.Fatalf("err = %v, want Unsupported", err)
			}
			if fake.calls != 0 {
				t.Fatalf("backend was reached %d times", fake.calls)
			}
		})
	}
}

func TestBatchOverDeclaredLimitStaysLocal(t *testing.T) {
	fake := newFakeAccessor(access.Capability{Batch: true, BatchMaxOperations: 2})
	o := New(fake)
	_, err := o.Batch(context.Background(), access.OpBatch{Operations: []access.BatchOperation{
		{Kind: access.BatchDelete, Path: "a"},
		{Kind: access.BatchDelete, Path: "b"},
		{Kind: access.BatchDelete, Path: "c"},
	}})
	if !access.IsUnsupported(err) {
		t.Fatalf("err = %v, want Unsupported", err)
	}
	if fake.calls != 0 {
		t.Fatalf("backend was reached %d times", fake.calls)
	}
}

func newMemoryOperator(t *testing.T) *Operator {
	t.Helper()
	inner, err := memory.New(nil)
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	return New(inner)
}

func TestReadWriteHelpers(t *testing.T) {
	o := newMemoryOperator(t)
	ctx := context.Background()

	if err := o.WriteAll(ctx, "docs/a.txt", []byte("hello"), access.OpWrite{}); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	data, err := o.ReadAll(ctx, "docs/a.txt")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("data = %q", data)
	}

	ok, err := o.Exists(ctx, "docs/a.txt")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v", ok, err)
	}
	ok, err = o.Exists(ctx, "docs/other.txt")
	if err != nil || ok {
		t.Fatalf("Exists on missing = %v, %v", ok, err)
	}
}

func TestRemoveAll(t *testing.T) {
	o := newMemoryOperator(t)
	ctx := context.Background()
	for _, p := range []string{"keep.txt", "dir/a.txt", "dir/sub/b.txt"} {
		if err := o.WriteAll(ctx, p, []byte("x"), access.OpWrite{}); err != nil {
			t.Fatalf("WriteAll(%q): %v", p, err)
		}
	}

	if err := o.RemoveAll(ctx, "dir/"); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	entries, err := o.ListAll(ctx, "/", access.OpList{Recursive: true})
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "keep.txt" {
		t.Fatalf("entries = %+v, want just keep.txt", entries)
	}
}

func TestRemoveAllUsesBatchInChunks(t *testing.T) {
	fake := newFakeAccessor(access.Capability{
		Delete: true, List: true, ListWithRecursive: true,
		Batch: true, BatchMaxOperations: 2,
	})
	fake.listEntries = []access.Entry{
		{Path: "dir/a.txt", Meta: access.NewMetadata(access.KindFile)},
		{Path: "dir/b.txt", Meta: access.NewMetadata(access.KindFile)},
		{Path: "dir/c.txt", Meta: access.NewMetadata(access.KindFile)},
	}

	if err := New(fake).RemoveAll(context.Background(), "dir/"); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	// Three entries plus the directory itself, chunked at the declared limit.
	want := []int{2, 2}
	if len(fake.batchSizes) != len(want) {
		t.Fatalf("batch calls = %v, want %v", fake.batchSizes, want)
	}
	for i, n := range want {
		if fake.batchSizes[i] != n {
			t.Fatalf("batch calls = %v, want %v", fake.batchSizes, want)
		}
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.New(access.SchemeMemory, nil); access.ErrorKind(err) != access.KindConfigInvalid {
		t.Fatalf("err = %v, want ConfigInvalid", err)
	}

	reg.Register(access.SchemeMemory, memory.New)
	o, err := reg.New(access.SchemeMemory, map[string]string{"root": "/data"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if o.Info().Scheme() != access.SchemeMemory {
		t.Fatalf("scheme = %v", o.Info().Scheme())
	}
	if o.Info().Root() != "/data" {
		t.Fatalf("root = %q", o.Info().Root())
	}
}

func TestProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yml")
	content := `
cache:
  scheme: memory
  root: /cache
archive:
  scheme: gcs
  bucket: archive-bucket
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}

	profiles, err := LoadProfiles(path)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("profiles = %d, want 2", len(profiles))
	}
	if profiles["cache"].Scheme != "memory" || profiles["cache"].Options["root"] != "/cache" {
		t.Fatalf("cache profile = %+v", profiles["cache"])
	}
	if profiles["archive"].Options["bucket"] != "archive-bucket" {
		t.Fatalf("archive profile = %+v", profiles["archive"])
	}

	reg := NewRegistry()
	reg.Register(access.SchemeMemory, memory.New)
	o, err := reg.NewFromProfile(profiles["cache"])
	if err != nil {
		t.Fatalf("NewFromProfile: %v", err)
	}
	if o.Info().Root() != "/cache" {
		t.Fatalf("root = %q", o.Info().Root())
	}
}

func TestProfileWithoutSchemeIsConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yml")
	if err := os.WriteFile(path, []byte("broken:\n  root: /x\n"), 0644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}
	if _, err := LoadProfiles(path); access.ErrorKind(err) != access.KindConfigInvalid {
		t.Fatalf("err = %v, want ConfigInvalid", err)
	}
}
