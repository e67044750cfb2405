package memory

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/eniz1806/UniStore/pkg/access"
)

func newTestBackend(t *testing.T, root string) access.Accessor {
	t.Helper()
	acc, err := New(map[string]string{"root": root})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return acc
}

func writeAll(t *testing.T, acc access.Accessor, path string, data []byte) {
	t.Helper()
	ctx := context.Background()
	_, w, err := acc.Write(ctx, path, access.OpWrite{})
	if err != nil {
		t.Fatalf("Write %s: %v", path, err)
	}
	if _, err := w.Write(ctx, data); err != nil {
		t.Fatalf("write bytes: %v", err)
	}
	if err := w.Close(ctx); err != nil {
		t.Fatalf("close writer: %v", err)
	}
}

func TestWriteStatRead(t *testing.T) {
	ctx := context.Background()
	acc := newTestBackend(t, "/")
	data := []byte("hello world")
	writeAll(t, acc, "greeting.txt", data)

	rp, err := acc.Stat(ctx, "greeting.txt", access.OpStat{})
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if rp.Meta.Kind != access.KindFile {
		t.Error("expected FILE metadata")
	}
	if rp.Meta.ContentLength != int64(len(data)) {
		t.Errorf("content length %d, want %d", rp.Meta.ContentLength, len(data))
	}
	if rp.Meta.ETag == "" {
		t.Error("etag should be populated")
	}

	_, r, err := acc.Read(ctx, "greeting.txt", access.OpRead{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	defer r.Close()
	got, _ := io.ReadAll(r)
	if !bytes.Equal(got, data) {
		t.Errorf("read %q, want %q", got, data)
	}
}

func TestReadRange(t *testing.T) {
	ctx := context.Background()
	acc := newTestBackend(t, "/")
	writeAll(t, acc, "data.bin", []byte("0123456789"))

	_, r, err := acc.Read(ctx, "data.bin", access.OpRead{Range: access.NewRange(2, 3)})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got, _ := io.ReadAll(r)
	r.Close()
	if string(got) != "234" {
		t.Errorf("range read %q, want %q", got, "234")
	}
}

func TestReadRangePastEnd(t *testing.T) {
	// A range wholly outside the object is a successful empty result.
	ctx := context.Background()
	acc := newTestBackend(t, "/")
	writeAll(t, acc, "small.txt", []byte("abc"))

	rp, r, err := acc.Read(ctx, "small.txt", access.OpRead{Range: access.NewRange(100, 10)})
	if err != nil {
		t.Fatalf("Read past end should succeed, got %v", err)
	}
	got, _ := io.ReadAll(r)
	r.Close()
	if len(got) != 0 {
		t.Errorf("expected empty body, got %q", got)
	}
	if rp.Size == nil || *rp.Size != 0 {
		t.Error("resolved size should be zero")
	}
}

func TestStatRootIsDir(t *testing.T) {
	ctx := context.Background()
	acc := newTestBackend(t, "/")
	rp, err := acc.Stat(ctx, "/", access.OpStat{})
	if err != nil {
		t.Fatalf("Stat /: %v", err)
	}
	if rp.Meta.Kind != access.KindDir {
		t.Error("stat of root must return DIR")
	}

	// A missing path with a trailing separator is an implicit empty DIR.
	rp, err = acc.Stat(ctx, "never/created/", access.OpStat{})
	if err != nil {
		t.Fatalf("Stat of missing dir path: %v", err)
	}
	if rp.Meta.Kind != access.KindDir {
		t.Error("trailing-slash stat must return DIR")
	}
}

func TestDeleteMissingIsSuccess(t *testing.T) {
	ctx := context.Background()
	acc := newTestBackend(t, "/")
	if _, err := acc.Delete(ctx, "nope.txt", access.OpDelete{}); err != nil {
		t.Fatalf("delete of a missing object must succeed, got %v", err)
	}
}

func TestStatMissingIsNotFound(t *testing.T) {
	ctx := context.Background()
	acc := newTestBackend(t, "/")
	_, err := acc.Stat(ctx, "nope.txt", access.OpStat{})
	if !access.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCopy(t *testing.T) {
	ctx := context.Background()
	acc := newTestBackend(t, "/")
	writeAll(t, acc, "src.txt", []byte("payload"))

	if _, err := acc.Copy(ctx, "src.txt", "dst.txt", access.OpCopy{}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	_, r, err := acc.Read(ctx, "dst.txt", access.OpRead{})
	if err != nil {
		t.Fatalf("Read dst: %v", err)
	}
	got, _ := io.ReadAll(r)
	r.Close()
	if string(got) != "payload" {
		t.Errorf("copied %q", got)
	}

	if _, err := acc.Copy(ctx, "missing.txt", "x.txt", access.OpCopy{}); !access.IsNotFound(err) {
		t.Errorf("copy from missing source should be NotFound, got %v", err)
	}
}

func TestZeroByteWrite(t *testing.T) {
	ctx := context.Background()
	acc := newTestBackend(t, "/")
	writeAll(t, acc, "empty.txt", nil)

	rp, err := acc.Stat(ctx, "empty.txt", access.OpStat{})
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if rp.Meta.ContentLength != 0 {
		t.Errorf("empty object should have length 0, got %d", rp.Meta.ContentLength)
	}
}

func collect(t *testing.T, pager access.Pager) []string {
	t.Helper()
	var paths []string
	for {
		batch, err := pager.Next(context.Background())
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if len(batch) == 0 {
			return paths
		}
		for _, e := range batch {
			paths = append(paths, e.Path)
		}
	}
}

func TestListNonRecursive(t *testing.T) {
	ctx := context.Background()
	acc := newTestBackend(t, "/")
	writeAll(t, acc, "a.txt", []byte("1"))
	writeAll(t, acc, "dir/b.txt", []byte("2"))
	writeAll(t, acc, "dir/sub/c.txt", []byte("3"))

	_, pager, err := acc.List(ctx, "/", access.OpList{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := collect(t, pager)
	want := []string{"a.txt", "dir/"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: %q, want %q", i, got[i], want[i])
		}
	}
}

func TestListRecursive(t *testing.T) {
	ctx := context.Background()
	acc := newTestBackend(t, "/")
	writeAll(t, acc, "a.txt", []byte("1"))
	writeAll(t, acc, "dir/b.txt", []byte("2"))
	writeAll(t, acc, "dir/sub/c.txt", []byte("3"))

	_, pager, err := acc.List(ctx, "/", access.OpList{Recursive: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := collect(t, pager)
	if len(got) != 3 {
		t.Fatalf("recursive list should flatten the subtree, got %v", got)
	}
}

func TestListPaginationAndStartAfter(t *testing.T) {
	ctx := context.Background()
	acc := newTestBackend(t, "/")
	names := []string{"k01", "k02", "k03", "k04", "k05"}
	for _, n := range names {
		writeAll(t, acc, n, []byte(n))
	}

	// Limit shapes pages, never the total.
	_, pager, err := acc.List(ctx, "/", access.OpList{Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := collect(t, pager)
	if len(got) != len(names) {
		t.Fatalf("pages should concatenate to the full set, got %v", got)
	}
	seen := make(map[string]bool)
	for _, p := range got {
		if seen[p] {
			t.Errorf("entry %q yielded twice", p)
		}
		seen[p] = true
	}

	// start_after excludes everything <= the cursor, across pages.
	_, pager, err = acc.List(ctx, "/", access.OpList{Limit: 2, StartAfter: "k03"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got = collect(t, pager)
	if len(got) != 2 || got[0] != "k04" || got[1] != "k05" {
		t.Errorf("start_after=k03 should yield k04,k05, got %v", got)
	}
}

func TestListEmptyDir(t *testing.T) {
	ctx := context.Background()
	acc := newTestBackend(t, "/")
	if _, err := acc.CreateDir(ctx, "fresh/", access.OpCreateDir{}); err != nil {
		t.Fatalf("CreateDir: %v", err)
	}
	_, pager, err := acc.List(ctx, "fresh/", access.OpList{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := collect(t, pager); len(got) != 0 {
		t.Errorf("just-created empty dir should list as exhausted, got %v", got)
	}
}

func TestCreateDirIdempotent(t *testing.T) {
	ctx := context.Background()
	acc := newTestBackend(t, "/")
	for i := 0; i < 2; i++ {
		if _, err := acc.CreateDir(ctx, "d/", access.OpCreateDir{}); err != nil {
			t.Fatalf("CreateDir attempt %d: %v", i, err)
		}
	}
}

func TestRootScoping(t *testing.T) {
	// Two backends over different roots of the same adapter shape must not
	// see each other's entries; here each New call is isolated anyway, so
	// verify root prefixing via listing paths.
	ctx := context.Background()
	acc := newTestBackend(t, "/tenant/a")
	writeAll(t, acc, "doc.txt", []byte("x"))

	_, pager, err := acc.List(ctx, "/", access.OpList{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := collect(t, pager)
	if len(got) != 1 || got[0] != "doc.txt" {
		t.Errorf("entries must be relative to the root, got %v", got)
	}
	if acc.Info().Root() != "/tenant/a" {
		t.Errorf("root should be normalized, got %q", acc.Info().Root())
	}
}

func TestBatchUnsupported(t *testing.T) {
	ctx := context.Background()
	acc := newTestBackend(t, "/")
	_, err := acc.Batch(ctx, access.OpBatch{Operations: []access.BatchOperation{{Kind: access.BatchDelete, Path: "a"}}})
	if !access.IsUnsupported(err) {
		t.Errorf("expected Unsupported, got %v", err)
	}
}
