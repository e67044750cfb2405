// Package fs provides a local-filesystem backend. All paths resolve under a
// configured root directory; copies commit through a temp file plus rename so
// the destination is never observed half-written.
package fs

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/eniz1806/UniStore/pkg/access"
)

// Backend implements the Accessor contract over a directory tree.
type Backend struct {
	info *access.AccessorInfo
	dir  string
}

// New builds a filesystem backend. Options: "root" (required) names the
// working directory; it is created when missing. Unknown keys are ignored.
func New(opts map[string]string) (access.Accessor, error) {
	root := opts["root"]
	if root == "" {
		return nil, access.NewError(access.KindConfigInvalid, "root directory is not configured").
			WithOperation("new").WithContext("field", "root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, access.NewError(access.KindConfigInvalid, "root directory is not resolvable").
			WithOperation("new").WithContext("field", "root").WithCause(err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, access.NewError(access.KindConfigInvalid, "root directory is not creatable").
			WithOperation("new").WithContext("field", "root").WithCause(err)
	}

	cap := access.Capability{
		Stat:               true,
		Read:               true,
		ReadWithRange:      true,
		Write:              true,
		WriteCanEmpty:      true,
		CreateDir:          true,
		Delete:             true,
		Copy:               true,
		List:               true,
		ListWithLimit:      true,
		ListWithStartAfter: true,
		ListWithRecursive:  true,
	}
	normalized := access.NormalizeRoot(filepath.ToSlash(abs))
	return &Backend{
		dir:  abs,
		info: access.NewAccessorInfo(access.SchemeFs, normalized, filepath.Base(abs), cap),
	}, nil
}

func (b *Backend) Info() *access.AccessorInfo { return b.info }

func (b *Backend) fullPath(path string) string {
	return filepath.Join(b.dir, filepath.FromSlash(strings.TrimSuffix(path, "/")))
}

func (b *Backend) CreateDir(_ context.Context, path string, _ access.OpCreateDir) (access.RpCreateDir, error) {
	if err := os.MkdirAll(b.fullPath(path), 0755); err != nil {
		return access.RpCreateDir{}, osError("create_dir", path, err)
	}
	return access.RpCreateDir{}, nil
}

func (b *Backend) Read(_ context.Context, path string, args access.OpRead) (access.RpRead, io.ReadCloser, error) {
	f, err := os.Open(b.fullPath(path))
	if err != nil {
		return access.RpRead{}, nil, osError("read", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return access.RpRead{}, nil, osError("read", path, err)
	}
	if st.IsDir() {
		f.Close()
		return access.RpRead{}, nil, access.NewError(access.KindNotFound, "path is a directory").
			WithOperation("read").WithContext("path", path)
	}

	off, length := args.Range.Apply(st.Size())
	if length == 0 && !args.Range.IsFull() {
		f.Close()
		zero := int64(0)
		return access.RpRead{Size: &zero}, io.NopCloser(strings.NewReader("")), nil
	}
	if off > 0 {
		if _, err := f.Seek(off, io.SeekStart); err != nil {
			f.Close()
			return access.RpRead{}, nil, osError("read", path, err)
		}
	}
	return access.RpRead{Size: &length}, &limitedFile{f: f, r: io.LimitReader(f, length)}, nil
}

type limitedFile struct {
	f *os.File
	r io.Reader
}

func (l *limitedFile) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedFile) Close() error               { return l.f.Close() }

func (b *Backend) Write(_ context.Context, path string, _ access.OpWrite) (access.RpWrite, access.Writer, error) {
	target := b.fullPath(path)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return access.RpWrite{}, nil, osError("write", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return access.RpWrite{}, nil, osError("write", path, err)
	}
	return access.RpWrite{}, &fileWriter{tmp: tmp, target: target, path: path}, nil
}

type fileWriter struct {
	tmp    *os.File
	target string
	path   string
	done   bool
}

func (w *fileWriter) Write(_ context.Context, b []byte) (int, error) {
	if w.done {
		return 0, access.NewError(access.KindUnexpected, "write after close").
			WithOperation("write").WithContext("path", w.path)
	}
	n, err := w.tmp.Write(b)
	if err != nil {
		return n, osError("write", w.path, err)
	}
	return n, nil
}

func (w *fileWriter) Close(_ context.Context) error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.tmp.Close(); err != nil {
		os.Remove(w.tmp.Name())
		return osError("write", w.path, err)
	}
	if err := os.Rename(w.tmp.Name(), w.target); err != nil {
		os.Remove(w.tmp.Name())
		return osError("write", w.path, err)
	}
	return nil
}

func (w *fileWriter) Abort(_ context.Context) error {
	if w.done {
		return nil
	}
	w.done = true
	w.tmp.Close()
	os.Remove(w.tmp.Name())
	return nil
}

func (b *Backend) Stat(_ context.Context, path string, _ access.OpStat) (access.RpStat, error) {
	if access.IsDirPath(path) {
		// Implicit directory semantics: the root and any trailing-slash path
		// stat as DIR whether or not an entry exists on disk.
		return access.RpStat{Meta: access.NewMetadata(access.KindDir)}, nil
	}
	st, err := os.Stat(b.fullPath(path))
	if err != nil {
		return access.RpStat{}, osError("stat", path, err)
	}
	return access.RpStat{Meta: metaFromFileInfo(st)}, nil
}

func (b *Backend) Delete(_ context.Context, path string, _ access.OpDelete) (access.RpDelete, error) {
	err := os.Remove(b.fullPath(path))
	if err != nil && !os.IsNotExist(err) {
		return access.RpDelete{}, osError("delete", path, err)
	}
	return access.RpDelete{}, nil
}

func (b *Backend) Copy(_ context.Context, from, to string, _ access.OpCopy) (access.RpCopy, error) {
	src, err := os.Open(b.fullPath(from))
	if err != nil {
		return access.RpCopy{}, osError("copy", from, err)
	}
	defer src.Close()
	st, err := src.Stat()
	if err != nil {
		return access.RpCopy{}, osError("copy", from, err)
	}
	if st.IsDir() {
		return access.RpCopy{}, access.NewError(access.KindNotFound, "copy source is a directory").
			WithOperation("copy").WithContext("from", from)
	}

	target := b.fullPath(to)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return access.RpCopy{}, osError("copy", to, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".copy-*")
	if err != nil {
		return access.RpCopy{}, osError("copy", to, err)
	}
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return access.RpCopy{}, osError("copy", to, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return access.RpCopy{}, osError("copy", to, err)
	}
	// Rename gives copy its atomicity: the destination is the old content or
	// the new one, never a mix.
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return access.RpCopy{}, osError("copy", to, err)
	}
	return access.RpCopy{}, nil
}

func (b *Backend) List(_ context.Context, path string, args access.OpList) (access.RpList, access.Pager, error) {
	full := b.fullPath(path)
	st, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return access.RpList{}, access.NewEntryPager(nil, args.Limit), nil
		}
		return access.RpList{}, nil, osError("list", path, err)
	}
	if !st.IsDir() {
		return access.RpList{}, nil, access.NewError(access.KindNotFound, "list target is not a directory").
			WithOperation("list").WithContext("path", path)
	}

	var entries []access.Entry
	if args.Recursive {
		err = filepath.WalkDir(full, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil || p == full {
				return walkErr
			}
			entries = append(entries, b.entryFor(p, d))
			return nil
		})
		if err != nil {
			return access.RpList{}, nil, osError("list", path, err)
		}
	} else {
		children, err := os.ReadDir(full)
		if err != nil {
			return access.RpList{}, nil, osError("list", path, err)
		}
		for _, d := range children {
			entries = append(entries, b.entryFor(filepath.Join(full, d.Name()), d))
		}
	}

	entries = access.ApplyListFilters(entries, args.StartAfter)
	return access.RpList{}, access.NewEntryPager(entries, args.Limit), nil
}

func (b *Backend) entryFor(osPath string, d fs.DirEntry) access.Entry {
	rel, err := filepath.Rel(b.dir, osPath)
	if err != nil {
		rel = d.Name()
	}
	p := filepath.ToSlash(rel)
	meta := access.NewMetadata(access.KindFile)
	if d.IsDir() {
		p += "/"
		meta = access.NewMetadata(access.KindDir)
	} else if info, err := d.Info(); err == nil {
		meta.ContentLength = info.Size()
		meta.LastModified = info.ModTime()
	}
	return access.Entry{Path: p, Meta: meta}
}

func (b *Backend) Batch(_ context.Context, _ access.OpBatch) (access.RpBatch, error) {
	return access.RpBatch{}, access.NewError(access.KindUnsupported, "fs does not support batch").
		WithOperation("batch")
}

func (b *Backend) Presign(_ context.Context, path string, _ access.OpPresign) (access.RpPresign, error) {
	return access.RpPresign{}, access.NewError(access.KindUnsupported, "fs does not support presign").
		WithOperation("presign").WithContext("path", path)
}

func metaFromFileInfo(st os.FileInfo) access.Metadata {
	if st.IsDir() {
		meta := access.NewMetadata(access.KindDir)
		meta.LastModified = st.ModTime()
		return meta
	}
	meta := access.NewMetadata(access.KindFile)
	meta.ContentLength = st.Size()
	meta.LastModified = st.ModTime()
	return meta
}

func osError(op, path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return access.NewError(access.KindNotFound, "no such file or directory").
			WithOperation(op).WithContext("path", path).WithCause(err)
	case os.IsPermission(err):
		return access.NewError(access.KindPermissionDenied, "permission denied").
			WithOperation(op).WithContext("path", path).WithCause(err)
	default:
		return access.NewError(access.KindUnexpected, fmt.Sprintf("%s failed", op)).
			WithOperation(op).WithContext("path", path).WithCause(err)
	}
}
