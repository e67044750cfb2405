// Package kv turns a minimal key-value store contract into a full access
// backend. Flat stores (in-memory maps, bbolt buckets, Redis databases, NATS
// object stores) implement Adapter; Backend supplies the path semantics,
// range reads, implicit directories and listing on top.
package kv

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/eniz1806/UniStore/pkg/access"
)

// Adapter is the contract a key-value store implements to become a backend.
// Keys are flat strings; hierarchy is a Backend concern. Delete of a missing
// key must succeed.
type Adapter interface {
	Scheme() access.Scheme
	Name() string
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Scan(ctx context.Context, prefix string) (keys []string, err error)
}

// Backend adapts an Adapter to the Accessor contract.
type Backend struct {
	adapter Adapter
	info    *access.AccessorInfo
	root    string
}

// New builds a Backend over adapter with the given working root.
func New(adapter Adapter, root string) *Backend {
	normalized := access.NormalizeRoot(root)
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
	return &Backend{
		adapter: adapter,
		root:    normalized,
		info:    access.NewAccessorInfo(adapter.Scheme(), normalized, adapter.Name(), cap),
	}
}

func (b *Backend) Info() *access.AccessorInfo { return b.info }

func (b *Backend) key(path string) string {
	return access.BuildAbsPath(b.root, path)
}

func (b *Backend) CreateDir(ctx context.Context, path string, _ access.OpCreateDir) (access.RpCreateDir, error) {
	key := b.key(path)
	if !strings.HasSuffix(key, "/") {
		key += "/"
	}
	if err := b.adapter.Set(ctx, key, nil); err != nil {
		return access.RpCreateDir{}, b.funnel("create_dir", path, err)
	}
	return access.RpCreateDir{}, nil
}

func (b *Backend) Read(ctx context.Context, path string, args access.OpRead) (access.RpRead, io.ReadCloser, error) {
	value, ok, err := b.adapter.Get(ctx, b.key(path))
	if err != nil {
		return access.RpRead{}, nil, b.funnel("read", path, err)
	}
	if !ok {
		return access.RpRead{}, nil, access.NewError(access.KindNotFound, "key not found").
			WithOperation("read").WithContext("path", path)
	}
	off, n := args.Range.Apply(int64(len(value)))
	window := value[off : off+n]
	size := int64(len(window))
	return access.RpRead{Size: &size}, io.NopCloser(bytes.NewReader(window)), nil
}

func (b *Backend) Write(ctx context.Context, path string, _ access.OpWrite) (access.RpWrite, access.Writer, error) {
	up := &setUpload{adapter: b.adapter, key: b.key(path)}
	return access.RpWrite{}, access.NewOneShotWriter(up), nil
}

func (b *Backend) Stat(ctx context.Context, path string, _ access.OpStat) (access.RpStat, error) {
	// Root and trailing-slash paths are implicit directories; they exist
	// whether or not a marker key does.
	if access.IsDirPath(path) {
		return access.RpStat{Meta: access.NewMetadata(access.KindDir)}, nil
	}
	value, ok, err := b.adapter.Get(ctx, b.key(path))
	if err != nil {
		return access.RpStat{}, b.funnel("stat", path, err)
	}
	if !ok {
		return access.RpStat{}, access.NewError(access.KindNotFound, "key not found").
			WithOperation("stat").WithContext("path", path)
	}
	meta := access.NewMetadata(access.KindFile)
	meta.ContentLength = int64(len(value))
	meta.ETag = contentETag(value)
	return access.RpStat{Meta: meta}, nil
}

func (b *Backend) Delete(ctx context.Context, path string, _ access.OpDelete) (access.RpDelete, error) {
	if err := b.adapter.Delete(ctx, b.key(path)); err != nil {
		return access.RpDelete{}, b.funnel("delete", path, err)
	}
	return access.RpDelete{}, nil
}

func (b *Backend) Copy(ctx context.Context, from, to string, _ access.OpCopy) (access.RpCopy, error) {
	value, ok, err := b.adapter.Get(ctx, b.key(from))
	if err != nil {
		return access.RpCopy{}, b.funnel("copy", from, err)
	}
	if !ok {
		return access.RpCopy{}, access.NewError(access.KindNotFound, "copy source not found").
			WithOperation("copy").WithContext("from", from)
	}
	if err := b.adapter.Set(ctx, b.key(to), value); err != nil {
		return access.RpCopy{}, b.funnel("copy", to, err)
	}
	return access.RpCopy{}, nil
}

func (b *Backend) List(ctx context.Context, path string, args access.OpList) (access.RpList, access.Pager, error) {
	prefix := b.key(path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	keys, err := b.adapter.Scan(ctx, prefix)
	if err != nil {
		return access.RpList{}, nil, b.funnel("list", path, err)
	}

	rootPrefix := access.RootKey(b.root)
	seen := make(map[string]bool)
	var entries []access.Entry
	for _, key := range keys {
		if key == prefix {
			continue // the marker for the listed directory itself
		}
		rel := strings.TrimPrefix(key, rootPrefix)
		listRel := strings.TrimPrefix(prefix, rootPrefix)
		remainder := strings.TrimPrefix(rel, listRel)
		if remainder == "" {
			continue
		}
		if !args.Recursive {
			if i := strings.Index(remainder, "/"); i >= 0 && i != len(remainder)-1 {
				// Deeper entry: collapse to the immediate child directory.
				rel = listRel + remainder[:i+1]
			}
		}
		if seen[rel] {
			continue
		}
		seen[rel] = true
		kind := access.KindFile
		if strings.HasSuffix(rel, "/") {
			kind = access.KindDir
		}
		entries = append(entries, access.Entry{Path: rel, Meta: access.NewMetadata(kind)})
	}

	entries = access.ApplyListFilters(entries, args.StartAfter)
	return access.RpList{}, access.NewEntryPager(entries, args.Limit), nil
}

func (b *Backend) Batch(ctx context.Context, args access.OpBatch) (access.RpBatch, error) {
	return access.RpBatch{}, access.NewError(access.KindUnsupported, "key-value backends do not support batch").
		WithOperation("batch").WithContext("scheme", b.info.Scheme().String())
}

func (b *Backend) Presign(ctx context.Context, path string, _ access.OpPresign) (access.RpPresign, error) {
	return access.RpPresign{}, access.NewError(access.KindUnsupported, "key-value backends do not support presign").
		WithOperation("presign").WithContext("scheme", b.info.Scheme().String())
}

// funnel wraps raw adapter failures; adapters may already return *access.Error,
// which passes through untouched.
func (b *Backend) funnel(op, path string, err error) error {
	if ae, ok := err.(*access.Error); ok {
		return ae
	}
	return access.NewError(access.KindUnexpected, "adapter call failed").
		WithOperation(op).WithContext("path", path).
		WithContext("scheme", b.info.Scheme().String()).
		WithCause(err)
}

type setUpload struct {
	adapter Adapter
	key     string
}

func (u *setUpload) UploadAll(ctx context.Context, b []byte) error {
	if err := u.adapter.Set(ctx, u.key, b); err != nil {
		return access.NewError(access.KindUnexpected, "adapter set failed").
			WithOperation("write").WithContext("key", u.key).WithCause(err)
	}
	return nil
}

func contentETag(value []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(value))
}
