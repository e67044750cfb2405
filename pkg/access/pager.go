package access

import (
	"context"
	"sort"
)

// Pager exposes a listing as a lazy, cursor-resumable sequence of entries.
// Each Next call may perform network I/O and returns either a non-empty
// batch or an empty one signaling exhaustion. A Pager is single-owner and
// single-use: it must not be driven by more than one consumer.
type Pager interface {
	Next(ctx context.Context) ([]Entry, error)
}

// EntryPager pages through a fixed, already-filtered entry slice. Backends
// that materialize their listing in one call (filesystem walks, KV scans)
// wrap the result in it so callers still see the pager protocol.
type EntryPager struct {
	entries []Entry
	page    int
}

const defaultPageSize = 1000

// NewEntryPager returns a pager over entries, yielding at most pageSize per
// Next call. pageSize <= 0 picks a default.
func NewEntryPager(entries []Entry, pageSize int) *EntryPager {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &EntryPager{entries: entries, page: pageSize}
}

func (p *EntryPager) Next(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewError(KindUnexpected, "context canceled").
			WithOperation("list").WithCause(err)
	}
	if len(p.entries) == 0 {
		return nil, nil
	}
	n := p.page
	if n > len(p.entries) {
		n = len(p.entries)
	}
	batch := p.entries[:n]
	p.entries = p.entries[n:]
	return batch, nil
}

// ApplyListFilters sorts entries and drops everything lexicographically <=
// the start-after cursor. It is the shared tail of backends that list
// eagerly; the page-size limit stays with the pager, never truncating the
// overall listing.
func ApplyListFilters(entries []Entry, startAfter string) []Entry {
	sortEntries(entries)
	if startAfter != "" {
		i := 0
		for i < len(entries) && entries[i].Path <= startAfter {
			i++
		}
		entries = entries[i:]
	}
	return entries
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}
