package webhdfs

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/eniz1806/UniStore/pkg/access"
)

// statusPager walks a directory listing. With batching enabled it pages
// through LISTSTATUS_BATCH using the last entry name as the service cursor;
// otherwise it fetches the whole directory in one LISTSTATUS call and pages
// it locally.
type statusPager struct {
	backend    *Backend
	path       string
	listRel    string
	limit      int
	startAfter string

	serviceAfter string
	done         bool
	local        access.Pager
}

func newStatusPager(b *Backend, path string, args access.OpList) *statusPager {
	listRel := strings.TrimPrefix(path, "/")
	if listRel != "" && !strings.HasSuffix(listRel, "/") {
		listRel += "/"
	}
	p := &statusPager{
		backend:    b,
		path:       path,
		listRel:    listRel,
		limit:      args.Limit,
		startAfter: args.StartAfter,
	}
	// The service cursor is the bare entry name inside the listed directory.
	if args.StartAfter != "" && strings.HasPrefix(args.StartAfter, listRel) {
		p.serviceAfter = strings.TrimSuffix(strings.TrimPrefix(args.StartAfter, listRel), "/")
	}
	return p
}

func (p *statusPager) Next(ctx context.Context) ([]access.Entry, error) {
	if p.backend.disableListBatch {
		if p.local == nil {
			entries, err := p.fetchAll(ctx)
			if err != nil {
				return nil, err
			}
			p.local = access.NewEntryPager(access.ApplyListFilters(entries, p.startAfter), p.limit)
		}
		return p.local.Next(ctx)
	}

	for {
		if p.done {
			return nil, nil
		}
		page, err := p.fetchBatch(ctx)
		if err != nil {
			return nil, err
		}
		if len(page) > 0 {
			return page, nil
		}
	}
}

func (p *statusPager) fetchAll(ctx context.Context) ([]access.Entry, error) {
	b := p.backend
	resp, err := b.do(ctx, http.MethodGet, b.url(p.path, b.query("LISTSTATUS")), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		e, _ := responseError("list", p.path, resp)
		return nil, e
	}
	var listing fileStatusesResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, access.NewError(access.KindUnexpected, "listing is unparseable").
			WithOperation("list").WithContext("path", p.path).WithCause(err)
	}
	return p.convert(listing.FileStatuses.FileStatus), nil
}

func (p *statusPager) fetchBatch(ctx context.Context) ([]access.Entry, error) {
	b := p.backend
	query := b.query("LISTSTATUS_BATCH")
	if p.serviceAfter != "" {
		query.Set("startAfter", p.serviceAfter)
	}
	resp, err := b.do(ctx, http.MethodGet, b.url(p.path, query), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		p.done = true
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		e, _ := responseError("list", p.path, resp)
		return nil, e
	}
	var listing listStatusBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, access.NewError(access.KindUnexpected, "listing page is unparseable").
			WithOperation("list").WithContext("path", p.path).WithCause(err)
	}

	statuses := listing.DirectoryListing.PartialListing.FileStatuses.FileStatus
	if len(statuses) > 0 {
		p.serviceAfter = statuses[len(statuses)-1].PathSuffix
	}
	if listing.DirectoryListing.RemainingEntries == 0 {
		p.done = true
	}

	entries := p.convert(statuses)
	if p.startAfter != "" {
		kept := entries[:0]
		for _, e := range entries {
			if e.Path > p.startAfter {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	return entries, nil
}

func (p *statusPager) convert(statuses []fileStatus) []access.Entry {
	entries := make([]access.Entry, 0, len(statuses))
	for _, s := range statuses {
		if s.PathSuffix == "" {
			continue
		}
		rel := p.listRel + s.PathSuffix
		meta := s.metadata()
		if meta.Kind == access.KindDir {
			rel += "/"
		}
		entries = append(entries, access.Entry{Path: rel, Meta: meta})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}
