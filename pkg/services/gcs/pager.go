package gcs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/eniz1806/UniStore/pkg/access"
)

// objectPager walks the object listing one service page at a time. The
// service honors startOffset inclusively while the contract wants a strictly
// exclusive cursor, so entries at or below the cursor are dropped after
// decoding.
type objectPager struct {
	core       *core
	path       string
	prefix     string
	recursive  bool
	limit      int
	startAfter string

	pageToken string
	started   bool
	done      bool
}

func (p *objectPager) Next(ctx context.Context) ([]access.Entry, error) {
	for {
		if p.done {
			return nil, nil
		}
		page, err := p.fetch(ctx)
		if err != nil {
			return nil, err
		}
		if len(page) > 0 {
			return page, nil
		}
		// A page can filter down to nothing while the listing continues.
	}
}

func (p *objectPager) fetch(ctx context.Context) ([]access.Entry, error) {
	if p.started && p.pageToken == "" {
		p.done = true
		return nil, nil
	}

	query := url.Values{}
	query.Set("prefix", p.prefix)
	query.Set("maxResults", strconv.Itoa(p.limit))
	if !p.recursive {
		query.Set("delimiter", "/")
	}
	if p.startAfter != "" {
		query.Set("startOffset", access.BuildAbsPath(p.core.root, p.startAfter))
	}
	if p.pageToken != "" {
		query.Set("pageToken", p.pageToken)
	}

	listURL := p.core.endpoint + "/storage/v1/b/" + url.PathEscape(p.core.bucket) + "/o?" + query.Encode()
	req, err := p.core.newRequest(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.core.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, responseError("list", p.path, resp)
	}

	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, access.NewError(access.KindUnexpected, "listing page is unparseable").
			WithOperation("list").WithContext("path", p.path).WithCause(err)
	}

	p.started = true
	p.pageToken = page.NextPageToken
	if p.pageToken == "" {
		p.done = true
	}

	rootKey := access.RootKey(p.core.root)
	var entries []access.Entry
	for _, item := range page.Items {
		rel := relativeTo(item.Name, rootKey)
		if rel == "" || rel == relativeTo(p.prefix, rootKey) {
			continue
		}
		meta := item.metadata()
		if access.IsDirPath(rel) {
			meta.Kind = access.KindDir
		}
		entries = append(entries, access.Entry{Path: rel, Meta: meta})
	}
	for _, prefix := range page.Prefixes {
		rel := relativeTo(prefix, rootKey)
		if rel == "" {
			continue
		}
		entries = append(entries, access.Entry{Path: rel, Meta: access.NewMetadata(access.KindDir)})
	}

	if p.startAfter != "" {
		kept := entries[:0]
		for _, e := range entries {
			if e.Path > p.startAfter {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func relativeTo(name, rootKey string) string {
	if rootKey == "" {
		return name
	}
	if len(name) <= len(rootKey) || name[:len(rootKey)] != rootKey {
		return ""
	}
	return name[len(rootKey):]
}
