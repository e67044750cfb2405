package gcs

import (
	"strconv"
	"time"

	"github.com/eniz1806/UniStore/pkg/access"
)

// objectInfo mirrors the JSON API object resource, limited to the fields the
// backend consumes. Size and generation arrive as decimal strings.
type objectInfo struct {
	Name        string    `json:"name"`
	Size        string    `json:"size"`
	ContentType string    `json:"contentType"`
	ETag        string    `json:"etag"`
	MD5Hash     string    `json:"md5Hash"`
	Updated     time.Time `json:"updated"`
}

func (o objectInfo) metadata() access.Metadata {
	meta := access.NewMetadata(access.KindFile)
	if size, err := strconv.ParseInt(o.Size, 10, 64); err == nil {
		meta.ContentLength = size
	}
	meta.ContentType = o.ContentType
	meta.ETag = o.ETag
	meta.ContentMD5 = o.MD5Hash
	meta.LastModified = o.Updated
	return meta
}

type listResponse struct {
	Items         []objectInfo `json:"items"`
	Prefixes      []string     `json:"prefixes"`
	NextPageToken string       `json:"nextPageToken"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
