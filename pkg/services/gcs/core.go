package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/eniz1806/UniStore/pkg/access"
)

const (
	defaultEndpoint = "https://storage.googleapis.com"

	// Resumable uploads accept intermediate chunks only in 256 KiB multiples.
	uploadAlign = 256 * 1024

	maxBatchOperations = 100
	defaultListPage    = 1000
)

// TokenSource yields bearer tokens for the JSON API. A zero expiry means the
// token never expires.
type TokenSource interface {
	Token(ctx context.Context) (token string, expiry time.Time, err error)
}

// StaticTokenSource returns one fixed token.
type StaticTokenSource string

func (s StaticTokenSource) Token(context.Context) (string, time.Time, error) {
	return string(s), time.Time{}, nil
}

// tokenCache memoizes the current token and collapses concurrent refreshes
// into one upstream call.
type tokenCache struct {
	source TokenSource
	group  singleflight.Group

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func (c *tokenCache) current(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" && (c.expiry.IsZero() || time.Until(c.expiry) > time.Minute) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("token", func() (any, error) {
		token, expiry, err := c.source.Token(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.token, c.expiry = token, expiry
		c.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", access.NewError(access.KindPermissionDenied, "token refresh failed").
			WithOperation("auth").WithCause(err)
	}
	return v.(string), nil
}

// core owns the HTTP plumbing shared by every operation.
type core struct {
	client   *http.Client
	endpoint string
	bucket   string
	root     string

	tokens    *tokenCache
	accessKey string
	secretKey string
}

func (c *core) objectURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/b/%s/o/%s", c.endpoint, url.PathEscape(c.bucket), url.PathEscape(key))
}

func (c *core) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, access.NewError(access.KindUnexpected, "cannot build request").
			WithOperation(method).WithCause(err)
	}
	if c.tokens != nil {
		token, err := c.tokens.current(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *core) send(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, access.NewError(access.KindUnexpected, "request failed").
			WithOperation(req.Method).WithContext("url", req.URL.Path).WithCause(err).MarkRetryable()
	}
	return resp, nil
}
