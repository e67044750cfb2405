// Package retry decorates an access backend with exponential backoff on
// retryable failures. Only call establishment retries: once a read stream or
// write session is handed out, its bytes are the caller's to re-drive.
package retry

import (
	"context"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/eniz1806/UniStore/pkg/access"
)

// Options tunes the backoff policy. Zero values fall back to defaults.
type Options struct {
	// MaxRetries bounds the attempts after the first one. Default 3.
	MaxRetries uint64
	// InitialInterval seeds the exponential schedule. Default 500ms.
	InitialInterval time.Duration
	// MaxElapsedTime caps the whole retry loop. Default 30s.
	MaxElapsedTime time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.InitialInterval == 0 {
		o.InitialInterval = 500 * time.Millisecond
	}
	if o.MaxElapsedTime == 0 {
		o.MaxElapsedTime = 30 * time.Second
	}
	return o
}

// Wrap decorates inner with the retry policy.
func Wrap(inner access.Accessor, opts Options) access.Accessor {
	return &accessor{inner: inner, opts: opts.withDefaults()}
}

type accessor struct {
	inner access.Accessor
	opts  Options
}

func (a *accessor) retry(ctx context.Context, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = a.opts.InitialInterval
	policy.MaxElapsedTime = a.opts.MaxElapsedTime
	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if access.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, a.opts.MaxRetries), ctx))
}

func (a *accessor) Info() *access.AccessorInfo { return a.inner.Info() }

func (a *accessor) CreateDir(ctx context.Context, path string, args access.OpCreateDir) (access.RpCreateDir, error) {
	var rp access.RpCreateDir
	err := a.retry(ctx, func() error {
		var err error
		rp, err = a.inner.CreateDir(ctx, path, args)
		return err
	})
	return rp, err
}

func (a *accessor) Read(ctx context.Context, path string, args access.OpRead) (access.RpRead, io.ReadCloser, error) {
	var rp access.RpRead
	var r io.ReadCloser
	err := a.retry(ctx, func() error {
		var err error
		rp, r, err = a.inner.Read(ctx, path, args)
		return err
	})
	return rp, r, err
}

func (a *accessor) Write(ctx context.Context, path string, args access.OpWrite) (access.RpWrite, access.Writer, error) {
	var rp access.RpWrite
	var w access.Writer
	err := a.retry(ctx, func() error {
		var err error
		rp, w, err = a.inner.Write(ctx, path, args)
		return err
	})
	return rp, w, err
}

func (a *accessor) Stat(ctx context.Context, path string, args access.OpStat) (access.RpStat, error) {
	var rp access.RpStat
	err := a.retry(ctx, func() error {
		var err error
		rp, err = a.inner.Stat(ctx, path, args)
		return err
	})
	return rp, err
}

func (a *accessor) Delete(ctx context.Context, path string, args access.OpDelete) (access.RpDelete, error) {
	var rp access.RpDelete
	err := a.retry(ctx, func() error {
		var err error
		rp, err = a.inner.Delete(ctx, path, args)
		return err
	})
	return rp, err
}

func (a *accessor) Copy(ctx context.Context, from, to string, args access.OpCopy) (access.RpCopy, error) {
	var rp access.RpCopy
	err := a.retry(ctx, func() error {
		var err error
		rp, err = a.inner.Copy(ctx, from, to, args)
		return err
	})
	return rp, err
}

func (a *accessor) List(ctx context.Context, path string, args access.OpList) (access.RpList, access.Pager, error) {
	var rp access.RpList
	var pager access.Pager
	err := a.retry(ctx, func() error {
		var err error
		rp, pager, err = a.inner.List(ctx, path, args)
		return err
	})
	if err != nil {
		return rp, nil, err
	}
	return rp, &retryPager{inner: pager, accessor: a}, nil
}

// retryPager retries each page fetch. A page either arrives whole or not at
// all, so re-fetching one is safe.
type retryPager struct {
	inner    access.Pager
	accessor *accessor
}

func (p *retryPager) Next(ctx context.Context) ([]access.Entry, error) {
	var entries []access.Entry
	err := p.accessor.retry(ctx, func() error {
		var err error
		entries, err = p.inner.Next(ctx)
		return err
	})
	return entries, err
}

func (a *accessor) Batch(ctx context.Context, args access.OpBatch) (access.RpBatch, error) {
	var rp access.RpBatch
	err := a.retry(ctx, func() error {
		var err error
		rp, err = a.inner.Batch(ctx, args)
		return err
	})
	return rp, err
}

func (a *accessor) Presign(ctx context.Context, path string, args access.OpPresign) (access.RpPresign, error) {
	return a.inner.Presign(ctx, path, args)
}
