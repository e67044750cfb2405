// Package nats provides a backend over a JetStream object store bucket.
// Object store is used instead of JetStream KV because KV subjects cannot
// carry the "/" separator that object paths need. A running server is
// required, so the package carries no unit tests.
package nats

import (
	"context"
	"errors"
	"sort"
	"strings"

	natsio "github.com/nats-io/nats.go"

	"github.com/eniz1806/UniStore/pkg/access"
	"github.com/eniz1806/UniStore/pkg/kv"
)

// New builds a NATS backend. Options: "url" (default nats.DefaultURL),
// "bucket" (required), "credentials" (path to a .creds file), "root".
func New(opts map[string]string) (access.Accessor, error) {
	bucket := opts["bucket"]
	if bucket == "" {
		return nil, access.NewError(access.KindConfigInvalid, "bucket is not configured").
			WithOperation("new").WithContext("field", "bucket")
	}
	url := opts["url"]
	if url == "" {
		url = natsio.DefaultURL
	}

	var connOpts []natsio.Option
	if creds := opts["credentials"]; creds != "" {
		connOpts = append(connOpts, natsio.UserCredentials(creds))
	}
	nc, err := natsio.Connect(url, connOpts...)
	if err != nil {
		return nil, access.NewError(access.KindConfigInvalid, "cannot connect to server").
			WithOperation("new").WithContext("url", url).WithCause(err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, access.NewError(access.KindConfigInvalid, "jetstream is not available").
			WithOperation("new").WithContext("url", url).WithCause(err)
	}
	store, err := js.ObjectStore(bucket)
	if errors.Is(err, natsio.ErrStreamNotFound) {
		store, err = js.CreateObjectStore(&natsio.ObjectStoreConfig{Bucket: bucket})
	}
	if err != nil {
		nc.Close()
		return nil, access.NewError(access.KindConfigInvalid, "cannot open object store bucket").
			WithOperation("new").WithContext("bucket", bucket).WithCause(err)
	}

	adapter := &objectStore{store: store, name: bucket}
	return kv.New(adapter, opts["root"]), nil
}

type objectStore struct {
	store natsio.ObjectStore
	name  string
}

func (s *objectStore) Scheme() access.Scheme { return access.SchemeNats }
func (s *objectStore) Name() string          { return s.name }

func (s *objectStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := s.store.GetBytes(key)
	if errors.Is(err, natsio.ErrObjectNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *objectStore) Set(_ context.Context, key string, value []byte) error {
	_, err := s.store.PutBytes(key, value)
	return err
}

func (s *objectStore) Delete(_ context.Context, key string) error {
	err := s.store.Delete(key)
	if errors.Is(err, natsio.ErrObjectNotFound) {
		return nil
	}
	return err
}

func (s *objectStore) Scan(_ context.Context, prefix string) ([]string, error) {
	infos, err := s.store.List()
	if errors.Is(err, natsio.ErrNoObjectsFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, info := range infos {
		if info.Deleted || !strings.HasPrefix(info.Name, prefix) {
			continue
		}
		keys = append(keys, info.Name)
	}
	sort.Strings(keys)
	return keys, nil
}
