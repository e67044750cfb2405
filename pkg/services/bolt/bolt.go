// Package bolt provides a backend over a single bbolt bucket.
package bolt

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/eniz1806/UniStore/pkg/access"
	"github.com/eniz1806/UniStore/pkg/kv"
)

const defaultBucket = "unistore"

// New opens the database file and builds the backend. Options: "path"
// (required) names the database file, "bucket" picks the bucket (default
// "unistore"), "root" sets the working root.
func New(opts map[string]string) (access.Accessor, error) {
	path := opts["path"]
	if path == "" {
		return nil, access.NewError(access.KindConfigInvalid, "database path is not configured").
			WithOperation("new").WithContext("field", "path")
	}
	bucket := opts["bucket"]
	if bucket == "" {
		bucket = defaultBucket
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, access.NewError(access.KindConfigInvalid, "cannot open database").
			WithOperation("new").WithContext("path", path).WithCause(err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, access.NewError(access.KindConfigInvalid, "cannot create bucket").
			WithOperation("new").WithContext("bucket", bucket).WithCause(err)
	}

	adapter := &store{
		db:     db,
		bucket: []byte(bucket),
		name:   fmt.Sprintf("%s/%s", filepath.Base(path), bucket),
	}
	return kv.New(adapter, opts["root"]), nil
}

type store struct {
	db     *bbolt.DB
	bucket []byte
	name   string
}

func (s *store) Scheme() access.Scheme { return access.SchemeBolt }
func (s *store) Name() string          { return s.name }

func (s *store) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(s.bucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		ok = true
		// Raw slices are only valid inside the transaction.
		value = append([]byte(nil), raw...)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return value, ok, nil
}

func (s *store) Set(_ context.Context, key string, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if value == nil {
			value = []byte{}
		}
		return tx.Bucket(s.bucket).Put([]byte(key), value)
	})
}

func (s *store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

func (s *store) Scan(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	p := []byte(prefix)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
