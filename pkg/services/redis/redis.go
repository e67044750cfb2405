// Package redis provides a backend over a Redis database. A running server is
// required, so the package carries no unit tests.
package redis

import (
	"context"
	"errors"
	"sort"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/eniz1806/UniStore/pkg/access"
	"github.com/eniz1806/UniStore/pkg/kv"
)

// New builds a Redis backend. Options: "address" (default "127.0.0.1:6379"),
// "password", "db" (numeric, default 0), "root".
func New(opts map[string]string) (access.Accessor, error) {
	address := opts["address"]
	if address == "" {
		address = "127.0.0.1:6379"
	}
	db := 0
	if raw := opts["db"]; raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return nil, access.NewError(access.KindConfigInvalid, "db index is not numeric").
				WithOperation("new").WithContext("field", "db").WithCause(err)
		}
		db = parsed
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     address,
		Password: opts["password"],
		DB:       db,
	})
	adapter := &store{client: client, name: address + "/" + strconv.Itoa(db)}
	return kv.New(adapter, opts["root"]), nil
}

type store struct {
	client *goredis.Client
	name   string
}

func (s *store) Scheme() access.Scheme { return access.SchemeRedis }
func (s *store) Name() string          { return s.name }

func (s *store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *store) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *store) Scan(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	// SCAN yields keys in server order; listing expects them sorted.
	sort.Strings(keys)
	return keys, nil
}
