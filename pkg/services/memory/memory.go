// Package memory provides an in-process backend, mainly for tests and as the
// reference implementation of the key-value adaptation.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/eniz1806/UniStore/pkg/access"
	"github.com/eniz1806/UniStore/pkg/kv"
)

// New builds a memory backend. Recognized options: "root". Unknown keys are
// ignored.
func New(opts map[string]string) (access.Accessor, error) {
	return kv.New(newAdapter(), opts["root"]), nil
}

type adapter struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func newAdapter() *adapter {
	return &adapter{m: make(map[string][]byte)}
}

func (a *adapter) Scheme() access.Scheme { return access.SchemeMemory }
func (a *adapter) Name() string          { return "memory" }

func (a *adapter) Get(_ context.Context, key string) ([]byte, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.m[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (a *adapter) Set(_ context.Context, key string, value []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m[key] = append([]byte(nil), value...)
	return nil
}

func (a *adapter) Delete(_ context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.m, key)
	return nil
}

func (a *adapter) Scan(_ context.Context, prefix string) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.m))
	for k := range a.m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
