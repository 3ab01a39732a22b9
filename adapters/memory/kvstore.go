// Package memory provides in-memory implementations for testing and
// single-process use.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/artpar/erpkit/ports"
)

// KVStore is an in-memory implementation of ports.KVStore.
type KVStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte // namespace -> key -> value
}

// NewKVStore creates a new in-memory key-value store.
func NewKVStore() *KVStore {
	return &KVStore{
		data: make(map[string]map[string][]byte),
	}
}

var _ ports.KVStore = (*KVStore)(nil)

// Get retrieves a copy of the value of key.
func (s *KVStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[namespace][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value.
func (s *KVStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		s.data[namespace] = ns
	}
	ns[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (s *KVStore) Delete(ctx context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data[namespace], key)
	return nil
}

// Keys lists the keys of namespace starting with prefix, sorted.
func (s *KVStore) Keys(ctx context.Context, namespace, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []string
	for k := range s.data[namespace] {
		if strings.HasPrefix(k, prefix) {
			result = append(result, k)
		}
	}
	sort.Strings(result)
	return result, nil
}
