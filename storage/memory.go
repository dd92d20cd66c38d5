package storage

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// MemoryStore keeps documents in a map. It is used by tests and by the CLI when no
// backend is configured.
type MemoryStore struct {
	mu      sync.Mutex
	docs    map[string]Object
	counter int

	// BeforeSave, when set, runs before every Save with the store unlocked. Tests use it
	// to slip in a competing write.
	BeforeSave func(key string)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Object)}
}

func (m *MemoryStore) Load(ctx context.Context, key string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.docs[key]
	if !ok {
		return Object{}, ErrNotFound
	}
	return Object{Data: slices.Clone(obj.Data), Version: obj.Version}, nil
}

func (m *MemoryStore) Save(ctx context.Context, key string, data []byte, expected string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.BeforeSave != nil {
		m.BeforeSave(key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.docs[key].Version != expected {
		return "", ErrVersionConflict
	}
	m.counter++
	version := strconv.Itoa(m.counter)
	m.docs[key] = Object{Data: slices.Clone(data), Version: version}
	return version, nil
}

func (m *MemoryStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k := range m.docs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}
