package tokenstore

import (
	"context"
	"sync"
)

// InMemoryRepo keeps the session in process memory only. Used by tests and
// by SESSION_STORE=memory for one-shot invocations.
type InMemoryRepo struct {
	mu    sync.RWMutex
	items map[string]string
}

var _ Repo = (*InMemoryRepo)(nil)

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		items: make(map[string]string),
	}
}

func (r *InMemoryRepo) GetItem(_ context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.items[key]
	return v, ok, nil
}

func (r *InMemoryRepo) SetItems(_ context.Context, items map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, v := range items {
		r.items[k] = v
	}
	return nil
}

func (r *InMemoryRepo) RemoveItems(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range keys {
		delete(r.items, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
