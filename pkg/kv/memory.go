package kv

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"
)

type memItem struct {
	value     []byte
	expiresAt time.Time
}

func (it memItem) live(now time.Time) bool {
	return it.expiresAt.IsZero() || now.Before(it.expiresAt)
}

// Memory is a map-backed Store.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memItem
	now   func() time.Time
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]memItem), now: time.Now}
}

// Get implements [Store].
func (m *Memory) Get(_ context.Context, key Key) ([]byte, error) {
	m.mu.RLock()
	it, ok := m.items[key.String()]
	m.mu.RUnlock()
	if !ok || !it.live(m.now()) {
		return nil, ErrNotFound
	}
	return slices.Clone(it.value), nil
}

// Put implements [Store].
func (m *Memory) Put(_ context.Context, key Key, value []byte, ttl time.Duration) error {
	it := memItem{value: slices.Clone(value)}
	if ttl > 0 {
		it.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.items[key.String()] = it
	m.mu.Unlock()
	return nil
}

// Delete implements [Store].
func (m *Memory) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	delete(m.items, key.String())
	m.mu.Unlock()
	return nil
}

// Scan implements [Store]. It iterates over a snapshot taken at call time.
func (m *Memory) Scan(_ context.Context, prefix Key) iter.Seq2[Entry, error] {
	p := prefix.scanPrefix()
	now := m.now()

	m.mu.RLock()
	var keys []string
	for k, it := range m.items {
		if strings.HasPrefix(k, p) && it.live(now) {
			keys = append(keys, k)
		}
	}
	snap := make(map[string][]byte, len(keys))
	for _, k := range keys {
		snap[k] = slices.Clone(m.items[k].value)
	}
	m.mu.RUnlock()
	slices.Sort(keys)

	return func(yield func(Entry, error) bool) {
		for _, k := range keys {
			if !yield(Entry{Key: ParseKey(k), Value: snap[k]}, nil) {
				return
			}
		}
	}
}

// Close implements [Store].
func (m *Memory) Close() error {
	return nil
}

var _ Store = (*Memory)(nil)
