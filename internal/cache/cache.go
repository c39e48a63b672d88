// Package cache persists accepted segmentation results keyed by an opaque
// identifier (typically the source URL plus a paragraph index). Entries are
// stamped with the schema version at write time; a stale stamp on load is
// reported as a miss so incompatible cached shapes never reach the caller.
// A cache hit is treated identically to a freshly generated result.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ajanderson1/flowsegment/internal/schema"
)

// ErrMiss is returned by Get when no usable entry exists for the key,
// including entries rejected for a schema version mismatch.
var ErrMiss = errors.New("cache: miss")

// Store is the caller-facing cache contract.
type Store interface {
	Get(ctx context.Context, key string) (*schema.CachedResult, error)
	Put(ctx context.Context, key string, result *schema.Result) error
	Delete(ctx context.Context, key string) error
}

// wrap stamps a result for persistence.
func wrap(result *schema.Result) schema.CachedResult {
	return schema.CachedResult{
		SchemaVersion: schema.Version,
		SavedAt:       time.Now().UTC(),
		Result:        *result,
	}
}

// Memory is an in-process Store for tests and single-process callers.
// Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]schema.CachedResult
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]schema.CachedResult)}
}

func (m *Memory) Get(_ context.Context, key string) (*schema.CachedResult, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrMiss
	}
	if entry.SchemaVersion != schema.Version {
		// Stale shape from an older build; drop it.
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, ErrMiss
	}
	return &entry, nil
}

func (m *Memory) Put(_ context.Context, key string, result *schema.Result) error {
	m.mu.Lock()
	m.entries[key] = wrap(result)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}
