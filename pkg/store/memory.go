package store

import (
	"context"
	"slices"
	"sync"

	"github.com/pkgdepot/depot/pkg/spec"
)

// MemoryStore is an in-process store for tests and development.
// It is safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	specs     map[string]spec.Record   // hash -> record
	names     map[string][]string      // name -> hashes, insertion order
	compilers map[string]spec.Compiler // key -> compiler
	order     []string                 // compiler keys, insertion order
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		specs:     map[string]spec.Record{},
		names:     map[string][]string{},
		compilers: map[string]spec.Compiler{},
	}
}

// QueryByHash returns the linked spec with the given hash.
func (m *MemoryStore) QueryByHash(ctx context.Context, hash string) (*spec.Spec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return loadSpec(ctx, hash, m.get)
}

// QueryByName returns all linked specs carrying the given package name.
func (m *MemoryStore) QueryByName(ctx context.Context, name string) ([]*spec.Spec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*spec.Spec
	for _, hash := range m.names[name] {
		s, err := loadSpec(ctx, hash, m.get)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Compilers returns all merged compiler specs in insertion order.
func (m *MemoryStore) Compilers(ctx context.Context) ([]spec.Compiler, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]spec.Compiler, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.compilers[key])
	}
	return out, nil
}

// Merge adds all new records from the batch. Existing hashes and compiler
// keys are skipped. The in-memory mutation is all-or-nothing under the lock.
func (m *MemoryStore) Merge(ctx context.Context, batch *Batch) (*MergeStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := &MergeStats{}
	for _, s := range batch.Specs {
		if _, exists := m.specs[s.Hash]; exists {
			stats.SpecsSkipped++
			continue
		}
		m.specs[s.Hash] = s.Record()
		if !slices.Contains(m.names[s.Name], s.Hash) {
			m.names[s.Name] = append(m.names[s.Name], s.Hash)
		}
		stats.SpecsAdded++
	}
	for _, c := range batch.Compilers {
		if _, exists := m.compilers[c.Key()]; exists {
			stats.CompilersSkipped++
			continue
		}
		m.compilers[c.Key()] = c
		m.order = append(m.order, c.Key())
		stats.CompilersAdded++
	}
	return stats, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }

// get implements recordGetter. Callers must hold at least a read lock.
func (m *MemoryStore) get(ctx context.Context, hash string) (spec.Record, bool, error) {
	rec, ok := m.specs[hash]
	return rec, ok, nil
}
