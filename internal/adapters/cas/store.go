// Package cas implements the per-group compiled-module cache store.
package cas

import (
	"slices"
	"sync"

	"go.trai.ch/rebundle/internal/core/domain"
)

// Store implements ports.CacheStore in memory. Groups may build concurrently,
// so every access goes through mu.
type Store struct {
	mu     sync.RWMutex
	groups map[domain.GroupID]*domain.GroupCache
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{groups: make(map[domain.GroupID]*domain.GroupCache)}
}

// Get returns the cache of group. A missing cache is created empty and only
// kept when init is true; otherwise the caller gets a detached empty cache.
func (s *Store) Get(group domain.GroupID, init bool) *domain.GroupCache {
	s.mu.RLock()
	c, ok := s.groups[group]
	s.mu.RUnlock()
	if ok {
		return c
	}
	if !init {
		return domain.NewGroupCache()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.groups[group]; ok {
		return c
	}
	c = domain.NewGroupCache()
	s.groups[group] = c
	return c
}

// Record upserts record into the cache of group, creating the cache if needed.
func (s *Store) Record(group domain.GroupID, record domain.ModuleRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.groups[group]
	if !ok {
		c = domain.NewGroupCache()
		s.groups[group] = c
	}
	record.Payload = slices.Clone(record.Payload)
	c.Modules[record.ID] = record
}

// Snapshot returns a sorted deep copy of the records of group.
func (s *Store) Snapshot(group domain.GroupID) []domain.ModuleRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.groups[group]
	if !ok {
		return nil
	}
	return c.Records()
}
