package ports

import "go.trai.ch/rebundle/internal/core/domain"

// CacheStore holds the compiled-module cache of every cache group.
//
//go:generate go run go.uber.org/mock/mockgen -source=cache_store.go -destination=mocks/mock_cache_store.go -package=mocks
type CacheStore interface {
	// Get returns the cache of group, creating an empty one if absent.
	// A newly created cache is only kept when init is true.
	Get(group domain.GroupID, init bool) *domain.GroupCache

	// Record upserts one module record into the cache of group.
	Record(group domain.GroupID, record domain.ModuleRecord)

	// Snapshot returns a copy of the cached records of group, sorted by ID.
	// It returns nil when the group has no cache yet.
	Snapshot(group domain.GroupID) []domain.ModuleRecord
}
