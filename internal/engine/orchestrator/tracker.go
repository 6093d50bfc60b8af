package orchestrator

import (
	"maps"
	"slices"
	"sync"
)

type dependencySet struct {
	modules map[string]struct{}
	// complete is set once a build attempt has reported its bundle.
	complete bool
}

// Tracker records, per target, the module identifiers of its latest bundle.
// Targets without a completed attempt are unknown and count as affected by
// every change.
type Tracker struct {
	mu   sync.RWMutex
	deps map[string]*dependencySet
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{deps: make(map[string]*dependencySet)}
}

// Reset starts a new attempt for target, discarding the previous set.
func (t *Tracker) Reset(target string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deps[target] = &dependencySet{modules: make(map[string]struct{})}
}

// Add records that target's bundle includes module id.
func (t *Tracker) Add(target, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.deps[target]
	if !ok {
		set = &dependencySet{modules: make(map[string]struct{})}
		t.deps[target] = set
	}
	set.modules[id] = struct{}{}
}

// Complete marks the current attempt of target as having produced a bundle.
func (t *Tracker) Complete(target string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.deps[target]
	if !ok {
		set = &dependencySet{modules: make(map[string]struct{})}
		t.deps[target] = set
	}
	set.complete = true
}

// IsAffected reports whether a change to path requires rebuilding target.
func (t *Tracker) IsAffected(target, path string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	set, ok := t.deps[target]
	if !ok || !set.complete {
		return true
	}
	_, hit := set.modules[path]
	return hit
}

// Dependencies returns the sorted module identifiers of target and whether
// they come from a completed build.
func (t *Tracker) Dependencies(target string) ([]string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	set, ok := t.deps[target]
	if !ok {
		return nil, false
	}
	return slices.Sorted(maps.Keys(set.modules)), set.complete
}
