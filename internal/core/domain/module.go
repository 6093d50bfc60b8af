package domain

import (
	"io"
	"maps"
	"slices"
)

// ModuleRecord is a previously compiled module handed back by the bundler.
// Only ID is interpreted; Payload is replayed verbatim to seed later builds.
type ModuleRecord struct {
	ID      string `json:"id"`
	Payload []byte `json:"payload,omitempty"`
}

// GroupCache is the compiled-module cache shared by the targets of one group.
type GroupCache struct {
	Modules map[string]ModuleRecord
}

// NewGroupCache returns an empty cache.
func NewGroupCache() *GroupCache {
	return &GroupCache{Modules: make(map[string]ModuleRecord)}
}

// Records returns the cached records sorted by module identifier.
func (c *GroupCache) Records() []ModuleRecord {
	if c == nil {
		return nil
	}
	ids := slices.Sorted(maps.Keys(c.Modules))
	out := make([]ModuleRecord, 0, len(ids))
	for _, id := range ids {
		rec := c.Modules[id]
		rec.Payload = slices.Clone(rec.Payload)
		out = append(out, rec)
	}
	return out
}

// EntryConfig is the bundler entry-point configuration of one target.
type EntryConfig struct {
	Inputs []string
}

// BundlerOptions are free-form options forwarded to the bundler.
type BundlerOptions map[string]any

const (
	// OptionInput is the option key carrying the entry inputs.
	OptionInput = "input"
	// OptionCache is the reserved key for the cache seed; callers cannot set it.
	OptionCache = "cache"
)

// MergeOptions lays caller options over the entry configuration. Caller
// options win for every key, including input, except the reserved cache key,
// which is always dropped because the seed travels in BundleRequest.Cache.
func MergeOptions(entry EntryConfig, caller BundlerOptions) BundlerOptions {
	merged := make(BundlerOptions, len(caller)+1)
	if len(entry.Inputs) > 0 {
		merged[OptionInput] = slices.Clone(entry.Inputs)
	}
	maps.Copy(merged, caller)
	delete(merged, OptionCache)
	return merged
}

// BundleRequest is one call into the bundler for a single target.
type BundleRequest struct {
	Target  string
	Entry   EntryConfig
	Options BundlerOptions
	// Cache seeds the bundler with compiled modules; nil means a cold build.
	Cache []ModuleRecord
}

// BundleResult is the successful outcome of a bundler call.
type BundleResult struct {
	Modules []ModuleRecord
	Output  io.Reader
}
