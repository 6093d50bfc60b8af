package ports

import "go.trai.ch/rebundle/internal/core/domain"

// EntryResolver maps a target to its bundler entry-point configuration.
type EntryResolver interface {
	Entry(target string) (domain.EntryConfig, error)
}

// EntryResolverFunc adapts a function to EntryResolver.
type EntryResolverFunc func(target string) (domain.EntryConfig, error)

// Entry calls f(target).
func (f EntryResolverFunc) Entry(target string) (domain.EntryConfig, error) {
	return f(target)
}

// OptionsProvider supplies caller bundler options for a target.
type OptionsProvider interface {
	Options(target string) (domain.BundlerOptions, error)
}

// OptionsProviderFunc adapts a function to OptionsProvider.
type OptionsProviderFunc func(target string) (domain.BundlerOptions, error)

// Options calls f(target).
func (f OptionsProviderFunc) Options(target string) (domain.BundlerOptions, error) {
	return f(target)
}

// StaticOptions returns the same options for every target.
type StaticOptions domain.BundlerOptions

// Options returns a copy of the static options.
func (s StaticOptions) Options(string) (domain.BundlerOptions, error) {
	out := make(domain.BundlerOptions, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out, nil
}
