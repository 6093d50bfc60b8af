// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/rebundle/internal/core/domain"
)

// Bundler is the external module bundler.
//
// A call either succeeds with the modules it included and the bundled output,
// or fails with an error. Implementations must not retain req.Cache after the
// call returns.
//
//go:generate go run go.uber.org/mock/mockgen -source=bundler.go -destination=mocks/mock_bundler.go -package=mocks
type Bundler interface {
	Bundle(ctx context.Context, req *domain.BundleRequest) (*domain.BundleResult, error)
}
