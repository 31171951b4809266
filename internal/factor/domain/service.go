package domain

import (
	"context"
	"errors"
)

// Service resolves emission factors against the loaded reference table.
type Service interface {
	// Resolve walks the fallback tiers: exact region, country default,
	// global default. It fails only for an unknown category.
	Resolve(ctx context.Context, req ResolveRequest) (Resolution, error)
	// Reload re-reads the reference file and atomically swaps the table.
	Reload(ctx context.Context) error
	// Version reports the loaded table version.
	Version() string
	// Policy returns the policy constants bundled with the table.
	Policy() Policy
}

var (
	ErrUnknownCategory = errors.New("unknown_category")
	ErrInvalidEntry    = errors.New("invalid_factor_entry")
	ErrMissingDefault  = errors.New("missing_category_default")
)
