package domain

import (
	"context"
	"errors"
)

// Service exposes aggregated dashboard data.
type Service interface {
	Stats(ctx context.Context, orgID string) (Stats, error)
}

var ErrInvalidOrganization = errors.New("invalid_organization")
