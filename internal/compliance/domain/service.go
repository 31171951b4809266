package domain

import (
	"context"
	"errors"
)

// Service evaluates reporting-framework checks against stored emissions.
type Service interface {
	Evaluate(ctx context.Context, orgID string) (Status, error)
}

var ErrInvalidOrganization = errors.New("invalid_organization")
