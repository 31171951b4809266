package domain

import (
	"context"
	"errors"
	"time"
)

// Service estimates carbon credit purchases against stored emissions.
type Service interface {
	Estimate(ctx context.Context, req EstimateRequest) (Estimate, error)
	ListProjects(ctx context.Context) (Projects, error)
}

// EstimateRequest asks for an offset quote. A zero window defaults to the
// trailing twelve months. OffsetPercent defaults to 100.
type EstimateRequest struct {
	OrgID         string    `json:"org_id"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	OffsetPercent string    `json:"offset_percent"`
	ProjectType   string    `json:"project_type"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidOffset       = errors.New("invalid_offset_percent")
	ErrUnknownProject      = errors.New("unknown_project_type")
)
