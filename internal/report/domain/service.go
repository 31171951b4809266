package domain

import (
	"context"
	"errors"
	"time"
)

// Service generates and retrieves stored emissions reports.
type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (*Report, error)
	Get(ctx context.Context, orgID, reportID string) (*Report, error)
	List(ctx context.Context, orgID string) ([]Report, error)
}

// GenerateRequest describes the report window. A zero window defaults to
// the trailing twelve months.
type GenerateRequest struct {
	OrgID            string    `json:"org_id"`
	OrganizationName string    `json:"organization_name"`
	Country          string    `json:"country"`
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrReportNotFound      = errors.New("report_not_found")
	ErrNoData              = errors.New("no_emission_data")
)
