package domain

import (
	"context"
	"errors"
	"time"
)

// Service ingests and lists consumption records.
type Service interface {
	Ingest(ctx context.Context, req IngestRequest) (*Record, error)
	List(ctx context.Context, req ListRequest) ([]Record, error)
	GetByID(ctx context.Context, orgID, recordID string) (*Record, error)
	// Invalidate excludes a record (and its result) from future summaries.
	// The record row is kept for audit; emissions are never silently
	// deleted.
	Invalidate(ctx context.Context, orgID, recordID string) error
}

type IngestRequest struct {
	OrgID          string         `json:"org_id"`
	Category       string         `json:"category"`
	Subtype        string         `json:"subtype"`
	Country        string         `json:"country"`
	Region         string         `json:"region"`
	Quantity       string         `json:"quantity"`
	Unit           string         `json:"unit"`
	PeriodStart    time.Time      `json:"period_start"`
	PeriodEnd      time.Time      `json:"period_end"`
	IdempotencyKey *string        `json:"idempotency_key"`
	Metadata       map[string]any `json:"metadata"`
}

type ListRequest struct {
	OrgID    string
	Category string
	Status   string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidRecord       = errors.New("invalid_record")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidUnit         = errors.New("invalid_unit")
	ErrInvalidPeriod       = errors.New("invalid_period")
	ErrRecordNotFound      = errors.New("record_not_found")
	ErrRecordImmutable     = errors.New("record_immutable")
)
