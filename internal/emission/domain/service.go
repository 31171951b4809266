package domain

import (
	"context"
	"errors"
	"time"
)

// Service computes and aggregates emissions over persisted records.
type Service interface {
	// ComputeForRecord resolves a factor for one accepted record, stores
	// the result and marks the record computed.
	ComputeForRecord(ctx context.Context, orgID, recordID string) (*Result, error)
	// ComputePending computes every accepted record for the organization,
	// collecting per-record failures instead of aborting the batch.
	ComputePending(ctx context.Context, orgID string) (BatchOutcome, error)
	// SummarizePeriod aggregates stored results over the window, with the
	// percent change against the immediately preceding window.
	SummarizePeriod(ctx context.Context, req SummarizeRequest) (PeriodSummary, error)
	// List returns stored results, newest first.
	List(ctx context.Context, req ListRequest) ([]Result, error)
}

type SummarizeRequest struct {
	OrgID string
	Start time.Time
	End   time.Time
}

type ListRequest struct {
	OrgID  string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

var (
	ErrUnitMismatch    = errors.New("unit_mismatch")
	ErrInvalidWindow   = errors.New("invalid_window")
	ErrAlreadyComputed = errors.New("already_computed")
	ErrRecordNotReady  = errors.New("record_not_ready")
)
