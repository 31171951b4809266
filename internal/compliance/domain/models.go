// Package domain defines compliance check verdicts.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusCompliant    = "compliant"
	StatusActionNeeded = "action_needed"
	StatusNoData       = "no_data"
)

// Check is one framework verdict with the evidence behind it.
type Check struct {
	Framework   string `json:"framework"`
	Requirement string `json:"requirement"`
	Status      string `json:"status"`
	Detail      string `json:"detail"`
}

// Status is the overall compliance position for an organization. The
// threshold comparison uses the trailing twelve months of emissions.
type Status struct {
	OrgID string `json:"org_id"`

	TrailingYearTonnes decimal.Decimal `json:"trailing_year_tonnes"`
	ThresholdTonnes    decimal.Decimal `json:"threshold_tonnes"`
	OverThreshold      bool            `json:"over_threshold"`

	ValidatedRecords int `json:"validated_records"`

	Checks  []Check   `json:"checks"`
	Overall string    `json:"overall"`
	AsOf    time.Time `json:"as_of"`
}
