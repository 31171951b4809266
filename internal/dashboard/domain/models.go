// Package domain defines the read models backing the dashboard endpoints.
package domain

import (
	"github.com/shopspring/decimal"

	consumptiondomain "github.com/ecoledger/ecoledger/internal/consumption/domain"
)

// CategoryShare is one slice of the category breakdown.
type CategoryShare struct {
	Category    string          `json:"category"`
	TotalCO2eKg decimal.Decimal `json:"total_co2e_kg"`
	// Percent of the all-time total, two decimal places.
	Percent decimal.Decimal `json:"percent"`
}

// MonthlyEmission is one point of the trailing emission series.
type MonthlyEmission struct {
	// Month in YYYY-MM form.
	Month       string          `json:"month"`
	TotalCO2eKg decimal.Decimal `json:"total_co2e_kg"`
}

// Stats aggregates an organization's emissions for the dashboard landing
// page. Current and previous month are calendar months in UTC.
type Stats struct {
	OrgID string `json:"org_id"`

	TotalCO2eKg     decimal.Decimal `json:"total_co2e_kg"`
	TotalCO2eTonnes decimal.Decimal `json:"total_co2e_tonnes"`

	CurrentMonthKg  decimal.Decimal  `json:"current_month_kg"`
	PreviousMonthKg decimal.Decimal  `json:"previous_month_kg"`
	// PercentChange is nil when the previous month has no emissions.
	PercentChange *decimal.Decimal `json:"percent_change"`

	RecordCount   int64 `json:"record_count"`
	ComputedCount int64 `json:"computed_count"`

	Breakdown []CategoryShare   `json:"breakdown"`
	Monthly   []MonthlyEmission `json:"monthly"`

	RecentRecords []consumptiondomain.Record `json:"recent_records"`
}
