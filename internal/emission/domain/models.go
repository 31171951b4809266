// Package domain holds the emission computation model and the pure
// aggregation functions over it.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Result is one computed emission, derived from a consumption record and a
// resolved factor. Stored alongside the record and recomputed only when the
// record is re-ingested or the factor table version changes.
type Result struct {
	ID       snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID    snowflake.ID `gorm:"not null;index" json:"org_id"`
	RecordID snowflake.ID `gorm:"not null;index" json:"record_id"`

	Category string `gorm:"type:text;not null" json:"category"`
	Subtype  string `gorm:"type:text;not null" json:"subtype"`
	GHGScope string `gorm:"type:text;not null" json:"ghg_scope"`

	// MatchedScope discloses the factor lookup tier so downstream reports
	// can state the approximation level.
	MatchedScope string `gorm:"type:text;not null" json:"matched_scope"`

	FactorValue  decimal.Decimal `gorm:"type:decimal(24,9);not null" json:"factor_value"`
	FactorUnit   string          `gorm:"type:text;not null" json:"factor_unit"`
	TableVersion string          `gorm:"type:text;not null" json:"table_version"`

	Quantity     decimal.Decimal `gorm:"type:decimal(24,6);not null" json:"quantity"`
	QuantityUnit string          `gorm:"type:text;not null" json:"quantity_unit"`

	// TotalCO2eKg is quantity x factor after unit conversion, in kg CO2e.
	TotalCO2eKg decimal.Decimal `gorm:"type:decimal(24,6);not null" json:"total_co2e_kg"`

	PeriodStart time.Time `gorm:"not null;index" json:"period_start"`
	PeriodEnd   time.Time `gorm:"not null" json:"period_end"`

	Invalidated bool      `gorm:"not null;default:false" json:"-"`
	Checksum    string    `gorm:"type:text;uniqueIndex" json:"-"`
	ComputedAt  time.Time `gorm:"not null" json:"computed_at"`
}

// TableName sets the database table name.
func (Result) TableName() string { return "emission_results" }

// TotalCO2eTonnes converts the stored kg total to tonnes.
func (r Result) TotalCO2eTonnes() decimal.Decimal {
	return r.TotalCO2eKg.Div(decimal.NewFromInt(1000))
}

// Window bounds a reporting period. Contains treats both bounds as
// inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Previous returns the immediately preceding window of equal length. The
// returned window's End coincides with this window's Start; callers treat
// that bound as exclusive when selecting prior-period results.
func (w Window) Previous() Window {
	d := w.End.Sub(w.Start)
	return Window{Start: w.Start.Add(-d), End: w.Start}
}

// CategorySubtotal is one line of a summary breakdown.
type CategorySubtotal struct {
	Category    string          `json:"category"`
	TotalCO2eKg decimal.Decimal `json:"total_co2e_kg"`
}

// PeriodSummary aggregates an organization's results over a window.
// PercentChange is nil when the previous period total is zero: "no prior
// baseline", never infinity and never an error.
type PeriodSummary struct {
	OrgID       string    `json:"org_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	TotalCO2eKg decimal.Decimal    `json:"total_co2e_kg"`
	Breakdown   []CategorySubtotal `json:"breakdown"`

	PreviousPeriodTotalKg decimal.Decimal  `json:"previous_period_total_kg"`
	PercentChange         *decimal.Decimal `json:"percent_change"`

	ResultCount int `json:"result_count"`
}

// RecordFailure reports one record that could not be computed during a
// batch run. A failed record never aborts the batch.
type RecordFailure struct {
	RecordID string `json:"record_id"`
	Reason   string `json:"reason"`
}

// BatchOutcome carries partial results alongside partial failures so
// callers can report "N of M records computed".
type BatchOutcome struct {
	Computed []Result        `json:"computed"`
	Failures []RecordFailure `json:"failures"`
}
