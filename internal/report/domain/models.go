// Package domain contains the persisted report model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Report is a rendered emissions report kept for audit. The HTML is stored
// as generated; regenerating over the same window after a factor reload
// produces a new report rather than mutating this one.
type Report struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"not null;index" json:"org_id"`

	Framework    string `gorm:"type:text;not null" json:"framework"`
	TableVersion string `gorm:"type:text;not null" json:"table_version"`

	PeriodStart time.Time `gorm:"not null" json:"period_start"`
	PeriodEnd   time.Time `gorm:"not null" json:"period_end"`

	TotalCO2eKg decimal.Decimal `gorm:"type:decimal(24,6);not null" json:"total_co2e_kg"`
	ResultCount int             `gorm:"not null" json:"result_count"`

	HTML string `gorm:"type:text;not null" json:"-"`

	GeneratedAt time.Time `gorm:"not null" json:"generated_at"`
}

// TableName sets the database table name.
func (Report) TableName() string { return "reports" }
