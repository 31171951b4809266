// Package domain contains persistence models for consumption record ingestion.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	// RecordStatusAccepted marks a record awaiting emission computation.
	RecordStatusAccepted = "accepted"
	// RecordStatusComputed marks a record with a stored emission result.
	// Computed records are immutable; corrections require invalidation
	// and re-ingestion.
	RecordStatusComputed = "computed"
	// RecordStatusInvalidated marks a record excluded from summaries.
	RecordStatusInvalidated = "invalidated"
)

// Record stores one unit of consumption extracted from a utility bill or
// entered manually. Validation of the upstream extraction happens before
// ingestion; this model is the engine's input contract.
type Record struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"not null;index" json:"org_id"`

	Category string `gorm:"type:text;not null" json:"category"`
	Subtype  string `gorm:"type:text;not null" json:"subtype"`
	Country  string `gorm:"type:text" json:"country"`
	Region   string `gorm:"type:text" json:"region,omitempty"`

	Quantity decimal.Decimal `gorm:"type:decimal(24,6);not null" json:"quantity"`
	Unit     string          `gorm:"type:text;not null" json:"unit"`

	PeriodStart time.Time `gorm:"not null;index" json:"period_start"`
	PeriodEnd   time.Time `gorm:"not null" json:"period_end"`

	Status         string            `gorm:"type:text;not null;default:accepted" json:"status"`
	IdempotencyKey *string           `gorm:"type:text" json:"idempotency_key,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Record) TableName() string { return "consumption_records" }
