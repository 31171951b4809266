// Package domain holds the organization model. Every record, result and
// report is scoped to one organization.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Organization struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	Name    string       `gorm:"type:text;not null" json:"name"`
	Slug    string       `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Country string       `gorm:"type:text" json:"country"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }
