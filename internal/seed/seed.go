// Package seed bootstraps the default organization on startup.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	organizationdomain "github.com/ecoledger/ecoledger/internal/organization/domain"
)

const (
	defaultOrgName = "Default Organization"
	defaultOrgSlug = "default"
)

// EnsureDefaultOrg seeds the default organization so single-tenant
// deployments work without an onboarding step.
func EnsureDefaultOrg(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing organizationdomain.Organization
		err := tx.Where("slug = ?", defaultOrgSlug).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		org := organizationdomain.Organization{
			ID:        node.Generate(),
			Name:      defaultOrgName,
			Slug:      strings.ToLower(defaultOrgSlug),
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Create(&org).Error
	})
}
