// Package domain defines carbon credit estimation models. Prices come from
// the policy section of the reloadable factor bundle.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
)

// SourceShare attributes part of the offset basis to an emission category.
type SourceShare struct {
	Category    string          `json:"category"`
	TotalCO2eKg decimal.Decimal `json:"total_co2e_kg"`
	Tonnes      decimal.Decimal `json:"tonnes"`
}

// Estimate prices the credits needed to offset a share of an organization's
// emissions over a window.
type Estimate struct {
	OrgID       string    `json:"org_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`

	EmissionsTonnes decimal.Decimal `json:"emissions_tonnes"`
	OffsetPercent   decimal.Decimal `json:"offset_percent"`
	CreditsTonnes   decimal.Decimal `json:"credits_tonnes"`

	ProjectType      string          `json:"project_type"`
	PricePerTonneUSD decimal.Decimal `json:"price_per_tonne_usd"`
	EstimatedCostUSD decimal.Decimal `json:"estimated_cost_usd"`

	Sources []SourceShare `json:"sources"`
}

// Projects lists the offset projects available for purchase.
type Projects struct {
	Projects []factordomain.CreditProject `json:"projects"`
}
