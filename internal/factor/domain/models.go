// Package domain defines the emission factor reference model.
package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Category is the closed set of utility categories the engine accounts for.
type Category string

const (
	CategoryElectricity Category = "electricity"
	CategoryFuel        Category = "fuel"
	CategoryWater       Category = "water"
	CategoryWaste       Category = "waste"
)

// Categories returns every known category in declaration order.
func Categories() []Category {
	return []Category{CategoryElectricity, CategoryFuel, CategoryWater, CategoryWaste}
}

// ParseCategory validates a raw category string.
func ParseCategory(value string) (Category, error) {
	switch Category(Normalize(value)) {
	case CategoryElectricity:
		return CategoryElectricity, nil
	case CategoryFuel:
		return CategoryFuel, nil
	case CategoryWater:
		return CategoryWater, nil
	case CategoryWaste:
		return CategoryWaste, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, value)
	}
}

// GHGScope maps a category to its GHG Protocol scope label.
func (c Category) GHGScope() string {
	switch c {
	case CategoryFuel:
		return "Scope 1"
	case CategoryElectricity:
		return "Scope 2"
	default:
		return "Scope 3"
	}
}

// MatchedScope reports which lookup tier satisfied a resolution, so callers
// can disclose the approximation level in reports.
type MatchedScope string

const (
	MatchExactRegion    MatchedScope = "exact-region"
	MatchCountryDefault MatchedScope = "country-default"
	MatchGlobalDefault  MatchedScope = "global-default"
)

const (
	// GlobalCountry keys entries that apply when no country-specific
	// factor exists.
	GlobalCountry = "global"
	// DefaultSubtype keys the per-category fallback entry every category
	// must carry.
	DefaultSubtype = "default"
)

// Entry is one immutable emission factor. Factor is mass CO2e per PerUnit
// of consumption.
type Entry struct {
	Category Category
	Subtype  string
	Country  string
	Region   string
	Factor   decimal.Decimal
	Unit     string // full unit label, e.g. "kg CO2e/kWh"
	PerUnit  string // consumption denominator, e.g. "kWh"
}

// Resolution is the outcome of a factor lookup.
type Resolution struct {
	Entry        Entry
	MatchedScope MatchedScope
	TableVersion string
}

// ResolveRequest identifies the factor to look up. Region is optional.
type ResolveRequest struct {
	Category Category
	Subtype  string
	Country  string
	Region   string
}

// Policy carries the reloadable business constants that ship alongside the
// factor table: compliance thresholds and carbon credit pricing.
type Policy struct {
	Compliance CompliancePolicy
	Credits    CreditPolicy
}

type CompliancePolicy struct {
	EmissionsThresholdTonnes decimal.Decimal
	MinValidatedRecords      int
}

type CreditPolicy struct {
	DefaultPricePerTonneUSD decimal.Decimal
	PricePerTonneUSD        map[string]decimal.Decimal
	Projects                []CreditProject
}

type CreditProject struct {
	Type             string
	Name             string
	Location         string
	Certification    string
	PricePerTonneUSD decimal.Decimal
}

// Normalize canonicalizes lookup keys: trimmed, lowercase, spaces collapsed
// to underscores. "New South Wales" and "new_south_wales" hit the same entry.
func Normalize(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.ReplaceAll(value, " ", "_")
}
