package service

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
)

type factorFile struct {
	Version    string                 `yaml:"version"`
	Categories map[string][]entrySpec `yaml:"categories"`
	Policy     policySpec             `yaml:"policy"`
}

type entrySpec struct {
	Subtype string `yaml:"subtype"`
	Country string `yaml:"country"`
	Region  string `yaml:"region"`
	Factor  string `yaml:"factor"`
	Unit    string `yaml:"unit"`
}

type policySpec struct {
	Compliance struct {
		EmissionsThresholdTonnes string `yaml:"emissions_threshold_tonnes"`
		MinValidatedRecords      int    `yaml:"min_validated_records"`
	} `yaml:"compliance"`
	Credits struct {
		DefaultPricePerTonneUSD string            `yaml:"default_price_per_tonne_usd"`
		ProjectPrices           map[string]string `yaml:"project_prices"`
		Projects                []struct {
			Type          string `yaml:"type"`
			Name          string `yaml:"name"`
			Location      string `yaml:"location"`
			Certification string `yaml:"certification"`
			PricePerTonne string `yaml:"price_per_tonne"`
		} `yaml:"projects"`
	} `yaml:"credits"`
}

type entryKey struct {
	category factordomain.Category
	subtype  string
	country  string
	region   string
}

// snapshot is an immutable view of one loaded reference table. Reload builds
// a fresh snapshot and swaps the pointer; in-flight readers keep theirs.
type snapshot struct {
	version string
	entries map[entryKey]factordomain.Entry
	policy  factordomain.Policy
}

// loadSnapshot reads the reference table from path, or from the embedded
// default table when path is empty.
func loadSnapshot(path string) (*snapshot, error) {
	raw := defaultFactorsYAML
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read factor table: %w", err)
		}
		raw = data
	}
	return parseSnapshot(raw)
}

func parseSnapshot(raw []byte) (*snapshot, error) {
	var file factorFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse factor table: %w", err)
	}
	if strings.TrimSpace(file.Version) == "" {
		return nil, fmt.Errorf("%w: factor table version is required", factordomain.ErrInvalidEntry)
	}

	entries := make(map[entryKey]factordomain.Entry)
	for rawCategory, specs := range file.Categories {
		category, err := factordomain.ParseCategory(rawCategory)
		if err != nil {
			return nil, err
		}
		for _, spec := range specs {
			entry, err := buildEntry(category, spec)
			if err != nil {
				return nil, err
			}
			key := keyFor(entry)
			if _, exists := entries[key]; exists {
				return nil, fmt.Errorf("%w: duplicate entry %s/%s/%s/%s",
					factordomain.ErrInvalidEntry, category, entry.Subtype, entry.Country, entry.Region)
			}
			entries[key] = entry
		}
	}

	if err := validateDefaults(file.Categories, entries); err != nil {
		return nil, err
	}

	policy, err := buildPolicy(file.Policy)
	if err != nil {
		return nil, err
	}

	return &snapshot{
		version: strings.TrimSpace(file.Version),
		entries: entries,
		policy:  policy,
	}, nil
}

func buildEntry(category factordomain.Category, spec entrySpec) (factordomain.Entry, error) {
	factor, err := decimal.NewFromString(strings.TrimSpace(spec.Factor))
	if err != nil {
		return factordomain.Entry{}, fmt.Errorf("%w: factor %q: %v", factordomain.ErrInvalidEntry, spec.Factor, err)
	}
	if !factor.IsPositive() {
		return factordomain.Entry{}, fmt.Errorf("%w: factor must be positive, got %s", factordomain.ErrInvalidEntry, factor)
	}

	unit := strings.TrimSpace(spec.Unit)
	perUnit := perUnitOf(unit)
	if perUnit == "" {
		return factordomain.Entry{}, fmt.Errorf("%w: unit %q must be of the form \"kg CO2e/<unit>\"", factordomain.ErrInvalidEntry, spec.Unit)
	}

	subtype := factordomain.Normalize(spec.Subtype)
	if subtype == "" {
		subtype = factordomain.DefaultSubtype
	}
	country := factordomain.Normalize(spec.Country)
	if country == "" {
		country = factordomain.GlobalCountry
	}

	return factordomain.Entry{
		Category: category,
		Subtype:  subtype,
		Country:  country,
		Region:   factordomain.Normalize(spec.Region),
		Factor:   factor,
		Unit:     unit,
		PerUnit:  perUnit,
	}, nil
}

// validateDefaults enforces the table invariant: every category present must
// carry a region-less global default so resolution can always terminate.
func validateDefaults(categories map[string][]entrySpec, entries map[entryKey]factordomain.Entry) error {
	for rawCategory := range categories {
		category, err := factordomain.ParseCategory(rawCategory)
		if err != nil {
			return err
		}
		key := entryKey{
			category: category,
			subtype:  factordomain.DefaultSubtype,
			country:  factordomain.GlobalCountry,
		}
		if _, ok := entries[key]; !ok {
			return fmt.Errorf("%w: category %s needs a global %q entry",
				factordomain.ErrMissingDefault, category, factordomain.DefaultSubtype)
		}
	}
	return nil
}

func buildPolicy(spec policySpec) (factordomain.Policy, error) {
	threshold, err := parseDecimalOr(spec.Compliance.EmissionsThresholdTonnes, "100")
	if err != nil {
		return factordomain.Policy{}, fmt.Errorf("%w: compliance threshold: %v", factordomain.ErrInvalidEntry, err)
	}

	defaultPrice, err := parseDecimalOr(spec.Credits.DefaultPricePerTonneUSD, "25")
	if err != nil {
		return factordomain.Policy{}, fmt.Errorf("%w: default credit price: %v", factordomain.ErrInvalidEntry, err)
	}

	prices := make(map[string]decimal.Decimal, len(spec.Credits.ProjectPrices))
	for projectType, raw := range spec.Credits.ProjectPrices {
		price, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return factordomain.Policy{}, fmt.Errorf("%w: credit price for %q: %v", factordomain.ErrInvalidEntry, projectType, err)
		}
		prices[factordomain.Normalize(projectType)] = price
	}

	projects := make([]factordomain.CreditProject, 0, len(spec.Credits.Projects))
	for _, project := range spec.Credits.Projects {
		price, err := parseDecimalOr(project.PricePerTonne, defaultPrice.String())
		if err != nil {
			return factordomain.Policy{}, fmt.Errorf("%w: project %q price: %v", factordomain.ErrInvalidEntry, project.Name, err)
		}
		projects = append(projects, factordomain.CreditProject{
			Type:             factordomain.Normalize(project.Type),
			Name:             strings.TrimSpace(project.Name),
			Location:         strings.TrimSpace(project.Location),
			Certification:    strings.TrimSpace(project.Certification),
			PricePerTonneUSD: price,
		})
	}

	minValidated := spec.Compliance.MinValidatedRecords
	if minValidated <= 0 {
		minValidated = 3
	}

	return factordomain.Policy{
		Compliance: factordomain.CompliancePolicy{
			EmissionsThresholdTonnes: threshold,
			MinValidatedRecords:      minValidated,
		},
		Credits: factordomain.CreditPolicy{
			DefaultPricePerTonneUSD: defaultPrice,
			PricePerTonneUSD:        prices,
			Projects:                projects,
		},
	}, nil
}

func parseDecimalOr(raw, fallback string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	return decimal.NewFromString(raw)
}

func perUnitOf(unit string) string {
	idx := strings.LastIndex(unit, "/")
	if idx < 0 || idx == len(unit)-1 {
		return ""
	}
	return strings.TrimSpace(unit[idx+1:])
}

func keyFor(entry factordomain.Entry) entryKey {
	return entryKey{
		category: entry.Category,
		subtype:  entry.Subtype,
		country:  entry.Country,
		region:   entry.Region,
	}
}
