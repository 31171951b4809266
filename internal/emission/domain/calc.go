package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	consumptiondomain "github.com/ecoledger/ecoledger/internal/consumption/domain"
	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
)

var hundred = decimal.NewFromInt(100)

// unitConversions maps (from, to) unit pairs to linear scale factors.
// Only same-dimension conversions exist; anything absent is a unit
// mismatch, not a zero.
var unitConversions = map[[2]string]decimal.Decimal{
	{"wh", "kwh"}:  decimal.RequireFromString("0.001"),
	{"mwh", "kwh"}: decimal.RequireFromString("1000"),
	{"kwh", "mwh"}: decimal.RequireFromString("0.001"),
	{"l", "m3"}:    decimal.RequireFromString("0.001"),
	{"ml", "l"}:    decimal.RequireFromString("0.001"),
	{"m3", "l"}:    decimal.RequireFromString("1000"),
	{"g", "kg"}:    decimal.RequireFromString("0.001"),
	{"kg", "t"}:    decimal.RequireFromString("0.001"),
	{"t", "kg"}:    decimal.RequireFromString("1000"),
}

var unitAliases = map[string]string{
	"kilowatt-hour": "kwh",
	"kilowatt_hour": "kwh",
	"watt-hour":     "wh",
	"megawatt-hour": "mwh",
	"liter":         "l",
	"litre":         "l",
	"liters":        "l",
	"litres":        "l",
	"m³":            "m3",
	"cubic_meter":   "m3",
	"cubic_metre":   "m3",
	"gram":          "g",
	"kilogram":      "kg",
	"kilograms":     "kg",
	"tonne":         "t",
	"tonnes":        "t",
	"ton":           "t",
}

// NormalizeUnit canonicalizes a unit label for conversion lookup.
func NormalizeUnit(unit string) string {
	unit = strings.ToLower(strings.TrimSpace(unit))
	unit = strings.ReplaceAll(unit, " ", "_")
	if canonical, ok := unitAliases[unit]; ok {
		return canonical
	}
	return unit
}

// ConversionScale returns the linear factor that converts from one unit to
// another, or an error when the units are incompatible.
func ConversionScale(from, to string) (decimal.Decimal, error) {
	fromUnit := NormalizeUnit(from)
	toUnit := NormalizeUnit(to)
	if fromUnit == toUnit {
		return decimal.NewFromInt(1), nil
	}
	if scale, ok := unitConversions[[2]string{fromUnit, toUnit}]; ok {
		return scale, nil
	}
	return decimal.Zero, fmt.Errorf("%w: cannot convert %q to %q", ErrUnitMismatch, from, to)
}

// Compute derives an emission result from a record and its resolved factor:
// total CO2e = quantity x factor, with the quantity converted to the
// factor's consumption unit first. Pure; persistence and IDs are the
// caller's concern.
func Compute(record consumptiondomain.Record, resolution factordomain.Resolution, now time.Time) (Result, error) {
	if record.Quantity.IsNegative() {
		return Result{}, consumptiondomain.ErrInvalidQuantity
	}

	scale, err := ConversionScale(record.Unit, resolution.Entry.PerUnit)
	if err != nil {
		return Result{}, err
	}
	quantity := record.Quantity.Mul(scale)
	total := quantity.Mul(resolution.Entry.Factor)

	category := factordomain.Category(record.Category)
	return Result{
		OrgID:        record.OrgID,
		RecordID:     record.ID,
		Category:     record.Category,
		Subtype:      resolution.Entry.Subtype,
		GHGScope:     category.GHGScope(),
		MatchedScope: string(resolution.MatchedScope),
		FactorValue:  resolution.Entry.Factor,
		FactorUnit:   resolution.Entry.Unit,
		TableVersion: resolution.TableVersion,
		Quantity:     quantity,
		QuantityUnit: resolution.Entry.PerUnit,
		TotalCO2eKg:  total,
		PeriodStart:  record.PeriodStart,
		PeriodEnd:    record.PeriodEnd,
		ComputedAt:   now.UTC(),
	}, nil
}

// Summarize rolls results up into a period summary. Only results whose
// period start falls inside the window (inclusive bounds) count.
// Invalidated results are skipped. The breakdown is ordered by descending
// subtotal, ties broken by category name, for presentation determinism.
func Summarize(orgID string, window Window, results []Result, previousTotalKg decimal.Decimal) PeriodSummary {
	total := decimal.Zero
	byCategory := make(map[string]decimal.Decimal)
	count := 0

	for _, result := range results {
		if result.Invalidated {
			continue
		}
		if !window.Contains(result.PeriodStart) {
			continue
		}
		total = total.Add(result.TotalCO2eKg)
		byCategory[result.Category] = byCategory[result.Category].Add(result.TotalCO2eKg)
		count++
	}

	breakdown := make([]CategorySubtotal, 0, len(byCategory))
	for category, subtotal := range byCategory {
		breakdown = append(breakdown, CategorySubtotal{Category: category, TotalCO2eKg: subtotal})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if !breakdown[i].TotalCO2eKg.Equal(breakdown[j].TotalCO2eKg) {
			return breakdown[i].TotalCO2eKg.GreaterThan(breakdown[j].TotalCO2eKg)
		}
		return breakdown[i].Category < breakdown[j].Category
	})

	return PeriodSummary{
		OrgID:                 orgID,
		PeriodStart:           window.Start,
		PeriodEnd:             window.End,
		TotalCO2eKg:           total,
		Breakdown:             breakdown,
		PreviousPeriodTotalKg: previousTotalKg,
		PercentChange:         PercentChange(total, previousTotalKg),
		ResultCount:           count,
	}
}

// PercentChange computes (current - previous) / previous * 100, or nil when
// there is no prior baseline.
func PercentChange(current, previous decimal.Decimal) *decimal.Decimal {
	if previous.IsZero() {
		return nil
	}
	change := current.Sub(previous).Div(previous).Mul(hundred)
	return &change
}
