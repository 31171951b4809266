package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ecoledger/ecoledger/internal/clock"
	compliancedomain "github.com/ecoledger/ecoledger/internal/compliance/domain"
	consumptiondomain "github.com/ecoledger/ecoledger/internal/consumption/domain"
	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
)

var kgPerTonne = decimal.NewFromInt(1000)

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	factorSvc factordomain.Service
	clock     clock.Clock
}

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	FactorSvc factordomain.Service
	Clock     clock.Clock
}

func NewService(p ServiceParam) compliancedomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("compliance.service"),
		factorSvc: p.FactorSvc,
		clock:     p.Clock,
	}
}

func (s *Service) Evaluate(ctx context.Context, orgID string) (compliancedomain.Status, error) {
	org, err := snowflake.ParseString(strings.TrimSpace(orgID))
	if err != nil || org == 0 {
		return compliancedomain.Status{}, compliancedomain.ErrInvalidOrganization
	}

	policy := s.factorSvc.Policy().Compliance
	now := s.clock.Now()
	yearAgo := now.AddDate(-1, 0, 0)

	trailingKg, err := s.sumSince(ctx, org, yearAgo)
	if err != nil {
		return compliancedomain.Status{}, err
	}
	trailingTonnes := trailingKg.Div(kgPerTonne)

	resultCount, scope2Count, err := s.resultCounts(ctx, org)
	if err != nil {
		return compliancedomain.Status{}, err
	}
	validated, err := s.validatedRecords(ctx, org)
	if err != nil {
		return compliancedomain.Status{}, err
	}

	overThreshold := trailingTonnes.GreaterThan(policy.EmissionsThresholdTonnes)

	checks := []compliancedomain.Check{
		disclosureCheck(resultCount),
		scope2Check(scope2Count),
		completenessCheck(validated, policy.MinValidatedRecords),
		thresholdCheck(trailingTonnes, policy.EmissionsThresholdTonnes, overThreshold),
	}

	return compliancedomain.Status{
		OrgID:              org.String(),
		TrailingYearTonnes: trailingTonnes,
		ThresholdTonnes:    policy.EmissionsThresholdTonnes,
		OverThreshold:      overThreshold,
		ValidatedRecords:   validated,
		Checks:             checks,
		Overall:            overall(checks),
		AsOf:               now,
	}, nil
}

func disclosureCheck(resultCount int) compliancedomain.Check {
	check := compliancedomain.Check{
		Framework:   "GRI 305",
		Requirement: "Direct and indirect GHG emissions disclosed",
	}
	if resultCount == 0 {
		check.Status = compliancedomain.StatusNoData
		check.Detail = "no computed emissions to disclose"
		return check
	}
	check.Status = compliancedomain.StatusCompliant
	check.Detail = fmt.Sprintf("%d computed emission results on record", resultCount)
	return check
}

func scope2Check(scope2Count int) compliancedomain.Check {
	check := compliancedomain.Check{
		Framework:   "ISO 14064",
		Requirement: "Scope 2 electricity emissions quantified",
	}
	if scope2Count == 0 {
		check.Status = compliancedomain.StatusActionNeeded
		check.Detail = "no electricity consumption tracked"
		return check
	}
	check.Status = compliancedomain.StatusCompliant
	check.Detail = fmt.Sprintf("%d Scope 2 results quantified", scope2Count)
	return check
}

func completenessCheck(validated, required int) compliancedomain.Check {
	check := compliancedomain.Check{
		Framework:   "CDP",
		Requirement: fmt.Sprintf("At least %d validated consumption records", required),
	}
	if validated < required {
		check.Status = compliancedomain.StatusActionNeeded
		check.Detail = fmt.Sprintf("%d of %d validated records", validated, required)
		return check
	}
	check.Status = compliancedomain.StatusCompliant
	check.Detail = fmt.Sprintf("%d validated records", validated)
	return check
}

func thresholdCheck(trailing, threshold decimal.Decimal, over bool) compliancedomain.Check {
	check := compliancedomain.Check{
		Framework:   "Reporting threshold",
		Requirement: fmt.Sprintf("Trailing year emissions within %s tCO2e", threshold),
	}
	if over {
		check.Status = compliancedomain.StatusActionNeeded
		check.Detail = fmt.Sprintf("%s tCO2e exceeds the %s tCO2e threshold; regulatory reporting applies", trailing.Round(3), threshold)
		return check
	}
	check.Status = compliancedomain.StatusCompliant
	check.Detail = fmt.Sprintf("%s tCO2e within threshold", trailing.Round(3))
	return check
}

func overall(checks []compliancedomain.Check) string {
	sawData := false
	for _, check := range checks {
		switch check.Status {
		case compliancedomain.StatusActionNeeded:
			return compliancedomain.StatusActionNeeded
		case compliancedomain.StatusCompliant:
			sawData = true
		}
	}
	if !sawData {
		return compliancedomain.StatusNoData
	}
	return compliancedomain.StatusCompliant
}

func (s *Service) sumSince(ctx context.Context, orgID snowflake.ID, since time.Time) (decimal.Decimal, error) {
	var raw string
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(total_co2e_kg), 0)
		 FROM emission_results
		 WHERE org_id = ? AND invalidated = false AND period_start >= ?`,
		orgID,
		since,
	).Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(strings.TrimSpace(raw))
}

func (s *Service) resultCounts(ctx context.Context, orgID snowflake.ID) (total, scope2 int, err error) {
	err = s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM emission_results WHERE org_id = ? AND invalidated = false`,
		orgID,
	).Scan(&total).Error
	if err != nil {
		return 0, 0, err
	}
	err = s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM emission_results WHERE org_id = ? AND invalidated = false AND ghg_scope = ?`,
		orgID,
		"Scope 2",
	).Scan(&scope2).Error
	if err != nil {
		return 0, 0, err
	}
	return total, scope2, nil
}

func (s *Service) validatedRecords(ctx context.Context, orgID snowflake.ID) (int, error) {
	var count int
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM consumption_records WHERE org_id = ? AND status = ?`,
		orgID,
		consumptiondomain.RecordStatusComputed,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
