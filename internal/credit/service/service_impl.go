package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ecoledger/ecoledger/internal/clock"
	creditdomain "github.com/ecoledger/ecoledger/internal/credit/domain"
	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
)

var (
	hundred    = decimal.NewFromInt(100)
	kgPerTonne = decimal.NewFromInt(1000)
)

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

func NewService(p ServiceParam) creditdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("credit.service"),
		factorSvc: p.FactorSvc,
		clock:     p.Clock,
	}
}

func (s *Service) Estimate(ctx context.Context, req creditdomain.EstimateRequest) (creditdomain.Estimate, error) {
	org, err := snowflake.ParseString(strings.TrimSpace(req.OrgID))
	if err != nil || org == 0 {
		return creditdomain.Estimate{}, creditdomain.ErrInvalidOrganization
	}

	offset, err := parseOffset(req.OffsetPercent)
	if err != nil {
		return creditdomain.Estimate{}, err
	}

	policy := s.factorSvc.Policy().Credits
	price, projectType, err := resolvePrice(policy, req.ProjectType)
	if err != nil {
		return creditdomain.Estimate{}, err
	}

	start, end := req.PeriodStart, req.PeriodEnd
	if start.IsZero() || end.IsZero() {
		end = s.clock.Now()
		start = end.AddDate(-1, 0, 0)
	}

	sources, totalKg, err := s.loadSources(ctx, org, start, end)
	if err != nil {
		return creditdomain.Estimate{}, err
	}

	emissionsTonnes := totalKg.Div(kgPerTonne)
	credits := emissionsTonnes.Mul(offset).Div(hundred)
	cost := credits.Mul(price).Round(2)

	return creditdomain.Estimate{
		OrgID:            org.String(),
		PeriodStart:      start,
		PeriodEnd:        end,
		EmissionsTonnes:  emissionsTonnes,
		OffsetPercent:    offset,
		CreditsTonnes:    credits,
		ProjectType:      projectType,
		PricePerTonneUSD: price,
		EstimatedCostUSD: cost,
		Sources:          sources,
	}, nil
}

func (s *Service) ListProjects(_ context.Context) (creditdomain.Projects, error) {
	return creditdomain.Projects{Projects: s.factorSvc.Policy().Credits.Projects}, nil
}

func parseOffset(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return hundred, nil
	}
	offset, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, creditdomain.ErrInvalidOffset
	}
	if offset.IsNegative() || offset.GreaterThan(hundred) || offset.IsZero() {
		return decimal.Zero, creditdomain.ErrInvalidOffset
	}
	return offset, nil
}

func resolvePrice(policy factordomain.CreditPolicy, projectType string) (decimal.Decimal, string, error) {
	projectType = strings.ToLower(strings.TrimSpace(projectType))
	if projectType == "" {
		return policy.DefaultPricePerTonneUSD, "default", nil
	}
	price, ok := policy.PricePerTonneUSD[projectType]
	if !ok {
		return decimal.Zero, "", creditdomain.ErrUnknownProject
	}
	return price, projectType, nil
}

func (s *Service) loadSources(ctx context.Context, orgID snowflake.ID, start, end time.Time) ([]creditdomain.SourceShare, decimal.Decimal, error) {
	var rows []struct {
		Category string
		Total    string
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT category, COALESCE(SUM(total_co2e_kg), 0) AS total
		 FROM emission_results
		 WHERE org_id = ? AND invalidated = false
		 AND period_start >= ? AND period_start < ?
		 GROUP BY category
		 ORDER BY total DESC, category ASC`,
		orgID,
		start,
		end,
	).Scan(&rows).Error
	if err != nil {
		return nil, decimal.Zero, err
	}

	sources := make([]creditdomain.SourceShare, 0, len(rows))
	total := decimal.Zero
	for _, row := range rows {
		subtotal, err := decimal.NewFromString(strings.TrimSpace(row.Total))
		if err != nil {
			return nil, decimal.Zero, err
		}
		total = total.Add(subtotal)
		sources = append(sources, creditdomain.SourceShare{
			Category:    row.Category,
			TotalCO2eKg: subtotal,
			Tonnes:      subtotal.Div(kgPerTonne),
		})
	}
	return sources, total, nil
}
