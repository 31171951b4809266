package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ecoledger/ecoledger/internal/clock"
	emissiondomain "github.com/ecoledger/ecoledger/internal/emission/domain"
	"github.com/ecoledger/ecoledger/internal/events"
	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
	reportdomain "github.com/ecoledger/ecoledger/internal/report/domain"
	"github.com/ecoledger/ecoledger/internal/report/render"
)

var (
	hundred    = decimal.NewFromInt(100)
	kgPerTonne = decimal.NewFromInt(1000)
)

var scopeDescriptions = map[string]string{
	"Scope 1": "Direct emissions from owned or controlled sources",
	"Scope 2": "Indirect emissions from purchased electricity",
	"Scope 3": "Other indirect emissions in the value chain",
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	factorSvc factordomain.Service
	renderer  render.Renderer
	clock     clock.Clock
	outbox    *events.Outbox
}

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	FactorSvc factordomain.Service
	Renderer  render.Renderer
	Clock     clock.Clock
	Outbox    *events.Outbox `optional:"true"`
}

func NewService(p ServiceParam) reportdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("report.service"),
		genID:     p.GenID,
		factorSvc: p.FactorSvc,
		renderer:  p.Renderer,
		clock:     p.Clock,
		outbox:    p.Outbox,
	}
}

func (s *Service) Generate(ctx context.Context, req reportdomain.GenerateRequest) (*reportdomain.Report, error) {
	org, err := snowflake.ParseString(strings.TrimSpace(req.OrgID))
	if err != nil || org == 0 {
		return nil, reportdomain.ErrInvalidOrganization
	}

	start, end := req.PeriodStart, req.PeriodEnd
	if start.IsZero() || end.IsZero() {
		end = s.clock.Now()
		start = end.AddDate(-1, 0, 0)
	}

	var results []emissiondomain.Result
	err = s.db.WithContext(ctx).
		Where("org_id = ? AND invalidated = false AND period_start >= ? AND period_start <= ?", org, start.UTC(), end.UTC()).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, reportdomain.ErrNoData
	}

	now := s.clock.Now()
	input, total := buildRenderInput(req, results, s.factorSvc.Version(), start, end, now)
	html, err := s.renderer.RenderHTML(input)
	if err != nil {
		return nil, err
	}

	report := reportdomain.Report{
		ID:           s.genID.Generate(),
		OrgID:        org,
		Framework:    input.Report.Framework,
		TableVersion: s.factorSvc.Version(),
		PeriodStart:  start.UTC(),
		PeriodEnd:    end.UTC(),
		TotalCO2eKg:  total,
		ResultCount:  len(results),
		HTML:         html,
		GeneratedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		if s.outbox != nil {
			return s.outbox.PublishTx(ctx, tx, events.Event{
				OrgID: org,
				Type:  events.EventReportGenerated,
				Payload: map[string]any{
					"report_id":     report.ID.String(),
					"org_id":        org.String(),
					"table_version": report.TableVersion,
					"total_co2e_kg": report.TotalCO2eKg.String(),
				},
				DedupeKey: report.ID.String(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Service) Get(ctx context.Context, orgID, reportID string) (*reportdomain.Report, error) {
	org, err := snowflake.ParseString(strings.TrimSpace(orgID))
	if err != nil || org == 0 {
		return nil, reportdomain.ErrInvalidOrganization
	}
	id, err := snowflake.ParseString(strings.TrimSpace(reportID))
	if err != nil {
		return nil, reportdomain.ErrReportNotFound
	}

	var report reportdomain.Report
	err = s.db.WithContext(ctx).
		Where("id = ? AND org_id = ?", id, org).
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reportdomain.ErrReportNotFound
		}
		return nil, err
	}
	return &report, nil
}

func (s *Service) List(ctx context.Context, orgID string) ([]reportdomain.Report, error) {
	org, err := snowflake.ParseString(strings.TrimSpace(orgID))
	if err != nil || org == 0 {
		return nil, reportdomain.ErrInvalidOrganization
	}

	var reports []reportdomain.Report
	err = s.db.WithContext(ctx).
		Select("id", "org_id", "framework", "table_version", "period_start", "period_end", "total_co2e_kg", "result_count", "generated_at").
		Where("org_id = ?", org).
		Order("generated_at DESC").
		Limit(50).
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

type categoryRollup struct {
	scope        string
	total        decimal.Decimal
	count        int
	matchedScope string
}

func buildRenderInput(req reportdomain.GenerateRequest, results []emissiondomain.Result, tableVersion string, start, end, now time.Time) (render.RenderInput, decimal.Decimal) {
	total := decimal.Zero
	byScope := make(map[string]decimal.Decimal)
	byCategory := make(map[string]*categoryRollup)

	for _, result := range results {
		total = total.Add(result.TotalCO2eKg)
		byScope[result.GHGScope] = byScope[result.GHGScope].Add(result.TotalCO2eKg)

		rollup, ok := byCategory[result.Category]
		if !ok {
			rollup = &categoryRollup{scope: result.GHGScope, matchedScope: result.MatchedScope}
			byCategory[result.Category] = rollup
		}
		rollup.total = rollup.total.Add(result.TotalCO2eKg)
		rollup.count++
		// Disclose the coarsest tier used for any result in the category.
		if tierRank(result.MatchedScope) > tierRank(rollup.matchedScope) {
			rollup.matchedScope = result.MatchedScope
		}
	}

	scopes := make([]render.ScopeLineView, 0, len(byScope))
	for scope, subtotal := range byScope {
		percent := decimal.Zero
		if !total.IsZero() {
			percent = subtotal.Div(total).Mul(hundred).Round(1)
		}
		scopes = append(scopes, render.ScopeLineView{
			Scope:       scope,
			Description: scopeDescriptions[scope],
			TotalKg:     subtotal.Round(3).String(),
			Percent:     percent.String(),
		})
	}
	sort.Slice(scopes, func(i, j int) bool { return scopes[i].Scope < scopes[j].Scope })

	categories := make([]render.CategoryLineView, 0, len(byCategory))
	disclosures := make([]render.DisclosureView, 0)
	for category, rollup := range byCategory {
		categories = append(categories, render.CategoryLineView{
			Category:     category,
			Scope:        rollup.scope,
			TotalKg:      rollup.total.Round(3).String(),
			ResultCount:  rollup.count,
			MatchedScope: rollup.matchedScope,
		})
		if rollup.matchedScope != string(factordomain.MatchExactRegion) {
			disclosures = append(disclosures, render.DisclosureView{
				Category: category,
				Note:     fmt.Sprintf("computed with %s factors; region-specific factors were not available for every record", rollup.matchedScope),
			})
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Category < categories[j].Category })
	sort.Slice(disclosures, func(i, j int) bool { return disclosures[i].Category < disclosures[j].Category })

	startUTC, endUTC, nowUTC := start.UTC(), end.UTC(), now.UTC()
	input := render.RenderInput{
		Organization: render.OrganizationView{
			Name:    req.OrganizationName,
			Country: req.Country,
		},
		Report: render.ReportView{
			Title:        "GHG Emissions Report",
			Framework:    "GRI 305",
			PeriodStart:  &startUTC,
			PeriodEnd:    &endUTC,
			GeneratedAt:  &nowUTC,
			TableVersion: tableVersion,
			TotalKg:      total.Round(3).String(),
			TotalTonnes:  total.Div(kgPerTonne).Round(3).String(),
		},
		Scopes:      scopes,
		Categories:  categories,
		Disclosures: disclosures,
	}
	return input, total
}

func tierRank(matchedScope string) int {
	switch matchedScope {
	case string(factordomain.MatchExactRegion):
		return 0
	case string(factordomain.MatchCountryDefault):
		return 1
	default:
		return 2
	}
}
