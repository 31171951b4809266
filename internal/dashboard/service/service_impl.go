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
	consumptiondomain "github.com/ecoledger/ecoledger/internal/consumption/domain"
	dashboarddomain "github.com/ecoledger/ecoledger/internal/dashboard/domain"
	emissiondomain "github.com/ecoledger/ecoledger/internal/emission/domain"
)

const (
	trailingMonths = 6
	recentLimit    = 5
)

var hundred = decimal.NewFromInt(100)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
}

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

func NewService(p ServiceParam) dashboarddomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("dashboard.service"),
		clock: p.Clock,
	}
}

func (s *Service) Stats(ctx context.Context, orgID string) (dashboarddomain.Stats, error) {
	org, err := snowflake.ParseString(strings.TrimSpace(orgID))
	if err != nil || org == 0 {
		return dashboarddomain.Stats{}, dashboarddomain.ErrInvalidOrganization
	}

	now := s.clock.Now()
	currentStart := monthStart(now)
	previousStart := currentStart.AddDate(0, -1, 0)

	total, err := s.sumBetween(ctx, org, time.Time{}, time.Time{})
	if err != nil {
		return dashboarddomain.Stats{}, err
	}
	currentMonth, err := s.sumBetween(ctx, org, currentStart, currentStart.AddDate(0, 1, 0))
	if err != nil {
		return dashboarddomain.Stats{}, err
	}
	previousMonth, err := s.sumBetween(ctx, org, previousStart, currentStart)
	if err != nil {
		return dashboarddomain.Stats{}, err
	}

	breakdown, err := s.categoryBreakdown(ctx, org, total)
	if err != nil {
		return dashboarddomain.Stats{}, err
	}
	monthly, err := s.monthlySeries(ctx, org, currentStart)
	if err != nil {
		return dashboarddomain.Stats{}, err
	}
	recordCount, computedCount, err := s.recordCounts(ctx, org)
	if err != nil {
		return dashboarddomain.Stats{}, err
	}
	recent, err := s.recentRecords(ctx, org)
	if err != nil {
		return dashboarddomain.Stats{}, err
	}

	return dashboarddomain.Stats{
		OrgID:           org.String(),
		TotalCO2eKg:     total,
		TotalCO2eTonnes: total.Div(decimal.NewFromInt(1000)),
		CurrentMonthKg:  currentMonth,
		PreviousMonthKg: previousMonth,
		PercentChange:   emissiondomain.PercentChange(currentMonth, previousMonth),
		RecordCount:     recordCount,
		ComputedCount:   computedCount,
		Breakdown:       breakdown,
		Monthly:         monthly,
		RecentRecords:   recent,
	}, nil
}

// sumBetween totals valid results with period_start in [start, end). Zero
// bounds mean unbounded.
func (s *Service) sumBetween(ctx context.Context, orgID snowflake.ID, start, end time.Time) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(total_co2e_kg), 0) FROM emission_results WHERE org_id = ? AND invalidated = false`
	args := []any{orgID}
	if !start.IsZero() {
		query += ` AND period_start >= ?`
		args = append(args, start)
	}
	if !end.IsZero() {
		query += ` AND period_start < ?`
		args = append(args, end)
	}

	var raw string
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&raw).Error; err != nil {
		return decimal.Zero, err
	}
	return parseTotal(raw)
}

func (s *Service) categoryBreakdown(ctx context.Context, orgID snowflake.ID, total decimal.Decimal) ([]dashboarddomain.CategoryShare, error) {
	var rows []struct {
		Category string
		Total    string
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT category, COALESCE(SUM(total_co2e_kg), 0) AS total
		 FROM emission_results
		 WHERE org_id = ? AND invalidated = false
		 GROUP BY category
		 ORDER BY total DESC, category ASC`,
		orgID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	shares := make([]dashboarddomain.CategoryShare, 0, len(rows))
	for _, row := range rows {
		subtotal, err := parseTotal(row.Total)
		if err != nil {
			return nil, err
		}
		share := dashboarddomain.CategoryShare{
			Category:    row.Category,
			TotalCO2eKg: subtotal,
		}
		if !total.IsZero() {
			share.Percent = subtotal.Div(total).Mul(hundred).Round(2)
		}
		shares = append(shares, share)
	}
	return shares, nil
}

// monthlySeries returns the trailing months including the current one,
// oldest first. Empty months appear as zero so charts keep a fixed axis.
func (s *Service) monthlySeries(ctx context.Context, orgID snowflake.ID, currentStart time.Time) ([]dashboarddomain.MonthlyEmission, error) {
	series := make([]dashboarddomain.MonthlyEmission, 0, trailingMonths)
	for i := trailingMonths - 1; i >= 0; i-- {
		start := currentStart.AddDate(0, -i, 0)
		total, err := s.sumBetween(ctx, orgID, start, start.AddDate(0, 1, 0))
		if err != nil {
			return nil, err
		}
		series = append(series, dashboarddomain.MonthlyEmission{
			Month:       start.Format("2006-01"),
			TotalCO2eKg: total,
		})
	}
	return series, nil
}

func (s *Service) recordCounts(ctx context.Context, orgID snowflake.ID) (total, computed int64, err error) {
	err = s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM consumption_records WHERE org_id = ? AND status != ?`,
		orgID,
		consumptiondomain.RecordStatusInvalidated,
	).Scan(&total).Error
	if err != nil {
		return 0, 0, err
	}
	err = s.db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM consumption_records WHERE org_id = ? AND status = ?`,
		orgID,
		consumptiondomain.RecordStatusComputed,
	).Scan(&computed).Error
	if err != nil {
		return 0, 0, err
	}
	return total, computed, nil
}

func (s *Service) recentRecords(ctx context.Context, orgID snowflake.ID) ([]consumptiondomain.Record, error) {
	var records []consumptiondomain.Record
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND status != ?", orgID, consumptiondomain.RecordStatusInvalidated).
		Order("created_at DESC").
		Limit(recentLimit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func parseTotal(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
