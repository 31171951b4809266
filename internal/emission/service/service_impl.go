package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ecoledger/ecoledger/internal/cache"
	"github.com/ecoledger/ecoledger/internal/clock"
	"github.com/ecoledger/ecoledger/internal/config"
	consumptiondomain "github.com/ecoledger/ecoledger/internal/consumption/domain"
	emissiondomain "github.com/ecoledger/ecoledger/internal/emission/domain"
	"github.com/ecoledger/ecoledger/internal/events"
	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
	"github.com/ecoledger/ecoledger/internal/observability/metrics"
)

// defaultSummaryTTL bounds staleness of memoized period summaries when no
// TTL is configured.
const defaultSummaryTTL = 30 * time.Second

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	factorSvc factordomain.Service
	clock     clock.Clock
	outbox    *events.Outbox
	metrics   *metrics.EngineMetrics

	summaries  *cache.TTLCache[string, emissiondomain.PeriodSummary]
	summaryTTL time.Duration
}

type ServiceParam struct {
	fx.In

	Config    config.Config
	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	FactorSvc factordomain.Service
	Clock     clock.Clock
	Outbox    *events.Outbox         `optional:"true"`
	Metrics   *metrics.EngineMetrics `optional:"true"`
}

func NewService(p ServiceParam) emissiondomain.Service {
	ttl := p.Config.SummaryCacheTTL
	if ttl <= 0 {
		ttl = defaultSummaryTTL
	}
	return &Service{
		db:  p.DB,
		log: p.Log.Named("emission.service"),

		genID:     p.GenID,
		factorSvc: p.FactorSvc,
		clock:     p.Clock,
		outbox:    p.Outbox,
		metrics:   p.Metrics,

		summaries:  cache.NewTTLCache[string, emissiondomain.PeriodSummary](),
		summaryTTL: ttl,
	}
}

func (s *Service) ComputeForRecord(ctx context.Context, orgID, recordID string) (*emissiondomain.Result, error) {
	org, err := parseID(orgID, consumptiondomain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	id, err := parseID(recordID, consumptiondomain.ErrRecordNotFound)
	if err != nil {
		return nil, err
	}

	record, err := s.loadRecord(ctx, org, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, consumptiondomain.ErrRecordNotFound
	}

	return s.computeAndStore(ctx, *record)
}

func (s *Service) ComputePending(ctx context.Context, orgID string) (emissiondomain.BatchOutcome, error) {
	org, err := parseID(orgID, consumptiondomain.ErrInvalidOrganization)
	if err != nil {
		return emissiondomain.BatchOutcome{}, err
	}

	records, err := s.loadAcceptedRecords(ctx, org)
	if err != nil {
		return emissiondomain.BatchOutcome{}, err
	}

	outcome := emissiondomain.BatchOutcome{
		Computed: make([]emissiondomain.Result, 0, len(records)),
		Failures: make([]emissiondomain.RecordFailure, 0),
	}
	for _, record := range records {
		result, err := s.computeAndStore(ctx, record)
		if err != nil {
			// One bad record never aborts the batch; callers report
			// "N of M computed".
			outcome.Failures = append(outcome.Failures, emissiondomain.RecordFailure{
				RecordID: record.ID.String(),
				Reason:   err.Error(),
			})
			continue
		}
		outcome.Computed = append(outcome.Computed, *result)
	}
	return outcome, nil
}

func (s *Service) computeAndStore(ctx context.Context, record consumptiondomain.Record) (*emissiondomain.Result, error) {
	switch record.Status {
	case consumptiondomain.RecordStatusAccepted:
	case consumptiondomain.RecordStatusComputed:
		return nil, emissiondomain.ErrAlreadyComputed
	default:
		return nil, emissiondomain.ErrRecordNotReady
	}

	start := time.Now()
	resolution, err := s.factorSvc.Resolve(ctx, factordomain.ResolveRequest{
		Category: factordomain.Category(record.Category),
		Subtype:  record.Subtype,
		Country:  record.Country,
		Region:   record.Region,
	})
	if err != nil {
		return nil, err
	}

	result, err := emissiondomain.Compute(record, resolution, s.clock.Now())
	if err != nil {
		return nil, err
	}
	result.ID = s.genID.Generate()
	result.Checksum = buildChecksum(record.ID, resolution.TableVersion, record.PeriodStart, record.PeriodEnd)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.insertResult(ctx, tx, result); err != nil {
			return err
		}
		if err := tx.Exec(
			`UPDATE consumption_records SET status = ?, updated_at = ? WHERE id = ?`,
			consumptiondomain.RecordStatusComputed,
			s.clock.Now(),
			record.ID,
		).Error; err != nil {
			return err
		}
		if s.outbox != nil {
			payload := events.EmissionComputedPayload{
				ResultID:     result.ID.String(),
				RecordID:     record.ID.String(),
				OrgID:        record.OrgID.String(),
				Category:     result.Category,
				MatchedScope: result.MatchedScope,
				TableVersion: result.TableVersion,
				TotalCO2eKg:  result.TotalCO2eKg.String(),
			}
			return s.outbox.PublishTx(ctx, tx, events.Event{
				OrgID:     record.OrgID,
				Type:      events.EventEmissionComputed,
				Payload:   payload.ToMap(),
				DedupeKey: result.Checksum,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveCompute(time.Since(start))
	}
	s.summaries.Purge()
	return &result, nil
}

func (s *Service) SummarizePeriod(ctx context.Context, req emissiondomain.SummarizeRequest) (emissiondomain.PeriodSummary, error) {
	org, err := parseID(req.OrgID, consumptiondomain.ErrInvalidOrganization)
	if err != nil {
		return emissiondomain.PeriodSummary{}, err
	}
	if req.Start.IsZero() || req.End.IsZero() || !req.End.After(req.Start) {
		return emissiondomain.PeriodSummary{}, emissiondomain.ErrInvalidWindow
	}

	window := emissiondomain.Window{Start: req.Start.UTC(), End: req.End.UTC()}
	cacheKey := summaryCacheKey(org, window)
	if summary, ok := s.summaries.Get(cacheKey); ok {
		if s.metrics != nil {
			s.metrics.IncSummaryCache(true)
		}
		return summary, nil
	}
	if s.metrics != nil {
		s.metrics.IncSummaryCache(false)
	}

	results, err := s.loadResults(ctx, org, window.Start, window.End)
	if err != nil {
		return emissiondomain.PeriodSummary{}, err
	}

	previous := window.Previous()
	previousTotal, err := s.loadTotal(ctx, org, previous.Start, previous.End)
	if err != nil {
		return emissiondomain.PeriodSummary{}, err
	}

	summary := emissiondomain.Summarize(org.String(), window, results, previousTotal)
	s.summaries.Set(cacheKey, summary, s.summaryTTL)
	return summary, nil
}

func (s *Service) List(ctx context.Context, req emissiondomain.ListRequest) ([]emissiondomain.Result, error) {
	org, err := parseID(req.OrgID, consumptiondomain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	tx := s.db.WithContext(ctx).
		Where("org_id = ? AND invalidated = false", org).
		Order("computed_at DESC").
		Limit(limit).
		Offset(req.Offset)
	if !req.From.IsZero() && !req.To.IsZero() {
		tx = tx.Where("period_start >= ? AND period_start <= ?", req.From.UTC(), req.To.UTC())
	}

	var results []emissiondomain.Result
	if err := tx.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) loadRecord(ctx context.Context, orgID, recordID snowflake.ID) (*consumptiondomain.Record, error) {
	var record consumptiondomain.Record
	err := s.db.WithContext(ctx).
		Where("id = ? AND org_id = ?", recordID, orgID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (s *Service) loadAcceptedRecords(ctx context.Context, orgID snowflake.ID) ([]consumptiondomain.Record, error) {
	var records []consumptiondomain.Record
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND status = ?", orgID, consumptiondomain.RecordStatusAccepted).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Service) loadResults(ctx context.Context, orgID snowflake.ID, start, end time.Time) ([]emissiondomain.Result, error) {
	var results []emissiondomain.Result
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND invalidated = false AND period_start >= ? AND period_start <= ?", orgID, start, end).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// loadTotal sums results in [start, end). The half-open upper bound keeps a
// result sitting exactly on a window boundary out of both periods' totals.
func (s *Service) loadTotal(ctx context.Context, orgID snowflake.ID, start, end time.Time) (decimal.Decimal, error) {
	var raw string
	err := s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(total_co2e_kg), 0)
		 FROM emission_results
		 WHERE org_id = ? AND invalidated = false
		 AND period_start >= ? AND period_start < ?`,
		orgID,
		start,
		end,
	).Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	total, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse previous total: %w", err)
	}
	return total, nil
}

func (s *Service) insertResult(ctx context.Context, tx *gorm.DB, result emissiondomain.Result) error {
	return tx.WithContext(ctx).Exec(
		`INSERT INTO emission_results (
			id, org_id, record_id, category, subtype, ghg_scope, matched_scope,
			factor_value, factor_unit, table_version, quantity, quantity_unit,
			total_co2e_kg, period_start, period_end, invalidated, checksum, computed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (checksum) DO NOTHING`,
		result.ID,
		result.OrgID,
		result.RecordID,
		result.Category,
		result.Subtype,
		result.GHGScope,
		result.MatchedScope,
		result.FactorValue,
		result.FactorUnit,
		result.TableVersion,
		result.Quantity,
		result.QuantityUnit,
		result.TotalCO2eKg,
		result.PeriodStart,
		result.PeriodEnd,
		result.Invalidated,
		result.Checksum,
		result.ComputedAt,
	).Error
}

func buildChecksum(recordID snowflake.ID, tableVersion string, periodStart, periodEnd time.Time) string {
	payload := fmt.Sprintf(
		"%s|%s|%s|%s",
		recordID.String(),
		tableVersion,
		periodStart.UTC().Format(time.RFC3339Nano),
		periodEnd.UTC().Format(time.RFC3339Nano),
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func summaryCacheKey(orgID snowflake.ID, window emissiondomain.Window) string {
	return fmt.Sprintf("%s|%d|%d", orgID.String(), window.Start.Unix(), window.End.Unix())
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}
