package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	consumptiondomain "github.com/ecoledger/ecoledger/internal/consumption/domain"
	"github.com/ecoledger/ecoledger/internal/events"
	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
	"github.com/ecoledger/ecoledger/internal/observability/metrics"
	"github.com/ecoledger/ecoledger/pkg/repository"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	recordrepo repository.Repository[consumptiondomain.Record]
	outbox     *events.Outbox
	metrics    *metrics.EngineMetrics
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Outbox  *events.Outbox         `optional:"true"`
	Metrics *metrics.EngineMetrics `optional:"true"`
}

func NewService(p ServiceParam) consumptiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("consumption.service"),

		genID:      p.GenID,
		recordrepo: repository.ProvideStore[consumptiondomain.Record](p.DB),
		outbox:     p.Outbox,
		metrics:    p.Metrics,
	}
}

func (s *Service) Ingest(ctx context.Context, req consumptiondomain.IngestRequest) (*consumptiondomain.Record, error) {
	orgID, err := parseID(req.OrgID, consumptiondomain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}

	category, err := factordomain.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	quantity, err := parseQuantity(req.Quantity)
	if err != nil {
		return nil, err
	}

	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		return nil, consumptiondomain.ErrInvalidUnit
	}

	if err := validatePeriod(req.PeriodStart, req.PeriodEnd); err != nil {
		return nil, err
	}

	if key := normalizeIdempotencyKey(req.IdempotencyKey); key != nil {
		existing, err := s.findByIdempotencyKey(ctx, orgID, *key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		req.IdempotencyKey = key
	} else {
		req.IdempotencyKey = nil
	}

	now := time.Now().UTC()
	record := &consumptiondomain.Record{
		ID:             s.genID.Generate(),
		OrgID:          orgID,
		Category:       string(category),
		Subtype:        factordomain.Normalize(req.Subtype),
		Country:        factordomain.Normalize(req.Country),
		Region:         factordomain.Normalize(req.Region),
		Quantity:       quantity,
		Unit:           unit,
		PeriodStart:    req.PeriodStart.UTC(),
		PeriodEnd:      req.PeriodEnd.UTC(),
		Status:         consumptiondomain.RecordStatusAccepted,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.Metadata != nil {
		record.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.recordrepo.Create(ctx, record); err != nil {
		return nil, err
	}

	if s.outbox != nil {
		err := s.outbox.Publish(ctx, events.Event{
			OrgID: orgID,
			Type:  events.EventConsumptionIngested,
			Payload: map[string]any{
				"record_id": record.ID.String(),
				"org_id":    orgID.String(),
				"category":  record.Category,
				"quantity":  record.Quantity.String(),
				"unit":      record.Unit,
			},
			DedupeKey: record.ID.String(),
		})
		if err != nil {
			s.log.Warn("consumption.ingested event not recorded", zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.IncRecordIngested(record.Category)
	}
	return record, nil
}

func (s *Service) List(ctx context.Context, req consumptiondomain.ListRequest) ([]consumptiondomain.Record, error) {
	orgID, err := parseID(req.OrgID, consumptiondomain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}

	filter := &consumptiondomain.Record{OrgID: orgID}
	if req.Category != "" {
		category, err := factordomain.ParseCategory(req.Category)
		if err != nil {
			return nil, err
		}
		filter.Category = string(category)
	}
	if req.Status != "" {
		filter.Status = req.Status
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	opts := []repository.Option{
		repository.WithOrder("created_at DESC"),
		repository.WithLimitOffset(limit, req.Offset),
	}
	if !req.From.IsZero() && !req.To.IsZero() {
		opts = append(opts, repository.WithWindow("period_start", req.From.UTC(), req.To.UTC()))
	}

	items, err := s.recordrepo.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}

	records := make([]consumptiondomain.Record, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}
	return records, nil
}

func (s *Service) GetByID(ctx context.Context, orgID, recordID string) (*consumptiondomain.Record, error) {
	org, err := parseID(orgID, consumptiondomain.ErrInvalidOrganization)
	if err != nil {
		return nil, err
	}
	id, err := parseID(recordID, consumptiondomain.ErrRecordNotFound)
	if err != nil {
		return nil, err
	}

	record, err := s.recordrepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, consumptiondomain.ErrRecordNotFound
		}
		return nil, err
	}
	if record.OrgID != org {
		return nil, consumptiondomain.ErrRecordNotFound
	}
	return record, nil
}

func (s *Service) Invalidate(ctx context.Context, orgID, recordID string) error {
	record, err := s.GetByID(ctx, orgID, recordID)
	if err != nil {
		return err
	}
	if record.Status == consumptiondomain.RecordStatusInvalidated {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`UPDATE consumption_records SET status = ?, updated_at = ? WHERE id = ?`,
			consumptiondomain.RecordStatusInvalidated,
			time.Now().UTC(),
			record.ID,
		).Error; err != nil {
			return err
		}
		return tx.Exec(
			`UPDATE emission_results SET invalidated = true WHERE record_id = ?`,
			record.ID,
		).Error
	})
}

func (s *Service) findByIdempotencyKey(ctx context.Context, orgID snowflake.ID, key string) (*consumptiondomain.Record, error) {
	var record consumptiondomain.Record
	err := s.db.WithContext(ctx).
		Where("org_id = ? AND idempotency_key = ?", orgID, key).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func parseQuantity(raw string) (decimal.Decimal, error) {
	quantity, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, consumptiondomain.ErrInvalidQuantity
	}
	if quantity.IsNegative() {
		// Never clamp to zero: a negative reading means the extraction
		// is wrong, and zeroing it would misstate emissions.
		return decimal.Zero, consumptiondomain.ErrInvalidQuantity
	}
	return quantity, nil
}

func validatePeriod(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return consumptiondomain.ErrInvalidPeriod
	}
	if end.Before(start) {
		return consumptiondomain.ErrInvalidPeriod
	}
	return nil
}

func normalizeIdempotencyKey(key *string) *string {
	if key == nil {
		return nil
	}
	value := strings.TrimSpace(*key)
	if value == "" {
		return nil
	}
	return &value
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}
