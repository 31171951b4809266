package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	consumptiondomain "github.com/ecoledger/ecoledger/internal/consumption/domain"
	emissiondomain "github.com/ecoledger/ecoledger/internal/emission/domain"
	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
	"github.com/ecoledger/ecoledger/pkg/repository"
)

func setupConsumptionTest(t *testing.T) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&consumptiondomain.Record{}, &emissiondomain.Result{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(9)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	svc := &Service{
		db:         db,
		log:        zap.NewNop(),
		genID:      node,
		recordrepo: repository.ProvideStore[consumptiondomain.Record](db),
	}
	return svc, db, node
}

func validIngestRequest(orgID snowflake.ID) consumptiondomain.IngestRequest {
	return consumptiondomain.IngestRequest{
		OrgID:       orgID.String(),
		Category:    "Electricity",
		Subtype:     "Grid",
		Country:     "UAE",
		Region:      "Dubai",
		Quantity:    "1250.5",
		Unit:        "kWh",
		PeriodStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestIngestNormalizesFields(t *testing.T) {
	svc, _, node := setupConsumptionTest(t)
	orgID := node.Generate()

	record, err := svc.Ingest(context.Background(), validIngestRequest(orgID))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if record.Category != "electricity" || record.Subtype != "grid" {
		t.Fatalf("category/subtype = %s/%s, want normalized", record.Category, record.Subtype)
	}
	if record.Country != "uae" || record.Region != "dubai" {
		t.Fatalf("country/region = %s/%s, want normalized", record.Country, record.Region)
	}
	if record.Status != consumptiondomain.RecordStatusAccepted {
		t.Fatalf("status = %s, want accepted", record.Status)
	}
	if want := decimal.RequireFromString("1250.5"); !record.Quantity.Equal(want) {
		t.Fatalf("quantity = %s, want %s", record.Quantity, want)
	}
}

func TestIngestValidation(t *testing.T) {
	svc, _, node := setupConsumptionTest(t)
	orgID := node.Generate()

	req := validIngestRequest(orgID)
	req.OrgID = "bogus"
	if _, err := svc.Ingest(context.Background(), req); !errors.Is(err, consumptiondomain.ErrInvalidOrganization) {
		t.Fatalf("expected invalid_organization, got %v", err)
	}

	req = validIngestRequest(orgID)
	req.Category = "antimatter"
	if _, err := svc.Ingest(context.Background(), req); !errors.Is(err, factordomain.ErrUnknownCategory) {
		t.Fatalf("expected unknown_category, got %v", err)
	}

	req = validIngestRequest(orgID)
	req.Quantity = "-10"
	if _, err := svc.Ingest(context.Background(), req); !errors.Is(err, consumptiondomain.ErrInvalidQuantity) {
		t.Fatalf("expected invalid_quantity, got %v", err)
	}

	req = validIngestRequest(orgID)
	req.Unit = "  "
	if _, err := svc.Ingest(context.Background(), req); !errors.Is(err, consumptiondomain.ErrInvalidUnit) {
		t.Fatalf("expected invalid_unit, got %v", err)
	}

	req = validIngestRequest(orgID)
	req.PeriodEnd = req.PeriodStart.AddDate(0, 0, -1)
	if _, err := svc.Ingest(context.Background(), req); !errors.Is(err, consumptiondomain.ErrInvalidPeriod) {
		t.Fatalf("expected invalid_period, got %v", err)
	}
}

func TestIngestIdempotency(t *testing.T) {
	svc, _, node := setupConsumptionTest(t)
	orgID := node.Generate()
	key := "bill-2026-01"

	req := validIngestRequest(orgID)
	req.IdempotencyKey = &key
	first, err := svc.Ingest(context.Background(), req)
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}

	second, err := svc.Ingest(context.Background(), req)
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("duplicate ingest created a new record: %s vs %s", first.ID, second.ID)
	}

	records, err := svc.List(context.Background(), consumptiondomain.ListRequest{OrgID: orgID.String()})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
}

func TestListFilters(t *testing.T) {
	svc, _, node := setupConsumptionTest(t)
	orgID := node.Generate()

	electricity := validIngestRequest(orgID)
	if _, err := svc.Ingest(context.Background(), electricity); err != nil {
		t.Fatalf("Ingest electricity: %v", err)
	}
	fuel := validIngestRequest(orgID)
	fuel.Category = "fuel"
	fuel.Subtype = "diesel"
	fuel.Unit = "L"
	if _, err := svc.Ingest(context.Background(), fuel); err != nil {
		t.Fatalf("Ingest fuel: %v", err)
	}

	records, err := svc.List(context.Background(), consumptiondomain.ListRequest{
		OrgID:    orgID.String(),
		Category: "fuel",
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].Category != "fuel" {
		t.Fatalf("filtered records = %v", records)
	}
}

func TestGetByIDScopedToOrganization(t *testing.T) {
	svc, _, node := setupConsumptionTest(t)
	orgID := node.Generate()
	otherOrg := node.Generate()

	record, err := svc.Ingest(context.Background(), validIngestRequest(orgID))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if _, err := svc.GetByID(context.Background(), otherOrg.String(), record.ID.String()); !errors.Is(err, consumptiondomain.ErrRecordNotFound) {
		t.Fatalf("expected record_not_found across orgs, got %v", err)
	}
}

func TestInvalidateMarksRecordAndResults(t *testing.T) {
	svc, db, node := setupConsumptionTest(t)
	orgID := node.Generate()

	record, err := svc.Ingest(context.Background(), validIngestRequest(orgID))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	result := emissiondomain.Result{
		ID:           node.Generate(),
		OrgID:        orgID,
		RecordID:     record.ID,
		Category:     record.Category,
		Subtype:      record.Subtype,
		GHGScope:     "Scope 2",
		MatchedScope: "exact-region",
		FactorValue:  decimal.RequireFromString("0.432"),
		FactorUnit:   "kgCO2e/kWh",
		TableVersion: "2026.08",
		Quantity:     record.Quantity,
		QuantityUnit: "kWh",
		TotalCO2eKg:  decimal.RequireFromString("540"),
		PeriodStart:  record.PeriodStart,
		PeriodEnd:    record.PeriodEnd,
		Checksum:     node.Generate().String(),
		ComputedAt:   time.Now().UTC(),
	}
	if err := db.Create(&result).Error; err != nil {
		t.Fatalf("seed result: %v", err)
	}

	if err := svc.Invalidate(context.Background(), orgID.String(), record.ID.String()); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	var updated consumptiondomain.Record
	if err := db.First(&updated, "id = ?", record.ID).Error; err != nil {
		t.Fatalf("reload record: %v", err)
	}
	if updated.Status != consumptiondomain.RecordStatusInvalidated {
		t.Fatalf("status = %s, want invalidated", updated.Status)
	}

	var invalidated bool
	if err := db.Raw(`SELECT invalidated FROM emission_results WHERE record_id = ?`, record.ID).Scan(&invalidated).Error; err != nil {
		t.Fatalf("reload result: %v", err)
	}
	if !invalidated {
		t.Fatal("emission result should be invalidated")
	}

	// Invalidating twice is a no-op.
	if err := svc.Invalidate(context.Background(), orgID.String(), record.ID.String()); err != nil {
		t.Fatalf("second Invalidate: %v", err)
	}
}
