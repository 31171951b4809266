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

	"github.com/ecoledger/ecoledger/internal/clock"
	consumptiondomain "github.com/ecoledger/ecoledger/internal/consumption/domain"
	dashboarddomain "github.com/ecoledger/ecoledger/internal/dashboard/domain"
	emissiondomain "github.com/ecoledger/ecoledger/internal/emission/domain"
)

var statsNow = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func setupDashboardTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&consumptiondomain.Record{}, &emissiondomain.Result{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func insertResult(t *testing.T, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID, category, total string, periodStart time.Time) {
	t.Helper()
	result := emissiondomain.Result{
		ID:           node.Generate(),
		OrgID:        orgID,
		RecordID:     node.Generate(),
		Category:     category,
		Subtype:      "default",
		GHGScope:     "Scope 3",
		MatchedScope: "global-default",
		FactorValue:  decimal.RequireFromString("1"),
		FactorUnit:   "kgCO2e/kWh",
		TableVersion: "2026.08",
		Quantity:     decimal.RequireFromString(total),
		QuantityUnit: "kWh",
		TotalCO2eKg:  decimal.RequireFromString(total),
		PeriodStart:  periodStart,
		PeriodEnd:    periodStart.AddDate(0, 1, 0),
		Checksum:     node.Generate().String(),
		ComputedAt:   statsNow,
	}
	if err := db.Create(&result).Error; err != nil {
		t.Fatalf("insert result: %v", err)
	}
}

func insertStatusRecord(t *testing.T, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID, status string) {
	t.Helper()
	record := consumptiondomain.Record{
		ID:          node.Generate(),
		OrgID:       orgID,
		Category:    "electricity",
		Subtype:     "grid",
		Country:     "uae",
		Quantity:    decimal.RequireFromString("100"),
		Unit:        "kWh",
		PeriodStart: statsNow.AddDate(0, 0, -5),
		PeriodEnd:   statsNow,
		Status:      status,
		CreatedAt:   statsNow,
		UpdatedAt:   statsNow,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("insert record: %v", err)
	}
}

func TestStats(t *testing.T) {
	db := setupDashboardTestDB(t)
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	orgID := node.Generate()

	january := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	february := time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	insertResult(t, db, node, orgID, "electricity", "400", january)
	insertResult(t, db, node, orgID, "electricity", "500", february)
	insertResult(t, db, node, orgID, "fuel", "100", february)
	insertStatusRecord(t, db, node, orgID, consumptiondomain.RecordStatusComputed)
	insertStatusRecord(t, db, node, orgID, consumptiondomain.RecordStatusAccepted)
	insertStatusRecord(t, db, node, orgID, consumptiondomain.RecordStatusInvalidated)

	svc := &Service{db: db, log: zap.NewNop(), clock: clock.FixedClock{At: statsNow}}
	stats, err := svc.Stats(context.Background(), orgID.String())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if want := decimal.RequireFromString("1000"); !stats.TotalCO2eKg.Equal(want) {
		t.Fatalf("total = %s, want %s", stats.TotalCO2eKg, want)
	}
	if want := decimal.RequireFromString("1"); !stats.TotalCO2eTonnes.Equal(want) {
		t.Fatalf("tonnes = %s, want %s", stats.TotalCO2eTonnes, want)
	}
	if want := decimal.RequireFromString("600"); !stats.CurrentMonthKg.Equal(want) {
		t.Fatalf("current month = %s, want %s", stats.CurrentMonthKg, want)
	}
	if want := decimal.RequireFromString("400"); !stats.PreviousMonthKg.Equal(want) {
		t.Fatalf("previous month = %s, want %s", stats.PreviousMonthKg, want)
	}
	if stats.PercentChange == nil {
		t.Fatal("expected percent change")
	}
	if want := decimal.RequireFromString("50"); !stats.PercentChange.Equal(want) {
		t.Fatalf("percent change = %s, want %s", stats.PercentChange, want)
	}

	if stats.RecordCount != 2 || stats.ComputedCount != 1 {
		t.Fatalf("record counts = %d/%d, want 2/1", stats.RecordCount, stats.ComputedCount)
	}
	if len(stats.Breakdown) != 2 || stats.Breakdown[0].Category != "electricity" {
		t.Fatalf("breakdown = %v", stats.Breakdown)
	}
	if want := decimal.RequireFromString("90"); !stats.Breakdown[0].Percent.Equal(want) {
		t.Fatalf("electricity share = %s, want %s", stats.Breakdown[0].Percent, want)
	}

	if len(stats.Monthly) != trailingMonths {
		t.Fatalf("monthly points = %d, want %d", len(stats.Monthly), trailingMonths)
	}
	last := stats.Monthly[len(stats.Monthly)-1]
	if last.Month != "2026-02" {
		t.Fatalf("last month = %s, want 2026-02", last.Month)
	}
	if want := decimal.RequireFromString("600"); !last.TotalCO2eKg.Equal(want) {
		t.Fatalf("last month total = %s, want %s", last.TotalCO2eKg, want)
	}
	if stats.Monthly[0].Month != "2025-09" {
		t.Fatalf("first month = %s, want 2025-09", stats.Monthly[0].Month)
	}

	if len(stats.RecentRecords) != 2 {
		t.Fatalf("recent records = %d, want 2", len(stats.RecentRecords))
	}
}

func TestStatsEmptyOrganization(t *testing.T) {
	db := setupDashboardTestDB(t)
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	svc := &Service{db: db, log: zap.NewNop(), clock: clock.FixedClock{At: statsNow}}
	stats, err := svc.Stats(context.Background(), node.Generate().String())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if !stats.TotalCO2eKg.IsZero() {
		t.Fatalf("total = %s, want 0", stats.TotalCO2eKg)
	}
	if stats.PercentChange != nil {
		t.Fatalf("percent change = %s, want nil", stats.PercentChange)
	}
	if len(stats.Breakdown) != 0 {
		t.Fatalf("breakdown = %v, want empty", stats.Breakdown)
	}
}

func TestStatsRejectsBadOrganization(t *testing.T) {
	db := setupDashboardTestDB(t)
	svc := &Service{db: db, log: zap.NewNop(), clock: clock.FixedClock{At: statsNow}}

	if _, err := svc.Stats(context.Background(), "not-a-snowflake"); !errors.Is(err, dashboarddomain.ErrInvalidOrganization) {
		t.Fatalf("expected invalid_organization, got %v", err)
	}
}
