package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecoledger/ecoledger/internal/clock"
	compliancedomain "github.com/ecoledger/ecoledger/internal/compliance/domain"
	"github.com/ecoledger/ecoledger/internal/config"
	consumptiondomain "github.com/ecoledger/ecoledger/internal/consumption/domain"
	emissiondomain "github.com/ecoledger/ecoledger/internal/emission/domain"
	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
	factorservice "github.com/ecoledger/ecoledger/internal/factor/service"
)

var evalNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func setupComplianceTest(t *testing.T) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&consumptiondomain.Record{}, &emissiondomain.Result{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	factorSvc, err := factorservice.NewService(factorservice.ServiceParam{
		Config: config.Config{},
		Log:    zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("factor service: %v", err)
	}
	svc := &Service{
		db:        db,
		log:       zap.NewNop(),
		factorSvc: factorSvc,
		clock:     clock.FixedClock{At: evalNow},
	}
	return svc, db, node
}

func seedResult(t *testing.T, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID, scope, totalKg string, periodStart time.Time) {
	t.Helper()
	result := emissiondomain.Result{
		ID:           node.Generate(),
		OrgID:        orgID,
		RecordID:     node.Generate(),
		Category:     "electricity",
		Subtype:      "grid",
		GHGScope:     scope,
		MatchedScope: string(factordomain.MatchCountryDefault),
		FactorValue:  decimal.RequireFromString("0.4"),
		FactorUnit:   "kgCO2e/kWh",
		TableVersion: "2026.08",
		Quantity:     decimal.RequireFromString("1"),
		QuantityUnit: "kWh",
		TotalCO2eKg:  decimal.RequireFromString(totalKg),
		PeriodStart:  periodStart,
		PeriodEnd:    periodStart.AddDate(0, 1, 0),
		Checksum:     node.Generate().String(),
		ComputedAt:   evalNow,
	}
	if err := db.Create(&result).Error; err != nil {
		t.Fatalf("seed result: %v", err)
	}
}

func seedComputedRecords(t *testing.T, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		record := consumptiondomain.Record{
			ID:          node.Generate(),
			OrgID:       orgID,
			Category:    "electricity",
			Subtype:     "grid",
			Country:     "uae",
			Quantity:    decimal.RequireFromString("100"),
			Unit:        "kWh",
			PeriodStart: evalNow.AddDate(0, -1, 0),
			PeriodEnd:   evalNow,
			Status:      consumptiondomain.RecordStatusComputed,
		}
		if err := db.Create(&record).Error; err != nil {
			t.Fatalf("seed record: %v", err)
		}
	}
}

func checkByFramework(t *testing.T, status compliancedomain.Status, framework string) compliancedomain.Check {
	t.Helper()
	for _, check := range status.Checks {
		if check.Framework == framework {
			return check
		}
	}
	t.Fatalf("no %s check in %v", framework, status.Checks)
	return compliancedomain.Check{}
}

func TestEvaluateCompliant(t *testing.T) {
	svc, db, node := setupComplianceTest(t)
	orgID := node.Generate()
	inYear := evalNow.AddDate(0, -2, 0)

	seedResult(t, db, node, orgID, "Scope 2", "5000", inYear)
	seedResult(t, db, node, orgID, "Scope 1", "2000", inYear)
	seedComputedRecords(t, db, node, orgID, 3)

	status, err := svc.Evaluate(context.Background(), orgID.String())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if status.Overall != compliancedomain.StatusCompliant {
		t.Fatalf("overall = %s, want compliant: %+v", status.Overall, status.Checks)
	}
	if want := decimal.RequireFromString("7"); !status.TrailingYearTonnes.Equal(want) {
		t.Fatalf("trailing tonnes = %s, want %s", status.TrailingYearTonnes, want)
	}
	if status.OverThreshold {
		t.Fatal("7 tonnes should not exceed the default threshold")
	}
}

func TestEvaluateNoData(t *testing.T) {
	svc, _, node := setupComplianceTest(t)

	status, err := svc.Evaluate(context.Background(), node.Generate().String())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if check := checkByFramework(t, status, "GRI 305"); check.Status != compliancedomain.StatusNoData {
		t.Fatalf("disclosure status = %s, want no_data", check.Status)
	}
	if status.Overall != compliancedomain.StatusActionNeeded {
		t.Fatalf("overall = %s, want action_needed", status.Overall)
	}
}

func TestEvaluateThresholdExceeded(t *testing.T) {
	svc, db, node := setupComplianceTest(t)
	orgID := node.Generate()

	// 150 tonnes against the default 100 tonne threshold.
	seedResult(t, db, node, orgID, "Scope 2", "150000", evalNow.AddDate(0, -1, 0))
	seedComputedRecords(t, db, node, orgID, 3)

	status, err := svc.Evaluate(context.Background(), orgID.String())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !status.OverThreshold {
		t.Fatal("expected threshold exceeded")
	}
	if check := checkByFramework(t, status, "Reporting threshold"); check.Status != compliancedomain.StatusActionNeeded {
		t.Fatalf("threshold status = %s, want action_needed", check.Status)
	}
}

func TestEvaluateExcludesOldResults(t *testing.T) {
	svc, db, node := setupComplianceTest(t)
	orgID := node.Generate()

	seedResult(t, db, node, orgID, "Scope 2", "1000", evalNow.AddDate(-2, 0, 0))
	seedResult(t, db, node, orgID, "Scope 2", "3000", evalNow.AddDate(0, -3, 0))
	seedComputedRecords(t, db, node, orgID, 3)

	status, err := svc.Evaluate(context.Background(), orgID.String())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if want := decimal.RequireFromString("3"); !status.TrailingYearTonnes.Equal(want) {
		t.Fatalf("trailing tonnes = %s, want %s", status.TrailingYearTonnes, want)
	}
}

func TestEvaluateIncompleteRecords(t *testing.T) {
	svc, db, node := setupComplianceTest(t)
	orgID := node.Generate()

	seedResult(t, db, node, orgID, "Scope 2", "1000", evalNow.AddDate(0, -1, 0))
	seedComputedRecords(t, db, node, orgID, 1)

	status, err := svc.Evaluate(context.Background(), orgID.String())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if check := checkByFramework(t, status, "CDP"); check.Status != compliancedomain.StatusActionNeeded {
		t.Fatalf("completeness status = %s, want action_needed", check.Status)
	}
	if status.Overall != compliancedomain.StatusActionNeeded {
		t.Fatalf("overall = %s, want action_needed", status.Overall)
	}
}
