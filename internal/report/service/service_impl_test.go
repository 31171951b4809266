package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecoledger/ecoledger/internal/clock"
	"github.com/ecoledger/ecoledger/internal/config"
	emissiondomain "github.com/ecoledger/ecoledger/internal/emission/domain"
	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
	factorservice "github.com/ecoledger/ecoledger/internal/factor/service"
	reportdomain "github.com/ecoledger/ecoledger/internal/report/domain"
	"github.com/ecoledger/ecoledger/internal/report/render"
)

var reportNow = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func setupReportTest(t *testing.T) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&emissiondomain.Result{}, &reportdomain.Report{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(6)
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
		genID:     node,
		factorSvc: factorSvc,
		renderer:  render.NewRenderer(),
		clock:     clock.FixedClock{At: reportNow},
	}
	return svc, db, node
}

func seedReportResult(t *testing.T, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID, category, scope, matched, totalKg string, periodStart time.Time) {
	t.Helper()
	result := emissiondomain.Result{
		ID:           node.Generate(),
		OrgID:        orgID,
		RecordID:     node.Generate(),
		Category:     category,
		Subtype:      "default",
		GHGScope:     scope,
		MatchedScope: matched,
		FactorValue:  decimal.RequireFromString("0.4"),
		FactorUnit:   "kgCO2e/kWh",
		TableVersion: "2026.08",
		Quantity:     decimal.RequireFromString("1"),
		QuantityUnit: "kWh",
		TotalCO2eKg:  decimal.RequireFromString(totalKg),
		PeriodStart:  periodStart,
		PeriodEnd:    periodStart.AddDate(0, 1, 0),
		Checksum:     node.Generate().String(),
		ComputedAt:   reportNow,
	}
	if err := db.Create(&result).Error; err != nil {
		t.Fatalf("seed result: %v", err)
	}
}

func TestGenerateReport(t *testing.T) {
	svc, db, node := setupReportTest(t)
	orgID := node.Generate()
	inWindow := reportNow.AddDate(0, -2, 0)

	seedReportResult(t, db, node, orgID, "electricity", "Scope 2", string(factordomain.MatchExactRegion), "540", inWindow)
	seedReportResult(t, db, node, orgID, "fuel", "Scope 1", string(factordomain.MatchGlobalDefault), "268", inWindow)

	report, err := svc.Generate(context.Background(), reportdomain.GenerateRequest{
		OrgID:            orgID.String(),
		OrganizationName: "Acme Manufacturing",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if want := decimal.RequireFromString("808"); !report.TotalCO2eKg.Equal(want) {
		t.Fatalf("total = %s, want %s", report.TotalCO2eKg, want)
	}
	if report.ResultCount != 2 {
		t.Fatalf("result count = %d, want 2", report.ResultCount)
	}
	if report.TableVersion == "" {
		t.Fatal("missing table version")
	}

	for _, fragment := range []string{
		"Acme Manufacturing",
		"Scope 1",
		"Scope 2",
		"electricity",
		"global-default",
		report.TableVersion,
	} {
		if !strings.Contains(report.HTML, fragment) {
			t.Fatalf("rendered report missing %q", fragment)
		}
	}

	stored, err := svc.Get(context.Background(), orgID.String(), report.ID.String())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.HTML != report.HTML {
		t.Fatal("stored report differs from generated report")
	}
}

func TestGenerateReportNoData(t *testing.T) {
	svc, _, node := setupReportTest(t)

	_, err := svc.Generate(context.Background(), reportdomain.GenerateRequest{OrgID: node.Generate().String()})
	if !errors.Is(err, reportdomain.ErrNoData) {
		t.Fatalf("expected no_emission_data, got %v", err)
	}
}

func TestGetReportScopedToOrganization(t *testing.T) {
	svc, db, node := setupReportTest(t)
	orgID := node.Generate()
	otherOrg := node.Generate()

	seedReportResult(t, db, node, orgID, "electricity", "Scope 2", string(factordomain.MatchExactRegion), "100", reportNow.AddDate(0, -1, 0))
	report, err := svc.Generate(context.Background(), reportdomain.GenerateRequest{OrgID: orgID.String()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := svc.Get(context.Background(), otherOrg.String(), report.ID.String()); !errors.Is(err, reportdomain.ErrReportNotFound) {
		t.Fatalf("expected report_not_found across orgs, got %v", err)
	}
}

func TestListReports(t *testing.T) {
	svc, db, node := setupReportTest(t)
	orgID := node.Generate()

	seedReportResult(t, db, node, orgID, "water", "Scope 3", string(factordomain.MatchCountryDefault), "50", reportNow.AddDate(0, -1, 0))
	if _, err := svc.Generate(context.Background(), reportdomain.GenerateRequest{OrgID: orgID.String()}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	reports, err := svc.List(context.Background(), orgID.String())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("reports = %d, want 1", len(reports))
	}
	if reports[0].HTML != "" {
		t.Fatal("list should not carry rendered bodies")
	}
}
