package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/ecoledger/ecoledger/internal/config"
	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
)

func newTestService(t *testing.T) factordomain.Service {
	t.Helper()
	svc, err := NewService(ServiceParam{
		Config: config.Config{},
		Log:    zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestResolveExactRegion(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Resolve(context.Background(), factordomain.ResolveRequest{
		Category: factordomain.CategoryElectricity,
		Subtype:  "grid",
		Country:  "UAE",
		Region:   "Dubai",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.MatchedScope != factordomain.MatchExactRegion {
		t.Fatalf("expected exact-region match, got %s", res.MatchedScope)
	}
	if got := res.Entry.Factor.String(); got != "0.432" {
		t.Fatalf("expected factor 0.432, got %s", got)
	}
	if res.Entry.PerUnit != "kWh" {
		t.Fatalf("expected per-unit kWh, got %s", res.Entry.PerUnit)
	}
}

func TestResolveFallsBackToCountryDefault(t *testing.T) {
	svc := newTestService(t)

	// Region absent from the table: must degrade to the national grid,
	// not error, and disclose the tier.
	res, err := svc.Resolve(context.Background(), factordomain.ResolveRequest{
		Category: factordomain.CategoryElectricity,
		Subtype:  "grid",
		Country:  "USA",
		Region:   "Nowhere",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.MatchedScope != factordomain.MatchCountryDefault {
		t.Fatalf("expected country-default match, got %s", res.MatchedScope)
	}
	if got := res.Entry.Factor.String(); got != "0.385" {
		t.Fatalf("expected factor 0.385, got %s", got)
	}
}

func TestResolveFallsBackToGlobalDefault(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Resolve(context.Background(), factordomain.ResolveRequest{
		Category: factordomain.CategoryElectricity,
		Subtype:  "grid",
		Country:  "Atlantis",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.MatchedScope != factordomain.MatchGlobalDefault {
		t.Fatalf("expected global-default match, got %s", res.MatchedScope)
	}
	if got := res.Entry.Factor.String(); got != "0.475" {
		t.Fatalf("expected factor 0.475, got %s", got)
	}
}

func TestResolveUnknownSubtypeUsesCategoryDefault(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.Resolve(context.Background(), factordomain.ResolveRequest{
		Category: factordomain.CategoryFuel,
		Subtype:  "unobtainium",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.MatchedScope != factordomain.MatchGlobalDefault {
		t.Fatalf("expected global-default match, got %s", res.MatchedScope)
	}
	if got := res.Entry.Factor.String(); got != "2.5" {
		t.Fatalf("expected default fuel factor 2.5, got %s", got)
	}
}

func TestResolveUnknownCategory(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Resolve(context.Background(), factordomain.ResolveRequest{
		Category: "plutonium",
	})
	if !errors.Is(err, factordomain.ErrUnknownCategory) {
		t.Fatalf("expected unknown category error, got %v", err)
	}
}

func TestResolveNeverFailsForKnownCategories(t *testing.T) {
	svc := newTestService(t)

	countries := []string{"UAE", "USA", "UK", "global", "", "Neverland"}
	for _, category := range factordomain.Categories() {
		for _, country := range countries {
			res, err := svc.Resolve(context.Background(), factordomain.ResolveRequest{
				Category: category,
				Subtype:  "anything",
				Country:  country,
			})
			if err != nil {
				t.Fatalf("resolve %s/%s: %v", category, country, err)
			}
			switch res.MatchedScope {
			case factordomain.MatchExactRegion, factordomain.MatchCountryDefault, factordomain.MatchGlobalDefault:
			default:
				t.Fatalf("unexpected matched scope %q", res.MatchedScope)
			}
		}
	}
}

func TestVersionAndPolicy(t *testing.T) {
	svc := newTestService(t)

	if svc.Version() == "" {
		t.Fatalf("expected a table version")
	}
	policy := svc.Policy()
	if !policy.Compliance.EmissionsThresholdTonnes.IsPositive() {
		t.Fatalf("expected positive compliance threshold")
	}
	if len(policy.Credits.Projects) == 0 {
		t.Fatalf("expected credit projects in the default table")
	}
}
