package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ecoledger/ecoledger/internal/config"
	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
	"github.com/ecoledger/ecoledger/internal/observability/metrics"
)

// Service resolves emission factors against an immutable in-memory snapshot.
// Reload builds a new snapshot and swaps the pointer atomically, so readers
// never observe a partially loaded table.
type Service struct {
	log     *zap.Logger
	path    string
	metrics *metrics.EngineMetrics

	table atomic.Pointer[snapshot]
}

type ServiceParam struct {
	fx.In

	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.EngineMetrics `optional:"true"`
}

func NewService(p ServiceParam) (factordomain.Service, error) {
	svc := &Service{
		log:     p.Log.Named("factor.service"),
		path:    p.Config.Factors.Path,
		metrics: p.Metrics,
	}
	loaded, err := loadSnapshot(svc.path)
	if err != nil {
		return nil, err
	}
	svc.table.Store(loaded)
	svc.log.Info("factor table loaded",
		zap.String("version", loaded.version),
		zap.Int("entries", len(loaded.entries)),
	)
	return svc, nil
}

func (s *Service) Resolve(_ context.Context, req factordomain.ResolveRequest) (factordomain.Resolution, error) {
	table := s.table.Load()

	category, err := factordomain.ParseCategory(string(req.Category))
	if err != nil {
		return factordomain.Resolution{}, err
	}

	subtype := factordomain.Normalize(req.Subtype)
	if subtype == "" {
		subtype = factordomain.DefaultSubtype
	}
	country := factordomain.Normalize(req.Country)
	if country == "" {
		country = factordomain.GlobalCountry
	}
	region := factordomain.Normalize(req.Region)

	resolution, ok := table.lookup(category, subtype, country, region)
	if !ok {
		// Unreachable for a validated table: every category carries a
		// global default. Guards against a table missing the category.
		return factordomain.Resolution{}, fmt.Errorf("%w: %s", factordomain.ErrUnknownCategory, category)
	}

	if s.metrics != nil {
		s.metrics.IncFactorResolution(string(category), string(resolution.MatchedScope))
	}
	return resolution, nil
}

// lookup walks the fallback tiers in order: exact region, country default,
// global subtype default, category default.
func (t *snapshot) lookup(category factordomain.Category, subtype, country, region string) (factordomain.Resolution, bool) {
	type tier struct {
		key   entryKey
		scope factordomain.MatchedScope
	}
	tiers := make([]tier, 0, 4)
	if region != "" && country != factordomain.GlobalCountry {
		tiers = append(tiers, tier{
			key:   entryKey{category: category, subtype: subtype, country: country, region: region},
			scope: factordomain.MatchExactRegion,
		})
	}
	if country != factordomain.GlobalCountry {
		tiers = append(tiers, tier{
			key:   entryKey{category: category, subtype: subtype, country: country},
			scope: factordomain.MatchCountryDefault,
		})
	}
	tiers = append(tiers,
		tier{
			key:   entryKey{category: category, subtype: subtype, country: factordomain.GlobalCountry},
			scope: factordomain.MatchGlobalDefault,
		},
		tier{
			key:   entryKey{category: category, subtype: factordomain.DefaultSubtype, country: factordomain.GlobalCountry},
			scope: factordomain.MatchGlobalDefault,
		},
	)

	for _, candidate := range tiers {
		if entry, ok := t.entries[candidate.key]; ok {
			return factordomain.Resolution{
				Entry:        entry,
				MatchedScope: candidate.scope,
				TableVersion: t.version,
			}, true
		}
	}
	return factordomain.Resolution{}, false
}

func (s *Service) Reload(_ context.Context) error {
	loaded, err := loadSnapshot(s.path)
	if err != nil {
		return err
	}
	previous := s.table.Swap(loaded)
	if s.metrics != nil {
		s.metrics.IncTableReload()
	}
	s.log.Info("factor table reloaded",
		zap.String("previous_version", previous.version),
		zap.String("version", loaded.version),
		zap.Int("entries", len(loaded.entries)),
	)
	return nil
}

func (s *Service) Version() string {
	return s.table.Load().version
}

func (s *Service) Policy() factordomain.Policy {
	return s.table.Load().policy
}
