// Package scheduler runs the background compute worker. It sweeps accepted
// consumption records and computes their emissions so ingestion never
// blocks on factor resolution.
package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ecoledger/ecoledger/internal/config"
	consumptiondomain "github.com/ecoledger/ecoledger/internal/consumption/domain"
	emissiondomain "github.com/ecoledger/ecoledger/internal/emission/domain"
)

type Scheduler struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.SchedulerConfig
	emissionSvc emissiondomain.Service

	stop chan struct{}
	done chan struct{}
}

type Param struct {
	fx.In

	Config      config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	EmissionSvc emissiondomain.Service
}

func New(p Param) *Scheduler {
	return &Scheduler{
		db:          p.DB,
		log:         p.Log.Named("scheduler"),
		cfg:         p.Config.Scheduler,
		emissionSvc: p.EmissionSvc,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Run starts the sweep loop under the fx lifecycle. A no-op when the
// worker is disabled.
func Run(lc fx.Lifecycle, s *Scheduler) {
	if !s.cfg.Enabled {
		close(s.done)
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go s.loop()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(s.stop)
			select {
			case <-s.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func (s *Scheduler) loop() {
	defer close(s.done)

	interval := s.cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(context.Background())
		}
	}
}

// sweep computes pending records one organization at a time. Per-record
// failures stay in the batch outcome; a failing organization does not stop
// the sweep.
func (s *Scheduler) sweep(ctx context.Context) {
	orgIDs, err := s.pendingOrgs(ctx)
	if err != nil {
		s.log.Error("pending organization fetch failed", zap.Error(err))
		return
	}

	for _, orgID := range orgIDs {
		outcome, err := s.emissionSvc.ComputePending(ctx, orgID)
		if err != nil {
			s.log.Error("compute sweep failed",
				zap.String("org_id", orgID),
				zap.Error(err),
			)
			continue
		}
		if len(outcome.Computed) > 0 || len(outcome.Failures) > 0 {
			s.log.Info("compute sweep finished",
				zap.String("org_id", orgID),
				zap.Int("computed", len(outcome.Computed)),
				zap.Int("failed", len(outcome.Failures)),
			)
		}
	}
}

func (s *Scheduler) pendingOrgs(ctx context.Context) ([]string, error) {
	limit := s.cfg.BatchSize
	if limit <= 0 {
		limit = 50
	}

	var raw []int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT DISTINCT org_id
		 FROM consumption_records
		 WHERE status = ?
		 ORDER BY org_id
		 LIMIT ?`,
		consumptiondomain.RecordStatusAccepted,
		limit,
	).Scan(&raw).Error
	if err != nil {
		return nil, err
	}

	orgIDs := make([]string, 0, len(raw))
	for _, id := range raw {
		orgIDs = append(orgIDs, snowflake.ID(id).String())
	}
	return orgIDs, nil
}

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(Run),
)
