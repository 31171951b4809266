// Package server exposes the HTTP API over the engine services.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	compliancedomain "github.com/ecoledger/ecoledger/internal/compliance/domain"
	"github.com/ecoledger/ecoledger/internal/config"
	consumptiondomain "github.com/ecoledger/ecoledger/internal/consumption/domain"
	creditdomain "github.com/ecoledger/ecoledger/internal/credit/domain"
	dashboarddomain "github.com/ecoledger/ecoledger/internal/dashboard/domain"
	emissiondomain "github.com/ecoledger/ecoledger/internal/emission/domain"
	"github.com/ecoledger/ecoledger/internal/events"
	factordomain "github.com/ecoledger/ecoledger/internal/factor/domain"
	"github.com/ecoledger/ecoledger/internal/observability/logger"
	"github.com/ecoledger/ecoledger/internal/observability/metrics"
	"github.com/ecoledger/ecoledger/internal/observability/tracing"
	reportdomain "github.com/ecoledger/ecoledger/internal/report/domain"
)

// HeaderOrg carries the acting organization for API calls.
const HeaderOrg = "X-Org-Id"

type Server struct {
	cfg config.Config
	db  *gorm.DB
	log *zap.Logger

	engine *gin.Engine

	consumptionSvc consumptiondomain.Service
	emissionSvc    emissiondomain.Service
	factorSvc      factordomain.Service
	dashboardSvc   dashboarddomain.Service
	complianceSvc  compliancedomain.Service
	creditSvc      creditdomain.Service
	reportSvc      reportdomain.Service
	outbox         *events.Outbox

	ingestLimiter *rateLimiter
}

type ServerParam struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	Engine *gin.Engine

	ConsumptionSvc consumptiondomain.Service
	EmissionSvc    emissiondomain.Service
	FactorSvc      factordomain.Service
	DashboardSvc   dashboarddomain.Service  `optional:"true"`
	ComplianceSvc  compliancedomain.Service `optional:"true"`
	CreditSvc      creditdomain.Service     `optional:"true"`
	ReportSvc      reportdomain.Service     `optional:"true"`
	Outbox         *events.Outbox           `optional:"true"`
}

func NewServer(p ServerParam) *Server {
	return &Server{
		cfg:    p.Config,
		db:     p.DB,
		log:    p.Log.Named("server"),
		engine: p.Engine,

		consumptionSvc: p.ConsumptionSvc,
		emissionSvc:    p.EmissionSvc,
		factorSvc:      p.FactorSvc,
		dashboardSvc:   p.DashboardSvc,
		complianceSvc:  p.ComplianceSvc,
		creditSvc:      p.CreditSvc,
		reportSvc:      p.ReportSvc,
		outbox:         p.Outbox,

		ingestLimiter: newRateLimiter(120, time.Minute),
	}
}

// NewEngine builds the gin engine with the shared middleware stack.
func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/health", "/metrics"},
	}))
	engine.Use(tracing.GinMiddleware())
	engine.Use(metrics.GinMiddleware(metrics.HTTP()))
	return engine
}

// RegisterAPIRoutes mounts every endpoint on the engine.
func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/health", s.Health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	{
		api.POST("/consumption", s.RateLimited(s.ingestLimiter), s.IngestConsumption)
		api.GET("/consumption", s.ListConsumption)
		api.GET("/consumption/:id", s.GetConsumption)
		api.DELETE("/consumption/:id", s.InvalidateConsumption)

		api.POST("/emissions/compute", s.ComputeEmissions)
		api.GET("/emissions", s.ListEmissions)
		api.GET("/emissions/summary", s.SummarizeEmissions)

		api.GET("/dashboard/stats", s.DashboardStats)
		api.GET("/compliance/status", s.ComplianceStatus)

		api.POST("/carbon-credits/estimate", s.EstimateCredits)
		api.GET("/carbon-credits/projects", s.ListCreditProjects)

		api.POST("/reports/generate", s.GenerateReport)
		api.GET("/reports", s.ListReports)
		api.GET("/reports/:id", s.GetReport)

		api.GET("/factors/resolve", s.ResolveFactor)

		admin := api.Group("/admin", s.AdminKeyRequired())
		{
			admin.POST("/factors/reload", s.ReloadFactors)
		}
	}
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				s.log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// RateLimited guards an endpoint with a per-organization budget.
func (s *Server) RateLimited(limiter *rateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := orgIDFrom(c)
		if key == "" {
			key = c.ClientIP()
		}
		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": &APIError{
				Status:  http.StatusTooManyRequests,
				Code:    "rate_limited",
				Message: "too many requests",
			}})
			return
		}
		c.Next()
	}
}

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterAPIRoutes() }),
	fx.Invoke(RunHTTP),
)
