// Package metrics exposes prometheus instrumentation for the emission engine.
package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config labels every metric with service identity.
type Config struct {
	ServiceName string
	Environment string
}

// EngineMetrics instruments factor resolution and emission computation.
type EngineMetrics struct {
	factorResolutions *prometheus.CounterVec
	recordsIngested   *prometheus.CounterVec
	computeDuration   prometheus.Histogram
	summaryCacheHits  *prometheus.CounterVec
	tableReloads      prometheus.Counter
}

var (
	engineMetricsOnce sync.Once
	engineMetrics     *EngineMetrics
)

// Engine returns the process-wide engine metrics, registering them on first use.
func Engine() *EngineMetrics {
	return EngineWithConfig(Config{})
}

func EngineWithConfig(cfg Config) *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineMetrics = newEngineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return engineMetrics
}

func ResetEngineMetricsForTest() {
	engineMetricsOnce = sync.Once{}
	engineMetrics = nil
}

func newEngineMetrics(registerer prometheus.Registerer, cfg Config) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "ecoledger"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	factorResolutions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "ecoledger_factor_resolutions_total",
			Help:        "Factor lookups by category and the fallback tier that satisfied them.",
			ConstLabels: constLabels,
		},
		[]string{"category", "matched_scope"},
	)

	recordsIngested := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "ecoledger_consumption_records_total",
			Help:        "Consumption records accepted for emission accounting.",
			ConstLabels: constLabels,
		},
		[]string{"category"},
	)

	computeDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:        "ecoledger_emission_compute_seconds",
			Help:        "Wall time of a single record emission computation.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	summaryCacheHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "ecoledger_summary_cache_total",
			Help:        "Period summary cache lookups by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"outcome"},
	)

	tableReloads := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name:        "ecoledger_factor_table_reloads_total",
			Help:        "Administrative reloads of the emission factor table.",
			ConstLabels: constLabels,
		},
	)

	for _, collector := range []prometheus.Collector{
		factorResolutions, recordsIngested, computeDuration, summaryCacheHits, tableReloads,
	} {
		if err := registerer.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
		}
	}

	return &EngineMetrics{
		factorResolutions: factorResolutions,
		recordsIngested:   recordsIngested,
		computeDuration:   computeDuration,
		summaryCacheHits:  summaryCacheHits,
		tableReloads:      tableReloads,
	}
}

func (m *EngineMetrics) IncFactorResolution(category, matchedScope string) {
	if m == nil {
		return
	}
	m.factorResolutions.WithLabelValues(category, matchedScope).Inc()
}

func (m *EngineMetrics) IncRecordIngested(category string) {
	if m == nil {
		return
	}
	m.recordsIngested.WithLabelValues(category).Inc()
}

func (m *EngineMetrics) ObserveCompute(duration time.Duration) {
	if m == nil {
		return
	}
	m.computeDuration.Observe(duration.Seconds())
}

func (m *EngineMetrics) IncSummaryCache(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.summaryCacheHits.WithLabelValues(outcome).Inc()
}

func (m *EngineMetrics) IncTableReload() {
	if m == nil {
		return
	}
	m.tableReloads.Inc()
}
