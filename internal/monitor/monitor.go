package monitor

import (
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Resolution outcomes used as metric labels
const (
	OutcomeSuccess      = "success"
	OutcomeInvalidURL   = "invalid_url"
	OutcomeNoShareToken = "no_share_token"
	OutcomeAllFailed    = "all_failed"
)

// Strategy attempt statuses used as metric labels
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusPanic   = "panic"
)

// Metrics represents all the application metrics
type Metrics struct {
	// Resolution metrics
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration *prometheus.HistogramVec
	ActiveResolutions  prometheus.Gauge

	// Strategy metrics
	StrategyAttempts *prometheus.CounterVec
	StrategyDuration *prometheus.HistogramVec

	// Front-end metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	BotUpdates   *prometheus.CounterVec

	// System metrics
	Goroutines  prometheus.Gauge
	MemoryUsage prometheus.Gauge
}

// NewMetrics creates the application metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "terabox_resolutions_total",
				Help: "Total number of resolutions by outcome",
			},
			[]string{"outcome"},
		),

		ResolutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "terabox_resolution_duration_seconds",
				Help:    "Time spent resolving a share link",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),

		ActiveResolutions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "terabox_active_resolutions",
			Help: "Number of resolutions in progress",
		}),

		StrategyAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "terabox_strategy_attempts_total",
				Help: "Total strategy attempts by status",
			},
			[]string{"strategy", "status"},
		),

		StrategyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "terabox_strategy_duration_seconds",
				Help:    "Time spent in a single strategy attempt",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "terabox_http_requests_total",
				Help: "Total HTTP API requests",
			},
			[]string{"method", "path", "status"},
		),

		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "terabox_http_request_duration_seconds",
				Help:    "HTTP API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		BotUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "terabox_bot_updates_total",
				Help: "Total chat updates handled by kind",
			},
			[]string{"kind"},
		),

		Goroutines: factory.NewGauge(prometheus.GaugeOpts{
			Name: "terabox_goroutines",
			Help: "Number of goroutines",
		}),

		MemoryUsage: factory.NewGauge(prometheus.GaugeOpts{
			Name: "terabox_memory_usage_bytes",
			Help: "Memory usage in bytes",
		}),
	}
}

// Monitor represents the monitoring system
type Monitor struct {
	registry *prometheus.Registry
	metrics  *Metrics
	logger   zerolog.Logger
	interval time.Duration
	started  time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMonitor creates a monitor with its own metric registry
func NewMonitor(logger zerolog.Logger) *Monitor {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
	)

	return &Monitor{
		registry: reg,
		metrics:  NewMetrics(reg),
		logger:   logger.With().Str("component", "monitor").Logger(),
		interval: 10 * time.Second,
		started:  time.Now(),
		stopChan: make(chan struct{}),
	}
}

// Start starts the monitoring system
func (m *Monitor) Start() {
	m.collect()

	m.wg.Add(1)
	go m.collectSystemMetrics()

	m.logger.Info().Msg("Monitoring system started")
}

// Stop stops the monitoring system. Calling it more than once is safe.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()
		m.logger.Info().Msg("Monitoring system stopped")
	})
}

// collectSystemMetrics collects system metrics periodically
func (m *Monitor) collectSystemMetrics() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.collect()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) collect() {
	m.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.metrics.MemoryUsage.Set(float64(memStats.Alloc))
}

// ResolutionStarted marks a resolution as in progress
func (m *Monitor) ResolutionStarted() {
	m.metrics.ActiveResolutions.Inc()
}

// RecordResolution records the outcome of a finished resolution
func (m *Monitor) RecordResolution(outcome string, duration time.Duration) {
	m.metrics.ActiveResolutions.Dec()
	m.metrics.ResolutionsTotal.WithLabelValues(outcome).Inc()
	m.metrics.ResolutionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordStrategy records one strategy attempt
func (m *Monitor) RecordStrategy(strategy, status string, duration time.Duration) {
	m.metrics.StrategyAttempts.WithLabelValues(strategy, status).Inc()
	m.metrics.StrategyDuration.WithLabelValues(strategy).Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP API request
func (m *Monitor) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.metrics.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.metrics.HTTPDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordBotUpdate records a handled chat update
func (m *Monitor) RecordBotUpdate(kind string) {
	m.metrics.BotUpdates.WithLabelValues(kind).Inc()
}

// GetMetrics returns all metrics
func (m *Monitor) GetMetrics() *Metrics {
	return m.metrics
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HealthCheck performs a health check
func (m *Monitor) HealthCheck() map[string]interface{} {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return map[string]interface{}{
		"goroutines":   runtime.NumGoroutine(),
		"memory_usage": memStats.Alloc,
		"memory_sys":   memStats.Sys,
		"gc_cycles":    memStats.NumGC,
		"uptime":       time.Since(m.started).Round(time.Second).String(),
	}
}
