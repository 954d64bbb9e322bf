// Package metrics provides Prometheus collectors for framepilot's pools,
// caches and adaptive controller.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks framepilot Prometheus metrics.
//
// All metrics use the framepilot_ prefix. A nil *Metrics is valid and every
// recorder on it is a no-op, so components never need to check.
type Metrics struct {
	// TasksTotal counts pool tasks by pool and outcome
	// ("completed", "dropped", "discarded", "panicked").
	TasksTotal *prometheus.CounterVec

	// TaskDuration tracks task run time per pool.
	TaskDuration *prometheus.HistogramVec

	// PoolWorkers is the configured worker count per pool (0 = cached).
	PoolWorkers *prometheus.GaugeVec

	// CacheRequestsTotal counts cache lookups by cache and result ("hit", "miss").
	CacheRequestsTotal *prometheus.CounterVec

	// CacheLoadsTotal counts loader invocations by cache and result ("ok", "error").
	CacheLoadsTotal *prometheus.CounterVec

	// CacheEvictionsTotal counts entries removed by eviction passes.
	CacheEvictionsTotal *prometheus.CounterVec

	// CacheEntries is the current number of resident entries.
	CacheEntries *prometheus.GaugeVec

	// FPS is the frame rate measured by the last closed window.
	FPS prometheus.Gauge

	// RenderDistance is the current render distance in chunks.
	RenderDistance prometheus.Gauge

	// DistanceChangesTotal counts controller adjustments by direction ("up", "down").
	DistanceChangesTotal *prometheus.CounterVec

	// TickDuration tracks time spent inside OnTickStart.
	TickDuration prometheus.Histogram
}

// NewMetrics creates framepilot metrics and registers them with reg.
// Panics if registration fails (expected during initialization only).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framepilot_pool_tasks_total",
				Help: "Pool tasks by pool and outcome",
			},
			[]string{"pool", "outcome"},
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "framepilot_pool_task_duration_seconds",
				Help:    "Pool task run time in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"pool"},
		),
		PoolWorkers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "framepilot_pool_workers",
				Help: "Configured worker count per pool, 0 for cached pools",
			},
			[]string{"pool"},
		),
		CacheRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framepilot_cache_requests_total",
				Help: "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
		CacheLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framepilot_cache_loads_total",
				Help: "Cache loader invocations by cache and result",
			},
			[]string{"cache", "result"},
		),
		CacheEvictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framepilot_cache_evictions_total",
				Help: "Cache entries removed by eviction passes",
			},
			[]string{"cache"},
		),
		CacheEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "framepilot_cache_entries",
				Help: "Resident cache entries",
			},
			[]string{"cache"},
		),
		FPS: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "framepilot_fps",
				Help: "Frames counted in the last closed sample window",
			},
		),
		RenderDistance: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "framepilot_render_distance_chunks",
				Help: "Current render distance in chunks",
			},
		),
		DistanceChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framepilot_render_distance_changes_total",
				Help: "Render distance adjustments by direction",
			},
			[]string{"direction"},
		),
		TickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "framepilot_tick_duration_seconds",
				Help:    "Time spent in the per-tick hook",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
			},
		),
	}

	reg.MustRegister(
		m.TasksTotal,
		m.TaskDuration,
		m.PoolWorkers,
		m.CacheRequestsTotal,
		m.CacheLoadsTotal,
		m.CacheEvictionsTotal,
		m.CacheEntries,
		m.FPS,
		m.RenderDistance,
		m.DistanceChangesTotal,
		m.TickDuration,
	)

	return m
}

// RecordTask records a finished task.
func (m *Metrics) RecordTask(pool, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(pool, outcome).Inc()
	if outcome == "completed" || outcome == "panicked" {
		m.TaskDuration.WithLabelValues(pool).Observe(durationSeconds)
	}
}

// RecordTaskOutcome counts a task that never ran ("dropped", "discarded").
func (m *Metrics) RecordTaskOutcome(pool, outcome string) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(pool, outcome).Inc()
}

// SetPoolWorkers updates the worker gauge for a pool.
func (m *Metrics) SetPoolWorkers(pool string, workers int) {
	if m == nil {
		return
	}
	m.PoolWorkers.WithLabelValues(pool).Set(float64(workers))
}

// RecordCacheRequest records a lookup.
func (m *Metrics) RecordCacheRequest(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequestsTotal.WithLabelValues(cache, result).Inc()
}

// RecordCacheLoad records a loader invocation.
func (m *Metrics) RecordCacheLoad(cache string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CacheLoadsTotal.WithLabelValues(cache, result).Inc()
}

// RecordEvictions records entries removed by one eviction pass.
func (m *Metrics) RecordEvictions(cache string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.CacheEvictionsTotal.WithLabelValues(cache).Add(float64(n))
}

// SetCacheEntries updates the resident entry gauge.
func (m *Metrics) SetCacheEntries(cache string, n int) {
	if m == nil {
		return
	}
	m.CacheEntries.WithLabelValues(cache).Set(float64(n))
}

// RecordWindow records a closed controller window.
func (m *Metrics) RecordWindow(fps, before, after int) {
	if m == nil {
		return
	}
	m.FPS.Set(float64(fps))
	m.RenderDistance.Set(float64(after))
	switch {
	case after > before:
		m.DistanceChangesTotal.WithLabelValues("up").Inc()
	case after < before:
		m.DistanceChangesTotal.WithLabelValues("down").Inc()
	}
}

// SetRenderDistance updates the render distance gauge outside a window close.
func (m *Metrics) SetRenderDistance(d int) {
	if m == nil {
		return
	}
	m.RenderDistance.Set(float64(d))
}

// ObserveTick records time spent in one per-tick hook.
func (m *Metrics) ObserveTick(seconds float64) {
	if m == nil {
		return
	}
	m.TickDuration.Observe(seconds)
}

// NullMetrics returns nil, which acts as a no-op metrics collector.
func NullMetrics() *Metrics {
	return nil
}
