package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "trailview_sessions_active",
		Help: "Number of open browse sessions",
	})
	FilterAppliesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trailview_filter_applies_total",
		Help: "Total filter applications",
	})
	ReconcileFallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trailview_reconcile_fallbacks_total",
		Help: "Renders where the visible set was ignored, by reason",
	}, []string{"reason"})
	ExtentChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trailview_extent_changes_total",
		Help: "Viewport extent notifications by outcome",
	}, []string{"outcome"})
	SelectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trailview_selections_total",
		Help: "Route selections by outcome",
	}, []string{"outcome"})
	ProfileBuildDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trailview_profile_build_duration_ms",
		Help:    "Elevation profile build duration in milliseconds",
		Buckets: []float64{1, 5, 10, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"source"})
	ProfileCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trailview_profile_cache_hits_total",
		Help: "Total redis profile cache hits",
	})
	ProfileCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trailview_profile_cache_misses_total",
		Help: "Total redis profile cache misses",
	})
	EventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trailview_events_published_total",
		Help: "Session events handed to kafka by type and result",
	}, []string{"type", "result"})
)

func init() {
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(FilterAppliesTotal)
	prometheus.MustRegister(ReconcileFallbacksTotal)
	prometheus.MustRegister(ExtentChangesTotal)
	prometheus.MustRegister(SelectionsTotal)
	prometheus.MustRegister(ProfileBuildDurationMs)
	prometheus.MustRegister(ProfileCacheHitsTotal)
	prometheus.MustRegister(ProfileCacheMissesTotal)
	prometheus.MustRegister(EventsPublishedTotal)
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }
