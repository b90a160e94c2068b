package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/cache"
	apierrors "github.com/DefoxxAnalytics/Etn-Quarterly/internal/errors"
	"github.com/DefoxxAnalytics/Etn-Quarterly/internal/services"
)

// CacheStatsSource exposes aggregation cache counters
type CacheStatsSource interface {
	CacheStats() cache.Stats
}

// HubStatsSource exposes websocket hub counters
type HubStatsSource interface {
	Stats() map[string]interface{}
}

// MetricsHandler serves the Prometheus scrape endpoint and a JSON runtime
// snapshot
type MetricsHandler struct {
	prometheus   http.Handler
	cache        CacheStatsSource
	hub          HubStatsSource
	health       *services.HealthService
	errorHandler *apierrors.ErrorHandler
}

// NewMetricsHandler creates a metrics handler. promHandler is nil when the
// metric exporter is disabled; hub may be nil.
func NewMetricsHandler(promHandler http.Handler, cacheStats CacheStatsSource, hub HubStatsSource, health *services.HealthService, errorHandler *apierrors.ErrorHandler) *MetricsHandler {
	return &MetricsHandler{
		prometheus:   promHandler,
		cache:        cacheStats,
		hub:          hub,
		health:       health,
		errorHandler: errorHandler,
	}
}

// Prometheus handles GET /metrics
func (h *MetricsHandler) Prometheus(w http.ResponseWriter, r *http.Request) {
	if h.prometheus == nil {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("Metrics exporter"))
		return
	}
	h.prometheus.ServeHTTP(w, r)
}

// GetStats handles GET /api/v1/stats
func (h *MetricsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"timestamp": time.Now().UTC(),
	}
	if h.health != nil {
		resp["system"] = h.health.SystemStats(r.Context())
	}
	if h.cache != nil {
		resp["cache"] = h.cache.CacheStats()
	}
	if h.hub != nil {
		resp["websocket"] = h.hub.Stats()
	}
	render.JSON(w, r, resp)
}
