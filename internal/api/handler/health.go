package handler

import (
	"context"
	"net/http"

	"github.com/datapilot/datapilot/internal/api/response"
	"github.com/datapilot/datapilot/internal/insight"
	"github.com/datapilot/datapilot/internal/llm"
)

// Pinger is satisfied by the snapshot catalog.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FlushableCache extends the insight cache with bulk invalidation.
type FlushableCache interface {
	insight.Cache
	FlushAll(ctx context.Context) (int64, error)
}

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including catalog connectivity
func ReadyCheck(catalog Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := catalog.Ping(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "catalog not ready")
			return
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}

// ListLLMProviders returns the registered generation providers and the
// requestable model allow-list.
func ListLLMProviders(registry *llm.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]any{
			"providers":        registry.Info(),
			"default_provider": registry.DefaultProvider(),
			"models":           insight.AvailableModels,
		})
	}
}

// FlushInsightCache clears every cached insight entry.
func FlushInsightCache(cache FlushableCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleted, err := cache.FlushAll(r.Context())
		if err != nil {
			response.InternalError(w, "failed to flush cache: "+err.Error())
			return
		}

		response.OK(w, map[string]any{
			"message":      "cache flushed successfully",
			"keys_deleted": deleted,
		})
	}
}
