package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"barstock/internal/domain/availability"
	"barstock/internal/infrastructure/http/v1/dto"
	"barstock/internal/infrastructure/storage/postgres"
)

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	pool    *postgres.Pool
	engine  *availability.Engine
	version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(pool *postgres.Pool, engine *availability.Engine, version string) *HealthHandler {
	return &HealthHandler{pool: pool, engine: engine, version: version}
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready handles readiness probe (is the service ready to accept traffic?).
// GET /health/ready
//
// The database must answer; a stale engine source degrades the report but
// does not fail it: the engine keeps serving last-known-good figures while
// a source is unreachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := map[string]string{
		"database": "healthy",
	}

	if err := h.pool.Ping(c.Request.Context()); err != nil {
		checks["database"] = "unhealthy: " + err.Error()
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": checks,
		})
		return
	}

	status := "ok"
	for _, src := range h.engine.SourceStatuses() {
		state := "healthy"
		if src.Stale {
			state = "stale"
			status = "degraded"
		}
		if src.LastError != "" {
			state += ": " + src.LastError
		}
		checks["source:"+string(src.Source)] = state
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"checks": checks,
	})
}

// Info returns application information.
// GET /health/info
func (h *HealthHandler) Info(c *gin.Context) {
	stat := h.pool.Stat()

	c.JSON(http.StatusOK, gin.H{
		"app":     "barstock",
		"version": h.version,
		"database": map[string]any{
			"total_conns":    stat.TotalConns(),
			"acquired_conns": stat.AcquiredConns(),
			"idle_conns":     stat.IdleConns(),
			"max_conns":      stat.MaxConns(),
		},
		"sources": dto.FromSourceStatuses(h.engine.SourceStatuses()),
	})
}
