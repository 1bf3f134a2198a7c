package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/noteverse/internal/app/models/dto"
)

// Pinger is a dependency the health check pings
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger
type PingerFunc func(ctx context.Context) error

// Ping calls f
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthController reports liveness and dependency health
type HealthController struct {
	checks  map[string]Pinger
	timeout time.Duration
	logger  zerolog.Logger
}

// NewHealthController creates a health controller probing the named dependencies
func NewHealthController(checks map[string]Pinger, logger zerolog.Logger) *HealthController {
	return &HealthController{checks: checks, timeout: 2 * time.Second, logger: logger}
}

// Ping answers liveness checks
// @Summary Liveness
// @Tags health
// @Produce plain
// @Success 200 {string} string "pong"
// @Router /ping [get]
func (c *HealthController) Ping(ctx *gin.Context) {
	ctx.String(http.StatusOK, "pong")
}

// Health pings every dependency
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Failure 503 {object} dto.APIResponse
// @Router /health [get]
func (c *HealthController) Health(ctx *gin.Context) {
	checkCtx, cancel := context.WithTimeout(ctx.Request.Context(), c.timeout)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(c.checks))
	for name, p := range c.checks {
		if err := p.Ping(checkCtx); err != nil {
			c.logger.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	ctx.JSON(status, dto.APIResponse{Data: gin.H{"status": overall, "dependencies": deps}})
}
