package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StatusReporter exposes a component's runtime state.
type StatusReporter interface {
	GetStatus() map[string]interface{}
}

// HealthCheck probes one backend dependency.
type HealthCheck func(ctx context.Context) error

type HealthController struct {
	worker StatusReporter
	checks map[string]HealthCheck
}

func NewHealthController(worker StatusReporter, checks map[string]HealthCheck) *HealthController {
	if checks == nil {
		checks = map[string]HealthCheck{}
	}
	return &HealthController{worker: worker, checks: checks}
}

// Health godoc
// @Summary Service health
// @Description Reports the reply worker state and the result of every backend check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{} "Healthy"
// @Failure 503 {object} map[string]interface{} "A dependency is down"
// @Router /health [get]
func (hc *HealthController) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	healthy := true
	checks := gin.H{}
	for name, check := range hc.checks {
		if err := check(ctx); err != nil {
			healthy = false
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	data := gin.H{"checks": checks}
	if hc.worker != nil {
		status := hc.worker.GetStatus()
		data["worker"] = status
		if running, ok := status["running"].(bool); ok && !running {
			healthy = false
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "Service degraded",
			"data":    data,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Service healthy",
		"data":    data,
	})
}
