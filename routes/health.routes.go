package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"zubi/internal/controllers"
)

// RegisterHealthRoutes exposes /health and the Prometheus scrape endpoint.
func RegisterHealthRoutes(router *gin.Engine, healthController *controllers.HealthController) {
	router.GET("/health", healthController.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
