// Package routes gắn controller, middleware và endpoint metrics vào gin router.
//
// Cấu trúc:
//   - api.go: /v1/*, health, metrics và trang gốc
//   - middleware.go: request id, recovery, log, metrics, rate limit, timeout, admin token
//   - routes.go: SetupAllRoutes
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/address-converter/app/config"
	"github.com/address-converter/app/responses"
	"github.com/address-converter/internal/metrics"
)

// SetupAllRoutes thiết lập middleware và tất cả routes
func SetupAllRoutes(router *gin.Engine, ctrl Controllers, cfg config.HTTPCfg, m *metrics.Metrics, logger *zap.Logger) {
	setupMiddleware(router, cfg, m, logger)

	SetupWebRoutes(router)
	SetupHealthRoutes(router, ctrl)
	SetupAPIRoutes(router, ctrl, cfg.RequestTimeout(), cfg.AdminToken)
	SetupMetricsRoutes(router, m)

	// 404 handler
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, responses.ErrorResponse{
			Error:     "ROUTE_NOT_FOUND",
			Message:   c.Request.Method + " " + c.Request.URL.Path,
			Timestamp: responses.Now(),
		})
	})
}

func setupMiddleware(router *gin.Engine, cfg config.HTTPCfg, m *metrics.Metrics, logger *zap.Logger) {
	router.Use(RequestID())
	router.Use(Recovery(logger))
	router.Use(Logger(logger))
	router.Use(Metrics(m))
	router.Use(RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
}
