package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/address-converter/app/controllers"
	"github.com/address-converter/internal/metrics"
)

// Controllers các controller được gắn vào router
type Controllers struct {
	Conversion *controllers.ConversionController
	Address    *controllers.AddressController
	Admin      *controllers.AdminController
}

// SetupAPIRoutes thiết lập tất cả API routes
func SetupAPIRoutes(router *gin.Engine, ctrl Controllers, requestTimeout time.Duration, adminToken string) {
	timeout := Timeout(requestTimeout)

	// API v1 group
	v1 := router.Group("/v1")
	{
		// Chuyển đổi địa chỉ; batch dùng timeout theo từng phần tử
		conversions := v1.Group("/conversions")
		{
			conversions.GET("/forward", timeout, ctrl.Conversion.Forward)
			conversions.GET("/reverse", timeout, ctrl.Conversion.Reverse)
			conversions.POST("/normalize", timeout, ctrl.Conversion.Normalize)
			conversions.POST("/batch", ctrl.Conversion.Batch)
		}

		addresses := v1.Group("/addresses", timeout)
		{
			addresses.GET("/search", ctrl.Address.Search)
			addresses.GET("/suggest", ctrl.Address.Suggest)
			addresses.POST("/validate", ctrl.Address.Validate)
		}

		units := v1.Group("/units", timeout)
		{
			units.GET("/:kind/:ref", ctrl.Address.GetUnit)
			units.GET("/:kind/:ref/children", ctrl.Address.ListChildren)
		}

		v1.GET("/history/:type/:code", timeout, ctrl.Address.GetMergeHistory)

		// Admin routes
		admin := v1.Group("/admin", AdminAuth(adminToken))
		{
			admin.POST("/reload", ctrl.Admin.Reload)
			admin.POST("/corrections", ctrl.Admin.ApplyCorrection)
			admin.GET("/consistency", ctrl.Admin.Consistency)
			admin.POST("/index", ctrl.Admin.BuildIndex)
			admin.GET("/stats", ctrl.Admin.GetStats)
		}

		// Health check route
		v1.GET("/health", ctrl.Address.HealthCheck)
	}
}

// SetupHealthRoutes thiết lập health check routes
func SetupHealthRoutes(router *gin.Engine, ctrl Controllers) {
	// Root health check
	router.GET("/health", ctrl.Address.HealthCheck)

	// Readiness check
	router.GET("/ready", ctrl.Admin.Ready)

	// Liveness check
	router.GET("/live", ctrl.Address.Live)
}

// SetupMetricsRoutes thiết lập metrics routes (cho Prometheus)
func SetupMetricsRoutes(router *gin.Engine, m *metrics.Metrics) {
	router.GET("/metrics", gin.WrapH(m.Handler()))
}

// SetupWebRoutes trang gốc liệt kê endpoint
func SetupWebRoutes(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Address Converter Service",
			"version": controllers.AppVersion,
			"endpoints": map[string]string{
				"forward":   "GET /v1/conversions/forward",
				"reverse":   "GET /v1/conversions/reverse",
				"batch":     "POST /v1/conversions/batch",
				"normalize": "POST /v1/conversions/normalize",
				"search":    "GET /v1/addresses/search",
				"suggest":   "GET /v1/addresses/suggest",
				"validate":  "POST /v1/addresses/validate",
				"unit":      "GET /v1/units/:kind/:ref",
				"history":   "GET /v1/history/:type/:code",
				"health":    "GET /health",
				"metrics":   "GET /metrics",
			},
		})
	})
}
