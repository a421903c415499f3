package routes

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/address-converter/app/controllers"
	"github.com/address-converter/app/responses"
	"github.com/address-converter/helpers/utils"
	"github.com/address-converter/internal/metrics"
)

// RequestIDHeader header mang request id
const RequestIDHeader = "X-Request-ID"

// RequestID gắn request id, dùng lại header của client nếu là UUID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		// chỉ nhận X-Request-ID từ client khi là UUID hợp lệ
		id := c.GetHeader(RequestIDHeader)
		if !utils.IsUUID(id) {
			id = utils.GenerateUUID()
		}
		c.Set(controllers.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// Recovery bắt panic và trả ErrorResponse
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(controllers.RequestIDKey)))
		c.AbortWithStatusJSON(http.StatusInternalServerError, responses.ErrorResponse{
			Error:     controllers.CodeInternal,
			Message:   "Lỗi hệ thống",
			Timestamp: responses.Now(),
			RequestID: c.GetString(controllers.RequestIDKey),
		})
	})
}

// Logger log mỗi request bằng zap
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.String("request_id", c.GetString(controllers.RequestIDKey)),
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("Request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("Request", fields...)
		default:
			logger.Info("Request", fields...)
		}
	}
}

// Metrics ghi số request và latency theo route template
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(route, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// RateLimit giới hạn request toàn service, rps <= 0 thì bỏ qua
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = int(rps)
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, responses.ErrorResponse{
				Error:     "RATE_LIMITED",
				Message:   "Quá nhiều request, vui lòng thử lại sau",
				Timestamp: responses.Now(),
				RequestID: c.GetString(controllers.RequestIDKey),
			})
			return
		}
		c.Next()
	}
}

// Timeout đặt deadline cho context của request
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminAuth kiểm tra token quản trị qua header Authorization: Bearer hoặc X-Admin-Token.
// Token rỗng thì không kiểm tra.
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := c.GetHeader("X-Admin-Token")
		if got == "" {
			got = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, responses.ErrorResponse{
				Error:     "UNAUTHORIZED",
				Message:   "Thiếu hoặc sai admin token",
				Timestamp: responses.Now(),
				RequestID: c.GetString(controllers.RequestIDKey),
			})
			return
		}
		c.Next()
	}
}
