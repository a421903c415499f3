package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/address-converter/app/responses"
	"github.com/address-converter/app/services"
	"github.com/address-converter/internal/address"
	"github.com/address-converter/internal/conversion"
	"github.com/address-converter/internal/history"
	"github.com/address-converter/internal/registry"
	"github.com/address-converter/internal/search"
	"github.com/address-converter/internal/store"
)

// RequestIDKey khóa lưu request id trong gin context
const RequestIDKey = "request_id"

// Mã lỗi trả về client
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeNotFound           = "NOT_FOUND"
	CodeConversionNotFound = "CONVERSION_NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"
	CodeInternal           = "INTERNAL_ERROR"
)

var badRequestErrors = []error{
	conversion.ErrInvalidKey,
	address.ErrInvalidRequest,
	services.ErrInvalidAccuracy,
	services.ErrEmptyBatch,
	services.ErrBatchTooLarge,
	services.ErrInvalidKind,
	search.ErrEmptyQuery,
	registry.ErrInvalidCorrection,
	history.ErrInvalidUnitType,
}

// statusOf map lỗi service sang HTTP status và mã lỗi
func statusOf(err error) (int, string) {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, CodeInvalidRequest
		}
	}
	switch {
	case errors.Is(err, conversion.ErrConversionNotFound):
		return http.StatusNotFound, CodeConversionNotFound
	case errors.Is(err, registry.ErrUnitNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, store.ErrStaleCorrection):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, services.ErrIndexerDisabled):
		return http.StatusServiceUnavailable, CodeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	}
	return http.StatusInternalServerError, CodeInternal
}

// respondError trả ErrorResponse theo loại lỗi, chỉ log lỗi 5xx
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, code := statusOf(err)
	resp := responses.ErrorResponse{
		Error:     code,
		Message:   err.Error(),
		Timestamp: responses.Now(),
		RequestID: c.GetString(RequestIDKey),
	}

	var verr *address.ValidationError
	if errors.As(err, &verr) {
		resp.Details = verr
	}
	var kerr *conversion.KeyError
	if errors.As(err, &kerr) {
		resp.Details = gin.H{"field": kerr.Field, "message": kerr.Message}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", resp.RequestID),
			zap.Error(err))
		resp.Message = "Lỗi hệ thống: " + err.Error()
	}
	c.JSON(status, resp)
}

// respondBindError request không đọc được
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, responses.ErrorResponse{
		Error:     CodeInvalidRequest,
		Message:   "Request không hợp lệ: " + err.Error(),
		Timestamp: responses.Now(),
		RequestID: c.GetString(RequestIDKey),
	})
}
