package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/address-converter/app/requests"
	"github.com/address-converter/app/responses"
	"github.com/address-converter/app/services"
)

// ConversionController controller chuyển đổi địa chỉ giữa hai cấu trúc
type ConversionController struct {
	conversionService *services.ConversionService
	logger            *zap.Logger
}

// NewConversionController tạo mới ConversionController
func NewConversionController(conversionService *services.ConversionService, logger *zap.Logger) *ConversionController {
	return &ConversionController{
		conversionService: conversionService,
		logger:            logger,
	}
}

// Forward chuyển bộ ba cũ sang địa chỉ mới
func (cc *ConversionController) Forward(c *gin.Context) {
	var q requests.ForwardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	startTime := time.Now()
	fwd, err := cc.conversionService.ConvertForward(c.Request.Context(), q.Key(), q.MinAccuracy)
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}

	c.JSON(http.StatusOK, responses.ForwardResponse{
		Forward:          fwd,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	})
}

// Reverse liệt kê các địa chỉ cũ của một cặp mã mới
func (cc *ConversionController) Reverse(c *gin.Context) {
	var q requests.ReverseQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	startTime := time.Now()
	key := q.Key()
	results, err := cc.conversionService.ConvertReverse(c.Request.Context(), key)
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}

	c.JSON(http.StatusOK, responses.ReverseResponse{
		Key:              key,
		Results:          results,
		Total:            len(results),
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	})
}

// Batch chuyển hàng loạt, lỗi từng phần tử nằm trong kết quả
func (cc *ConversionController) Batch(c *gin.Context) {
	var req requests.BatchConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := cc.conversionService.ConvertBatch(c.Request.Context(), req.Addresses, req.MinAccuracy)
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Normalize biểu diễn một địa chỉ lọc ở cả hai cấu trúc
func (cc *ConversionController) Normalize(c *gin.Context) {
	var req requests.NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	norm, err := cc.conversionService.Normalize(c.Request.Context(), req.Key(), req.MinAccuracy)
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}

	c.JSON(http.StatusOK, responses.NormalizeResponse{
		Structure:  req.Structure,
		Normalized: norm,
	})
}
