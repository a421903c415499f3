package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/address-converter/app/models"
	"github.com/address-converter/app/requests"
	"github.com/address-converter/app/responses"
	"github.com/address-converter/app/services"
)

// AppVersion phiên bản build, ghi đè bằng -ldflags
var AppVersion = "1.0.0"

// AddressController controller tra cứu, tìm kiếm và kiểm tra địa chỉ
type AddressController struct {
	addressService *services.AddressService
	logger         *zap.Logger
}

// NewAddressController tạo mới AddressController
func NewAddressController(addressService *services.AddressService, logger *zap.Logger) *AddressController {
	return &AddressController{
		addressService: addressService,
		logger:         logger,
	}
}

// Search tìm kiếm tự do trên cả hai cấu trúc
func (ac *AddressController) Search(c *gin.Context) {
	var q requests.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	startTime := time.Now()
	res, err := ac.addressService.SearchAddress(c.Request.Context(), q.Q, q.IncludeMerged, q.Limit)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, responses.SearchResponse{
		Query:            res.Query,
		Results:          res.Matches,
		Total:            len(res.Matches),
		Suggestions:      res.Suggestions,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	})
}

// Suggest gợi ý tên gần đúng
func (ac *AddressController) Suggest(c *gin.Context) {
	var q requests.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	sugg, err := ac.addressService.Suggest(c.Request.Context(), q.Q, q.Limit)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, responses.SuggestResponse{Query: q.Q, Suggestions: sugg})
}

// Validate kiểm tra request tạo địa chỉ tin đăng và dựng chuỗi hiển thị
func (ac *AddressController) Validate(c *gin.Context) {
	var req requests.ValidateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	addr, err := ac.addressService.ValidateAddress(c.Request.Context(), req.ToAddressRequest())
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, responses.ValidateAddressResponse{
		Valid:          true,
		Metadata:       addr.Metadata,
		DisplayAddress: addr.DisplayAddress,
		Warnings:       addr.Warnings,
	})
}

// GetUnit tra cứu một đơn vị theo loại và mã/id
func (ac *AddressController) GetUnit(c *gin.Context) {
	var q requests.UnitQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	unit, err := ac.addressService.FindUnit(c.Request.Context(), c.Param("kind"), c.Param("ref"), q.IncludeInactive)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

// ListChildren liệt kê đơn vị con trực tiếp
func (ac *AddressController) ListChildren(c *gin.Context) {
	var q requests.UnitQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	kind, ref := c.Param("kind"), c.Param("ref")
	units, err := ac.addressService.ListChildren(c.Request.Context(), kind, ref, q.IncludeInactive)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, responses.UnitListResponse{
		Kind:  kind,
		Ref:   ref,
		Units: units,
		Total: len(units),
	})
}

// GetMergeHistory lịch sử sáp nhập, type là province | district | ward
func (ac *AddressController) GetMergeHistory(c *gin.Context) {
	unitType := models.UnitType(strings.ToUpper(c.Param("type")))

	h, err := ac.addressService.GetMergeHistory(c.Request.Context(), unitType, c.Param("code"))
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, h)
}

// HealthCheck kiểm tra sức khỏe service
func (ac *AddressController) HealthCheck(c *gin.Context) {
	uptime := time.Since(ac.addressService.GetStartTime())

	c.JSON(http.StatusOK, responses.HealthCheckResponse{
		Status:          "healthy",
		Timestamp:       responses.Now(),
		Uptime:          uptime.Round(time.Second).String(),
		Version:         AppVersion,
		SnapshotVersion: ac.addressService.SnapshotVersion(),
	})
}

// Live process còn chạy
func (ac *AddressController) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive", "timestamp": responses.Now()})
}
