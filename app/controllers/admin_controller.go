package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/address-converter/app/requests"
	"github.com/address-converter/app/responses"
	"github.com/address-converter/app/services"
)

// AdminController controller quản trị snapshot và mapping
type AdminController struct {
	adminService *services.AdminService
	logger       *zap.Logger
}

// NewAdminController tạo mới AdminController
func NewAdminController(adminService *services.AdminService, logger *zap.Logger) *AdminController {
	return &AdminController{
		adminService: adminService,
		logger:       logger,
	}
}

// Reload đọc lại dữ liệu từ store và thay snapshot
func (ac *AdminController) Reload(c *gin.Context) {
	res, err := ac.adminService.Reload(c.Request.Context())
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success:   true,
		Message:   "Reload snapshot thành công",
		Data:      res,
		Timestamp: responses.Now(),
	})
}

// ApplyCorrection vô hiệu hóa mapping sai và thêm mapping thay thế
func (ac *AdminController) ApplyCorrection(c *gin.Context) {
	var req requests.CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := ac.adminService.ApplyCorrection(c.Request.Context(), req.Correction())
	if err != nil {
		if res != nil {
			// đã ghi vào store, snapshot chưa được thay
			ac.logger.Error("Correction đã ghi nhưng reload lỗi", zap.Error(err))
			c.JSON(http.StatusAccepted, responses.SuccessResponse{
				Success:   true,
				Message:   "Correction đã ghi, reload snapshot lỗi: " + err.Error(),
				Data:      res,
				Timestamp: responses.Now(),
			})
			return
		}
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success:   true,
		Message:   "Áp dụng correction thành công",
		Data:      res,
		Timestamp: responses.Now(),
	})
}

// Consistency đối chiếu chỉ mục phụ với ConversionMapping
func (ac *AdminController) Consistency(c *gin.Context) {
	issues, err := ac.adminService.Consistency(c.Request.Context())
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.JSON(http.StatusOK, responses.ConsistencyResponse{
		SnapshotVersion: ac.adminService.SnapshotVersion(),
		Issues:          issues,
		Total:           len(issues),
	})
}

// BuildIndex xuất snapshot sang Meilisearch
func (ac *AdminController) BuildIndex(c *gin.Context) {
	res, err := ac.adminService.IndexSearch(c.Request.Context())
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	ac.logger.Info("Xuất chỉ mục thành công",
		zap.Int("documents", res.Documents),
		zap.Int64("processing_ms", res.ProcessingMs))
	c.JSON(http.StatusOK, responses.SuccessResponse{
		Success:   true,
		Message:   "Xuất chỉ mục thành công",
		Data:      res,
		Timestamp: responses.Now(),
	})
}

// GetStats thống kê hệ thống
func (ac *AdminController) GetStats(c *gin.Context) {
	stats, err := ac.adminService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Ready sẵn sàng khi snapshot đã có dữ liệu
func (ac *AdminController) Ready(c *gin.Context) {
	if !ac.adminService.Ready() {
		c.JSON(http.StatusServiceUnavailable, responses.ErrorResponse{
			Error:     CodeUnavailable,
			Message:   "Snapshot chưa được nạp",
			Timestamp: responses.Now(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "timestamp": responses.Now()})
}
