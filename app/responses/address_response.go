package responses

import (
	"time"

	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/address"
	"github.com/address-converter/internal/conversion"
	"github.com/address-converter/internal/registry"
	"github.com/address-converter/internal/search"
)

// ForwardResponse response chuyển địa chỉ cũ sang mới
type ForwardResponse struct {
	*conversion.Forward
	ProcessingTimeMs int64 `json:"processing_time_ms"` // Thời gian xử lý (ms)
}

// ReverseResponse response chuyển địa chỉ mới về các địa chỉ cũ
type ReverseResponse struct {
	Key              conversion.NewAddressKey `json:"key"`                // Cặp mã mới
	Results          []conversion.Result      `json:"results"`            // Các địa chỉ cũ, accuracy giảm dần
	Total            int                      `json:"total"`              // Số kết quả
	ProcessingTimeMs int64                    `json:"processing_time_ms"` // Thời gian xử lý (ms)
}

// NormalizeResponse response chuẩn hóa địa chỉ lọc
type NormalizeResponse struct {
	Structure models.StructureVersion `json:"structure"` // Cấu trúc của khóa đầu vào
	*conversion.Normalized
}

// SearchResponse response tìm kiếm địa chỉ
type SearchResponse struct {
	Query            string              `json:"query"`                 // Query gốc
	Results          []search.Match      `json:"results"`               // Kết quả có điểm
	Total            int                 `json:"total"`                 // Số kết quả
	Suggestions      []search.Suggestion `json:"suggestions,omitempty"` // Gợi ý khi không có kết quả
	ProcessingTimeMs int64               `json:"processing_time_ms"`    // Thời gian xử lý (ms)
}

// SuggestResponse response gợi ý
type SuggestResponse struct {
	Query       string              `json:"query"`       // Query gốc
	Suggestions []search.Suggestion `json:"suggestions"` // Gợi ý theo độ giống giảm dần
}

// ValidateAddressResponse response kiểm tra và dựng địa chỉ
type ValidateAddressResponse struct {
	Valid          bool                   `json:"valid"`              // Request hợp lệ
	Metadata       models.AddressMetadata `json:"metadata"`           // Metadata lưu cùng tin đăng
	DisplayAddress string                 `json:"display_address"`    // Chuỗi hiển thị
	Warnings       []address.Warning      `json:"warnings,omitempty"` // Cảnh báo không chặn
}

// UnitListResponse response danh sách đơn vị
type UnitListResponse struct {
	Kind  string          `json:"kind"`  // Loại đơn vị cha
	Ref   string          `json:"ref"`   // Mã hoặc id đơn vị cha
	Units []registry.Unit `json:"units"` // Đơn vị con
	Total int             `json:"total"` // Số đơn vị
}

// ConsistencyResponse response kiểm tra nhất quán
type ConsistencyResponse struct {
	SnapshotVersion string           `json:"snapshot_version"` // Phiên bản snapshot
	Issues          []registry.Issue `json:"issues"`           // Các sai lệch
	Total           int              `json:"total"`            // Số sai lệch
}

// ErrorResponse response lỗi
type ErrorResponse struct {
	Error     string      `json:"error"`                // Mã lỗi
	Message   string      `json:"message"`              // Thông báo lỗi
	Details   interface{} `json:"details,omitempty"`    // Chi tiết lỗi
	Timestamp string      `json:"timestamp"`            // Thời gian xảy ra lỗi
	RequestID string      `json:"request_id,omitempty"` // ID của request
}

// SuccessResponse response thành công
type SuccessResponse struct {
	Success   bool        `json:"success"`        // Có thành công không
	Message   string      `json:"message"`        // Thông báo
	Data      interface{} `json:"data,omitempty"` // Dữ liệu
	Timestamp string      `json:"timestamp"`      // Thời gian
}

// HealthCheckResponse response kiểm tra sức khỏe
type HealthCheckResponse struct {
	Status          string `json:"status"`           // Trạng thái sức khỏe
	Timestamp       string `json:"timestamp"`        // Thời gian kiểm tra
	Uptime          string `json:"uptime"`           // Thời gian hoạt động
	Version         string `json:"version"`          // Phiên bản
	SnapshotVersion string `json:"snapshot_version"` // Phiên bản dữ liệu
}

// Now thời gian hiện tại theo RFC3339 cho các response
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
