package requests

import (
	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/address"
	"github.com/address-converter/internal/conversion"
	"github.com/address-converter/internal/registry"
)

// ForwardQuery query chuyển địa chỉ cũ sang mới
type ForwardQuery struct {
	ProvinceID  int64 `form:"province_id" binding:"required"` // ID tỉnh cũ
	DistrictID  int64 `form:"district_id" binding:"required"` // ID quận/huyện cũ
	WardID      int64 `form:"ward_id" binding:"required"`     // ID phường/xã cũ
	MinAccuracy *int  `form:"min_accuracy"`                   // Ngưỡng độ chính xác (0-100)
}

// Key khóa địa chỉ cũ
func (q ForwardQuery) Key() conversion.OldAddressKey {
	return conversion.OldAddressKey{ProvinceID: q.ProvinceID, DistrictID: q.DistrictID, WardID: q.WardID}
}

// ReverseQuery query chuyển địa chỉ mới về cũ
type ReverseQuery struct {
	ProvinceCode string `form:"province_code" binding:"required"` // Mã tỉnh mới
	WardCode     string `form:"ward_code" binding:"required"`     // Mã phường/xã mới
}

// Key khóa địa chỉ mới
func (q ReverseQuery) Key() conversion.NewAddressKey {
	return conversion.NewAddressKey{ProvinceCode: q.ProvinceCode, WardCode: q.WardCode}
}

// BatchConvertRequest request chuyển đổi hàng loạt
type BatchConvertRequest struct {
	Addresses   []conversion.OldAddressKey `json:"addresses" binding:"required,min=1"` // Danh sách địa chỉ cũ
	MinAccuracy *int                       `json:"min_accuracy,omitempty"`             // Ngưỡng độ chính xác
}

// NormalizeRequest request chuẩn hóa địa chỉ lọc sang cả hai cấu trúc
type NormalizeRequest struct {
	Structure   models.StructureVersion   `json:"structure" binding:"required"` // OLD hoặc NEW
	Old         *conversion.OldAddressKey `json:"old,omitempty"`                // Bộ ba cũ khi structure = OLD
	New         *conversion.NewAddressKey `json:"new,omitempty"`                // Cặp mã mới khi structure = NEW
	MinAccuracy *int                      `json:"min_accuracy,omitempty"`       // Ngưỡng độ chính xác
}

// Key khóa tagged union
func (r NormalizeRequest) Key() conversion.AddressKey {
	return conversion.AddressKey{Structure: r.Structure, Old: r.Old, New: r.New}
}

// SearchQuery query tìm kiếm
type SearchQuery struct {
	Q             string `form:"q" binding:"required"` // Chuỗi tìm kiếm
	IncludeMerged bool   `form:"include_merged"`       // Gồm đơn vị đã sáp nhập
	Limit         int    `form:"limit"`                // Số kết quả tối đa
}

// UnitQuery query tra cứu đơn vị
type UnitQuery struct {
	IncludeInactive bool `form:"include_inactive"` // Gồm đơn vị đã ngừng hiệu lực
}

// ValidateAddressRequest request kiểm tra và dựng địa chỉ tin đăng
type ValidateAddressRequest struct {
	AddressType     models.StructureVersion `json:"address_type"`      // OLD hoặc NEW
	ProvinceID      *int64                  `json:"province_id"`       // ID tỉnh cũ
	DistrictID      *int64                  `json:"district_id"`       // ID quận/huyện cũ
	WardID          *int64                  `json:"ward_id"`           // ID phường/xã cũ
	NewProvinceCode string                  `json:"new_province_code"` // Mã tỉnh mới
	NewWardCode     string                  `json:"new_ward_code"`     // Mã phường/xã mới
	StreetID        *int64                  `json:"street_id"`         // ID đường
	ProjectID       *int64                  `json:"project_id"`        // ID dự án
	StreetNumber    string                  `json:"street_number"`     // Số nhà
	Latitude        *float64                `json:"latitude"`          // Vĩ độ
	Longitude       *float64                `json:"longitude"`         // Kinh độ
}

// ToAddressRequest chuyển sang request của builder
func (r ValidateAddressRequest) ToAddressRequest() address.Request {
	return address.Request{
		AddressType:     r.AddressType,
		ProvinceID:      r.ProvinceID,
		DistrictID:      r.DistrictID,
		WardID:          r.WardID,
		NewProvinceCode: r.NewProvinceCode,
		NewWardCode:     r.NewWardCode,
		StreetID:        r.StreetID,
		ProjectID:       r.ProjectID,
		StreetNumber:    r.StreetNumber,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
	}
}

// CorrectionRequest request sửa mapping
type CorrectionRequest struct {
	Deactivate []int64                    `json:"deactivate"`     // ID mapping cần vô hiệu hóa
	Insert     []models.ConversionMapping `json:"insert"`         // Mapping thay thế
	Note       string                     `json:"note,omitempty"` // Ghi chú
}

// Correction chuyển sang correction của registry
func (r CorrectionRequest) Correction() registry.Correction {
	return registry.Correction{Deactivate: r.Deactivate, Insert: r.Insert, Note: r.Note}
}
