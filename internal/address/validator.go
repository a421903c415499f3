// Package address kiểm tra yêu cầu tạo địa chỉ và dựng chuỗi hiển thị chuẩn
package address

import (
	"errors"
	"fmt"
	"strings"

	"github.com/address-converter/app/models"
)

// ErrInvalidRequest yêu cầu tạo địa chỉ không hợp lệ
var ErrInvalidRequest = errors.New("invalid address request")

// Mã lỗi kiểm tra
const (
	CodeMissingField          = "MISSING_FIELD"
	CodeInvalidAddressType    = "INVALID_ADDRESS_TYPE"
	CodeInvalidCoordinatePair = "INVALID_COORDINATE_PAIR"
	CodeCoordinateOutOfRange  = "COORDINATE_OUT_OF_RANGE"
	CodeUnitNotFound          = "UNIT_NOT_FOUND"
	CodeHierarchyMismatch     = "HIERARCHY_MISMATCH"
)

// Mã cảnh báo
const (
	WarnNoStreetOrProject = "NO_STREET_OR_PROJECT"
)

// Phạm vi tọa độ lãnh thổ Việt Nam
const (
	MinLatitude  = 8.0
	MaxLatitude  = 23.5
	MinLongitude = 102.0
	MaxLongitude = 110.0
)

// ValidationError lỗi kiểm tra kèm trường và mã lỗi
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Code + ": " + e.Message
	}
	return e.Code + ": " + e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRequest }

// Warning cảnh báo không chặn việc tạo địa chỉ
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Request yêu cầu tạo địa chỉ, gắn nhãn OLD hoặc NEW
type Request struct {
	AddressType models.StructureVersion `json:"address_type"`

	ProvinceID *int64 `json:"province_id,omitempty"`
	DistrictID *int64 `json:"district_id,omitempty"`
	WardID     *int64 `json:"ward_id,omitempty"`

	NewProvinceCode string `json:"new_province_code,omitempty"`
	NewWardCode     string `json:"new_ward_code,omitempty"`

	StreetID     *int64   `json:"street_id,omitempty"`
	ProjectID    *int64   `json:"project_id,omitempty"`
	StreetNumber string   `json:"street_number,omitempty"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// ValidateRequest kiểm tra tính đầy đủ về cấu trúc, không tra cứu sổ đăng ký.
// Trả về cảnh báo khi thiếu cả đường lẫn dự án.
func ValidateRequest(req Request) ([]Warning, error) {
	switch req.AddressType {
	case models.StructureOld:
		if req.ProvinceID == nil {
			return nil, missing("province_id")
		}
		if req.DistrictID == nil {
			return nil, missing("district_id")
		}
		if req.WardID == nil {
			return nil, missing("ward_id")
		}
	case models.StructureNew:
		if strings.TrimSpace(req.NewProvinceCode) == "" {
			return nil, missing("new_province_code")
		}
		if strings.TrimSpace(req.NewWardCode) == "" {
			return nil, missing("new_ward_code")
		}
	default:
		return nil, &ValidationError{
			Code:    CodeInvalidAddressType,
			Field:   "address_type",
			Message: fmt.Sprintf("address_type must be OLD or NEW, got %q", req.AddressType),
		}
	}

	if err := validateCoordinates(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}

	var warnings []Warning
	if req.StreetID == nil && req.ProjectID == nil {
		warnings = append(warnings, Warning{
			Code:    WarnNoStreetOrProject,
			Message: "neither street_id nor project_id is provided",
		})
	}
	return warnings, nil
}

func validateCoordinates(lat, lon *float64) error {
	if lat == nil && lon == nil {
		return nil
	}
	if lat == nil || lon == nil {
		field := "latitude"
		if lon == nil {
			field = "longitude"
		}
		return &ValidationError{
			Code:    CodeInvalidCoordinatePair,
			Field:   field,
			Message: "latitude and longitude must be provided together",
		}
	}
	if *lat < MinLatitude || *lat > MaxLatitude {
		return &ValidationError{
			Code:    CodeCoordinateOutOfRange,
			Field:   "latitude",
			Message: fmt.Sprintf("latitude must be between %.1f and %.1f", MinLatitude, MaxLatitude),
		}
	}
	if *lon < MinLongitude || *lon > MaxLongitude {
		return &ValidationError{
			Code:    CodeCoordinateOutOfRange,
			Field:   "longitude",
			Message: fmt.Sprintf("longitude must be between %.1f and %.1f", MinLongitude, MaxLongitude),
		}
	}
	return nil
}

func missing(field string) *ValidationError {
	return &ValidationError{Code: CodeMissingField, Field: field, Message: field + " is required"}
}
