package models

// AddressMetadata bản ghi địa chỉ của tin đăng, chỉ mang định danh của một cấu trúc
type AddressMetadata struct {
	AddressType StructureVersion `json:"address_type"` // OLD hoặc NEW

	// Cấu trúc cũ
	ProvinceID *int64 `json:"province_id,omitempty"`
	DistrictID *int64 `json:"district_id,omitempty"`
	WardID     *int64 `json:"ward_id,omitempty"`

	// Cấu trúc mới
	NewProvinceCode *string `json:"new_province_code,omitempty"`
	NewWardCode     *string `json:"new_ward_code,omitempty"`

	StreetID     *int64 `json:"street_id,omitempty"`
	ProjectID    *int64 `json:"project_id,omitempty"`
	StreetNumber string `json:"street_number,omitempty"`
}
