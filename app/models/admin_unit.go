package models

import (
	"time"
)

// UnitType cấp hành chính dùng trong API và lịch sử sáp nhập
type UnitType string

const (
	UnitTypeProvince UnitType = "PROVINCE"
	UnitTypeDistrict UnitType = "DISTRICT"
	UnitTypeWard     UnitType = "WARD"
	UnitTypeStreet   UnitType = "STREET"
)

// IsValidUnitType kiểm tra unit type có hợp lệ không
func IsValidUnitType(t UnitType) bool {
	switch t {
	case UnitTypeProvince, UnitTypeDistrict, UnitTypeWard, UnitTypeStreet:
		return true
	}
	return false
}

// StructureVersion cấu trúc địa chỉ: OLD (63 tỉnh, 3 cấp), NEW (34 tỉnh, 2 cấp), BOTH (không đổi)
type StructureVersion string

const (
	StructureOld  StructureVersion = "OLD"
	StructureNew  StructureVersion = "NEW"
	StructureBoth StructureVersion = "BOTH"
)

// IsValidStructureVersion kiểm tra structure version có hợp lệ không
func IsValidStructureVersion(v StructureVersion) bool {
	return v == StructureOld || v == StructureNew || v == StructureBoth
}

// Validity khoảng hiệu lực của một đơn vị hành chính
type Validity struct {
	EffectiveFrom time.Time  `gorm:"not null" bson:"effective_from" json:"effective_from"`
	EffectiveTo   *time.Time `bson:"effective_to,omitempty" json:"effective_to,omitempty"`
	IsActive      bool       `gorm:"not null;index" bson:"is_active" json:"is_active"`
}

// ActiveAt kiểm tra đơn vị còn hiệu lực tại thời điểm t
func (v Validity) ActiveAt(t time.Time) bool {
	if !v.IsActive || t.Before(v.EffectiveFrom) {
		return false
	}
	return v.EffectiveTo == nil || t.Before(*v.EffectiveTo)
}

// LegacyProvince tỉnh/thành theo cấu trúc cũ (63 tỉnh)
type LegacyProvince struct {
	ID        int64    `gorm:"primaryKey;autoIncrement:false" bson:"_id" json:"id"`
	Code      string   `gorm:"size:10;uniqueIndex;not null" bson:"code" json:"code"`
	Name      string   `gorm:"size:100;not null" bson:"name" json:"name"`
	Type      string   `gorm:"size:50" bson:"type" json:"type"`                           // Tỉnh, Thành phố
	Latitude  *float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`             // Tâm hành chính
	Longitude *float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`           // Tâm hành chính
	Bounds    string   `gorm:"type:text" bson:"bounds,omitempty" json:"bounds,omitempty"` // Ranh giới dạng text
	Validity  `gorm:"embedded" bson:",inline"`
}

func (LegacyProvince) TableName() string { return "legacy_provinces" }

// LegacyDistrict quận/huyện theo cấu trúc cũ
type LegacyDistrict struct {
	ID         int64    `gorm:"primaryKey;autoIncrement:false" bson:"_id" json:"id"`
	Code       string   `gorm:"size:10;uniqueIndex;not null" bson:"code" json:"code"`
	Name       string   `gorm:"size:100;not null" bson:"name" json:"name"`
	Type       string   `gorm:"size:50" bson:"type" json:"type"` // Quận, Huyện, Thị xã, Thành phố
	ProvinceID int64    `gorm:"index;not null" bson:"province_id" json:"province_id"`
	Latitude   *float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude  *float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`
	Bounds     string   `gorm:"type:text" bson:"bounds,omitempty" json:"bounds,omitempty"`
	Validity   `gorm:"embedded" bson:",inline"`
}

func (LegacyDistrict) TableName() string { return "legacy_districts" }

// LegacyWard phường/xã theo cấu trúc cũ
type LegacyWard struct {
	ID         int64    `gorm:"primaryKey;autoIncrement:false" bson:"_id" json:"id"`
	Code       string   `gorm:"size:10;uniqueIndex;not null" bson:"code" json:"code"`
	Name       string   `gorm:"size:100;not null" bson:"name" json:"name"`
	Type       string   `gorm:"size:50" bson:"type" json:"type"` // Phường, Xã, Thị trấn
	DistrictID int64    `gorm:"index;not null" bson:"district_id" json:"district_id"`
	ProvinceID int64    `gorm:"index;not null" bson:"province_id" json:"province_id"`
	Latitude   *float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude  *float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`
	Bounds     string   `gorm:"type:text" bson:"bounds,omitempty" json:"bounds,omitempty"`
	Validity   `gorm:"embedded" bson:",inline"`
}

func (LegacyWard) TableName() string { return "legacy_wards" }

// LegacyStreet đường/phố thuộc cấu trúc cũ
type LegacyStreet struct {
	ID         int64  `gorm:"primaryKey;autoIncrement:false" bson:"_id" json:"id"`
	Name       string `gorm:"size:150;not null" bson:"name" json:"name"`
	Prefix     string `gorm:"size:30" bson:"prefix,omitempty" json:"prefix,omitempty"` // Đường, Phố, Ngõ
	ProvinceID int64  `gorm:"index;not null" bson:"province_id" json:"province_id"`
	DistrictID *int64 `gorm:"index" bson:"district_id,omitempty" json:"district_id,omitempty"`
	Validity   `gorm:"embedded" bson:",inline"`
}

func (LegacyStreet) TableName() string { return "legacy_streets" }

// DisplayName tên đường kèm tiền tố hành chính
func (s LegacyStreet) DisplayName() string {
	if s.Prefix == "" {
		return s.Name
	}
	return s.Prefix + " " + s.Name
}

// Project dự án bất động sản dùng khi dựng chuỗi địa chỉ
type Project struct {
	ID         int64  `gorm:"primaryKey;autoIncrement:false" bson:"_id" json:"id"`
	Name       string `gorm:"size:200;not null" bson:"name" json:"name"`
	ProvinceID *int64 `gorm:"index" bson:"province_id,omitempty" json:"province_id,omitempty"`
	IsActive   bool   `gorm:"not null" bson:"is_active" json:"is_active"`
}

func (Project) TableName() string { return "projects" }

// Province tỉnh/thành trong cấu trúc mới, tự tham chiếu khi bị sáp nhập
type Province struct {
	ID               int64            `gorm:"primaryKey;autoIncrement:false" bson:"_id" json:"id"`
	Code             string           `gorm:"size:10;uniqueIndex;not null" bson:"code" json:"code"`
	Name             string           `gorm:"size:100;not null" bson:"name" json:"name"`
	Type             string           `gorm:"size:50" bson:"type" json:"type"`
	StructureVersion StructureVersion `gorm:"size:10;not null;index" bson:"structure_version" json:"structure_version"`
	OriginalName     string           `gorm:"size:100" bson:"original_name,omitempty" json:"original_name,omitempty"` // Tên trước sáp nhập
	ParentProvinceID *int64           `gorm:"index" bson:"parent_province_id,omitempty" json:"parent_province_id,omitempty"`
	Validity         `gorm:"embedded" bson:",inline"`
}

func (Province) TableName() string { return "provinces" }

// IsMerged tỉnh đã bị sáp nhập vào tỉnh khác
func (p Province) IsMerged() bool { return p.ParentProvinceID != nil }

// Ward phường/xã trong cấu trúc mới
type Ward struct {
	ID               int64            `gorm:"primaryKey;autoIncrement:false" bson:"_id" json:"id"`
	Code             string           `gorm:"size:10;uniqueIndex;not null" bson:"code" json:"code"`
	Name             string           `gorm:"size:100;not null" bson:"name" json:"name"`
	Type             string           `gorm:"size:50" bson:"type" json:"type"`
	ProvinceID       int64            `gorm:"index;not null" bson:"province_id" json:"province_id"`
	StructureVersion StructureVersion `gorm:"size:10;not null" bson:"structure_version" json:"structure_version"`
	OriginalName     string           `gorm:"size:100" bson:"original_name,omitempty" json:"original_name,omitempty"`
	MergedIntoID     *int64           `gorm:"index" bson:"merged_into_id,omitempty" json:"merged_into_id,omitempty"`
	Validity         `gorm:"embedded" bson:",inline"`
}

func (Ward) TableName() string { return "wards" }

// IsMerged phường đã được gộp vào phường khác
func (w Ward) IsMerged() bool { return w.MergedIntoID != nil }
