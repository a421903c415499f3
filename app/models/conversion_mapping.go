package models

import (
	"fmt"
	"time"
)

// ConversionMapping một cạnh chuyển đổi từ bộ ba địa chỉ cũ sang cặp địa chỉ mới
type ConversionMapping struct {
	ID int64 `gorm:"primaryKey;autoIncrement:false" bson:"_id" json:"id"`

	OldProvinceID *int64 `gorm:"index:idx_mapping_old_address,priority:1" bson:"old_province_id,omitempty" json:"old_province_id,omitempty"`
	OldDistrictID *int64 `gorm:"index:idx_mapping_old_address,priority:2" bson:"old_district_id,omitempty" json:"old_district_id,omitempty"`
	OldWardID     *int64 `gorm:"index:idx_mapping_old_address,priority:3" bson:"old_ward_id,omitempty" json:"old_ward_id,omitempty"`

	NewProvinceCode *string `gorm:"size:10;index:idx_mapping_new_address,priority:1" bson:"new_province_code,omitempty" json:"new_province_code,omitempty"`
	NewWardCode     *string `gorm:"size:10;index:idx_mapping_new_address,priority:2" bson:"new_ward_code,omitempty" json:"new_ward_code,omitempty"`

	IsMergedProvince             bool `gorm:"not null" bson:"is_merged_province" json:"is_merged_province"`
	IsMergedWard                 bool `gorm:"not null" bson:"is_merged_ward" json:"is_merged_ward"`
	IsDividedWard                bool `gorm:"not null" bson:"is_divided_ward" json:"is_divided_ward"`
	IsDefaultNewWard             bool `gorm:"not null" bson:"is_default_new_ward" json:"is_default_new_ward"`
	IsNearestNewWard             bool `gorm:"not null" bson:"is_nearest_new_ward" json:"is_nearest_new_ward"`                             // Phường mới gần nhất (tính sẵn)
	IsNewWardPolygonContainsWard bool `gorm:"not null" bson:"is_new_ward_polygon_contains_ward" json:"is_new_ward_polygon_contains_ward"` // Đa giác phường mới chứa phường cũ (tính sẵn)

	ConversionAccuracy int    `gorm:"not null" bson:"conversion_accuracy" json:"conversion_accuracy"` // 0-100
	ConversionNote     string `gorm:"type:text" bson:"conversion_note,omitempty" json:"conversion_note,omitempty"`

	IsActive      bool       `gorm:"not null;index" bson:"is_active" json:"is_active"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	DeactivatedAt *time.Time `bson:"deactivated_at,omitempty" json:"deactivated_at,omitempty"`
}

func (ConversionMapping) TableName() string { return "conversion_mappings" }

// IsComplete đủ cả 3 cấp cũ và 2 cấp mới
func (m ConversionMapping) IsComplete() bool {
	return m.OldProvinceID != nil && m.OldDistrictID != nil && m.OldWardID != nil &&
		m.NewProvinceCode != nil && *m.NewProvinceCode != "" &&
		m.NewWardCode != nil && *m.NewWardCode != ""
}

// IsDistrictLevel chỉ có tỉnh/quận cũ, không có phường cũ nhưng có đủ cặp mới
func (m ConversionMapping) IsDistrictLevel() bool {
	return m.OldProvinceID != nil && m.OldDistrictID != nil && m.OldWardID == nil &&
		m.NewProvinceCode != nil && *m.NewProvinceCode != "" &&
		m.NewWardCode != nil && *m.NewWardCode != ""
}

// ValidateAccuracy kiểm tra conversion_accuracy trong khoảng 0-100
func (m ConversionMapping) ValidateAccuracy() error {
	if m.ConversionAccuracy < 0 || m.ConversionAccuracy > 100 {
		return fmt.Errorf("conversion_accuracy %d ngoài khoảng 0-100", m.ConversionAccuracy)
	}
	return nil
}

// MergeType loại biến động của phường
type MergeType string

const (
	MergeTypeMerged    MergeType = "MERGED"
	MergeTypeDivided   MergeType = "DIVIDED"
	MergeTypeRenamed   MergeType = "RENAMED"
	MergeTypeUnchanged MergeType = "UNCHANGED"
)

// ProvinceMapping chỉ mục phụ: tỉnh cũ -> tỉnh mới
type ProvinceMapping struct {
	ID               int64     `gorm:"primaryKey;autoIncrement:false" bson:"_id" json:"id"`
	LegacyProvinceID int64     `gorm:"index;not null" bson:"legacy_province_id" json:"legacy_province_id"`
	NewProvinceCode  string    `gorm:"size:10;index;not null" bson:"new_province_code" json:"new_province_code"`
	EffectiveDate    time.Time `bson:"effective_date" json:"effective_date"`
	IsActive         bool      `gorm:"not null" bson:"is_active" json:"is_active"`
}

func (ProvinceMapping) TableName() string { return "province_mappings" }

// DistrictWardMapping chỉ mục phụ: quận cũ -> phường mới
type DistrictWardMapping struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement:false" bson:"_id" json:"id"`
	LegacyDistrictID   int64     `gorm:"index;not null" bson:"legacy_district_id" json:"legacy_district_id"`
	NewProvinceCode    string    `gorm:"size:10;not null" bson:"new_province_code" json:"new_province_code"`
	NewWardCode        string    `gorm:"size:10;index;not null" bson:"new_ward_code" json:"new_ward_code"`
	ConversionAccuracy int       `gorm:"not null" bson:"conversion_accuracy" json:"conversion_accuracy"`
	IsDefaultNewWard   bool      `gorm:"not null" bson:"is_default_new_ward" json:"is_default_new_ward"`
	EffectiveDate      time.Time `bson:"effective_date" json:"effective_date"`
	IsActive           bool      `gorm:"not null" bson:"is_active" json:"is_active"`
}

func (DistrictWardMapping) TableName() string { return "district_ward_mappings" }

// WardMapping chỉ mục phụ: phường cũ -> phường mới
type WardMapping struct {
	ID               int64     `gorm:"primaryKey;autoIncrement:false" bson:"_id" json:"id"`
	LegacyWardID     int64     `gorm:"index;not null" bson:"legacy_ward_id" json:"legacy_ward_id"`
	NewWardCode      string    `gorm:"size:10;index;not null" bson:"new_ward_code" json:"new_ward_code"`
	MergeType        MergeType `gorm:"size:20" bson:"merge_type" json:"merge_type"`
	IsDefaultNewWard bool      `gorm:"not null" bson:"is_default_new_ward" json:"is_default_new_ward"`
	EffectiveDate    time.Time `bson:"effective_date" json:"effective_date"`
	IsActive         bool      `gorm:"not null" bson:"is_active" json:"is_active"`
}

func (WardMapping) TableName() string { return "ward_mappings" }
