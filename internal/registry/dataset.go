package registry

import (
	"github.com/address-converter/app/models"
)

// Dataset toàn bộ dữ liệu tham chiếu đọc từ store, đầu vào để dựng Snapshot
type Dataset struct {
	LegacyProvinces      []models.LegacyProvince      `json:"legacy_provinces"`
	LegacyDistricts      []models.LegacyDistrict      `json:"legacy_districts"`
	LegacyWards          []models.LegacyWard          `json:"legacy_wards"`
	LegacyStreets        []models.LegacyStreet        `json:"legacy_streets"`
	Projects             []models.Project             `json:"projects"`
	Provinces            []models.Province            `json:"provinces"`
	Wards                []models.Ward                `json:"wards"`
	ConversionMappings   []models.ConversionMapping   `json:"conversion_mappings"`
	ProvinceMappings     []models.ProvinceMapping     `json:"province_mappings"`
	DistrictWardMappings []models.DistrictWardMapping `json:"district_ward_mappings"`
	WardMappings         []models.WardMapping         `json:"ward_mappings"`
}

// Counts số bản ghi theo từng bảng
func (d *Dataset) Counts() map[string]int {
	return map[string]int{
		"legacy_provinces":       len(d.LegacyProvinces),
		"legacy_districts":       len(d.LegacyDistricts),
		"legacy_wards":           len(d.LegacyWards),
		"legacy_streets":         len(d.LegacyStreets),
		"projects":               len(d.Projects),
		"provinces":              len(d.Provinces),
		"wards":                  len(d.Wards),
		"conversion_mappings":    len(d.ConversionMappings),
		"province_mappings":      len(d.ProvinceMappings),
		"district_ward_mappings": len(d.DistrictWardMappings),
		"ward_mappings":          len(d.WardMappings),
	}
}
