// Package testutil dữ liệu mẫu dùng chung cho các bài test
package testutil

import (
	"time"

	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/registry"
)

var (
	LegacyEffective = time.Date(2008, 8, 1, 0, 0, 0, 0, time.UTC)
	ReformEffective = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
)

func Int64(v int64) *int64 { return &v }
func String(v string) *string { return &v }
func Float(v float64) *float64 { return &v }

func active(from time.Time) models.Validity {
	return models.Validity{EffectiveFrom: from, IsActive: true}
}

func retired(from, to time.Time) models.Validity {
	return models.Validity{EffectiveFrom: from, EffectiveTo: &to, IsActive: true}
}

// Mapping dựng một conversion mapping đầy đủ
func Mapping(id, p, d, w int64, provinceCode, wardCode string, accuracy int) models.ConversionMapping {
	return models.ConversionMapping{
		ID:                 id,
		OldProvinceID:      Int64(p),
		OldDistrictID:      Int64(d),
		OldWardID:          Int64(w),
		NewProvinceCode:    String(provinceCode),
		NewWardCode:        String(wardCode),
		ConversionAccuracy: accuracy,
		IsActive:           true,
		CreatedAt:          ReformEffective,
	}
}

// Dataset bộ dữ liệu nhỏ:
//   - (1,5,20) Điện Biên -> 01/00004, accuracy 100
//   - (1,5,21) Đội Cấn bị chia: mặc định 01/00005 (80), ứng viên 01/00006 (60)
//   - (1,5,22) Ngọc Hà, (1,5,23) Quán Thánh gộp vào 01/00008
//   - quận 6 Hoàn Kiếm chỉ có mapping cấp quận -> 01/00070 (70)
//   - tỉnh Hà Giang (2) sáp nhập vào Tuyên Quang (08), không có mapping phường
func Dataset() *registry.Dataset {
	return &registry.Dataset{
		LegacyProvinces: []models.LegacyProvince{
			{ID: 1, Code: "01", Name: "Hà Nội", Type: "Thành phố", Latitude: Float(21.0285), Longitude: Float(105.8542), Validity: retired(LegacyEffective, ReformEffective)},
			{ID: 2, Code: "02", Name: "Hà Giang", Type: "Tỉnh", Validity: retired(LegacyEffective, ReformEffective)},
			{ID: 8, Code: "08", Name: "Tuyên Quang", Type: "Tỉnh", Validity: retired(LegacyEffective, ReformEffective)},
		},
		LegacyDistricts: []models.LegacyDistrict{
			{ID: 5, Code: "001", Name: "Ba Đình", Type: "Quận", ProvinceID: 1, Validity: retired(LegacyEffective, ReformEffective)},
			{ID: 6, Code: "002", Name: "Hoàn Kiếm", Type: "Quận", ProvinceID: 1, Validity: retired(LegacyEffective, ReformEffective)},
			{ID: 24, Code: "024", Name: "Hà Giang", Type: "Thành phố", ProvinceID: 2, Validity: retired(LegacyEffective, ReformEffective)},
		},
		LegacyWards: []models.LegacyWard{
			{ID: 20, Code: "00001", Name: "Điện Biên", Type: "Phường", DistrictID: 5, ProvinceID: 1, Validity: retired(LegacyEffective, ReformEffective)},
			{ID: 21, Code: "00002", Name: "Đội Cấn", Type: "Phường", DistrictID: 5, ProvinceID: 1, Validity: retired(LegacyEffective, ReformEffective)},
			{ID: 22, Code: "00003", Name: "Ngọc Hà", Type: "Phường", DistrictID: 5, ProvinceID: 1, Validity: retired(LegacyEffective, ReformEffective)},
			{ID: 23, Code: "00007", Name: "Quán Thánh", Type: "Phường", DistrictID: 5, ProvinceID: 1, Validity: retired(LegacyEffective, ReformEffective)},
			{ID: 30, Code: "00037", Name: "Hàng Bạc", Type: "Phường", DistrictID: 6, ProvinceID: 1, Validity: retired(LegacyEffective, ReformEffective)},
			{ID: 40, Code: "00688", Name: "Quang Trung", Type: "Phường", DistrictID: 24, ProvinceID: 2, Validity: retired(LegacyEffective, ReformEffective)},
		},
		LegacyStreets: []models.LegacyStreet{
			{ID: 500, Name: "Nguyễn Thái Học", Prefix: "Đường", ProvinceID: 1, DistrictID: Int64(5), Validity: active(LegacyEffective)},
		},
		Projects: []models.Project{
			{ID: 900, Name: "Vinhomes Metropolis", ProvinceID: Int64(1), IsActive: true},
		},
		Provinces: []models.Province{
			{ID: 101, Code: "01", Name: "Hà Nội", Type: "Thành phố", StructureVersion: models.StructureBoth, Validity: active(LegacyEffective)},
			{ID: 108, Code: "08", Name: "Tuyên Quang", Type: "Tỉnh", StructureVersion: models.StructureNew, Validity: active(ReformEffective)},
			{ID: 102, Code: "02", Name: "Hà Giang", Type: "Tỉnh", StructureVersion: models.StructureOld, OriginalName: "Hà Giang", ParentProvinceID: Int64(108), Validity: retired(LegacyEffective, ReformEffective)},
		},
		Wards: []models.Ward{
			{ID: 1004, Code: "00004", Name: "Ba Đình", Type: "Phường", ProvinceID: 101, StructureVersion: models.StructureNew, Validity: active(ReformEffective)},
			{ID: 1005, Code: "00005", Name: "Giảng Võ", Type: "Phường", ProvinceID: 101, StructureVersion: models.StructureNew, Validity: active(ReformEffective)},
			{ID: 1006, Code: "00006", Name: "Láng", Type: "Phường", ProvinceID: 101, StructureVersion: models.StructureNew, Validity: active(ReformEffective)},
			{ID: 1008, Code: "00008", Name: "Ngọc Hà", Type: "Phường", ProvinceID: 101, StructureVersion: models.StructureNew, Validity: active(ReformEffective)},
			{ID: 1009, Code: "00009", Name: "Quán Thánh", Type: "Phường", ProvinceID: 101, StructureVersion: models.StructureOld, OriginalName: "Quán Thánh", MergedIntoID: Int64(1008), Validity: retired(LegacyEffective, ReformEffective)},
			{ID: 1070, Code: "00070", Name: "Hoàn Kiếm", Type: "Phường", ProvinceID: 101, StructureVersion: models.StructureNew, Validity: active(ReformEffective)},
			{ID: 2011, Code: "02011", Name: "Hà Giang 1", Type: "Phường", ProvinceID: 108, StructureVersion: models.StructureNew, Validity: active(ReformEffective)},
		},
		ConversionMappings: func() []models.ConversionMapping {
			divDefault := Mapping(2, 1, 5, 21, "01", "00005", 80)
			divDefault.IsDividedWard = true
			divDefault.IsDefaultNewWard = true
			divDefault.IsNearestNewWard = true

			divOther := Mapping(3, 1, 5, 21, "01", "00006", 60)
			divOther.IsDividedWard = true

			mergedA := Mapping(4, 1, 5, 22, "01", "00008", 95)
			mergedA.IsMergedWard = true
			mergedA.IsDefaultNewWard = true
			mergedA.ConversionNote = "Sáp nhập phường Ngọc Hà và Quán Thánh"

			mergedB := Mapping(5, 1, 5, 23, "01", "00008", 90)
			mergedB.IsMergedWard = true
			mergedB.IsDefaultNewWard = true

			district := models.ConversionMapping{
				ID: 6, OldProvinceID: Int64(1), OldDistrictID: Int64(6),
				NewProvinceCode: String("01"), NewWardCode: String("00070"),
				ConversionAccuracy: 70, IsActive: true, CreatedAt: ReformEffective,
			}

			incomplete := models.ConversionMapping{
				ID: 7, OldProvinceID: Int64(1), OldDistrictID: Int64(5), OldWardID: Int64(20),
				NewProvinceCode: String("01"), ConversionAccuracy: 100, IsActive: true, CreatedAt: ReformEffective,
			}

			inactive := Mapping(8, 1, 5, 20, "01", "00006", 100)
			inactive.IsActive = false

			return []models.ConversionMapping{
				Mapping(1, 1, 5, 20, "01", "00004", 100),
				divDefault, divOther, mergedA, mergedB, district, incomplete, inactive,
			}
		}(),
		ProvinceMappings: []models.ProvinceMapping{
			{ID: 1, LegacyProvinceID: 1, NewProvinceCode: "01", EffectiveDate: ReformEffective, IsActive: true},
			{ID: 2, LegacyProvinceID: 2, NewProvinceCode: "08", EffectiveDate: ReformEffective, IsActive: true},
			{ID: 3, LegacyProvinceID: 8, NewProvinceCode: "08", EffectiveDate: ReformEffective, IsActive: true},
		},
		DistrictWardMappings: []models.DistrictWardMapping{
			{ID: 1, LegacyDistrictID: 6, NewProvinceCode: "01", NewWardCode: "00070", ConversionAccuracy: 70, IsDefaultNewWard: true, EffectiveDate: ReformEffective, IsActive: true},
		},
		WardMappings: []models.WardMapping{
			{ID: 1, LegacyWardID: 20, NewWardCode: "00004", MergeType: models.MergeTypeRenamed, IsDefaultNewWard: true, EffectiveDate: ReformEffective, IsActive: true},
			{ID: 2, LegacyWardID: 21, NewWardCode: "00005", MergeType: models.MergeTypeDivided, IsDefaultNewWard: true, EffectiveDate: ReformEffective, IsActive: true},
			{ID: 3, LegacyWardID: 21, NewWardCode: "00006", MergeType: models.MergeTypeDivided, EffectiveDate: ReformEffective, IsActive: true},
			{ID: 4, LegacyWardID: 22, NewWardCode: "00008", MergeType: models.MergeTypeMerged, IsDefaultNewWard: true, EffectiveDate: ReformEffective, IsActive: true},
			{ID: 5, LegacyWardID: 23, NewWardCode: "00008", MergeType: models.MergeTypeMerged, IsDefaultNewWard: true, EffectiveDate: ReformEffective, IsActive: true},
		},
	}
}

// Snapshot dựng snapshot từ Dataset, panic nếu dữ liệu mẫu sai
func Snapshot() *registry.Snapshot {
	s, err := registry.NewSnapshot(Dataset())
	if err != nil {
		panic(err)
	}
	return s
}

// Holder bọc Snapshot trong holder
func Holder() *registry.Holder {
	return registry.NewHolder(Snapshot())
}
