package conversion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/address-converter/app/models"
)

var (
	// ErrConversionNotFound không có mapping nào ở mọi cấp
	ErrConversionNotFound = errors.New("conversion not found")
	// ErrInvalidKey khóa địa chỉ sai cấu trúc
	ErrInvalidKey = errors.New("invalid address key")
)

// KeyError lỗi khóa địa chỉ kèm tên trường
type KeyError struct {
	Field   string
	Message string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *KeyError) Unwrap() error { return ErrInvalidKey }

// OldAddressKey bộ ba định danh địa chỉ cũ
type OldAddressKey struct {
	ProvinceID int64 `json:"province_id"`
	DistrictID int64 `json:"district_id"`
	WardID     int64 `json:"ward_id"`
}

// Validate cả ba id phải dương
func (k OldAddressKey) Validate() error {
	switch {
	case k.ProvinceID <= 0:
		return &KeyError{Field: "province_id", Message: "Province ID is required for old address structure"}
	case k.DistrictID <= 0:
		return &KeyError{Field: "district_id", Message: "District ID is required for old address structure"}
	case k.WardID <= 0:
		return &KeyError{Field: "ward_id", Message: "Ward ID is required for old address structure"}
	}
	return nil
}

func (k OldAddressKey) String() string {
	return fmt.Sprintf("%d/%d/%d", k.ProvinceID, k.DistrictID, k.WardID)
}

// NewAddressKey cặp mã địa chỉ mới
type NewAddressKey struct {
	ProvinceCode string `json:"province_code"`
	WardCode     string `json:"ward_code"`
}

// Validate cả hai mã phải khác rỗng
func (k NewAddressKey) Validate() error {
	if strings.TrimSpace(k.ProvinceCode) == "" {
		return &KeyError{Field: "province_code", Message: "Province code is required for new address structure"}
	}
	if strings.TrimSpace(k.WardCode) == "" {
		return &KeyError{Field: "ward_code", Message: "Ward code is required for new address structure"}
	}
	return nil
}

func (k NewAddressKey) String() string {
	return k.ProvinceCode + "/" + k.WardCode
}

// AddressKey khóa địa chỉ dạng tagged union: Structure quyết định Old hay New có giá trị
type AddressKey struct {
	Structure models.StructureVersion `json:"structure"`
	Old       *OldAddressKey          `json:"old,omitempty"`
	New       *NewAddressKey          `json:"new,omitempty"`
}

// OldKey tạo khóa cấu trúc cũ
func OldKey(provinceID, districtID, wardID int64) AddressKey {
	return AddressKey{Structure: models.StructureOld, Old: &OldAddressKey{provinceID, districtID, wardID}}
}

// NewKey tạo khóa cấu trúc mới
func NewKey(provinceCode, wardCode string) AddressKey {
	return AddressKey{Structure: models.StructureNew, New: &NewAddressKey{provinceCode, wardCode}}
}

// Validate kiểm tra tag khớp với nhánh có dữ liệu
func (k AddressKey) Validate() error {
	switch k.Structure {
	case models.StructureOld:
		if k.Old == nil || k.New != nil {
			return &KeyError{Field: "old", Message: "OLD key must carry only the legacy triple"}
		}
		return k.Old.Validate()
	case models.StructureNew:
		if k.New == nil || k.Old != nil {
			return &KeyError{Field: "new", Message: "NEW key must carry only the new pair"}
		}
		return k.New.Validate()
	}
	return &KeyError{Field: "structure", Message: fmt.Sprintf("unsupported structure %q", k.Structure)}
}

// Level độ chi tiết của kết quả chuyển đổi
type Level string

const (
	LevelWard     Level = "WARD"
	LevelDistrict Level = "DISTRICT"
	LevelProvince Level = "PROVINCE"
)

// Flags các cờ của mapping gốc
type Flags struct {
	IsMergedProvince             bool `json:"is_merged_province"`
	IsMergedWard                 bool `json:"is_merged_ward"`
	IsDividedWard                bool `json:"is_divided_ward"`
	IsDefaultNewWard             bool `json:"is_default_new_ward"`
	IsNearestNewWard             bool `json:"is_nearest_new_ward"`
	IsNewWardPolygonContainsWard bool `json:"is_new_ward_polygon_contains_ward"`
}

func flagsOf(m models.ConversionMapping) Flags {
	return Flags{
		IsMergedProvince:             m.IsMergedProvince,
		IsMergedWard:                 m.IsMergedWard,
		IsDividedWard:                m.IsDividedWard,
		IsDefaultNewWard:             m.IsDefaultNewWard,
		IsNearestNewWard:             m.IsNearestNewWard,
		IsNewWardPolygonContainsWard: m.IsNewWardPolygonContainsWard,
	}
}

// Result một kết quả chuyển đổi
type Result struct {
	MappingID int64 `json:"mapping_id,omitempty"`

	Old        *OldAddressKey `json:"old,omitempty"`
	OldAddress string         `json:"old_address,omitempty"`

	NewProvinceCode string `json:"new_province_code"`
	NewProvinceName string `json:"new_province_name,omitempty"`
	NewWardCode     string `json:"new_ward_code,omitempty"`
	NewWardName     string `json:"new_ward_name,omitempty"`
	NewAddress      string `json:"new_address,omitempty"`

	Accuracy int `json:"conversion_accuracy"`
	Flags
	Level         Level  `json:"level"`
	IsDefault     bool   `json:"is_default"`
	LowConfidence bool   `json:"low_confidence"`
	Note          string `json:"conversion_note,omitempty"`
}

// NewKey cặp mã mới của kết quả, ok = false khi chưa xác định được phường
func (r Result) NewKey() (NewAddressKey, bool) {
	if r.NewWardCode == "" {
		return NewAddressKey{}, false
	}
	return NewAddressKey{ProvinceCode: r.NewProvinceCode, WardCode: r.NewWardCode}, true
}

// Forward kết quả chuyển xuôi: một mặc định (có thể rỗng) và các ứng viên
type Forward struct {
	Key             OldAddressKey `json:"key"`
	Default         *Result       `json:"default,omitempty"`
	Candidates      []Result      `json:"candidates"`
	Level           Level         `json:"level"`
	SnapshotVersion string        `json:"snapshot_version"`
}

// All mặc định (nếu có) và các ứng viên theo thứ tự
func (f *Forward) All() []Result {
	out := make([]Result, 0, len(f.Candidates)+1)
	if f.Default != nil {
		out = append(out, *f.Default)
	}
	return append(out, f.Candidates...)
}

// Conversion kết quả của Convert theo tag của khóa
type Conversion struct {
	Structure models.StructureVersion `json:"structure"`
	Forward   *Forward                `json:"forward,omitempty"`
	Reverse   []Result                `json:"reverse,omitempty"`
}

// Normalized một địa chỉ lọc biểu diễn ở cả hai cấu trúc
type Normalized struct {
	Old []OldAddressKey `json:"old"`
	New []NewAddressKey `json:"new"`
}
