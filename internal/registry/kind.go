package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/address-converter/app/models"
)

// Kind loại đơn vị trong hai sổ đăng ký
type Kind string

const (
	KindLegacyProvince Kind = "legacy_province"
	KindLegacyDistrict Kind = "legacy_district"
	KindLegacyWard     Kind = "legacy_ward"
	KindLegacyStreet   Kind = "legacy_street"
	KindProvince       Kind = "province"
	KindWard           Kind = "ward"
)

// Level constants, nhỏ hơn là cấp cao hơn
const (
	LevelProvince = 1
	LevelDistrict = 2
	LevelWard     = 3
	LevelStreet   = 4
)

// ParseKind chuyển chuỗi thành Kind
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindLegacyProvince, KindLegacyDistrict, KindLegacyWard, KindLegacyStreet, KindProvince, KindWard:
		return k, nil
	}
	return "", fmt.Errorf("unknown unit kind %q", s)
}

// Level cấp hành chính của kind
func (k Kind) Level() int {
	switch k {
	case KindLegacyProvince, KindProvince:
		return LevelProvince
	case KindLegacyDistrict:
		return LevelDistrict
	case KindLegacyWard, KindWard:
		return LevelWard
	default:
		return LevelStreet
	}
}

// UnitType ánh xạ kind sang UnitType của API
func (k Kind) UnitType() models.UnitType {
	switch k.Level() {
	case LevelProvince:
		return models.UnitTypeProvince
	case LevelDistrict:
		return models.UnitTypeDistrict
	case LevelWard:
		return models.UnitTypeWard
	default:
		return models.UnitTypeStreet
	}
}

// Scope phạm vi tra cứu
type Scope int

const (
	// ScopeActive chỉ đơn vị đang hoạt động
	ScopeActive Scope = iota
	// ScopeAll gồm cả đơn vị đã ngừng hiệu lực
	ScopeAll
)

// Unit view thống nhất của một đơn vị, không phụ thuộc sổ đăng ký
type Unit struct {
	Kind          Kind                    `json:"kind"`
	ID            int64                   `json:"id"`
	Code          string                  `json:"code,omitempty"`
	Name          string                  `json:"name"`
	Type          string                  `json:"type,omitempty"`
	ParentID      *int64                  `json:"parent_id,omitempty"`
	Structure     models.StructureVersion `json:"structure"`
	OriginalName  string                  `json:"original_name,omitempty"`
	MergedIntoID  *int64                  `json:"merged_into_id,omitempty"`
	IsMerged      bool                    `json:"is_merged"`
	IsActive      bool                    `json:"is_active"`
	EffectiveFrom time.Time               `json:"effective_from"`
	EffectiveTo   *time.Time              `json:"effective_to,omitempty"`
}

// FullName tên kèm loại đơn vị, ví dụ "Phường Điện Biên"
func (u Unit) FullName() string {
	if u.Type == "" || strings.HasPrefix(u.Name, u.Type+" ") {
		return u.Name
	}
	return u.Type + " " + u.Name
}

func (s Scope) admits(active bool) bool {
	return s == ScopeAll || active
}
