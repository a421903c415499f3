package address

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/registry"
)

// SnapshotSource nguồn snapshot hiện hành
type SnapshotSource interface {
	Load() *registry.Snapshot
}

// Address địa chỉ đã kiểm tra, sẵn sàng lưu kèm AddressMetadata
type Address struct {
	Metadata       models.AddressMetadata `json:"metadata"`
	DisplayAddress string                 `json:"display_address"`
	Warnings       []Warning              `json:"warnings,omitempty"`
}

// Builder kiểm tra yêu cầu với sổ đăng ký và dựng chuỗi hiển thị
type Builder struct {
	src    SnapshotSource
	logger *zap.Logger
}

// NewBuilder tạo builder mới
func NewBuilder(src SnapshotSource, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{src: src, logger: logger}
}

// Build kiểm tra cấu trúc, tra cứu và đối chiếu cấp hành chính rồi dựng địa chỉ.
// Thứ tự chuỗi hiển thị: số nhà + đường/dự án, phường, quận (chỉ cấu trúc cũ), tỉnh.
func (b *Builder) Build(ctx context.Context, req Request) (*Address, error) {
	warnings, err := ValidateRequest(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := b.src.Load()

	meta := models.AddressMetadata{
		AddressType:  req.AddressType,
		StreetID:     req.StreetID,
		ProjectID:    req.ProjectID,
		StreetNumber: strings.TrimSpace(req.StreetNumber),
	}

	var provinceID *int64
	var units []string
	switch req.AddressType {
	case models.StructureOld:
		ward, district, province, err := resolveOld(snap, req)
		if err != nil {
			return nil, err
		}
		meta.ProvinceID = &province.ID
		meta.DistrictID = &district.ID
		meta.WardID = &ward.ID
		provinceID = &province.ID
		units = []string{
			withType(ward.Type, ward.Name),
			withType(district.Type, district.Name),
			legacyProvinceDisplayName(snap, province),
		}
	case models.StructureNew:
		ward, province, err := resolveNew(snap, req)
		if err != nil {
			return nil, err
		}
		meta.NewProvinceCode = &province.Code
		meta.NewWardCode = &ward.Code
		units = []string{
			withType(ward.Type, ward.Name),
			snap.ProvinceDisplayName(province),
		}
	}

	lead, err := leadSegment(snap, req, provinceID)
	if err != nil {
		return nil, err
	}

	addr := &Address{
		Metadata:       meta,
		DisplayAddress: joinNonEmpty(append([]string{lead}, units...)...),
		Warnings:       warnings,
	}
	b.logger.Debug("Đã dựng địa chỉ",
		zap.String("address_type", string(req.AddressType)),
		zap.String("display_address", addr.DisplayAddress),
		zap.Int("warnings", len(warnings)))
	return addr, nil
}

func resolveOld(snap *registry.Snapshot, req Request) (models.LegacyWard, models.LegacyDistrict, models.LegacyProvince, error) {
	province, ok := snap.LegacyProvince(*req.ProvinceID)
	if !ok {
		return models.LegacyWard{}, models.LegacyDistrict{}, models.LegacyProvince{}, notFound("province_id", *req.ProvinceID)
	}
	district, ok := snap.LegacyDistrict(*req.DistrictID)
	if !ok {
		return models.LegacyWard{}, models.LegacyDistrict{}, models.LegacyProvince{}, notFound("district_id", *req.DistrictID)
	}
	if district.ProvinceID != province.ID {
		return models.LegacyWard{}, models.LegacyDistrict{}, models.LegacyProvince{}, &ValidationError{
			Code:    CodeHierarchyMismatch,
			Field:   "district_id",
			Message: fmt.Sprintf("district %d does not belong to province %d", district.ID, province.ID),
		}
	}
	ward, ok := snap.LegacyWard(*req.WardID)
	if !ok {
		return models.LegacyWard{}, models.LegacyDistrict{}, models.LegacyProvince{}, notFound("ward_id", *req.WardID)
	}
	if ward.DistrictID != district.ID {
		return models.LegacyWard{}, models.LegacyDistrict{}, models.LegacyProvince{}, &ValidationError{
			Code:    CodeHierarchyMismatch,
			Field:   "ward_id",
			Message: fmt.Sprintf("ward %d does not belong to district %d", ward.ID, district.ID),
		}
	}
	return ward, district, province, nil
}

func resolveNew(snap *registry.Snapshot, req Request) (models.Ward, models.Province, error) {
	provinceCode := strings.TrimSpace(req.NewProvinceCode)
	wardCode := strings.TrimSpace(req.NewWardCode)
	province, ok := snap.ProvinceByCode(provinceCode)
	if !ok {
		return models.Ward{}, models.Province{}, &ValidationError{
			Code:    CodeUnitNotFound,
			Field:   "new_province_code",
			Message: fmt.Sprintf("province %q not found", provinceCode),
		}
	}
	ward, ok := snap.WardByCode(wardCode)
	if !ok {
		return models.Ward{}, models.Province{}, &ValidationError{
			Code:    CodeUnitNotFound,
			Field:   "new_ward_code",
			Message: fmt.Sprintf("ward %q not found", wardCode),
		}
	}
	if ward.ProvinceID != province.ID {
		return models.Ward{}, models.Province{}, &ValidationError{
			Code:    CodeHierarchyMismatch,
			Field:   "new_ward_code",
			Message: fmt.Sprintf("ward %q does not belong to province %q", ward.Code, province.Code),
		}
	}
	return ward, province, nil
}

// leadSegment số nhà kèm tên đường, nếu không có đường thì tên dự án.
// legacyProvinceID khác nil thì đường phải thuộc tỉnh đó.
func leadSegment(snap *registry.Snapshot, req Request, legacyProvinceID *int64) (string, error) {
	number := strings.TrimSpace(req.StreetNumber)
	if req.StreetID != nil {
		st, ok := snap.LegacyStreet(*req.StreetID)
		if !ok {
			return "", notFound("street_id", *req.StreetID)
		}
		if legacyProvinceID != nil && st.ProvinceID != *legacyProvinceID {
			return "", &ValidationError{
				Code:    CodeHierarchyMismatch,
				Field:   "street_id",
				Message: fmt.Sprintf("street %d does not belong to province %d", st.ID, *legacyProvinceID),
			}
		}
		return strings.TrimSpace(number + " " + st.DisplayName()), nil
	}
	if req.ProjectID != nil {
		p, ok := snap.Project(*req.ProjectID)
		if !ok {
			return "", notFound("project_id", *req.ProjectID)
		}
		return strings.TrimSpace(number + " " + p.Name), nil
	}
	return number, nil
}

// legacyProvinceDisplayName tên tỉnh cũ, nếu tỉnh đã sáp nhập thì dùng tên tỉnh cha
func legacyProvinceDisplayName(snap *registry.Snapshot, p models.LegacyProvince) string {
	if np, ok := snap.ProvinceByCode(p.Code); ok {
		return snap.ProvinceDisplayName(np)
	}
	return p.Name
}

func notFound(field string, id int64) *ValidationError {
	return &ValidationError{
		Code:    CodeUnitNotFound,
		Field:   field,
		Message: fmt.Sprintf("%s %d not found", strings.TrimSuffix(field, "_id"), id),
	}
}

func withType(unitType, name string) string {
	if unitType == "" || strings.HasPrefix(name, unitType+" ") {
		return name
	}
	return unitType + " " + name
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
