package conversion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/registry"
)

// TieBreak thứ tự ưu tiên giữa hai cờ tính sẵn khi độ chính xác bằng nhau
type TieBreak string

const (
	TieBreakNearestFirst TieBreak = "nearest_first"
	TieBreakPolygonFirst TieBreak = "polygon_first"
)

// ParseTieBreak chuỗi rỗng trả về nearest_first
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(strings.ToLower(strings.TrimSpace(s))) {
	case "", TieBreakNearestFirst:
		return TieBreakNearestFirst, nil
	case TieBreakPolygonFirst:
		return TieBreakPolygonFirst, nil
	}
	return "", fmt.Errorf("unknown tie break %q", s)
}

// SnapshotSource nguồn snapshot hiện hành
type SnapshotSource interface {
	Load() *registry.Snapshot
}

// Options cấu hình resolver
type Options struct {
	TieBreak TieBreak
}

// Resolver chuyển đổi địa chỉ giữa hai cấu trúc trên snapshot hiện hành
type Resolver struct {
	src      SnapshotSource
	tieBreak TieBreak
	logger   *zap.Logger
}

// NewResolver tạo resolver mới
func NewResolver(src SnapshotSource, opts Options, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	tb := opts.TieBreak
	if tb == "" {
		tb = TieBreakNearestFirst
	}
	return &Resolver{src: src, tieBreak: tb, logger: logger}
}

// ConvertForward chuyển bộ ba cũ sang cấu trúc mới.
// Thứ tự: mapping phường đầy đủ, mapping cấp quận, tỉnh cha của tỉnh bị sáp nhập.
// Mapping có accuracy < minAccuracy không bao giờ là mặc định.
func (r *Resolver) ConvertForward(ctx context.Context, key OldAddressKey, minAccuracy int) (*Forward, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := r.src.Load()

	var complete []models.ConversionMapping
	for _, m := range snap.MappingsForOldTriple(registry.OldTriple{ProvinceID: key.ProvinceID, DistrictID: key.DistrictID, WardID: key.WardID}) {
		if !m.IsComplete() {
			r.logger.Debug("Bỏ qua mapping chưa đầy đủ", zap.Int64("mapping_id", m.ID), zap.String("key", key.String()))
			continue
		}
		complete = append(complete, m)
	}
	if len(complete) > 0 {
		return r.pick(snap, key, complete, LevelWard, minAccuracy), nil
	}

	// fallback chỉ áp dụng cho phường cũ có thật nằm trong đúng quận/tỉnh
	if w, ok := snap.LegacyWard(key.WardID); !ok || w.DistrictID != key.DistrictID || w.ProvinceID != key.ProvinceID {
		return nil, fmt.Errorf("%w: %s: phường cũ không thuộc quận/tỉnh đã cho", ErrConversionNotFound, key)
	}

	if rows := snap.DistrictMappings(registry.DistrictKey{ProvinceID: key.ProvinceID, DistrictID: key.DistrictID}); len(rows) > 0 {
		return r.pick(snap, key, rows, LevelDistrict, minAccuracy), nil
	}
	if rows := r.districtWardRows(snap, key); len(rows) > 0 {
		return r.pick(snap, key, rows, LevelDistrict, minAccuracy), nil
	}

	if np, merged, ok := snap.ProvinceForLegacy(key.ProvinceID); ok && merged {
		res := Result{
			Old:             &key,
			OldAddress:      formatOld(snap, key),
			NewProvinceCode: np.Code,
			NewProvinceName: np.Name,
			NewAddress:      withType(np.Type, np.Name),
			Accuracy:        0,
			Flags:           Flags{IsMergedProvince: true},
			Level:           LevelProvince,
			Note:            "Chỉ xác định được tỉnh mới",
		}
		fwd := &Forward{Key: key, Level: LevelProvince, SnapshotVersion: snap.Version(), Candidates: []Result{}}
		if res.Accuracy >= minAccuracy {
			res.IsDefault = true
			fwd.Default = &res
		} else {
			res.LowConfidence = true
			fwd.Candidates = []Result{res}
		}
		return fwd, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrConversionNotFound, key)
}

// districtWardRows đọc chỉ mục phụ DistrictWardMapping khi ConversionMapping không có dòng cấp quận
func (r *Resolver) districtWardRows(snap *registry.Snapshot, key OldAddressKey) []models.ConversionMapping {
	d, ok := snap.LegacyDistrict(key.DistrictID)
	if !ok || d.ProvinceID != key.ProvinceID {
		return nil
	}
	aux := snap.DistrictWardMappings(key.DistrictID)
	rows := make([]models.ConversionMapping, 0, len(aux))
	for _, dm := range aux {
		provinceCode, wardCode := dm.NewProvinceCode, dm.NewWardCode
		pid, did := key.ProvinceID, key.DistrictID
		rows = append(rows, models.ConversionMapping{
			OldProvinceID:      &pid,
			OldDistrictID:      &did,
			NewProvinceCode:    &provinceCode,
			NewWardCode:        &wardCode,
			IsDefaultNewWard:   dm.IsDefaultNewWard,
			ConversionAccuracy: dm.ConversionAccuracy,
			ConversionNote:     "district_ward_mapping",
			IsActive:           true,
		})
	}
	return rows
}

// pick sắp xếp ứng viên và chọn mặc định; không tự tạo mặc định khi dữ liệu không đánh dấu
func (r *Resolver) pick(snap *registry.Snapshot, key OldAddressKey, rows []models.ConversionMapping, level Level, minAccuracy int) *Forward {
	results := make([]Result, 0, len(rows))
	for _, m := range rows {
		res := r.toResult(snap, m, level)
		if level == LevelDistrict {
			// dòng cấp quận không có phường, giữ khóa của người gọi
			old := key
			res.Old = &old
			res.OldAddress = formatOld(snap, old)
		}
		results = append(results, res)
	}
	sort.SliceStable(results, func(i, j int) bool { return r.less(results[i], results[j]) })

	defaultIdx := -1
	if len(results) == 1 {
		if results[0].Accuracy >= minAccuracy {
			defaultIdx = 0
		}
	} else {
		for i, res := range results {
			if !res.IsDefaultNewWard || res.Accuracy < minAccuracy {
				continue
			}
			if defaultIdx == -1 {
				defaultIdx = i
				continue
			}
			r.logger.Warn("Nhiều mapping mặc định cho cùng địa chỉ cũ",
				zap.String("key", key.String()),
				zap.Int64("chosen", results[defaultIdx].MappingID),
				zap.Int64("ignored", res.MappingID))
		}
	}

	fwd := &Forward{Key: key, Level: level, SnapshotVersion: snap.Version(), Candidates: []Result{}}
	for i := range results {
		res := results[i]
		if i == defaultIdx {
			res.IsDefault = true
			res.IsDefaultNewWard = true
			fwd.Default = &res
			continue
		}
		res.LowConfidence = res.Accuracy < minAccuracy
		fwd.Candidates = append(fwd.Candidates, res)
	}
	return fwd
}

func (r *Resolver) less(a, b Result) bool {
	if a.Accuracy != b.Accuracy {
		return a.Accuracy > b.Accuracy
	}
	first, second := a.IsNearestNewWard, a.IsNewWardPolygonContainsWard
	firstB, secondB := b.IsNearestNewWard, b.IsNewWardPolygonContainsWard
	if r.tieBreak == TieBreakPolygonFirst {
		first, second = second, first
		firstB, secondB = secondB, firstB
	}
	if first != firstB {
		return first
	}
	if second != secondB {
		return second
	}
	if a.NewWardCode != b.NewWardCode {
		return a.NewWardCode < b.NewWardCode
	}
	return a.MappingID < b.MappingID
}

// ConvertReverse tìm mọi bộ ba cũ trỏ tới cặp mới, mỗi bộ ba một lần
func (r *Resolver) ConvertReverse(ctx context.Context, key NewAddressKey) ([]Result, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := r.src.Load()

	best := make(map[registry.OldTriple]Result)
	for _, m := range snap.MappingsForNewPair(registry.NewPair{ProvinceCode: key.ProvinceCode, WardCode: key.WardCode}) {
		t := registry.OldTriple{ProvinceID: *m.OldProvinceID, DistrictID: *m.OldDistrictID, WardID: *m.OldWardID}
		res := r.toResult(snap, m, LevelWard)
		if cur, ok := best[t]; ok {
			if cur.Accuracy > res.Accuracy || (cur.Accuracy == res.Accuracy && cur.MappingID < res.MappingID) {
				continue
			}
		}
		best[t] = res
	}

	out := make([]Result, 0, len(best))
	for _, res := range best {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Accuracy != b.Accuracy {
			return a.Accuracy > b.Accuracy
		}
		if a.Old.ProvinceID != b.Old.ProvinceID {
			return a.Old.ProvinceID < b.Old.ProvinceID
		}
		if a.Old.DistrictID != b.Old.DistrictID {
			return a.Old.DistrictID < b.Old.DistrictID
		}
		return a.Old.WardID < b.Old.WardID
	})
	return out, nil
}

// Convert xử lý khóa theo tag: OLD chuyển xuôi, NEW chuyển ngược
func (r *Resolver) Convert(ctx context.Context, key AddressKey, minAccuracy int) (*Conversion, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	switch key.Structure {
	case models.StructureOld:
		fwd, err := r.ConvertForward(ctx, *key.Old, minAccuracy)
		if err != nil {
			return nil, err
		}
		return &Conversion{Structure: models.StructureOld, Forward: fwd}, nil
	default:
		rev, err := r.ConvertReverse(ctx, *key.New)
		if err != nil {
			return nil, err
		}
		return &Conversion{Structure: models.StructureNew, Reverse: rev}, nil
	}
}

// Normalize biểu diễn địa chỉ lọc ở cả hai cấu trúc.
// Ứng viên độ tin cậy thấp và kết quả chỉ có cấp tỉnh bị loại.
func (r *Resolver) Normalize(ctx context.Context, key AddressKey, minAccuracy int) (*Normalized, error) {
	conv, err := r.Convert(ctx, key, minAccuracy)
	if err != nil && !errors.Is(err, ErrConversionNotFound) {
		return nil, err
	}
	out := &Normalized{Old: []OldAddressKey{}, New: []NewAddressKey{}}
	if key.Structure == models.StructureOld {
		out.Old = append(out.Old, *key.Old)
		if conv == nil {
			return out, nil
		}
		seen := make(map[NewAddressKey]bool)
		for _, res := range conv.Forward.All() {
			nk, ok := res.NewKey()
			if !ok || res.LowConfidence || seen[nk] {
				continue
			}
			seen[nk] = true
			out.New = append(out.New, nk)
		}
		return out, nil
	}
	out.New = append(out.New, *key.New)
	if conv == nil {
		return out, nil
	}
	for _, res := range conv.Reverse {
		out.Old = append(out.Old, *res.Old)
	}
	return out, nil
}

func (r *Resolver) toResult(snap *registry.Snapshot, m models.ConversionMapping, level Level) Result {
	res := Result{
		MappingID: m.ID,
		Accuracy:  m.ConversionAccuracy,
		Flags:     flagsOf(m),
		Level:     level,
		Note:      m.ConversionNote,
	}
	if m.OldProvinceID != nil && m.OldDistrictID != nil {
		old := OldAddressKey{ProvinceID: *m.OldProvinceID, DistrictID: *m.OldDistrictID}
		if m.OldWardID != nil {
			old.WardID = *m.OldWardID
		}
		res.Old = &old
		res.OldAddress = formatOld(snap, old)
	}
	if m.NewProvinceCode != nil {
		res.NewProvinceCode = *m.NewProvinceCode
	}
	if m.NewWardCode != nil {
		res.NewWardCode = *m.NewWardCode
	}
	var provinceLabel, wardLabel string
	if p, ok := snap.ProvinceByCode(res.NewProvinceCode); ok {
		res.NewProvinceName = p.Name
		provinceLabel = withType(p.Type, p.Name)
	}
	if w, ok := snap.WardByCode(res.NewWardCode); ok {
		res.NewWardName = w.Name
		wardLabel = withType(w.Type, w.Name)
	}
	res.NewAddress = joinNonEmpty(wardLabel, provinceLabel)
	return res
}

func formatOld(snap *registry.Snapshot, key OldAddressKey) string {
	var ward, district, province string
	if w, ok := snap.LegacyWard(key.WardID); ok {
		ward = withType(w.Type, w.Name)
	}
	if d, ok := snap.LegacyDistrict(key.DistrictID); ok {
		district = withType(d.Type, d.Name)
	}
	if p, ok := snap.LegacyProvince(key.ProvinceID); ok {
		province = withType(p.Type, p.Name)
	}
	return joinNonEmpty(ward, district, province)
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
