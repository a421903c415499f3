// Package history dựng lịch sử sáp nhập/chia tách của đơn vị hành chính từ snapshot
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/registry"
)

// DefaultReason lý do mặc định khi dữ liệu không ghi chú
const DefaultReason = "Administrative reorganization"

// ErrInvalidUnitType loại đơn vị không hỗ trợ tra lịch sử
var ErrInvalidUnitType = errors.New("invalid unit type")

// SnapshotSource nguồn snapshot hiện hành
type SnapshotSource interface {
	Load() *registry.Snapshot
}

// MergedInto đơn vị đích mà đơn vị đang xét đã sáp nhập vào
type MergedInto struct {
	Code          string     `json:"code"`
	Name          string     `json:"name"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
	Reason        string     `json:"reason"`
	Accuracy      *int       `json:"accuracy,omitempty"`
}

// MergedFrom một đơn vị đã sáp nhập vào đơn vị đang xét
type MergedFrom struct {
	Code         string     `json:"code"`
	OriginalName string     `json:"original_name"`
	Structure    string     `json:"structure"`
	MergeDate    *time.Time `json:"merge_date,omitempty"`
	Reason       string     `json:"reason"`
}

// MergeHistory lịch sử của một đơn vị
type MergeHistory struct {
	UnitType      models.UnitType `json:"unit_type"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	OriginalName  string          `json:"original_name,omitempty"`
	Structure     string          `json:"structure"`
	IsMerged      bool            `json:"is_merged"`
	IsParent      bool            `json:"is_parent"`
	MergeDate     *time.Time      `json:"merge_date,omitempty"`
	MergedInto    *MergedInto     `json:"merged_into,omitempty"`
	MergedFrom    []MergedFrom    `json:"merged_from"`
	DissolvedInto []MergedInto    `json:"dissolved_into,omitempty"`
	TotalMerged   int             `json:"total_merged"`
}

// Reporter tổng hợp lịch sử, chỉ đọc snapshot
type Reporter struct {
	src    SnapshotSource
	logger *zap.Logger
}

// NewReporter tạo reporter mới
func NewReporter(src SnapshotSource, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{src: src, logger: logger}
}

// GetMergeHistory lịch sử của đơn vị theo loại và mã.
// Mã được tra trong sổ đăng ký mới trước, sau đó tới sổ đăng ký cũ.
func (r *Reporter) GetMergeHistory(ctx context.Context, unitType models.UnitType, code string) (*MergeHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: %s với mã rỗng", registry.ErrUnitNotFound, unitType)
	}
	snap := r.src.Load()

	var (
		h  *MergeHistory
		ok bool
	)
	switch unitType {
	case models.UnitTypeProvince:
		h, ok = r.provinceHistory(snap, code)
	case models.UnitTypeDistrict:
		h, ok = r.districtHistory(snap, code)
	case models.UnitTypeWard:
		h, ok = r.wardHistory(snap, code)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidUnitType, unitType)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", registry.ErrUnitNotFound, unitType, code)
	}
	h.TotalMerged = len(h.MergedFrom)

	r.logger.Debug("Tra cứu lịch sử sáp nhập",
		zap.String("unit_type", string(unitType)),
		zap.String("code", code),
		zap.Bool("is_merged", h.IsMerged),
		zap.Int("merged_from", h.TotalMerged))
	return h, nil
}

func (r *Reporter) provinceHistory(snap *registry.Snapshot, code string) (*MergeHistory, bool) {
	if p, ok := snap.ProvinceByCode(code); ok {
		h := &MergeHistory{
			UnitType:     models.UnitTypeProvince,
			Code:         p.Code,
			Name:         p.Name,
			OriginalName: p.OriginalName,
			Structure:    string(p.StructureVersion),
			IsMerged:     p.IsMerged(),
			MergedFrom:   []MergedFrom{},
		}
		if parent, ok := snap.ParentProvince(p); ok {
			h.MergeDate = mergeDate(p.Validity)
			h.MergedInto = &MergedInto{Code: parent.Code, Name: parent.Name, EffectiveDate: h.MergeDate, Reason: DefaultReason}
		}

		seen := map[string]bool{p.Code: true}
		for _, child := range snap.MergedProvinces(p.ID) {
			seen[child.Code] = true
			h.MergedFrom = append(h.MergedFrom, MergedFrom{
				Code:         child.Code,
				OriginalName: firstNonEmpty(child.OriginalName, child.Name),
				Structure:    string(child.StructureVersion),
				MergeDate:    mergeDate(child.Validity),
				Reason:       DefaultReason,
			})
		}
		// tỉnh cũ chỉ được nối qua ProvinceMapping
		var legacy []MergedFrom
		for _, u := range snap.Units(registry.ScopeAll, registry.KindLegacyProvince) {
			if seen[u.Code] {
				continue
			}
			for _, pm := range snap.ProvinceMappings(u.ID) {
				if pm.NewProvinceCode != p.Code {
					continue
				}
				seen[u.Code] = true
				d := pm.EffectiveDate
				legacy = append(legacy, MergedFrom{
					Code:         u.Code,
					OriginalName: u.Name,
					Structure:    string(models.StructureOld),
					MergeDate:    &d,
					Reason:       DefaultReason,
				})
				break
			}
		}
		sortMergedFrom(legacy)
		h.MergedFrom = append(h.MergedFrom, legacy...)
		h.IsParent = len(h.MergedFrom) > 0
		return h, true
	}

	lp, ok := snap.LegacyProvinceByCode(code)
	if !ok {
		return nil, false
	}
	h := &MergeHistory{
		UnitType:   models.UnitTypeProvince,
		Code:       lp.Code,
		Name:       lp.Name,
		Structure:  string(models.StructureOld),
		MergedFrom: []MergedFrom{},
	}
	if target, merged, found := snap.ProvinceForLegacy(lp.ID); found && merged {
		h.IsMerged = true
		h.MergeDate = mergeDate(lp.Validity)
		h.MergedInto = &MergedInto{Code: target.Code, Name: target.Name, EffectiveDate: h.MergeDate, Reason: DefaultReason}
	}
	return h, true
}

func (r *Reporter) wardHistory(snap *registry.Snapshot, code string) (*MergeHistory, bool) {
	if w, ok := snap.WardByCode(code); ok {
		h := &MergeHistory{
			UnitType:     models.UnitTypeWard,
			Code:         w.Code,
			Name:         w.Name,
			OriginalName: w.OriginalName,
			Structure:    string(w.StructureVersion),
			IsMerged:     w.IsMerged(),
			MergedFrom:   []MergedFrom{},
		}
		if w.MergedIntoID != nil {
			if target, ok := snap.WardByID(*w.MergedIntoID); ok {
				h.MergeDate = mergeDate(w.Validity)
				h.MergedInto = &MergedInto{Code: target.Code, Name: target.Name, EffectiveDate: h.MergeDate, Reason: DefaultReason}
			}
		}
		for _, child := range snap.MergedWards(w.ID) {
			h.MergedFrom = append(h.MergedFrom, MergedFrom{
				Code:         child.Code,
				OriginalName: firstNonEmpty(child.OriginalName, child.Name),
				Structure:    string(child.StructureVersion),
				MergeDate:    mergeDate(child.Validity),
				Reason:       DefaultReason,
			})
		}
		h.MergedFrom = append(h.MergedFrom, legacyWardsInto(snap, w)...)
		h.IsParent = len(h.MergedFrom) > 0
		return h, true
	}

	lw, ok := snap.LegacyWardByCode(code)
	if !ok {
		return nil, false
	}
	h := &MergeHistory{
		UnitType:   models.UnitTypeWard,
		Code:       lw.Code,
		Name:       lw.Name,
		Structure:  string(models.StructureOld),
		MergedFrom: []MergedFrom{},
	}
	rows := completeRows(snap.MappingsForOldTriple(registry.OldTriple{ProvinceID: lw.ProvinceID, DistrictID: lw.DistrictID, WardID: lw.ID}))
	targets := targetsOf(snap, rows, mergeDate(lw.Validity))
	if len(targets) == 0 {
		// không có conversion mapping: dùng WardMapping
		for _, wm := range snap.WardMappings(lw.ID) {
			nw, ok := snap.WardByCode(wm.NewWardCode)
			if !ok {
				continue
			}
			d := wm.EffectiveDate
			t := MergedInto{Code: nw.Code, Name: nw.Name, EffectiveDate: &d, Reason: DefaultReason}
			if wm.IsDefaultNewWard {
				targets = append([]MergedInto{t}, targets...)
			} else {
				targets = append(targets, t)
			}
		}
	}
	if len(targets) > 0 {
		h.IsMerged = true
		h.MergeDate = targets[0].EffectiveDate
		def := defaultTarget(rows, targets)
		h.MergedInto = &def
	}
	if len(targets) > 1 {
		h.DissolvedInto = targets
	}
	return h, true
}

func (r *Reporter) districtHistory(snap *registry.Snapshot, code string) (*MergeHistory, bool) {
	d, ok := snap.LegacyDistrictByCode(code)
	if !ok {
		return nil, false
	}
	h := &MergeHistory{
		UnitType:   models.UnitTypeDistrict,
		Code:       d.Code,
		Name:       d.Name,
		Structure:  string(models.StructureOld),
		MergedFrom: []MergedFrom{},
	}
	date := mergeDate(d.Validity)

	seen := map[string]bool{}
	defCode := ""
	for _, dm := range snap.DistrictWardMappings(d.ID) {
		nw, ok := snap.WardByCode(dm.NewWardCode)
		if !ok || seen[nw.Code] {
			continue
		}
		seen[nw.Code] = true
		acc := dm.ConversionAccuracy
		t := MergedInto{Code: nw.Code, Name: nw.Name, EffectiveDate: date, Reason: DefaultReason, Accuracy: &acc}
		h.DissolvedInto = append(h.DissolvedInto, t)
		if dm.IsDefaultNewWard && defCode == "" {
			defCode = nw.Code
		}
	}
	for _, t := range targetsOf(snap, completeRows(snap.DistrictMappings(registry.DistrictKey{ProvinceID: d.ProvinceID, DistrictID: d.ID})), date) {
		if seen[t.Code] {
			continue
		}
		seen[t.Code] = true
		h.DissolvedInto = append(h.DissolvedInto, t)
	}

	if len(h.DissolvedInto) > 0 {
		h.IsMerged = true
		h.MergeDate = date
		into := h.DissolvedInto[0]
		for _, t := range h.DissolvedInto {
			if t.Code == defCode {
				into = t
				break
			}
		}
		h.MergedInto = &into
	}
	if len(h.DissolvedInto) == 1 {
		h.DissolvedInto = nil
	}
	return h, true
}

// legacyWardsInto phường cũ đã gộp vào phường mới w, lấy từ conversion mapping rồi WardMapping
func legacyWardsInto(snap *registry.Snapshot, w models.Ward) []MergedFrom {
	p, ok := snap.ProvinceByID(w.ProvinceID)
	if !ok {
		return nil
	}
	seen := map[int64]bool{}
	var out []MergedFrom
	for _, m := range snap.MappingsForNewPair(registry.NewPair{ProvinceCode: p.Code, WardCode: w.Code}) {
		if !m.IsMergedWard || seen[*m.OldWardID] {
			continue
		}
		lw, ok := snap.LegacyWard(*m.OldWardID)
		if !ok {
			continue
		}
		seen[lw.ID] = true
		out = append(out, MergedFrom{
			Code:         lw.Code,
			OriginalName: lw.Name,
			Structure:    string(models.StructureOld),
			MergeDate:    mergeDate(lw.Validity),
			Reason:       firstNonEmpty(m.ConversionNote, DefaultReason),
		})
	}
	for _, wm := range snap.WardMappingsInto(w.Code) {
		if wm.MergeType != models.MergeTypeMerged || seen[wm.LegacyWardID] {
			continue
		}
		lw, ok := snap.LegacyWard(wm.LegacyWardID)
		if !ok {
			continue
		}
		seen[lw.ID] = true
		d := wm.EffectiveDate
		out = append(out, MergedFrom{
			Code:         lw.Code,
			OriginalName: lw.Name,
			Structure:    string(models.StructureOld),
			MergeDate:    &d,
			Reason:       DefaultReason,
		})
	}
	sortMergedFrom(out)
	return out
}

func completeRows(rows []models.ConversionMapping) []models.ConversionMapping {
	out := rows[:0:0]
	for _, m := range rows {
		if m.IsComplete() {
			out = append(out, m)
		}
	}
	return out
}

// targetsOf phường mới đích của các mapping, bỏ trùng, accuracy giảm dần
func targetsOf(snap *registry.Snapshot, rows []models.ConversionMapping, date *time.Time) []MergedInto {
	sorted := append([]models.ConversionMapping(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ConversionAccuracy != sorted[j].ConversionAccuracy {
			return sorted[i].ConversionAccuracy > sorted[j].ConversionAccuracy
		}
		return sorted[i].ID < sorted[j].ID
	})
	seen := map[string]bool{}
	var out []MergedInto
	for _, m := range sorted {
		code := *m.NewWardCode
		if seen[code] {
			continue
		}
		seen[code] = true
		name := code
		if nw, ok := snap.WardByCode(code); ok {
			name = nw.Name
		}
		acc := m.ConversionAccuracy
		out = append(out, MergedInto{
			Code:          code,
			Name:          name,
			EffectiveDate: date,
			Reason:        firstNonEmpty(m.ConversionNote, DefaultReason),
			Accuracy:      &acc,
		})
	}
	return out
}

// defaultTarget đích mặc định: mapping IsDefaultNewWard, nếu không có thì đích đầu tiên
func defaultTarget(rows []models.ConversionMapping, targets []MergedInto) MergedInto {
	for _, m := range rows {
		if !m.IsDefaultNewWard {
			continue
		}
		for _, t := range targets {
			if t.Code == *m.NewWardCode {
				return t
			}
		}
	}
	return targets[0]
}

// mergeDate ngày hết hiệu lực, nếu chưa có thì ngày bắt đầu hiệu lực
func mergeDate(v models.Validity) *time.Time {
	if v.EffectiveTo != nil {
		d := *v.EffectiveTo
		return &d
	}
	if v.EffectiveFrom.IsZero() {
		return nil
	}
	d := v.EffectiveFrom
	return &d
}

func sortMergedFrom(items []MergedFrom) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Code < items[j].Code })
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
