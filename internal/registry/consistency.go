package registry

import (
	"fmt"
)

// IssueKind loại sai lệch dữ liệu
type IssueKind string

const (
	IssueMissingDefault     IssueKind = "MISSING_DEFAULT"
	IssueMultipleDefaults   IssueKind = "MULTIPLE_DEFAULTS"
	IssueIncompleteMapping  IssueKind = "INCOMPLETE_MAPPING"
	IssueDanglingReference  IssueKind = "DANGLING_REFERENCE"
	IssueOrphanWardMapping  IssueKind = "ORPHAN_WARD_MAPPING"
	IssueOrphanDistrictWard IssueKind = "ORPHAN_DISTRICT_WARD_MAPPING"
	IssueProvinceMismatch   IssueKind = "PROVINCE_MAPPING_MISMATCH"
)

// Issue một sai lệch phát hiện khi đối chiếu
type Issue struct {
	Kind      IssueKind `json:"kind"`
	MappingID int64     `json:"mapping_id,omitempty"`
	Message   string    `json:"message"`
}

// CheckConsistency đối chiếu ConversionMapping với các chỉ mục phụ và sổ đăng ký
func CheckConsistency(s *Snapshot) []Issue {
	var issues []Issue

	for _, m := range s.mappings {
		if !m.IsActive {
			continue
		}
		if err := s.checkReferences(m); err != nil {
			issues = append(issues, Issue{Kind: IssueDanglingReference, MappingID: m.ID, Message: err.Error()})
		}
		if !m.IsComplete() && !m.IsDistrictLevel() {
			issues = append(issues, Issue{Kind: IssueIncompleteMapping, MappingID: m.ID, Message: "mapping thiếu định danh cũ hoặc mới"})
		}
	}

	for _, t := range s.OldTriples() {
		complete, defaults := 0, 0
		for _, m := range s.MappingsForOldTriple(t) {
			if !m.IsComplete() {
				continue
			}
			complete++
			if m.IsDefaultNewWard {
				defaults++
			}
		}
		switch {
		case defaults > 1:
			issues = append(issues, Issue{Kind: IssueMultipleDefaults,
				Message: fmt.Sprintf("bộ ba %d/%d/%d có %d mapping mặc định", t.ProvinceID, t.DistrictID, t.WardID, defaults)})
		case complete > 1 && defaults == 0:
			issues = append(issues, Issue{Kind: IssueMissingDefault,
				Message: fmt.Sprintf("bộ ba %d/%d/%d có %d mapping nhưng không có mặc định", t.ProvinceID, t.DistrictID, t.WardID, complete)})
		}
	}

	for _, wm := range s.wardMappings {
		if !wm.IsActive {
			continue
		}
		w, ok := s.legacyWards[wm.LegacyWardID]
		if !ok {
			issues = append(issues, Issue{Kind: IssueOrphanWardMapping, Message: fmt.Sprintf("ward mapping %d trỏ tới phường cũ %d không tồn tại", wm.ID, wm.LegacyWardID)})
			continue
		}
		found := false
		for _, m := range s.MappingsForOldTriple(OldTriple{w.ProvinceID, w.DistrictID, w.ID}) {
			if m.IsComplete() && *m.NewWardCode == wm.NewWardCode {
				found = true
				break
			}
		}
		if !found {
			issues = append(issues, Issue{Kind: IssueOrphanWardMapping,
				Message: fmt.Sprintf("ward mapping %d (%d -> %s) không có conversion mapping tương ứng", wm.ID, wm.LegacyWardID, wm.NewWardCode)})
		}
	}

	for _, dm := range s.districtWardMappings {
		if !dm.IsActive {
			continue
		}
		if _, ok := s.legacyDistricts[dm.LegacyDistrictID]; !ok {
			issues = append(issues, Issue{Kind: IssueOrphanDistrictWard, Message: fmt.Sprintf("district ward mapping %d trỏ tới quận cũ %d không tồn tại", dm.ID, dm.LegacyDistrictID)})
			continue
		}
		if _, ok := s.wardByCode[dm.NewWardCode]; !ok {
			issues = append(issues, Issue{Kind: IssueOrphanDistrictWard,
				Message: fmt.Sprintf("district ward mapping %d trỏ tới phường mới %q không tồn tại", dm.ID, dm.NewWardCode)})
		}
	}

	for _, pm := range s.provinceMappings {
		if !pm.IsActive {
			continue
		}
		np, _, ok := s.ProvinceForLegacy(pm.LegacyProvinceID)
		if !ok {
			issues = append(issues, Issue{Kind: IssueProvinceMismatch, Message: fmt.Sprintf("province mapping %d: tỉnh cũ %d không xác định được tỉnh mới", pm.ID, pm.LegacyProvinceID)})
			continue
		}
		if np.Code != pm.NewProvinceCode {
			issues = append(issues, Issue{Kind: IssueProvinceMismatch,
				Message: fmt.Sprintf("province mapping %d: tỉnh cũ %d -> %s nhưng sổ đăng ký cho %s", pm.ID, pm.LegacyProvinceID, pm.NewProvinceCode, np.Code)})
		}
	}
	return issues
}
