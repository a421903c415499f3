package registry

import (
	"fmt"

	"github.com/address-converter/app/models"
)

// Correction sửa dữ liệu mapping: vô hiệu hóa các dòng cũ và chèn dòng thay thế trong một lần ghi
type Correction struct {
	Deactivate []int64                    `json:"deactivate"`
	Insert     []models.ConversionMapping `json:"insert"`
	Note       string                     `json:"note,omitempty"`
}

// ValidateCorrection kiểm tra bản sửa trên snapshot hiện tại trước khi ghi store.
// Bộ ba đang có một mapping mặc định phải còn đúng một mapping mặc định sau khi sửa.
func (s *Snapshot) ValidateCorrection(c Correction) error {
	if len(c.Deactivate) == 0 && len(c.Insert) == 0 {
		return fmt.Errorf("%w: không có thay đổi", ErrInvalidCorrection)
	}

	removed := make(map[int64]bool, len(c.Deactivate))
	affected := make(map[OldTriple]bool)
	for _, id := range c.Deactivate {
		if removed[id] {
			return fmt.Errorf("%w: mapping %d lặp lại", ErrInvalidCorrection, id)
		}
		m, ok := s.Mapping(id)
		if !ok {
			return fmt.Errorf("%w: mapping %d không tồn tại", ErrInvalidCorrection, id)
		}
		if !m.IsActive {
			return fmt.Errorf("%w: mapping %d đã bị vô hiệu hóa", ErrInvalidCorrection, id)
		}
		removed[id] = true
		if t, ok := tripleOf(m); ok {
			affected[t] = true
		}
	}

	for i, m := range c.Insert {
		if m.ID != 0 {
			if _, exists := s.Mapping(m.ID); exists {
				return fmt.Errorf("%w: insert[%d] dùng lại id %d", ErrInvalidCorrection, i, m.ID)
			}
		}
		if err := m.ValidateAccuracy(); err != nil {
			return fmt.Errorf("%w: insert[%d]: %v", ErrInvalidCorrection, i, err)
		}
		if m.OldProvinceID == nil || m.NewProvinceCode == nil {
			return fmt.Errorf("%w: insert[%d] thiếu tỉnh cũ hoặc tỉnh mới", ErrInvalidCorrection, i)
		}
		if err := s.checkReferences(m); err != nil {
			return fmt.Errorf("%w: insert[%d]: %v", ErrInvalidCorrection, i, err)
		}
		if t, ok := tripleOf(m); ok {
			affected[t] = true
		}
	}

	for t := range affected {
		before := 0
		after := 0
		for _, m := range s.MappingsForOldTriple(t) {
			if !m.IsComplete() || !m.IsDefaultNewWard {
				continue
			}
			before++
			if !removed[m.ID] {
				after++
			}
		}
		for _, m := range c.Insert {
			if mt, ok := tripleOf(m); ok && mt == t && m.IsComplete() && m.IsDefaultNewWard {
				after++
			}
		}
		if before > 0 && after == 0 {
			return fmt.Errorf("%w: bộ ba %d/%d/%d sẽ mất mapping mặc định", ErrInvalidCorrection, t.ProvinceID, t.DistrictID, t.WardID)
		}
		if after > 1 {
			return fmt.Errorf("%w: bộ ba %d/%d/%d sẽ có %d mapping mặc định", ErrInvalidCorrection, t.ProvinceID, t.DistrictID, t.WardID, after)
		}
	}
	return nil
}

func (s *Snapshot) checkReferences(m models.ConversionMapping) error {
	if m.OldProvinceID != nil {
		if _, ok := s.legacyProvinces[*m.OldProvinceID]; !ok {
			return fmt.Errorf("tỉnh cũ %d không tồn tại", *m.OldProvinceID)
		}
	}
	if m.OldDistrictID != nil {
		d, ok := s.legacyDistricts[*m.OldDistrictID]
		if !ok {
			return fmt.Errorf("quận cũ %d không tồn tại", *m.OldDistrictID)
		}
		if m.OldProvinceID != nil && d.ProvinceID != *m.OldProvinceID {
			return fmt.Errorf("quận cũ %d không thuộc tỉnh %d", d.ID, *m.OldProvinceID)
		}
	}
	if m.OldWardID != nil {
		w, ok := s.legacyWards[*m.OldWardID]
		if !ok {
			return fmt.Errorf("phường cũ %d không tồn tại", *m.OldWardID)
		}
		if m.OldDistrictID != nil && w.DistrictID != *m.OldDistrictID {
			return fmt.Errorf("phường cũ %d không thuộc quận %d", w.ID, *m.OldDistrictID)
		}
	}
	if m.NewProvinceCode != nil {
		if _, ok := s.provinceByCode[*m.NewProvinceCode]; !ok {
			return fmt.Errorf("tỉnh mới %q không tồn tại", *m.NewProvinceCode)
		}
	}
	if m.NewWardCode != nil {
		w, ok := s.wardByCode[*m.NewWardCode]
		if !ok {
			return fmt.Errorf("phường mới %q không tồn tại", *m.NewWardCode)
		}
		if m.NewProvinceCode != nil {
			if p := s.provinceByCode[*m.NewProvinceCode]; p != nil && w.ProvinceID != p.ID {
				return fmt.Errorf("phường mới %q không thuộc tỉnh %q", w.Code, p.Code)
			}
		}
	}
	return nil
}

func tripleOf(m models.ConversionMapping) (OldTriple, bool) {
	if m.OldProvinceID == nil || m.OldDistrictID == nil || m.OldWardID == nil {
		return OldTriple{}, false
	}
	return OldTriple{*m.OldProvinceID, *m.OldDistrictID, *m.OldWardID}, true
}
