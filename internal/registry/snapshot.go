package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/address-converter/app/models"
)

// Snapshot ảnh chụp bất biến của hai sổ đăng ký và kho mapping.
// Mọi truy vấn đều đọc trên snapshot, không bao giờ sửa tại chỗ.
type Snapshot struct {
	version  string
	loadedAt time.Time

	legacyProvinces      map[int64]*models.LegacyProvince
	legacyProvinceByCode map[string]*models.LegacyProvince
	legacyDistricts      map[int64]*models.LegacyDistrict
	legacyDistrictByCode map[string]*models.LegacyDistrict
	legacyWards          map[int64]*models.LegacyWard
	legacyWardByCode     map[string]*models.LegacyWard
	legacyStreets        map[int64]*models.LegacyStreet
	projects             map[int64]*models.Project
	provinces            map[int64]*models.Province
	provinceByCode       map[string]*models.Province
	wards                map[int64]*models.Ward
	wardByCode           map[string]*models.Ward

	mappingIndex
	counts map[string]int

	childrenOnce sync.Once
	children     map[childKey][]Unit
}

type childKey struct {
	kind Kind
	id   int64
}

// NewSnapshot dựng snapshot từ dataset, kiểm tra ràng buộc tham chiếu
func NewSnapshot(ds *Dataset) (*Snapshot, error) {
	if ds == nil {
		ds = &Dataset{}
	}
	s := &Snapshot{
		version:              uuid.NewString(),
		loadedAt:             time.Now(),
		legacyProvinces:      make(map[int64]*models.LegacyProvince, len(ds.LegacyProvinces)),
		legacyProvinceByCode: make(map[string]*models.LegacyProvince, len(ds.LegacyProvinces)),
		legacyDistricts:      make(map[int64]*models.LegacyDistrict, len(ds.LegacyDistricts)),
		legacyDistrictByCode: make(map[string]*models.LegacyDistrict, len(ds.LegacyDistricts)),
		legacyWards:          make(map[int64]*models.LegacyWard, len(ds.LegacyWards)),
		legacyWardByCode:     make(map[string]*models.LegacyWard, len(ds.LegacyWards)),
		legacyStreets:        make(map[int64]*models.LegacyStreet, len(ds.LegacyStreets)),
		projects:             make(map[int64]*models.Project, len(ds.Projects)),
		provinces:            make(map[int64]*models.Province, len(ds.Provinces)),
		provinceByCode:       make(map[string]*models.Province, len(ds.Provinces)),
		wards:                make(map[int64]*models.Ward, len(ds.Wards)),
		wardByCode:           make(map[string]*models.Ward, len(ds.Wards)),
		counts:               ds.Counts(),
	}

	for _, p := range ds.LegacyProvinces {
		p := p
		if _, dup := s.legacyProvinces[p.ID]; dup {
			return nil, fmt.Errorf("%w: legacy province id %d trùng", ErrInvalidDataset, p.ID)
		}
		if _, dup := s.legacyProvinceByCode[p.Code]; dup {
			return nil, fmt.Errorf("%w: legacy province code %q trùng", ErrInvalidDataset, p.Code)
		}
		s.legacyProvinces[p.ID] = &p
		s.legacyProvinceByCode[p.Code] = &p
	}
	for _, d := range ds.LegacyDistricts {
		d := d
		if _, ok := s.legacyProvinces[d.ProvinceID]; !ok {
			return nil, fmt.Errorf("%w: district %d trỏ tới province %d không tồn tại", ErrInvalidDataset, d.ID, d.ProvinceID)
		}
		if _, dup := s.legacyDistricts[d.ID]; dup {
			return nil, fmt.Errorf("%w: legacy district id %d trùng", ErrInvalidDataset, d.ID)
		}
		if _, dup := s.legacyDistrictByCode[d.Code]; dup {
			return nil, fmt.Errorf("%w: legacy district code %q trùng", ErrInvalidDataset, d.Code)
		}
		s.legacyDistricts[d.ID] = &d
		s.legacyDistrictByCode[d.Code] = &d
	}
	for _, w := range ds.LegacyWards {
		w := w
		d, ok := s.legacyDistricts[w.DistrictID]
		if !ok {
			return nil, fmt.Errorf("%w: legacy ward %d trỏ tới district %d không tồn tại", ErrInvalidDataset, w.ID, w.DistrictID)
		}
		if d.ProvinceID != w.ProvinceID {
			return nil, fmt.Errorf("%w: legacy ward %d có province %d khác province của district (%d)", ErrInvalidDataset, w.ID, w.ProvinceID, d.ProvinceID)
		}
		if _, dup := s.legacyWards[w.ID]; dup {
			return nil, fmt.Errorf("%w: legacy ward id %d trùng", ErrInvalidDataset, w.ID)
		}
		if _, dup := s.legacyWardByCode[w.Code]; dup {
			return nil, fmt.Errorf("%w: legacy ward code %q trùng", ErrInvalidDataset, w.Code)
		}
		s.legacyWards[w.ID] = &w
		s.legacyWardByCode[w.Code] = &w
	}
	for _, st := range ds.LegacyStreets {
		st := st
		s.legacyStreets[st.ID] = &st
	}
	for _, pr := range ds.Projects {
		pr := pr
		s.projects[pr.ID] = &pr
	}

	for _, p := range ds.Provinces {
		p := p
		if !models.IsValidStructureVersion(p.StructureVersion) {
			return nil, fmt.Errorf("%w: province %q có structure_version %q", ErrInvalidDataset, p.Code, p.StructureVersion)
		}
		if _, dup := s.provinces[p.ID]; dup {
			return nil, fmt.Errorf("%w: province id %d trùng", ErrInvalidDataset, p.ID)
		}
		if _, dup := s.provinceByCode[p.Code]; dup {
			return nil, fmt.Errorf("%w: province code %q trùng", ErrInvalidDataset, p.Code)
		}
		s.provinces[p.ID] = &p
		s.provinceByCode[p.Code] = &p
	}
	// Một tỉnh chỉ có thể là tỉnh cha hoặc tỉnh bị sáp nhập, không đồng thời cả hai
	for _, p := range s.provinces {
		if p.ParentProvinceID == nil {
			continue
		}
		parent, ok := s.provinces[*p.ParentProvinceID]
		if !ok {
			return nil, fmt.Errorf("%w: province %q trỏ tới parent %d không tồn tại", ErrInvalidDataset, p.Code, *p.ParentProvinceID)
		}
		if parent.ID == p.ID || parent.IsMerged() {
			return nil, fmt.Errorf("%w: province %q sáp nhập vào %q vốn cũng đã bị sáp nhập", ErrInvalidDataset, p.Code, parent.Code)
		}
	}

	for _, w := range ds.Wards {
		w := w
		if _, ok := s.provinces[w.ProvinceID]; !ok {
			return nil, fmt.Errorf("%w: ward %q trỏ tới province %d không tồn tại", ErrInvalidDataset, w.Code, w.ProvinceID)
		}
		if _, dup := s.wards[w.ID]; dup {
			return nil, fmt.Errorf("%w: ward id %d trùng", ErrInvalidDataset, w.ID)
		}
		if _, dup := s.wardByCode[w.Code]; dup {
			return nil, fmt.Errorf("%w: ward code %q trùng", ErrInvalidDataset, w.Code)
		}
		s.wards[w.ID] = &w
		s.wardByCode[w.Code] = &w
	}
	for _, w := range s.wards {
		if w.MergedIntoID == nil {
			continue
		}
		target, ok := s.wards[*w.MergedIntoID]
		if !ok {
			return nil, fmt.Errorf("%w: ward %q trỏ tới merged_into %d không tồn tại", ErrInvalidDataset, w.Code, *w.MergedIntoID)
		}
		if target.ID == w.ID || target.IsMerged() {
			return nil, fmt.Errorf("%w: ward %q gộp vào %q vốn cũng đã bị gộp", ErrInvalidDataset, w.Code, target.Code)
		}
	}

	if err := s.mappingIndex.build(ds); err != nil {
		return nil, err
	}
	return s, nil
}

// Version định danh của snapshot, đổi mỗi lần reload
func (s *Snapshot) Version() string { return s.version }

// LoadedAt thời điểm dựng snapshot
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Counts số bản ghi theo bảng
func (s *Snapshot) Counts() map[string]int {
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

func (s *Snapshot) LegacyProvince(id int64) (models.LegacyProvince, bool) {
	p, ok := s.legacyProvinces[id]
	if !ok {
		return models.LegacyProvince{}, false
	}
	return *p, true
}

func (s *Snapshot) LegacyDistrict(id int64) (models.LegacyDistrict, bool) {
	d, ok := s.legacyDistricts[id]
	if !ok {
		return models.LegacyDistrict{}, false
	}
	return *d, true
}

func (s *Snapshot) LegacyWard(id int64) (models.LegacyWard, bool) {
	w, ok := s.legacyWards[id]
	if !ok {
		return models.LegacyWard{}, false
	}
	return *w, true
}

func (s *Snapshot) LegacyDistrictByCode(code string) (models.LegacyDistrict, bool) {
	d, ok := s.legacyDistrictByCode[code]
	if !ok {
		return models.LegacyDistrict{}, false
	}
	return *d, true
}

func (s *Snapshot) LegacyProvinceByCode(code string) (models.LegacyProvince, bool) {
	p, ok := s.legacyProvinceByCode[code]
	if !ok {
		return models.LegacyProvince{}, false
	}
	return *p, true
}

func (s *Snapshot) LegacyWardByCode(code string) (models.LegacyWard, bool) {
	w, ok := s.legacyWardByCode[code]
	if !ok {
		return models.LegacyWard{}, false
	}
	return *w, true
}

func (s *Snapshot) LegacyStreet(id int64) (models.LegacyStreet, bool) {
	st, ok := s.legacyStreets[id]
	if !ok {
		return models.LegacyStreet{}, false
	}
	return *st, true
}

func (s *Snapshot) Project(id int64) (models.Project, bool) {
	p, ok := s.projects[id]
	if !ok {
		return models.Project{}, false
	}
	return *p, true
}

func (s *Snapshot) ProvinceByID(id int64) (models.Province, bool) {
	p, ok := s.provinces[id]
	if !ok {
		return models.Province{}, false
	}
	return *p, true
}

func (s *Snapshot) ProvinceByCode(code string) (models.Province, bool) {
	p, ok := s.provinceByCode[code]
	if !ok {
		return models.Province{}, false
	}
	return *p, true
}

func (s *Snapshot) WardByID(id int64) (models.Ward, bool) {
	w, ok := s.wards[id]
	if !ok {
		return models.Ward{}, false
	}
	return *w, true
}

func (s *Snapshot) WardByCode(code string) (models.Ward, bool) {
	w, ok := s.wardByCode[code]
	if !ok {
		return models.Ward{}, false
	}
	return *w, true
}

// ParentProvince tỉnh cha của một tỉnh bị sáp nhập
func (s *Snapshot) ParentProvince(p models.Province) (models.Province, bool) {
	if p.ParentProvinceID == nil {
		return models.Province{}, false
	}
	return s.ProvinceByID(*p.ParentProvinceID)
}

// ProvinceDisplayName tên hiển thị có xét sáp nhập: tỉnh bị sáp nhập hiển thị tên tỉnh cha
func (s *Snapshot) ProvinceDisplayName(p models.Province) string {
	if parent, ok := s.ParentProvince(p); ok {
		return parent.Name
	}
	return p.Name
}

// IsParentProvince tỉnh có ít nhất một tỉnh khác sáp nhập vào
func (s *Snapshot) IsParentProvince(id int64) bool {
	return len(s.childrenOf(KindProvince, id, true)) > 0
}

// MergedProvinces các tỉnh đã sáp nhập vào tỉnh id, sắp theo tên
func (s *Snapshot) MergedProvinces(id int64) []models.Province {
	var out []models.Province
	for _, p := range s.provinces {
		if p.ParentProvinceID != nil && *p.ParentProvinceID == id {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// MergedWards các phường mới đã gộp vào phường id
func (s *Snapshot) MergedWards(id int64) []models.Ward {
	var out []models.Ward
	for _, w := range s.wards {
		if w.MergedIntoID != nil && *w.MergedIntoID == id {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// ProvinceForLegacy tỉnh trong cấu trúc mới tương ứng tỉnh cũ (theo mã), có xét sáp nhập.
// merged = true khi tỉnh cũ đã bị sáp nhập và kết quả là tỉnh cha.
func (s *Snapshot) ProvinceForLegacy(legacyProvinceID int64) (p models.Province, merged bool, ok bool) {
	lp, found := s.legacyProvinces[legacyProvinceID]
	if !found {
		return models.Province{}, false, false
	}
	if np, found := s.provinceByCode[lp.Code]; found {
		if parent, hasParent := s.ParentProvince(*np); hasParent {
			return parent, true, true
		}
		return *np, false, true
	}
	// Sổ đăng ký mới thiếu tỉnh cũ: dùng chỉ mục phụ ProvinceMapping
	for _, pm := range s.ProvinceMappings(legacyProvinceID) {
		if np, found := s.provinceByCode[pm.NewProvinceCode]; found {
			return *np, pm.NewProvinceCode != lp.Code, true
		}
	}
	return models.Province{}, false, false
}

// FindUnit tra cứu đơn vị theo mã hoặc id.
// Chuỗi số không có số 0 đứng đầu được hiểu là id với sổ cũ, là mã trước với sổ mới.
func (s *Snapshot) FindUnit(kind Kind, ref string, scope Scope) (Unit, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Unit{}, fmt.Errorf("%w: %s với mã rỗng", ErrUnitNotFound, kind)
	}
	id, idErr := strconv.ParseInt(ref, 10, 64)
	isID := idErr == nil && !strings.HasPrefix(ref, "0")

	u, ok := s.lookup(kind, ref, id, isID)
	if !ok || !scope.admits(u.IsActive) {
		return Unit{}, fmt.Errorf("%w: %s %q", ErrUnitNotFound, kind, ref)
	}
	return u, nil
}

func (s *Snapshot) lookup(kind Kind, code string, id int64, isID bool) (Unit, bool) {
	switch kind {
	case KindLegacyProvince:
		if isID {
			if p, ok := s.legacyProvinces[id]; ok {
				return legacyProvinceUnit(p), true
			}
		}
		if p, ok := s.legacyProvinceByCode[code]; ok {
			return legacyProvinceUnit(p), true
		}
	case KindLegacyDistrict:
		if isID {
			if d, ok := s.legacyDistricts[id]; ok {
				return legacyDistrictUnit(d), true
			}
		}
		if d, ok := s.legacyDistrictByCode[code]; ok {
			return legacyDistrictUnit(d), true
		}
	case KindLegacyWard:
		if isID {
			if w, ok := s.legacyWards[id]; ok {
				return legacyWardUnit(w), true
			}
		}
		if w, ok := s.legacyWardByCode[code]; ok {
			return legacyWardUnit(w), true
		}
	case KindLegacyStreet:
		if isID {
			if st, ok := s.legacyStreets[id]; ok {
				return legacyStreetUnit(st), true
			}
		}
	case KindProvince:
		if p, ok := s.provinceByCode[code]; ok {
			return provinceUnit(p), true
		}
		if isID {
			if p, ok := s.provinces[id]; ok {
				return provinceUnit(p), true
			}
		}
	case KindWard:
		if w, ok := s.wardByCode[code]; ok {
			return wardUnit(w), true
		}
		if isID {
			if w, ok := s.wards[id]; ok {
				return wardUnit(w), true
			}
		}
	}
	return Unit{}, false
}

// ListChildren liệt kê đơn vị con trực tiếp, sắp theo mã
func (s *Snapshot) ListChildren(kind Kind, id int64, scope Scope) ([]Unit, error) {
	if _, ok := s.lookup(kind, "", id, true); !ok {
		return nil, fmt.Errorf("%w: %s %d", ErrUnitNotFound, kind, id)
	}
	all := s.childrenOf(kind, id, false)
	out := make([]Unit, 0, len(all))
	for _, u := range all {
		if scope.admits(u.IsActive) {
			out = append(out, u)
		}
	}
	return out, nil
}

// Units tất cả đơn vị thuộc các kind cho trước (mặc định: mọi cấp hành chính)
func (s *Snapshot) Units(scope Scope, kinds ...Kind) []Unit {
	if len(kinds) == 0 {
		kinds = []Kind{KindLegacyProvince, KindLegacyDistrict, KindLegacyWard, KindProvince, KindWard}
	}
	var out []Unit
	add := func(u Unit) {
		if scope.admits(u.IsActive) {
			out = append(out, u)
		}
	}
	for _, k := range kinds {
		switch k {
		case KindLegacyProvince:
			for _, p := range s.legacyProvinces {
				add(legacyProvinceUnit(p))
			}
		case KindLegacyDistrict:
			for _, d := range s.legacyDistricts {
				add(legacyDistrictUnit(d))
			}
		case KindLegacyWard:
			for _, w := range s.legacyWards {
				add(legacyWardUnit(w))
			}
		case KindLegacyStreet:
			for _, st := range s.legacyStreets {
				add(legacyStreetUnit(st))
			}
		case KindProvince:
			for _, p := range s.provinces {
				add(provinceUnit(p))
			}
		case KindWard:
			for _, w := range s.wards {
				add(wardUnit(w))
			}
		}
	}
	sortUnits(out)
	return out
}

// Search tìm đơn vị có tên (hoặc tên gốc) chứa chuỗi con, không phân biệt hoa thường
func (s *Snapshot) Search(substr string, scope Scope, kinds ...Kind) []Unit {
	q := strings.ToLower(strings.TrimSpace(substr))
	if q == "" {
		return nil
	}
	var out []Unit
	for _, u := range s.Units(scope, kinds...) {
		if strings.Contains(strings.ToLower(u.Name), q) ||
			(u.OriginalName != "" && strings.Contains(strings.ToLower(u.OriginalName), q)) {
			out = append(out, u)
		}
	}
	return out
}

// Ancestors chuỗi đơn vị cha từ gần đến xa
func (s *Snapshot) Ancestors(u Unit) []Unit {
	var out []Unit
	cur := u
	for cur.ParentID != nil {
		parentKind, ok := parentKindOf(cur.Kind)
		if !ok {
			break
		}
		p, found := s.lookup(parentKind, "", *cur.ParentID, true)
		if !found {
			break
		}
		out = append(out, p)
		cur = p
	}
	return out
}

func parentKindOf(k Kind) (Kind, bool) {
	switch k {
	case KindLegacyDistrict:
		return KindLegacyProvince, true
	case KindLegacyWard:
		return KindLegacyDistrict, true
	case KindLegacyStreet:
		return KindLegacyDistrict, true
	case KindWard:
		return KindProvince, true
	}
	return "", false
}

// childrenOf đọc chỉ mục con, dựng lười một lần cho mỗi snapshot.
// Với tỉnh mới, mergedOnly = true trả về các tỉnh sáp nhập vào thay vì phường.
func (s *Snapshot) childrenOf(kind Kind, id int64, mergedOnly bool) []Unit {
	s.childrenOnce.Do(s.buildChildren)
	if mergedOnly {
		return s.children[childKey{kind: "merged_" + kind, id: id}]
	}
	return s.children[childKey{kind: kind, id: id}]
}

func (s *Snapshot) buildChildren() {
	idx := make(map[childKey][]Unit)
	for _, d := range s.legacyDistricts {
		k := childKey{kind: KindLegacyProvince, id: d.ProvinceID}
		idx[k] = append(idx[k], legacyDistrictUnit(d))
	}
	for _, w := range s.legacyWards {
		k := childKey{kind: KindLegacyDistrict, id: w.DistrictID}
		idx[k] = append(idx[k], legacyWardUnit(w))
	}
	for _, w := range s.wards {
		k := childKey{kind: KindProvince, id: w.ProvinceID}
		idx[k] = append(idx[k], wardUnit(w))
	}
	for _, p := range s.provinces {
		if p.ParentProvinceID != nil {
			k := childKey{kind: "merged_" + KindProvince, id: *p.ParentProvinceID}
			idx[k] = append(idx[k], provinceUnit(p))
		}
	}
	for k := range idx {
		sortUnits(idx[k])
	}
	s.children = idx
}

func sortUnits(units []Unit) {
	sort.Slice(units, func(i, j int) bool {
		if units[i].Kind != units[j].Kind {
			return units[i].Kind < units[j].Kind
		}
		if units[i].Code != units[j].Code {
			return units[i].Code < units[j].Code
		}
		return units[i].ID < units[j].ID
	})
}

func legacyProvinceUnit(p *models.LegacyProvince) Unit {
	return Unit{
		Kind: KindLegacyProvince, ID: p.ID, Code: p.Code, Name: p.Name, Type: p.Type,
		Structure: models.StructureOld, IsActive: p.IsActive,
		EffectiveFrom: p.EffectiveFrom, EffectiveTo: p.EffectiveTo,
	}
}

func legacyDistrictUnit(d *models.LegacyDistrict) Unit {
	parent := d.ProvinceID
	return Unit{
		Kind: KindLegacyDistrict, ID: d.ID, Code: d.Code, Name: d.Name, Type: d.Type,
		ParentID: &parent, Structure: models.StructureOld, IsActive: d.IsActive,
		EffectiveFrom: d.EffectiveFrom, EffectiveTo: d.EffectiveTo,
	}
}

func legacyWardUnit(w *models.LegacyWard) Unit {
	parent := w.DistrictID
	return Unit{
		Kind: KindLegacyWard, ID: w.ID, Code: w.Code, Name: w.Name, Type: w.Type,
		ParentID: &parent, Structure: models.StructureOld, IsActive: w.IsActive,
		EffectiveFrom: w.EffectiveFrom, EffectiveTo: w.EffectiveTo,
	}
}

func legacyStreetUnit(st *models.LegacyStreet) Unit {
	return Unit{
		Kind: KindLegacyStreet, ID: st.ID, Name: st.Name, Type: st.Prefix,
		ParentID: st.DistrictID, Structure: models.StructureOld, IsActive: st.IsActive,
		EffectiveFrom: st.EffectiveFrom, EffectiveTo: st.EffectiveTo,
	}
}

func provinceUnit(p *models.Province) Unit {
	return Unit{
		Kind: KindProvince, ID: p.ID, Code: p.Code, Name: p.Name, Type: p.Type,
		Structure: p.StructureVersion, OriginalName: p.OriginalName,
		MergedIntoID: p.ParentProvinceID, IsMerged: p.IsMerged(), IsActive: p.IsActive,
		EffectiveFrom: p.EffectiveFrom, EffectiveTo: p.EffectiveTo,
	}
}

func wardUnit(w *models.Ward) Unit {
	parent := w.ProvinceID
	return Unit{
		Kind: KindWard, ID: w.ID, Code: w.Code, Name: w.Name, Type: w.Type,
		ParentID: &parent, Structure: w.StructureVersion, OriginalName: w.OriginalName,
		MergedIntoID: w.MergedIntoID, IsMerged: w.IsMerged(), IsActive: w.IsActive,
		EffectiveFrom: w.EffectiveFrom, EffectiveTo: w.EffectiveTo,
	}
}
