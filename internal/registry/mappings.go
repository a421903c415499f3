package registry

import (
	"fmt"
	"sort"

	"github.com/address-converter/app/models"
)

// OldTriple khóa địa chỉ cũ (tỉnh, quận, phường)
type OldTriple struct {
	ProvinceID int64
	DistrictID int64
	WardID     int64
}

// DistrictKey khóa cấp quận cũ
type DistrictKey struct {
	ProvinceID int64
	DistrictID int64
}

// NewPair khóa địa chỉ mới (tỉnh, phường)
type NewPair struct {
	ProvinceCode string
	WardCode     string
}

type mappingIndex struct {
	mappings      []models.ConversionMapping
	mappingByID   map[int64]int
	byOldTriple   map[OldTriple][]int
	byOldDistrict map[DistrictKey][]int
	byNewPair     map[NewPair][]int

	provinceMappings     []models.ProvinceMapping
	districtWardMappings []models.DistrictWardMapping
	wardMappings         []models.WardMapping
	provinceMapIdx       map[int64][]int
	districtWardIdx      map[int64][]int
	wardMapIdx           map[int64][]int
	wardMapByNewCode     map[string][]int
}

func (m *mappingIndex) build(ds *Dataset) error {
	m.mappings = append([]models.ConversionMapping(nil), ds.ConversionMappings...)
	sort.Slice(m.mappings, func(i, j int) bool { return m.mappings[i].ID < m.mappings[j].ID })

	m.mappingByID = make(map[int64]int, len(m.mappings))
	m.byOldTriple = make(map[OldTriple][]int)
	m.byOldDistrict = make(map[DistrictKey][]int)
	m.byNewPair = make(map[NewPair][]int)

	for i, cm := range m.mappings {
		if _, dup := m.mappingByID[cm.ID]; dup {
			return fmt.Errorf("%w: conversion mapping id %d trùng", ErrInvalidDataset, cm.ID)
		}
		if err := cm.ValidateAccuracy(); err != nil {
			return fmt.Errorf("%w: mapping %d: %v", ErrInvalidDataset, cm.ID, err)
		}
		m.mappingByID[cm.ID] = i
		if !cm.IsActive {
			continue
		}
		if cm.OldProvinceID != nil && cm.OldDistrictID != nil && cm.OldWardID != nil {
			t := OldTriple{*cm.OldProvinceID, *cm.OldDistrictID, *cm.OldWardID}
			m.byOldTriple[t] = append(m.byOldTriple[t], i)
		}
		if cm.IsDistrictLevel() {
			k := DistrictKey{*cm.OldProvinceID, *cm.OldDistrictID}
			m.byOldDistrict[k] = append(m.byOldDistrict[k], i)
		}
		if cm.IsComplete() {
			p := NewPair{*cm.NewProvinceCode, *cm.NewWardCode}
			m.byNewPair[p] = append(m.byNewPair[p], i)
		}
	}

	m.provinceMappings = append([]models.ProvinceMapping(nil), ds.ProvinceMappings...)
	m.districtWardMappings = append([]models.DistrictWardMapping(nil), ds.DistrictWardMappings...)
	m.wardMappings = append([]models.WardMapping(nil), ds.WardMappings...)
	sort.Slice(m.provinceMappings, func(i, j int) bool { return m.provinceMappings[i].ID < m.provinceMappings[j].ID })
	sort.Slice(m.districtWardMappings, func(i, j int) bool { return m.districtWardMappings[i].ID < m.districtWardMappings[j].ID })
	sort.Slice(m.wardMappings, func(i, j int) bool { return m.wardMappings[i].ID < m.wardMappings[j].ID })

	m.provinceMapIdx = make(map[int64][]int)
	for i, pm := range m.provinceMappings {
		if pm.IsActive {
			m.provinceMapIdx[pm.LegacyProvinceID] = append(m.provinceMapIdx[pm.LegacyProvinceID], i)
		}
	}
	m.districtWardIdx = make(map[int64][]int)
	for i, dm := range m.districtWardMappings {
		if dm.ConversionAccuracy < 0 || dm.ConversionAccuracy > 100 {
			return fmt.Errorf("%w: district ward mapping %d có accuracy %d", ErrInvalidDataset, dm.ID, dm.ConversionAccuracy)
		}
		if dm.IsActive {
			m.districtWardIdx[dm.LegacyDistrictID] = append(m.districtWardIdx[dm.LegacyDistrictID], i)
		}
	}
	m.wardMapIdx = make(map[int64][]int)
	m.wardMapByNewCode = make(map[string][]int)
	for i, wm := range m.wardMappings {
		if wm.IsActive {
			m.wardMapIdx[wm.LegacyWardID] = append(m.wardMapIdx[wm.LegacyWardID], i)
			m.wardMapByNewCode[wm.NewWardCode] = append(m.wardMapByNewCode[wm.NewWardCode], i)
		}
	}
	return nil
}

func (m *mappingIndex) collect(idx []int) []models.ConversionMapping {
	if len(idx) == 0 {
		return nil
	}
	out := make([]models.ConversionMapping, len(idx))
	for i, j := range idx {
		out[i] = m.mappings[j]
	}
	return out
}

// MappingsForOldTriple các mapping đang hoạt động của bộ ba cũ, gồm cả bản ghi chưa đầy đủ
func (m *mappingIndex) MappingsForOldTriple(t OldTriple) []models.ConversionMapping {
	return m.collect(m.byOldTriple[t])
}

// DistrictMappings mapping cấp quận (không có phường cũ) đang hoạt động
func (m *mappingIndex) DistrictMappings(k DistrictKey) []models.ConversionMapping {
	return m.collect(m.byOldDistrict[k])
}

// MappingsForNewPair các mapping đầy đủ, đang hoạt động trỏ tới cặp mới
func (m *mappingIndex) MappingsForNewPair(p NewPair) []models.ConversionMapping {
	return m.collect(m.byNewPair[p])
}

// Mapping tra cứu mapping theo id, kể cả đã ngừng hoạt động
func (m *mappingIndex) Mapping(id int64) (models.ConversionMapping, bool) {
	i, ok := m.mappingByID[id]
	if !ok {
		return models.ConversionMapping{}, false
	}
	return m.mappings[i], true
}

// Mappings bản sao toàn bộ mapping, sắp theo id
func (m *mappingIndex) Mappings() []models.ConversionMapping {
	return append([]models.ConversionMapping(nil), m.mappings...)
}

// OldTriples các bộ ba cũ đang có mapping hoạt động
func (m *mappingIndex) OldTriples() []OldTriple {
	out := make([]OldTriple, 0, len(m.byOldTriple))
	for t := range m.byOldTriple {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ProvinceID != b.ProvinceID {
			return a.ProvinceID < b.ProvinceID
		}
		if a.DistrictID != b.DistrictID {
			return a.DistrictID < b.DistrictID
		}
		return a.WardID < b.WardID
	})
	return out
}

func (m *mappingIndex) ProvinceMappings(legacyProvinceID int64) []models.ProvinceMapping {
	idx := m.provinceMapIdx[legacyProvinceID]
	out := make([]models.ProvinceMapping, 0, len(idx))
	for _, i := range idx {
		out = append(out, m.provinceMappings[i])
	}
	return out
}

func (m *mappingIndex) DistrictWardMappings(legacyDistrictID int64) []models.DistrictWardMapping {
	idx := m.districtWardIdx[legacyDistrictID]
	out := make([]models.DistrictWardMapping, 0, len(idx))
	for _, i := range idx {
		out = append(out, m.districtWardMappings[i])
	}
	return out
}

func (m *mappingIndex) WardMappings(legacyWardID int64) []models.WardMapping {
	idx := m.wardMapIdx[legacyWardID]
	out := make([]models.WardMapping, 0, len(idx))
	for _, i := range idx {
		out = append(out, m.wardMappings[i])
	}
	return out
}

// WardMappingsInto các phường cũ trỏ tới phường mới newWardCode
func (m *mappingIndex) WardMappingsInto(newWardCode string) []models.WardMapping {
	idx := m.wardMapByNewCode[newWardCode]
	out := make([]models.WardMapping, 0, len(idx))
	for _, i := range idx {
		out = append(out, m.wardMappings[i])
	}
	return out
}
