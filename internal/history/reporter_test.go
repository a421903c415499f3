package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/registry"
	"github.com/address-converter/internal/testutil"
)

func newTestReporter() *Reporter {
	return NewReporter(testutil.Holder(), zap.NewNop())
}

func TestGetMergeHistory_MergedProvince(t *testing.T) {
	h, err := newTestReporter().GetMergeHistory(context.Background(), models.UnitTypeProvince, "02")
	require.NoError(t, err)

	assert.True(t, h.IsMerged)
	assert.False(t, h.IsParent)
	require.NotNil(t, h.MergedInto)
	assert.Equal(t, "08", h.MergedInto.Code)
	assert.Equal(t, "Tuyên Quang", h.MergedInto.Name)
	assert.Equal(t, DefaultReason, h.MergedInto.Reason)
	require.NotNil(t, h.MergeDate)
	assert.True(t, h.MergeDate.Equal(testutil.ReformEffective))
	assert.Empty(t, h.MergedFrom)
}

func TestGetMergeHistory_ParentProvince(t *testing.T) {
	h, err := newTestReporter().GetMergeHistory(context.Background(), models.UnitTypeProvince, "08")
	require.NoError(t, err)

	assert.False(t, h.IsMerged)
	assert.True(t, h.IsParent)
	assert.Nil(t, h.MergedInto)
	require.Len(t, h.MergedFrom, 1)
	assert.Equal(t, 1, h.TotalMerged)
	assert.Equal(t, "02", h.MergedFrom[0].Code)
	assert.Equal(t, "Hà Giang", h.MergedFrom[0].OriginalName)
	assert.Equal(t, string(models.StructureOld), h.MergedFrom[0].Structure)
}

func TestGetMergeHistory_ProvinceViaProvinceMapping(t *testing.T) {
	ds := testutil.Dataset()
	// bỏ tỉnh 02 khỏi sổ mới: chỉ còn ProvinceMapping nối tỉnh cũ 2 -> 08
	ds.Provinces = ds.Provinces[:2]
	snap, err := registry.NewSnapshot(ds)
	require.NoError(t, err)
	r := NewReporter(registry.NewHolder(snap), zap.NewNop())

	parent, err := r.GetMergeHistory(context.Background(), models.UnitTypeProvince, "08")
	require.NoError(t, err)
	require.Len(t, parent.MergedFrom, 1)
	assert.Equal(t, "02", parent.MergedFrom[0].Code)
	assert.True(t, parent.MergedFrom[0].MergeDate.Equal(testutil.ReformEffective))

	legacy, err := r.GetMergeHistory(context.Background(), models.UnitTypeProvince, "02")
	require.NoError(t, err)
	assert.True(t, legacy.IsMerged)
	require.NotNil(t, legacy.MergedInto)
	assert.Equal(t, "08", legacy.MergedInto.Code)
}

func TestGetMergeHistory_MergedWard(t *testing.T) {
	r := newTestReporter()

	h, err := r.GetMergeHistory(context.Background(), models.UnitTypeWard, "00009")
	require.NoError(t, err)
	assert.True(t, h.IsMerged)
	require.NotNil(t, h.MergedInto)
	assert.Equal(t, "00008", h.MergedInto.Code)
	assert.Equal(t, "Ngọc Hà", h.MergedInto.Name)

	target, err := r.GetMergeHistory(context.Background(), models.UnitTypeWard, "00008")
	require.NoError(t, err)
	assert.True(t, target.IsParent)
	assert.False(t, target.IsMerged)
	require.Len(t, target.MergedFrom, 3)

	// phường mới đã gộp đứng trước, sau đó là phường cũ theo mã
	assert.Equal(t, "00009", target.MergedFrom[0].Code)
	assert.Equal(t, "Quán Thánh", target.MergedFrom[0].OriginalName)
	assert.Equal(t, "00003", target.MergedFrom[1].Code)
	assert.Equal(t, "Sáp nhập phường Ngọc Hà và Quán Thánh", target.MergedFrom[1].Reason)
	assert.Equal(t, "00007", target.MergedFrom[2].Code)
	assert.Equal(t, DefaultReason, target.MergedFrom[2].Reason)
}

func TestGetMergeHistory_DividedLegacyWard(t *testing.T) {
	h, err := newTestReporter().GetMergeHistory(context.Background(), models.UnitTypeWard, "00002")
	require.NoError(t, err)

	assert.Equal(t, "Đội Cấn", h.Name)
	assert.True(t, h.IsMerged)
	require.NotNil(t, h.MergedInto)
	assert.Equal(t, "00005", h.MergedInto.Code)
	require.Len(t, h.DissolvedInto, 2)
	assert.Equal(t, "00005", h.DissolvedInto[0].Code)
	assert.Equal(t, "00006", h.DissolvedInto[1].Code)
	assert.Equal(t, 60, *h.DissolvedInto[1].Accuracy)
}

func TestGetMergeHistory_LegacyWardViaWardMapping(t *testing.T) {
	ds := testutil.Dataset()
	ds.ConversionMappings = nil
	snap, err := registry.NewSnapshot(ds)
	require.NoError(t, err)
	r := NewReporter(registry.NewHolder(snap), zap.NewNop())

	h, err := r.GetMergeHistory(context.Background(), models.UnitTypeWard, "00002")
	require.NoError(t, err)
	require.NotNil(t, h.MergedInto)
	assert.Equal(t, "00005", h.MergedInto.Code)
	assert.Len(t, h.DissolvedInto, 2)

	target, err := r.GetMergeHistory(context.Background(), models.UnitTypeWard, "00008")
	require.NoError(t, err)
	// 00009 từ sổ mới, 00003 và 00007 từ WardMapping
	assert.Len(t, target.MergedFrom, 3)
}

func TestGetMergeHistory_District(t *testing.T) {
	h, err := newTestReporter().GetMergeHistory(context.Background(), models.UnitTypeDistrict, "002")
	require.NoError(t, err)

	assert.Equal(t, "Hoàn Kiếm", h.Name)
	assert.True(t, h.IsMerged)
	require.NotNil(t, h.MergedInto)
	assert.Equal(t, "00070", h.MergedInto.Code)
	assert.Equal(t, 70, *h.MergedInto.Accuracy)
	assert.Nil(t, h.DissolvedInto)

	noMapping, err := newTestReporter().GetMergeHistory(context.Background(), models.UnitTypeDistrict, "001")
	require.NoError(t, err)
	assert.False(t, noMapping.IsMerged)
	assert.Nil(t, noMapping.MergedInto)
}

func TestGetMergeHistory_Errors(t *testing.T) {
	r := newTestReporter()
	ctx := context.Background()

	_, err := r.GetMergeHistory(ctx, models.UnitTypeWard, "99999")
	assert.True(t, errors.Is(err, registry.ErrUnitNotFound))

	_, err = r.GetMergeHistory(ctx, models.UnitTypeProvince, " ")
	assert.True(t, errors.Is(err, registry.ErrUnitNotFound))

	_, err = r.GetMergeHistory(ctx, models.UnitTypeStreet, "500")
	assert.True(t, errors.Is(err, ErrInvalidUnitType))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = r.GetMergeHistory(cancelled, models.UnitTypeProvince, "01")
	assert.True(t, errors.Is(err, context.Canceled))
}
