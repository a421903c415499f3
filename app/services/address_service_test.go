package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/address-converter/app/config"
	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/address"
	"github.com/address-converter/internal/registry"
	"github.com/address-converter/internal/search"
	testdata "github.com/address-converter/internal/testutil"
)

func newTestAddressService() *AddressService {
	return NewAddressService(testdata.Holder(), config.Defaults().Search, nil, zap.NewNop())
}

func TestAddressService_SearchAddress(t *testing.T) {
	svc := newTestAddressService()

	res, err := svc.SearchAddress(context.Background(), "Ba Đình", false, 10)
	require.NoError(t, err)
	require.NotEmpty(t, res.Matches)
	assert.Equal(t, 1.0, res.Matches[0].Score)
	assert.Empty(t, res.Suggestions)

	_, err = svc.SearchAddress(context.Background(), "   ", false, 10)
	assert.True(t, errors.Is(err, search.ErrEmptyQuery))
}

func TestAddressService_SearchAddressSuggestsOnMiss(t *testing.T) {
	svc := newTestAddressService()

	res, err := svc.SearchAddress(context.Background(), "Hoam Kiem", false, 10)
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	require.NotEmpty(t, res.Suggestions)
	assert.Equal(t, "Hoàn Kiếm", res.Suggestions[0].Name)
}

func TestAddressService_FindUnit(t *testing.T) {
	svc := newTestAddressService()
	ctx := context.Background()

	u, err := svc.FindUnit(ctx, "legacy_ward", "00001", true)
	require.NoError(t, err)
	assert.Equal(t, int64(20), u.ID)
	assert.Equal(t, "Phường Điện Biên", u.FullName)
	require.Len(t, u.Ancestors, 2)
	assert.Equal(t, registry.KindLegacyDistrict, u.Ancestors[0].Kind)
	assert.Equal(t, registry.KindLegacyProvince, u.Ancestors[1].Kind)

	p, err := svc.FindUnit(ctx, "province", "02", true)
	require.NoError(t, err)
	assert.True(t, p.IsMerged)

	_, err = svc.FindUnit(ctx, "county", "01", false)
	assert.True(t, errors.Is(err, ErrInvalidKind))

	_, err = svc.FindUnit(ctx, "ward", "12345", false)
	assert.True(t, errors.Is(err, registry.ErrUnitNotFound))
}

func TestAddressService_ListChildren(t *testing.T) {
	svc := newTestAddressService()

	wards, err := svc.ListChildren(context.Background(), "legacy_district", "5", true)
	require.NoError(t, err)
	require.Len(t, wards, 4)
	assert.Equal(t, "00001", wards[0].Code)

	newWards, err := svc.ListChildren(context.Background(), "province", "01", false)
	require.NoError(t, err)
	for _, w := range newWards {
		assert.Equal(t, registry.KindWard, w.Kind)
	}
}

func TestAddressService_ValidateAndHistory(t *testing.T) {
	svc := newTestAddressService()
	ctx := context.Background()

	addr, err := svc.ValidateAddress(ctx, address.Request{
		AddressType:     models.StructureNew,
		NewProvinceCode: "01",
		NewWardCode:     "00005",
		ProjectID:       testdata.Int64(900),
	})
	require.NoError(t, err)
	assert.Equal(t, "Vinhomes Metropolis, Phường Giảng Võ, Hà Nội", addr.DisplayAddress)

	h, err := svc.GetMergeHistory(ctx, models.UnitTypeProvince, "02")
	require.NoError(t, err)
	assert.True(t, h.IsMerged)
	require.NotNil(t, h.MergedInto)
	assert.Equal(t, "08", h.MergedInto.Code)
}
