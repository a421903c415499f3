package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/address-converter/app/config"
	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/conversion"
	"github.com/address-converter/internal/metrics"
	"github.com/address-converter/internal/registry"
	testdata "github.com/address-converter/internal/testutil"
)

func newTestConversionService(t *testing.T) (*ConversionService, *registry.Holder, *metrics.Metrics) {
	t.Helper()
	holder := testdata.Holder()
	l1, err := NewLRUCacheService(100, zap.NewNop())
	require.NoError(t, err)
	m := metrics.New()
	cache := NewHybridCacheService(l1, nil, m, zap.NewNop())
	return NewConversionService(holder, config.Defaults().Conversion, cache, m, zap.NewNop()), holder, m
}

func intPtr(v int) *int { return &v }

func TestConversionService_ConvertForwardCached(t *testing.T) {
	svc, _, m := newTestConversionService(t)
	ctx := context.Background()
	key := conversion.OldAddressKey{ProvinceID: 1, DistrictID: 5, WardID: 20}

	first, err := svc.ConvertForward(ctx, key, nil)
	require.NoError(t, err)
	require.NotNil(t, first.Default)
	assert.Equal(t, "00004", first.Default.NewWardCode)

	second, err := svc.ConvertForward(ctx, key, nil)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("l1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConversionsTotal.WithLabelValues("forward", "WARD", "ok")))

	// ngưỡng khác là khóa cache khác
	_, err = svc.ConvertForward(ctx, key, intPtr(90))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("l1")))
}

func TestConversionService_CacheFollowsSnapshotVersion(t *testing.T) {
	svc, holder, m := newTestConversionService(t)
	ctx := context.Background()
	key := conversion.OldAddressKey{ProvinceID: 1, DistrictID: 5, WardID: 20}

	_, err := svc.ConvertForward(ctx, key, nil)
	require.NoError(t, err)

	// snapshot mới: mapping 1 trỏ sang 00006
	ds := testdata.Dataset()
	ds.ConversionMappings[0].NewWardCode = testdata.String("00006")
	snap, err := registry.NewSnapshot(ds)
	require.NoError(t, err)
	holder.Swap(snap)

	fwd, err := svc.ConvertForward(ctx, key, nil)
	require.NoError(t, err)
	assert.Equal(t, "00006", fwd.Default.NewWardCode)
	assert.Equal(t, snap.Version(), fwd.SnapshotVersion)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("l1")))
}

func TestConversionService_InvalidAccuracy(t *testing.T) {
	svc, _, _ := newTestConversionService(t)
	_, err := svc.ConvertForward(context.Background(), conversion.OldAddressKey{ProvinceID: 1, DistrictID: 5, WardID: 20}, intPtr(101))
	assert.True(t, errors.Is(err, ErrInvalidAccuracy))
}

func TestConversionService_ConvertReverse(t *testing.T) {
	svc, _, _ := newTestConversionService(t)
	ctx := context.Background()

	res, err := svc.ConvertReverse(ctx, conversion.NewAddressKey{ProvinceCode: "01", WardCode: "00008"})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, int64(22), res[0].Old.WardID)
	assert.Equal(t, int64(23), res[1].Old.WardID)

	empty, err := svc.ConvertReverse(ctx, conversion.NewAddressKey{ProvinceCode: "01", WardCode: "99999"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestConversionService_ConvertAndNormalize(t *testing.T) {
	svc, _, _ := newTestConversionService(t)
	ctx := context.Background()

	conv, err := svc.Convert(ctx, conversion.NewKey("01", "00008"), nil)
	require.NoError(t, err)
	assert.Equal(t, models.StructureNew, conv.Structure)
	assert.Len(t, conv.Reverse, 2)

	norm, err := svc.Normalize(ctx, conversion.OldKey(1, 5, 21), nil)
	require.NoError(t, err)
	assert.Equal(t, []conversion.NewAddressKey{{ProvinceCode: "01", WardCode: "00005"}, {ProvinceCode: "01", WardCode: "00006"}}, norm.New)

	_, err = svc.Convert(ctx, conversion.AddressKey{Structure: models.StructureOld}, nil)
	assert.True(t, errors.Is(err, conversion.ErrInvalidKey))
}

func TestConversionService_ConvertBatch(t *testing.T) {
	svc, _, m := newTestConversionService(t)
	keys := []conversion.OldAddressKey{
		{ProvinceID: 1, DistrictID: 5, WardID: 20},
		{ProvinceID: 8, DistrictID: 99, WardID: 99},
		{},
		{ProvinceID: 1, DistrictID: 5, WardID: 21},
	}

	res, err := svc.ConvertBatch(context.Background(), keys, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, res.BatchID)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Items, 4)

	assert.Equal(t, "00004", res.Items[0].Result.Default.NewWardCode)
	assert.Equal(t, conversion.ErrCodeNotFound, res.Items[1].Error.Code)
	assert.Equal(t, conversion.ErrCodeInvalidRequest, res.Items[2].Error.Code)
	assert.Equal(t, "00005", res.Items[3].Result.Default.NewWardCode)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BatchItemsTotal.WithLabelValues("ok")))
}

func TestConversionService_ConvertBatchLimits(t *testing.T) {
	cfg := config.Defaults().Conversion
	cfg.MaxBatchSize = 2
	svc := NewConversionService(testdata.Holder(), cfg, nil, nil, zap.NewNop())

	_, err := svc.ConvertBatch(context.Background(), nil, nil)
	assert.True(t, errors.Is(err, ErrEmptyBatch))

	_, err = svc.ConvertBatch(context.Background(), make([]conversion.OldAddressKey, 3), nil)
	assert.True(t, errors.Is(err, ErrBatchTooLarge))
}
