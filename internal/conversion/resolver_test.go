package conversion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/registry"
	"github.com/address-converter/internal/testutil"
)

func newTestResolver(t *testing.T, ds *registry.Dataset, tb TieBreak) *Resolver {
	t.Helper()
	snap, err := registry.NewSnapshot(ds)
	require.NoError(t, err)
	return NewResolver(registry.NewHolder(snap), Options{TieBreak: tb}, zap.NewNop())
}

func TestConvertForward_SingleMapping(t *testing.T) {
	r := newTestResolver(t, testutil.Dataset(), TieBreakNearestFirst)

	fwd, err := r.ConvertForward(context.Background(), OldAddressKey{1, 5, 20}, 0)
	require.NoError(t, err)
	require.NotNil(t, fwd.Default)

	assert.Equal(t, "01", fwd.Default.NewProvinceCode)
	assert.Equal(t, "00004", fwd.Default.NewWardCode)
	assert.Equal(t, 100, fwd.Default.Accuracy)
	assert.True(t, fwd.Default.IsDefault)
	assert.True(t, fwd.Default.IsDefaultNewWard)
	assert.Empty(t, fwd.Candidates)
	assert.Equal(t, LevelWard, fwd.Level)
	assert.Equal(t, "Phường Ba Đình, Thành phố Hà Nội", fwd.Default.NewAddress)
	assert.Equal(t, "Phường Điện Biên, Quận Ba Đình, Thành phố Hà Nội", fwd.Default.OldAddress)
}

func TestConvertForward_DividedWard(t *testing.T) {
	r := newTestResolver(t, testutil.Dataset(), TieBreakNearestFirst)

	fwd, err := r.ConvertForward(context.Background(), OldAddressKey{1, 5, 21}, 0)
	require.NoError(t, err)
	require.NotNil(t, fwd.Default)

	assert.Equal(t, "00005", fwd.Default.NewWardCode)
	assert.Equal(t, 80, fwd.Default.Accuracy)
	require.Len(t, fwd.Candidates, 1)
	assert.Equal(t, "00006", fwd.Candidates[0].NewWardCode)
	assert.Equal(t, 60, fwd.Candidates[0].Accuracy)
	assert.False(t, fwd.Candidates[0].IsDefault)
	assert.False(t, fwd.Candidates[0].LowConfidence)
	assert.True(t, fwd.Candidates[0].IsDividedWard)
}

func TestConvertForward_DefaultEdgeInvariant(t *testing.T) {
	ds := testutil.Dataset()
	r := newTestResolver(t, ds, TieBreakNearestFirst)

	for _, m := range ds.ConversionMappings {
		if !m.IsActive || !m.IsComplete() {
			continue
		}
		key := OldAddressKey{*m.OldProvinceID, *m.OldDistrictID, *m.OldWardID}
		fwd, err := r.ConvertForward(context.Background(), key, 0)
		require.NoError(t, err, key.String())
		require.NotNil(t, fwd.Default, key.String())
		assert.True(t, fwd.Default.IsDefaultNewWard)

		found := false
		for _, res := range fwd.All() {
			if res.NewProvinceCode == *m.NewProvinceCode && res.NewWardCode == *m.NewWardCode {
				found = true
			}
		}
		assert.True(t, found, "mapping %d không xuất hiện trong kết quả", m.ID)
	}
}

func TestConvertForward_IgnoresIncompleteAndInactive(t *testing.T) {
	r := newTestResolver(t, testutil.Dataset(), TieBreakNearestFirst)

	// (1,5,20) còn một dòng thiếu phường mới và một dòng đã vô hiệu hóa
	fwd, err := r.ConvertForward(context.Background(), OldAddressKey{1, 5, 20}, 0)
	require.NoError(t, err)
	assert.Len(t, fwd.All(), 1)
	assert.NotEqual(t, "00006", fwd.Default.NewWardCode)
}

func TestConvertForward_DistrictFallback(t *testing.T) {
	r := newTestResolver(t, testutil.Dataset(), TieBreakNearestFirst)

	fwd, err := r.ConvertForward(context.Background(), OldAddressKey{1, 6, 30}, 0)
	require.NoError(t, err)
	require.NotNil(t, fwd.Default)
	assert.Equal(t, LevelDistrict, fwd.Level)
	assert.Equal(t, "00070", fwd.Default.NewWardCode)
	assert.Equal(t, 70, fwd.Default.Accuracy, "accuracy không được nâng lên 100")
	assert.Equal(t, OldAddressKey{1, 6, 30}, *fwd.Default.Old, "giữ nguyên phường người gọi truyền")
	assert.Contains(t, fwd.Default.OldAddress, "Hàng Bạc")
}

func TestConvertForward_FallbackRequiresKnownWard(t *testing.T) {
	r := newTestResolver(t, testutil.Dataset(), TieBreakNearestFirst)

	testCases := []struct {
		name string
		key  OldAddressKey
	}{
		{"unknown ward", OldAddressKey{1, 6, 99999}},
		{"ward in another district", OldAddressKey{1, 6, 20}},
		{"ward in another province", OldAddressKey{2, 24, 30}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fwd, err := r.ConvertForward(context.Background(), tc.key, 0)
			assert.Nil(t, fwd)
			assert.True(t, errors.Is(err, ErrConversionNotFound))
		})
	}
}

func TestConvertForward_DistrictWardMappingFallback(t *testing.T) {
	ds := testutil.Dataset()
	// bỏ dòng cấp quận trong ConversionMapping, chỉ còn chỉ mục phụ
	var kept []models.ConversionMapping
	for _, m := range ds.ConversionMappings {
		if m.ID != 6 {
			kept = append(kept, m)
		}
	}
	ds.ConversionMappings = kept
	r := newTestResolver(t, ds, TieBreakNearestFirst)

	fwd, err := r.ConvertForward(context.Background(), OldAddressKey{1, 6, 30}, 0)
	require.NoError(t, err)
	require.NotNil(t, fwd.Default)
	assert.Equal(t, LevelDistrict, fwd.Level)
	assert.Equal(t, "00070", fwd.Default.NewWardCode)
	assert.Equal(t, 70, fwd.Default.Accuracy)
	assert.Zero(t, fwd.Default.MappingID)
}

func TestConvertForward_MergedProvinceFallback(t *testing.T) {
	r := newTestResolver(t, testutil.Dataset(), TieBreakNearestFirst)

	fwd, err := r.ConvertForward(context.Background(), OldAddressKey{2, 24, 40}, 0)
	require.NoError(t, err)
	require.NotNil(t, fwd.Default)
	assert.Equal(t, LevelProvince, fwd.Level)
	assert.Equal(t, "08", fwd.Default.NewProvinceCode)
	assert.Equal(t, "Tuyên Quang", fwd.Default.NewProvinceName)
	assert.Empty(t, fwd.Default.NewWardCode)
	assert.Equal(t, 0, fwd.Default.Accuracy)
	assert.True(t, fwd.Default.IsMergedProvince)

	// ngưỡng > 0 thì kết quả cấp tỉnh chỉ còn là ứng viên độ tin cậy thấp
	fwd, err = r.ConvertForward(context.Background(), OldAddressKey{2, 24, 40}, 50)
	require.NoError(t, err)
	assert.Nil(t, fwd.Default)
	require.Len(t, fwd.Candidates, 1)
	assert.True(t, fwd.Candidates[0].LowConfidence)
}

func TestConvertForward_NotFound(t *testing.T) {
	r := newTestResolver(t, testutil.Dataset(), TieBreakNearestFirst)

	// Hà Nội không bị sáp nhập, phường không có mapping nào
	_, err := r.ConvertForward(context.Background(), OldAddressKey{1, 5, 999}, 0)
	assert.True(t, errors.Is(err, ErrConversionNotFound))
}

func TestConvertForward_InvalidKey(t *testing.T) {
	r := newTestResolver(t, testutil.Dataset(), TieBreakNearestFirst)

	_, err := r.ConvertForward(context.Background(), OldAddressKey{1, 0, 20}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidKey))

	var keyErr *KeyError
	require.True(t, errors.As(err, &keyErr))
	assert.Equal(t, "district_id", keyErr.Field)
}

func TestConvertForward_Threshold(t *testing.T) {
	r := newTestResolver(t, testutil.Dataset(), TieBreakNearestFirst)

	t.Run("default below threshold is demoted", func(t *testing.T) {
		fwd, err := r.ConvertForward(context.Background(), OldAddressKey{1, 5, 21}, 85)
		require.NoError(t, err)
		assert.Nil(t, fwd.Default)
		require.Len(t, fwd.Candidates, 2)
		for _, c := range fwd.Candidates {
			assert.True(t, c.LowConfidence)
		}
		assert.Equal(t, "00005", fwd.Candidates[0].NewWardCode)
	})

	t.Run("non default never promoted", func(t *testing.T) {
		fwd, err := r.ConvertForward(context.Background(), OldAddressKey{1, 5, 21}, 70)
		require.NoError(t, err)
		require.NotNil(t, fwd.Default)
		assert.Equal(t, "00005", fwd.Default.NewWardCode)
		require.Len(t, fwd.Candidates, 1)
		assert.True(t, fwd.Candidates[0].LowConfidence)
	})
}

func TestConvertForward_NoDefaultInvented(t *testing.T) {
	ds := testutil.Dataset()
	for i := range ds.ConversionMappings {
		if ds.ConversionMappings[i].ID == 2 {
			ds.ConversionMappings[i].IsDefaultNewWard = false
		}
	}
	r := newTestResolver(t, ds, TieBreakNearestFirst)

	fwd, err := r.ConvertForward(context.Background(), OldAddressKey{1, 5, 21}, 0)
	require.NoError(t, err)
	assert.Nil(t, fwd.Default)
	assert.Len(t, fwd.Candidates, 2)
}

func TestConvertForward_TieBreak(t *testing.T) {
	ds := testutil.Dataset()
	nearest := testutil.Mapping(20, 1, 5, 22, "01", "00005", 50)
	nearest.IsNearestNewWard = true
	polygon := testutil.Mapping(21, 1, 5, 22, "01", "00006", 50)
	polygon.IsNewWardPolygonContainsWard = true
	ds.ConversionMappings = append(ds.ConversionMappings, nearest, polygon)

	cases := []struct {
		tieBreak TieBreak
		first    string
	}{
		{TieBreakNearestFirst, "00005"},
		{TieBreakPolygonFirst, "00006"},
	}
	for _, tc := range cases {
		t.Run(string(tc.tieBreak), func(t *testing.T) {
			r := newTestResolver(t, ds, tc.tieBreak)
			fwd, err := r.ConvertForward(context.Background(), OldAddressKey{1, 5, 22}, 0)
			require.NoError(t, err)
			require.NotNil(t, fwd.Default)
			assert.Equal(t, "00008", fwd.Default.NewWardCode)
			require.Len(t, fwd.Candidates, 2)
			assert.Equal(t, tc.first, fwd.Candidates[0].NewWardCode)
		})
	}
}

func TestConvertReverse(t *testing.T) {
	r := newTestResolver(t, testutil.Dataset(), TieBreakNearestFirst)

	t.Run("merged ward lists every legacy triple", func(t *testing.T) {
		results, err := r.ConvertReverse(context.Background(), NewAddressKey{"01", "00008"})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, OldAddressKey{1, 5, 22}, *results[0].Old)
		assert.Equal(t, 95, results[0].Accuracy)
		assert.Equal(t, OldAddressKey{1, 5, 23}, *results[1].Old)
		assert.Equal(t, "Phường Quán Thánh, Quận Ba Đình, Thành phố Hà Nội", results[1].OldAddress)
	})

	t.Run("unknown pair is empty, not an error", func(t *testing.T) {
		results, err := r.ConvertReverse(context.Background(), NewAddressKey{"01", "99999"})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("missing ward code", func(t *testing.T) {
		_, err := r.ConvertReverse(context.Background(), NewAddressKey{"01", " "})
		assert.True(t, errors.Is(err, ErrInvalidKey))
	})
}

func TestConvertReverse_DeduplicatesTriples(t *testing.T) {
	ds := testutil.Dataset()
	dup := testutil.Mapping(30, 1, 5, 22, "01", "00008", 40)
	ds.ConversionMappings = append(ds.ConversionMappings, dup)
	r := newTestResolver(t, ds, TieBreakNearestFirst)

	results, err := r.ConvertReverse(context.Background(), NewAddressKey{"01", "00008"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int64(4), results[0].MappingID)
}

func TestRoundTrip(t *testing.T) {
	ds := testutil.Dataset()
	r := newTestResolver(t, ds, TieBreakNearestFirst)

	for _, m := range ds.ConversionMappings {
		if !m.IsActive || !m.IsComplete() || !m.IsDefaultNewWard {
			continue
		}
		results, err := r.ConvertReverse(context.Background(), NewAddressKey{*m.NewProvinceCode, *m.NewWardCode})
		require.NoError(t, err)
		want := OldAddressKey{*m.OldProvinceID, *m.OldDistrictID, *m.OldWardID}
		found := false
		for _, res := range results {
			if *res.Old == want {
				found = true
			}
		}
		assert.True(t, found, "bộ ba %s không quay lại được", want)
	}
}

func TestConvertAndNormalize(t *testing.T) {
	r := newTestResolver(t, testutil.Dataset(), TieBreakNearestFirst)
	ctx := context.Background()

	conv, err := r.Convert(ctx, OldKey(1, 5, 21), 0)
	require.NoError(t, err)
	assert.Equal(t, models.StructureOld, conv.Structure)
	require.NotNil(t, conv.Forward)

	conv, err = r.Convert(ctx, NewKey("01", "00008"), 0)
	require.NoError(t, err)
	assert.Len(t, conv.Reverse, 2)

	_, err = r.Convert(ctx, AddressKey{Structure: models.StructureOld, New: &NewAddressKey{"01", "00008"}}, 0)
	assert.True(t, errors.Is(err, ErrInvalidKey))

	n, err := r.Normalize(ctx, OldKey(1, 5, 21), 70)
	require.NoError(t, err)
	assert.Equal(t, []OldAddressKey{{1, 5, 21}}, n.Old)
	assert.Equal(t, []NewAddressKey{{"01", "00005"}}, n.New)

	n, err = r.Normalize(ctx, OldKey(1, 5, 999), 0)
	require.NoError(t, err)
	assert.Empty(t, n.New)

	n, err = r.Normalize(ctx, NewKey("01", "00008"), 0)
	require.NoError(t, err)
	assert.Len(t, n.Old, 2)
}

func TestConvertBatch(t *testing.T) {
	r := newTestResolver(t, testutil.Dataset(), TieBreakNearestFirst)

	keys := []OldAddressKey{{1, 5, 20}, {0, 5, 20}, {1, 5, 999}, {1, 5, 21}}
	items := r.ConvertBatch(context.Background(), keys, BatchOptions{Workers: 2, ItemTimeout: time.Second})
	require.Len(t, items, len(keys))

	for i, item := range items {
		assert.Equal(t, i, item.Index)
		assert.Equal(t, keys[i], item.Key)
	}
	require.NotNil(t, items[0].Result)
	assert.Equal(t, "00004", items[0].Result.Default.NewWardCode)
	require.NotNil(t, items[1].Error)
	assert.Equal(t, ErrCodeInvalidRequest, items[1].Error.Code)
	require.NotNil(t, items[2].Error)
	assert.Equal(t, ErrCodeNotFound, items[2].Error.Code)
	require.NotNil(t, items[3].Result)
	assert.Len(t, items[3].Result.Candidates, 1)
}

func TestRunBatch_ItemTimeout(t *testing.T) {
	slow := func(ctx context.Context, key OldAddressKey, _ int) (*Forward, error) {
		if key.WardID == 2 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &Forward{Key: key}, nil
	}
	keys := []OldAddressKey{{1, 1, 1}, {1, 1, 2}, {1, 1, 3}}
	items := RunBatch(context.Background(), keys, BatchOptions{Workers: 3, ItemTimeout: 20 * time.Millisecond}, slow)

	assert.NotNil(t, items[0].Result)
	require.NotNil(t, items[1].Error)
	assert.Equal(t, ErrCodeTimeout, items[1].Error.Code)
	assert.NotNil(t, items[2].Result)
}

func TestRunBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newTestResolver(t, testutil.Dataset(), TieBreakNearestFirst)

	items := r.ConvertBatch(ctx, []OldAddressKey{{1, 5, 20}}, BatchOptions{Workers: 1})
	require.NotNil(t, items[0].Error)
	assert.Equal(t, ErrCodeCancelled, items[0].Error.Code)
}

func TestParseTieBreak(t *testing.T) {
	tb, err := ParseTieBreak("")
	require.NoError(t, err)
	assert.Equal(t, TieBreakNearestFirst, tb)

	tb, err = ParseTieBreak("POLYGON_FIRST")
	require.NoError(t, err)
	assert.Equal(t, TieBreakPolygonFirst, tb)

	_, err = ParseTieBreak("random")
	assert.Error(t, err)
}
