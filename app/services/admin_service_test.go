package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
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
	"github.com/address-converter/internal/store"
	testdata "github.com/address-converter/internal/testutil"
)

type fakeIndexer struct {
	version string
	err     error
}

func (f *fakeIndexer) IndexSnapshot(_ context.Context, snap *registry.Snapshot) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.version = snap.Version()
	return len(snap.Units(registry.ScopeAll)), nil
}

type adminFixture struct {
	svc     *AdminService
	conv    *ConversionService
	holder  *registry.Holder
	store   *store.GormStore
	indexer *fakeIndexer
	metrics *metrics.Metrics
}

func setupAdmin(t *testing.T) *adminFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	st, err := store.OpenSQLite(dsn, zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := st.DB().DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Seed(context.Background(), testdata.Dataset()))

	holder := registry.NewHolder(nil)
	l1, err := NewLRUCacheService(100, zap.NewNop())
	require.NoError(t, err)
	m := metrics.New()
	cache := NewHybridCacheService(l1, nil, m, zap.NewNop())
	idx := &fakeIndexer{}

	return &adminFixture{
		svc:     NewAdminService(holder, st, cache, idx, m, zap.NewNop()),
		conv:    NewConversionService(holder, config.Defaults().Conversion, cache, m, zap.NewNop()),
		holder:  holder,
		store:   st,
		indexer: idx,
		metrics: m,
	}
}

func TestAdminService_Reload(t *testing.T) {
	f := setupAdmin(t)
	assert.False(t, f.svc.Ready())

	res, err := f.svc.Reload(context.Background())
	require.NoError(t, err)
	assert.True(t, f.svc.Ready())
	assert.Equal(t, f.holder.Load().Version(), res.SnapshotVersion)
	assert.NotEqual(t, res.PreviousVersion, res.SnapshotVersion)
	assert.Equal(t, testdata.Dataset().Counts(), res.Counts)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SnapshotReloadsTotal.WithLabelValues("ok")))
}

func TestAdminService_ApplyCorrection(t *testing.T) {
	f := setupAdmin(t)
	ctx := context.Background()
	_, err := f.svc.Reload(ctx)
	require.NoError(t, err)

	key := conversion.OldAddressKey{ProvinceID: 1, DistrictID: 5, WardID: 21}
	before, err := f.conv.ConvertForward(ctx, key, nil)
	require.NoError(t, err)
	assert.Equal(t, "00005", before.Default.NewWardCode)

	replacement := testdata.Mapping(0, 1, 5, 21, "01", "00006", 85)
	replacement.IsDividedWard = true
	replacement.IsDefaultNewWard = true
	res, err := f.svc.ApplyCorrection(ctx, registry.Correction{
		Deactivate: []int64{2, 3},
		Insert:     []models.ConversionMapping{replacement},
		Note:       "Đội Cấn thuộc Láng",
	})
	require.NoError(t, err)
	require.Len(t, res.Inserted, 1)
	require.NotNil(t, res.Reload)

	// snapshot mới, cache cũ không còn được dùng
	after, err := f.conv.ConvertForward(ctx, key, nil)
	require.NoError(t, err)
	assert.Equal(t, "00006", after.Default.NewWardCode)
	assert.Equal(t, res.Reload.SnapshotVersion, after.SnapshotVersion)
	assert.Empty(t, after.Candidates)
}

func TestAdminService_ApplyCorrectionRejected(t *testing.T) {
	f := setupAdmin(t)
	ctx := context.Background()
	_, err := f.svc.Reload(ctx)
	require.NoError(t, err)
	version := f.holder.Load().Version()

	// bỏ mapping mặc định mà không có thay thế
	_, err = f.svc.ApplyCorrection(ctx, registry.Correction{Deactivate: []int64{2}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrInvalidCorrection))
	assert.Equal(t, version, f.holder.Load().Version(), "không reload khi correction bị từ chối")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CorrectionsTotal.WithLabelValues("invalid")))
}

func TestAdminService_ConsistencyIndexAndStats(t *testing.T) {
	f := setupAdmin(t)
	ctx := context.Background()
	_, err := f.svc.Reload(ctx)
	require.NoError(t, err)

	issues, err := f.svc.Consistency(ctx)
	require.NoError(t, err)
	assert.NotNil(t, issues)

	idx, err := f.svc.IndexSearch(ctx)
	require.NoError(t, err)
	assert.Equal(t, f.holder.Load().Version(), f.indexer.version)
	assert.Greater(t, idx.Documents, 0)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, stats.Counts["conversion_mappings"])
	assert.NotNil(t, stats.Cache)
	assert.Greater(t, stats.Goroutines, 0)
}

func TestAdminService_IndexDisabled(t *testing.T) {
	svc := NewAdminService(testdata.Holder(), nil, nil, nil, nil, zap.NewNop())
	_, err := svc.IndexSearch(context.Background())
	assert.True(t, errors.Is(err, ErrIndexerDisabled))
}
