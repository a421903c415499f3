package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/address-converter/internal/conversion"
	"github.com/address-converter/internal/metrics"
)

// memoryCache L2 giả lập trong bộ nhớ
type memoryCache struct {
	mu     sync.Mutex
	data   map[string]*conversion.Conversion
	getErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string]*conversion.Conversion)}
}

func (m *memoryCache) Get(_ context.Context, key string) (*conversion.Conversion, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryCache) Set(_ context.Context, key string, v *conversion.Conversion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = v
	return nil
}

func (m *memoryCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryCache) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]*conversion.Conversion)
	return nil
}

func (m *memoryCache) InvalidateBySnapshotVersion(_ context.Context, current string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if versionOf(k) != current {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *memoryCache) GetStats(_ context.Context) (*CacheStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return newCacheStats(0, 0, int64(len(m.data))), nil
}

func (m *memoryCache) Close() error { return nil }

func sampleConversion() *conversion.Conversion {
	return &conversion.Conversion{Structure: "OLD", Forward: &conversion.Forward{Level: conversion.LevelWard}}
}

func TestCacheKeys(t *testing.T) {
	fk := ForwardCacheKey("v1", conversion.OldAddressKey{ProvinceID: 1, DistrictID: 5, WardID: 20}, 70)
	rk := ReverseCacheKey("v1", conversion.NewAddressKey{ProvinceCode: "01", WardCode: "00008"})

	assert.Equal(t, "v1:fwd:1/5/20:70", fk)
	assert.Equal(t, "v1:rev:01/00008", rk)
	assert.Equal(t, "v1", versionOf(fk))
	assert.Equal(t, "v1", versionOf(rk))
}

func TestLRUCacheService(t *testing.T) {
	ctx := context.Background()
	c, err := NewLRUCacheService(2, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "v1:a", sampleConversion()))
	require.NoError(t, c.Set(ctx, "v1:b", sampleConversion()))
	require.NoError(t, c.Set(ctx, "v2:c", sampleConversion()))

	// dung lượng 2: khóa cũ nhất bị loại
	_, ok, _ := c.Get(ctx, "v1:a")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "v2:c")
	assert.True(t, ok)

	require.NoError(t, c.InvalidateBySnapshotVersion(ctx, "v2"))
	_, ok, _ = c.Get(ctx, "v1:b")
	assert.False(t, ok)

	stats, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalHits)
	assert.Equal(t, int64(2), stats.TotalMiss)
	assert.Equal(t, int64(1), stats.TotalItems)
	assert.InDelta(t, 1.0/3, stats.HitRate, 1e-9)

	require.NoError(t, c.Clear(ctx))
	stats, _ = c.GetStats(ctx)
	assert.Equal(t, int64(0), stats.TotalItems)
}

func TestHybridCacheService_L2PromotesToL1(t *testing.T) {
	ctx := context.Background()
	l1, err := NewLRUCacheService(10, zap.NewNop())
	require.NoError(t, err)
	l2 := newMemoryCache()
	m := metrics.New()
	h := NewHybridCacheService(l1, l2, m, zap.NewNop())

	require.NoError(t, l2.Set(ctx, "v1:x", sampleConversion()))

	v, ok, err := h.Get(ctx, "v1:x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, conversion.LevelWard, v.Forward.Level)

	_, ok, _ = l1.Get(ctx, "v1:x")
	assert.True(t, ok, "hit ở L2 phải được đẩy lên L1")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("l2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("l1")))
}

func TestHybridCacheService_SetWritesBothLayers(t *testing.T) {
	ctx := context.Background()
	l1, _ := NewLRUCacheService(10, zap.NewNop())
	l2 := newMemoryCache()
	h := NewHybridCacheService(l1, l2, nil, zap.NewNop())

	require.NoError(t, h.Set(ctx, "v1:y", sampleConversion()))
	_, ok, _ := l1.Get(ctx, "v1:y")
	assert.True(t, ok)
	assert.Eventually(t, func() bool { return l2.has("v1:y") }, time.Second, 10*time.Millisecond)

	require.NoError(t, h.InvalidateBySnapshotVersion(ctx, "v2"))
	_, ok, _ = h.Get(ctx, "v1:y")
	assert.False(t, ok)
}

func TestHybridCacheService_L2ErrorIsMiss(t *testing.T) {
	l1, _ := NewLRUCacheService(10, zap.NewNop())
	l2 := newMemoryCache()
	l2.getErr = errors.New("connection refused")
	h := NewHybridCacheService(l1, l2, nil, zap.NewNop())

	v, ok, err := h.Get(context.Background(), "v1:z")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestHybridCacheService_WithoutL2(t *testing.T) {
	ctx := context.Background()
	l1, _ := NewLRUCacheService(10, zap.NewNop())
	h := NewHybridCacheService(l1, nil, nil, zap.NewNop())

	require.NoError(t, h.Set(ctx, "v1:k", sampleConversion()))
	_, ok, err := h.Get(ctx, "v1:k")
	require.NoError(t, err)
	assert.True(t, ok)

	stats, err := h.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalItems)
	assert.NoError(t, h.Close())
}
