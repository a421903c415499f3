package services

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/address-converter/internal/conversion"
)

// LRUCacheService cache in-memory (L1) giới hạn số phần tử
type LRUCacheService struct {
	cache  *lru.Cache[string, *conversion.Conversion]
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// NewLRUCacheService tạo mới LRU cache với size phần tử
func NewLRUCacheService(size int, logger *zap.Logger) (*LRUCacheService, error) {
	if size <= 0 {
		size = 10000
	}
	cache, err := lru.New[string, *conversion.Conversion](size)
	if err != nil {
		return nil, fmt.Errorf("không thể tạo LRU cache: %w", err)
	}
	return &LRUCacheService{cache: cache, logger: logger}, nil
}

// Get lấy kết quả từ L1
func (lcs *LRUCacheService) Get(_ context.Context, key string) (*conversion.Conversion, bool, error) {
	if v, ok := lcs.cache.Get(key); ok {
		lcs.hits.Add(1)
		return v, true, nil
	}
	lcs.misses.Add(1)
	return nil, false, nil
}

// Set lưu vào L1
func (lcs *LRUCacheService) Set(_ context.Context, key string, value *conversion.Conversion) error {
	lcs.cache.Add(key, value)
	return nil
}

// Delete xóa khóa
func (lcs *LRUCacheService) Delete(_ context.Context, key string) error {
	lcs.cache.Remove(key)
	return nil
}

// Clear xóa toàn bộ L1
func (lcs *LRUCacheService) Clear(_ context.Context) error {
	lcs.cache.Purge()
	return nil
}

// InvalidateBySnapshotVersion xóa các khóa của phiên bản cũ
func (lcs *LRUCacheService) InvalidateBySnapshotVersion(_ context.Context, currentVersion string) error {
	removed := 0
	for _, key := range lcs.cache.Keys() {
		if versionOf(key) != currentVersion {
			lcs.cache.Remove(key)
			removed++
		}
	}
	lcs.logger.Debug("Invalidated L1 cache",
		zap.String("snapshot_version", currentVersion),
		zap.Int("removed", removed))
	return nil
}

// GetStats thống kê L1
func (lcs *LRUCacheService) GetStats(_ context.Context) (*CacheStats, error) {
	return newCacheStats(lcs.hits.Load(), lcs.misses.Load(), int64(lcs.cache.Len())), nil
}

// Close không cần làm gì với cache in-memory
func (lcs *LRUCacheService) Close() error { return nil }
