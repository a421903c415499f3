package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/address-converter/internal/conversion"
)

// CacheStats thống kê cache
type CacheStats struct {
	HitRate    float64 `json:"hit_rate"`
	TotalHits  int64   `json:"total_hits"`
	TotalMiss  int64   `json:"total_miss"`
	TotalItems int64   `json:"total_items"`
}

func newCacheStats(hits, misses, items int64) *CacheStats {
	stats := &CacheStats{TotalHits: hits, TotalMiss: misses, TotalItems: items}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// ICacheService cache kết quả chuyển đổi. Khóa luôn bắt đầu bằng phiên bản snapshot
// nên kết quả của snapshot cũ không bao giờ được đọc lại sau khi reload.
type ICacheService interface {
	// Get lấy kết quả chuyển đổi từ cache
	Get(ctx context.Context, key string) (*conversion.Conversion, bool, error)

	// Set lưu kết quả chuyển đổi
	Set(ctx context.Context, key string, value *conversion.Conversion) error

	// Delete xóa một khóa
	Delete(ctx context.Context, key string) error

	// Clear xóa tất cả cache
	Clear(ctx context.Context) error

	// InvalidateBySnapshotVersion xóa mọi khóa không thuộc phiên bản snapshot đang dùng
	InvalidateBySnapshotVersion(ctx context.Context, currentVersion string) error

	// GetStats lấy thống kê cache
	GetStats(ctx context.Context) (*CacheStats, error)

	// Close đóng kết nối (nếu cần)
	Close() error
}

// ForwardCacheKey khóa cache cho chuyển xuôi
func ForwardCacheKey(version string, key conversion.OldAddressKey, minAccuracy int) string {
	return fmt.Sprintf("%s:fwd:%s:%d", version, key, minAccuracy)
}

// ReverseCacheKey khóa cache cho chuyển ngược
func ReverseCacheKey(version string, key conversion.NewAddressKey) string {
	return fmt.Sprintf("%s:rev:%s", version, key)
}

// versionOf phần phiên bản của khóa cache
func versionOf(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}
