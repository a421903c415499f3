package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/address-converter/app/config"
	"github.com/address-converter/internal/conversion"
	"github.com/address-converter/internal/metrics"
)

// HybridCacheService cache hai tầng: LRU in-memory (L1) + Redis (L2, tùy chọn)
type HybridCacheService struct {
	l1      *LRUCacheService
	l2      ICacheService
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewHybridCacheService tạo mới hybrid cache. l2 có thể nil khi không cấu hình Redis.
func NewHybridCacheService(l1 *LRUCacheService, l2 ICacheService, m *metrics.Metrics, logger *zap.Logger) *HybridCacheService {
	return &HybridCacheService{l1: l1, l2: l2, metrics: m, logger: logger}
}

// NewCacheFromConfig dựng cache theo cấu hình. Cache tắt thì trả nil;
// Redis không kết nối được thì chạy chỉ với L1.
func NewCacheFromConfig(cfg config.CacheCfg, m *metrics.Metrics, logger *zap.Logger) (ICacheService, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	l1, err := NewLRUCacheService(cfg.L1Size, logger)
	if err != nil {
		return nil, err
	}

	var l2 ICacheService
	if cfg.RedisURL != "" {
		redisCache, err := NewRedisCacheService(cfg.RedisURL, cfg.TTL(), logger)
		if err != nil {
			logger.Warn("Redis không khả dụng, chỉ dùng L1", zap.Error(err))
		} else {
			l2 = redisCache
		}
	}
	return NewHybridCacheService(l1, l2, m, logger), nil
}

// Get L1 trước, L2 sau; hit ở L2 được đẩy lên L1
func (hcs *HybridCacheService) Get(ctx context.Context, key string) (*conversion.Conversion, bool, error) {
	if v, ok, _ := hcs.l1.Get(ctx, key); ok {
		hcs.metrics.CacheHit("l1")
		return v, true, nil
	}
	hcs.metrics.CacheMiss("l1")

	if hcs.l2 == nil {
		return nil, false, nil
	}
	v, ok, err := hcs.l2.Get(ctx, key)
	if err != nil {
		// Redis lỗi không làm hỏng request, coi như miss
		hcs.logger.Warn("Lỗi L2 cache, bỏ qua", zap.String("key", key), zap.Error(err))
		hcs.metrics.CacheMiss("l2")
		return nil, false, nil
	}
	if !ok {
		hcs.metrics.CacheMiss("l2")
		return nil, false, nil
	}
	hcs.metrics.CacheHit("l2")
	_ = hcs.l1.Set(ctx, key, v)
	return v, true, nil
}

// Set lưu vào L1 đồng bộ, L2 ở background
func (hcs *HybridCacheService) Set(ctx context.Context, key string, value *conversion.Conversion) error {
	_ = hcs.l1.Set(ctx, key, value)
	if hcs.l2 == nil {
		return nil
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := hcs.l2.Set(bgCtx, key, value); err != nil {
			hcs.logger.Warn("Lỗi lưu vào L2 cache", zap.String("key", key), zap.Error(err))
		}
	}()
	return nil
}

// Delete xóa key ở cả hai tầng
func (hcs *HybridCacheService) Delete(ctx context.Context, key string) error {
	_ = hcs.l1.Delete(ctx, key)
	if hcs.l2 != nil {
		return hcs.l2.Delete(ctx, key)
	}
	return nil
}

// Clear xóa toàn bộ cả hai tầng
func (hcs *HybridCacheService) Clear(ctx context.Context) error {
	_ = hcs.l1.Clear(ctx)
	if hcs.l2 != nil {
		if err := hcs.l2.Clear(ctx); err != nil {
			return fmt.Errorf("clear L2: %w", err)
		}
	}
	hcs.logger.Info("Cleared hybrid cache")
	return nil
}

// InvalidateBySnapshotVersion xóa khóa của snapshot cũ ở cả hai tầng
func (hcs *HybridCacheService) InvalidateBySnapshotVersion(ctx context.Context, currentVersion string) error {
	var errs []error
	if err := hcs.l1.InvalidateBySnapshotVersion(ctx, currentVersion); err != nil {
		errs = append(errs, err)
	}
	if hcs.l2 != nil {
		if err := hcs.l2.InvalidateBySnapshotVersion(ctx, currentVersion); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetStats cộng dồn thống kê của hai tầng
func (hcs *HybridCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	l1, _ := hcs.l1.GetStats(ctx)
	if hcs.l2 == nil {
		return l1, nil
	}
	l2, err := hcs.l2.GetStats(ctx)
	if err != nil {
		hcs.logger.Warn("Không lấy được thống kê L2", zap.Error(err))
		return l1, nil
	}
	// miss ở L1 rồi hit ở L2 vẫn là hit của cả cache
	hits := l1.TotalHits + l2.TotalHits
	return newCacheStats(hits, l2.TotalMiss, l1.TotalItems+l2.TotalItems), nil
}

// Close đóng L2
func (hcs *HybridCacheService) Close() error {
	if hcs.l2 != nil {
		return hcs.l2.Close()
	}
	return nil
}
