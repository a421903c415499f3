package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/address-converter/internal/conversion"
)

const redisKeyPrefix = "addr_conv:"

// RedisCacheService cache dùng chung giữa các instance (L2)
type RedisCacheService struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCacheService tạo mới Redis cache service và kiểm tra kết nối
func NewRedisCacheService(redisURL string, ttl time.Duration, logger *zap.Logger) (*RedisCacheService, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("lỗi parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("không thể kết nối Redis: %w", err)
	}

	return NewRedisCacheServiceWithClient(client, ttl, logger), nil
}

// NewRedisCacheServiceWithClient dùng client có sẵn
func NewRedisCacheServiceWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCacheService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCacheService{
		client: client,
		logger: logger,
		prefix: redisKeyPrefix,
		ttl:    ttl,
	}
}

// Get lấy kết quả từ Redis
func (rcs *RedisCacheService) Get(ctx context.Context, key string) (*conversion.Conversion, bool, error) {
	cacheKey := rcs.prefix + key

	val, err := rcs.client.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		rcs.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lỗi get từ Redis: %w", err)
	}

	var result conversion.Conversion
	if err := json.Unmarshal(val, &result); err != nil {
		rcs.logger.Warn("Cache entry hỏng, bỏ qua", zap.String("key", cacheKey), zap.Error(err))
		rcs.misses.Add(1)
		return nil, false, nil
	}

	rcs.hits.Add(1)
	return &result, true, nil
}

// Set lưu kết quả vào Redis với TTL
func (rcs *RedisCacheService) Set(ctx context.Context, key string, value *conversion.Conversion) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("lỗi marshal cache data: %w", err)
	}
	if err := rcs.client.Set(ctx, rcs.prefix+key, data, rcs.ttl).Err(); err != nil {
		return fmt.Errorf("lỗi set vào Redis: %w", err)
	}
	return nil
}

// Delete xóa key khỏi Redis
func (rcs *RedisCacheService) Delete(ctx context.Context, key string) error {
	if err := rcs.client.Del(ctx, rcs.prefix+key).Err(); err != nil {
		return fmt.Errorf("lỗi delete từ Redis: %w", err)
	}
	return nil
}

// Clear xóa toàn bộ khóa của service
func (rcs *RedisCacheService) Clear(ctx context.Context) error {
	n, err := rcs.deleteMatching(ctx, rcs.prefix+"*", func(string) bool { return true })
	if err != nil {
		return err
	}
	rcs.logger.Info("Đã clear Redis cache", zap.Int("keys_deleted", n))
	return nil
}

// InvalidateBySnapshotVersion xóa khóa của các phiên bản snapshot khác currentVersion
func (rcs *RedisCacheService) InvalidateBySnapshotVersion(ctx context.Context, currentVersion string) error {
	n, err := rcs.deleteMatching(ctx, rcs.prefix+"*", func(key string) bool {
		return versionOf(key[len(rcs.prefix):]) != currentVersion
	})
	if err != nil {
		return err
	}
	rcs.logger.Info("Invalidated Redis cache",
		zap.String("snapshot_version", currentVersion),
		zap.Int("keys_deleted", n))
	return nil
}

// deleteMatching SCAN theo pattern rồi xóa các khóa thỏa match
func (rcs *RedisCacheService) deleteMatching(ctx context.Context, pattern string, match func(string) bool) (int, error) {
	deleted := 0
	iter := rcs.client.Scan(ctx, 0, pattern, 500).Iterator()
	batch := make([]string, 0, 500)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := rcs.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("lỗi xóa keys: %w", err)
		}
		deleted += len(batch)
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		if key := iter.Val(); match(key) {
			batch = append(batch, key)
		}
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("lỗi scan keys: %w", err)
	}
	return deleted, flush()
}

// GetStats thống kê Redis cache
func (rcs *RedisCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	var items int64
	iter := rcs.client.Scan(ctx, 0, rcs.prefix+"*", 1000).Iterator()
	for iter.Next(ctx) {
		items++
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("lỗi đếm keys: %w", err)
	}
	return newCacheStats(rcs.hits.Load(), rcs.misses.Load(), items), nil
}

// Close đóng kết nối Redis
func (rcs *RedisCacheService) Close() error {
	return rcs.client.Close()
}
