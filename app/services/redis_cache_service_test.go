package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/address-converter/helpers/utils"
	"github.com/address-converter/internal/conversion"
)

// Cần Redis, ví dụ REDIS_URL=redis://localhost:6379/15
func TestRedisCacheService_Integration(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()

	rcs, err := NewRedisCacheService(url, time.Minute, zap.NewNop())
	require.NoError(t, err)
	rcs.prefix = "addr_conv_test_" + utils.GenerateUUID() + ":"
	t.Cleanup(func() {
		_ = rcs.Clear(context.Background())
		_ = rcs.Close()
	})

	key := conversion.OldAddressKey{ProvinceID: 1, DistrictID: 5, WardID: 20}
	oldKey := ForwardCacheKey("v1", key, 0)
	newKey := ForwardCacheKey("v2", key, 0)
	value := &conversion.Conversion{Forward: &conversion.Forward{Key: key, SnapshotVersion: "v1"}}

	require.NoError(t, rcs.Set(ctx, oldKey, value))
	require.NoError(t, rcs.Set(ctx, newKey, value))

	got, ok, err := rcs.Get(ctx, oldKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, key, got.Forward.Key)

	require.NoError(t, rcs.InvalidateBySnapshotVersion(ctx, "v2"))
	_, ok, err = rcs.Get(ctx, oldKey)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = rcs.Get(ctx, newKey)
	require.NoError(t, err)
	assert.True(t, ok)

	// giá trị hỏng coi như miss
	require.NoError(t, rcs.client.Set(ctx, rcs.prefix+"broken", "{", time.Minute).Err())
	_, ok, err = rcs.Get(ctx, "broken")
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := rcs.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalItems)
}

func TestNewRedisCacheService_BadURL(t *testing.T) {
	_, err := NewRedisCacheService("not-a-url", time.Minute, zap.NewNop())
	assert.Error(t, err)
}
