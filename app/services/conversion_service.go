package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/address-converter/app/config"
	"github.com/address-converter/app/models"
	"github.com/address-converter/helpers/utils"
	"github.com/address-converter/internal/conversion"
	"github.com/address-converter/internal/metrics"
	"github.com/address-converter/internal/registry"
)

var (
	// ErrEmptyBatch batch không có phần tử nào
	ErrEmptyBatch = errors.New("batch không có địa chỉ nào")
	// ErrBatchTooLarge batch vượt quá max_batch_size
	ErrBatchTooLarge = errors.New("batch vượt quá kích thước cho phép")
	// ErrInvalidAccuracy min_accuracy ngoài khoảng 0-100
	ErrInvalidAccuracy = errors.New("min_accuracy phải trong khoảng 0-100")
)

// BatchResult kết quả của một batch
type BatchResult struct {
	BatchID         string                 `json:"batch_id"`
	SnapshotVersion string                 `json:"snapshot_version"`
	Total           int                    `json:"total"`
	Succeeded       int                    `json:"succeeded"`
	Failed          int                    `json:"failed"`
	LowConfidence   int                    `json:"low_confidence"`
	ProcessingMs    int64                  `json:"processing_time_ms"`
	Items           []conversion.BatchItem `json:"items"`
}

// ConversionService chuyển đổi địa chỉ có cache và metrics
type ConversionService struct {
	resolver *conversion.Resolver
	holder   *registry.Holder
	cache    ICacheService
	metrics  *metrics.Metrics
	cfg      config.ConversionCfg
	logger   *zap.Logger
}

// NewConversionService tạo mới ConversionService. cache và m có thể nil.
func NewConversionService(holder *registry.Holder, cfg config.ConversionCfg, cache ICacheService, m *metrics.Metrics, logger *zap.Logger) *ConversionService {
	return &ConversionService{
		resolver: conversion.NewResolver(holder, conversion.Options{TieBreak: cfg.ParsedTieBreak()}, logger),
		holder:   holder,
		cache:    cache,
		metrics:  m,
		cfg:      cfg,
		logger:   logger,
	}
}

// accuracy ngưỡng của request, nil thì dùng cấu hình
func (cs *ConversionService) accuracy(minAccuracy *int) (int, error) {
	if minAccuracy == nil {
		return cs.cfg.MinAccuracy, nil
	}
	if *minAccuracy < 0 || *minAccuracy > 100 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAccuracy, *minAccuracy)
	}
	return *minAccuracy, nil
}

// ConvertForward chuyển địa chỉ cũ sang cấu trúc mới
func (cs *ConversionService) ConvertForward(ctx context.Context, key conversion.OldAddressKey, minAccuracy *int) (*conversion.Forward, error) {
	acc, err := cs.accuracy(minAccuracy)
	if err != nil {
		return nil, err
	}
	return cs.forward(ctx, key, acc)
}

func (cs *ConversionService) forward(ctx context.Context, key conversion.OldAddressKey, minAccuracy int) (*conversion.Forward, error) {
	start := time.Now()
	version := cs.holder.Load().Version()
	cacheKey := ForwardCacheKey(version, key, minAccuracy)

	if cached := cs.cacheGet(ctx, cacheKey); cached != nil && cached.Forward != nil {
		cs.observeForward(cached.Forward, nil, start)
		return cached.Forward, nil
	}

	fwd, err := cs.resolver.ConvertForward(ctx, key, minAccuracy)
	cs.observeForward(fwd, err, start)
	if err != nil {
		return nil, err
	}
	if fwd.SnapshotVersion == version {
		cs.cacheSet(ctx, cacheKey, &conversion.Conversion{Structure: models.StructureOld, Forward: fwd})
	}
	return fwd, nil
}

// ConvertReverse liệt kê mọi địa chỉ cũ ứng với cặp mã mới
func (cs *ConversionService) ConvertReverse(ctx context.Context, key conversion.NewAddressKey) ([]conversion.Result, error) {
	start := time.Now()
	version := cs.holder.Load().Version()
	cacheKey := ReverseCacheKey(version, key)

	if cached := cs.cacheGet(ctx, cacheKey); cached != nil {
		cs.metrics.ObserveConversion("reverse", string(conversion.LevelWard), outcomeOf(nil), time.Since(start))
		return cached.Reverse, nil
	}

	rev, err := cs.resolver.ConvertReverse(ctx, key)
	cs.metrics.ObserveConversion("reverse", string(conversion.LevelWard), outcomeOf(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	if cs.holder.Load().Version() == version {
		cs.cacheSet(ctx, cacheKey, &conversion.Conversion{Structure: models.StructureNew, Reverse: rev})
	}
	return rev, nil
}

// Convert theo tag của khóa
func (cs *ConversionService) Convert(ctx context.Context, key conversion.AddressKey, minAccuracy *int) (*conversion.Conversion, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if key.Old != nil {
		fwd, err := cs.ConvertForward(ctx, *key.Old, minAccuracy)
		if err != nil {
			return nil, err
		}
		return &conversion.Conversion{Structure: key.Structure, Forward: fwd}, nil
	}
	rev, err := cs.ConvertReverse(ctx, *key.New)
	if err != nil {
		return nil, err
	}
	return &conversion.Conversion{Structure: key.Structure, Reverse: rev}, nil
}

// Normalize biểu diễn địa chỉ lọc ở cả hai cấu trúc
func (cs *ConversionService) Normalize(ctx context.Context, key conversion.AddressKey, minAccuracy *int) (*conversion.Normalized, error) {
	acc, err := cs.accuracy(minAccuracy)
	if err != nil {
		return nil, err
	}
	return cs.resolver.Normalize(ctx, key, acc)
}

// ConvertBatch chuyển xuôi nhiều địa chỉ độc lập với nhau
func (cs *ConversionService) ConvertBatch(ctx context.Context, keys []conversion.OldAddressKey, minAccuracy *int) (*BatchResult, error) {
	if len(keys) == 0 {
		return nil, ErrEmptyBatch
	}
	if cs.cfg.MaxBatchSize > 0 && len(keys) > cs.cfg.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(keys), cs.cfg.MaxBatchSize)
	}
	acc, err := cs.accuracy(minAccuracy)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	batchID := utils.GenerateUUID()
	items := conversion.RunBatch(ctx, keys, conversion.BatchOptions{
		Workers:     cs.cfg.BatchWorkers,
		ItemTimeout: cs.cfg.ItemTimeout(),
		MinAccuracy: acc,
	}, cs.forward)

	res := &BatchResult{
		BatchID:         batchID,
		SnapshotVersion: cs.holder.Load().Version(),
		Total:           len(items),
		Items:           items,
	}
	outcomes := make(map[string]int)
	for _, it := range items {
		if it.Error != nil {
			res.Failed++
			outcomes[string(it.Error.Code)]++
			continue
		}
		res.Succeeded++
		outcomes["ok"]++
		if it.Result.Default == nil {
			res.LowConfidence++
		}
	}
	elapsed := time.Since(start)
	res.ProcessingMs = elapsed.Milliseconds()
	cs.metrics.ObserveBatch(outcomes, elapsed)

	cs.logger.Info("Batch conversion completed",
		zap.String("batch_id", batchID),
		zap.Int("total", res.Total),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed),
		zap.Duration("duration", elapsed))
	return res, nil
}

func (cs *ConversionService) observeForward(fwd *conversion.Forward, err error, start time.Time) {
	level := ""
	if fwd != nil {
		level = string(fwd.Level)
		if fwd.Default == nil && len(fwd.Candidates) > 0 {
			cs.metrics.IncLowConfidence()
		}
	}
	cs.metrics.ObserveConversion("forward", level, outcomeOf(err), time.Since(start))
}

func (cs *ConversionService) cacheGet(ctx context.Context, key string) *conversion.Conversion {
	if cs.cache == nil {
		return nil
	}
	v, ok, err := cs.cache.Get(ctx, key)
	if err != nil {
		cs.logger.Warn("Lỗi đọc cache", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	return v
}

func (cs *ConversionService) cacheSet(ctx context.Context, key string, v *conversion.Conversion) {
	if cs.cache == nil {
		return
	}
	if err := cs.cache.Set(ctx, key, v); err != nil {
		cs.logger.Warn("Lỗi ghi cache", zap.String("key", key), zap.Error(err))
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, conversion.ErrConversionNotFound):
		return "not_found"
	case errors.Is(err, conversion.ErrInvalidKey):
		return "invalid"
	}
	return "error"
}
