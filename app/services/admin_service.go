package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/metrics"
	"github.com/address-converter/internal/registry"
	"github.com/address-converter/internal/store"
)

// ErrIndexerDisabled chưa cấu hình Meilisearch
var ErrIndexerDisabled = errors.New("search indexer chưa được cấu hình")

// SnapshotIndexer xuất snapshot sang chỉ mục tìm kiếm bên ngoài
type SnapshotIndexer interface {
	IndexSnapshot(ctx context.Context, snap *registry.Snapshot) (int, error)
}

// ReloadResult kết quả reload snapshot
type ReloadResult struct {
	SnapshotVersion string         `json:"snapshot_version"`
	PreviousVersion string         `json:"previous_version"`
	Counts          map[string]int `json:"counts"`
	Issues          int            `json:"consistency_issues"`
	ProcessingMs    int64          `json:"processing_time_ms"`
}

// CorrectionResult kết quả áp dụng một bản sửa mapping
type CorrectionResult struct {
	Deactivated []int64                    `json:"deactivated"`
	Inserted    []models.ConversionMapping `json:"inserted"`
	Reload      *ReloadResult              `json:"reload,omitempty"`
}

// IndexResult kết quả xuất chỉ mục
type IndexResult struct {
	SnapshotVersion string `json:"snapshot_version"`
	Documents       int    `json:"documents"`
	ProcessingMs    int64  `json:"processing_time_ms"`
}

// SystemStats thống kê hệ thống
type SystemStats struct {
	SnapshotVersion string         `json:"snapshot_version"`
	LoadedAt        time.Time      `json:"loaded_at"`
	Counts          map[string]int `json:"counts"`
	Cache           *CacheStats    `json:"cache,omitempty"`
	Uptime          string         `json:"uptime"`
	Goroutines      int            `json:"goroutines"`
	MemoryAllocMB   float64        `json:"memory_alloc_mb"`
}

// AdminService reload snapshot, sửa mapping, kiểm tra nhất quán và xuất chỉ mục
type AdminService struct {
	holder    *registry.Holder
	store     store.Store
	cache     ICacheService
	indexer   SnapshotIndexer
	metrics   *metrics.Metrics
	logger    *zap.Logger
	startTime time.Time

	// tuần tự hóa reload và correction
	mu sync.Mutex
}

// NewAdminService tạo mới AdminService. cache, indexer và m có thể nil.
func NewAdminService(holder *registry.Holder, st store.Store, cache ICacheService, indexer SnapshotIndexer, m *metrics.Metrics, logger *zap.Logger) *AdminService {
	return &AdminService{
		holder:    holder,
		store:     st,
		cache:     cache,
		indexer:   indexer,
		metrics:   m,
		logger:    logger,
		startTime: time.Now(),
	}
}

// Reload đọc lại dữ liệu từ store và thay snapshot hiện hành
func (as *AdminService) Reload(ctx context.Context) (*ReloadResult, error) {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.reloadLocked(ctx)
}

func (as *AdminService) reloadLocked(ctx context.Context) (*ReloadResult, error) {
	start := time.Now()
	ds, err := as.store.LoadDataset(ctx)
	if err != nil {
		as.metrics.ObserveReload("error", nil)
		return nil, fmt.Errorf("lỗi đọc dữ liệu từ store: %w", err)
	}
	snap, err := registry.NewSnapshot(ds)
	if err != nil {
		as.metrics.ObserveReload("error", nil)
		return nil, fmt.Errorf("lỗi dựng snapshot: %w", err)
	}

	old := as.holder.Swap(snap)
	if as.cache != nil {
		if err := as.cache.InvalidateBySnapshotVersion(ctx, snap.Version()); err != nil {
			as.logger.Warn("Không invalidate được cache", zap.Error(err))
		}
	}

	issues := registry.CheckConsistency(snap)
	if len(issues) > 0 {
		as.logger.Warn("Snapshot có sai lệch dữ liệu", zap.Int("issues", len(issues)))
	}
	counts := snap.Counts()
	as.metrics.ObserveReload("ok", counts)

	res := &ReloadResult{
		SnapshotVersion: snap.Version(),
		Counts:          counts,
		Issues:          len(issues),
		ProcessingMs:    time.Since(start).Milliseconds(),
	}
	if old != nil {
		res.PreviousVersion = old.Version()
	}
	as.logger.Info("Snapshot reloaded",
		zap.String("snapshot_version", res.SnapshotVersion),
		zap.String("previous_version", res.PreviousVersion),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}

// ApplyCorrection kiểm tra bản sửa trên snapshot hiện tại, ghi trong một giao dịch rồi reload
func (as *AdminService) ApplyCorrection(ctx context.Context, c registry.Correction) (*CorrectionResult, error) {
	as.mu.Lock()
	defer as.mu.Unlock()

	if err := as.holder.Load().ValidateCorrection(c); err != nil {
		as.metrics.IncCorrection("invalid")
		return nil, err
	}

	inserted, err := as.store.ApplyCorrection(ctx, c)
	if err != nil {
		as.metrics.IncCorrection("error")
		return nil, fmt.Errorf("lỗi ghi correction: %w", err)
	}
	as.metrics.IncCorrection("ok")
	as.logger.Info("Correction applied",
		zap.Int64s("deactivated", c.Deactivate),
		zap.Int("inserted", len(inserted)),
		zap.String("note", c.Note))

	res := &CorrectionResult{Deactivated: c.Deactivate, Inserted: inserted}
	reload, err := as.reloadLocked(ctx)
	if err != nil {
		// dữ liệu đã ghi, snapshot cũ vẫn phục vụ đến lần reload sau
		return res, fmt.Errorf("correction đã ghi nhưng reload lỗi: %w", err)
	}
	res.Reload = reload
	return res, nil
}

// Consistency đối chiếu snapshot hiện hành
func (as *AdminService) Consistency(ctx context.Context) ([]registry.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	issues := registry.CheckConsistency(as.holder.Load())
	if issues == nil {
		issues = []registry.Issue{}
	}
	return issues, nil
}

// IndexSearch xuất snapshot hiện hành sang Meilisearch
func (as *AdminService) IndexSearch(ctx context.Context) (*IndexResult, error) {
	if as.indexer == nil {
		return nil, ErrIndexerDisabled
	}
	start := time.Now()
	snap := as.holder.Load()
	n, err := as.indexer.IndexSnapshot(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("lỗi xuất chỉ mục: %w", err)
	}
	return &IndexResult{
		SnapshotVersion: snap.Version(),
		Documents:       n,
		ProcessingMs:    time.Since(start).Milliseconds(),
	}, nil
}

// Stats thống kê snapshot, cache và runtime
func (as *AdminService) Stats(ctx context.Context) (*SystemStats, error) {
	snap := as.holder.Load()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := &SystemStats{
		SnapshotVersion: snap.Version(),
		LoadedAt:        snap.LoadedAt(),
		Counts:          snap.Counts(),
		Uptime:          time.Since(as.startTime).Round(time.Second).String(),
		Goroutines:      runtime.NumGoroutine(),
		MemoryAllocMB:   float64(mem.Alloc) / 1024 / 1024,
	}
	if as.cache != nil {
		cs, err := as.cache.GetStats(ctx)
		if err != nil {
			as.logger.Warn("Không lấy được thống kê cache", zap.Error(err))
		}
		stats.Cache = cs
	}
	return stats, nil
}

// Ready snapshot đã có dữ liệu
func (as *AdminService) Ready() bool {
	for _, n := range as.holder.Load().Counts() {
		if n > 0 {
			return true
		}
	}
	return false
}

// SnapshotVersion phiên bản snapshot hiện hành
func (as *AdminService) SnapshotVersion() string {
	return as.holder.Load().Version()
}
