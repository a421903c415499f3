package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/address-converter/app/config"
	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/address"
	"github.com/address-converter/internal/history"
	"github.com/address-converter/internal/metrics"
	"github.com/address-converter/internal/registry"
	"github.com/address-converter/internal/search"
)

// ErrInvalidKind loại đơn vị không hợp lệ
var ErrInvalidKind = errors.New("invalid unit kind")

// UnitDetail đơn vị kèm chuỗi đơn vị cha
type UnitDetail struct {
	registry.Unit
	FullName  string          `json:"full_name"`
	Level     int             `json:"level"`
	Ancestors []registry.Unit `json:"ancestors"`
}

// SearchResult kết quả tìm kiếm, kèm gợi ý khi không có kết quả
type SearchResult struct {
	Query       string              `json:"query"`
	Matches     []search.Match      `json:"matches"`
	Suggestions []search.Suggestion `json:"suggestions,omitempty"`
}

// AddressService tra cứu, tìm kiếm, lịch sử sáp nhập và dựng địa chỉ
type AddressService struct {
	holder   *registry.Holder
	searcher *search.Searcher
	reporter *history.Reporter
	builder  *address.Builder
	metrics  *metrics.Metrics
	cfg      config.SearchCfg
	logger   *zap.Logger

	startTime time.Time
}

// NewAddressService tạo mới AddressService
func NewAddressService(holder *registry.Holder, cfg config.SearchCfg, m *metrics.Metrics, logger *zap.Logger) *AddressService {
	return &AddressService{
		holder: holder,
		searcher: search.NewSearcher(holder, search.Options{
			FoldDiacritics: cfg.FoldDiacritics,
			DefaultLimit:   cfg.DefaultLimit,
			MaxLimit:       cfg.MaxLimit,
		}, logger),
		reporter: history.NewReporter(holder, logger),
		builder:  address.NewBuilder(holder, logger),
		metrics:  m,
		cfg:      cfg,
		logger:   logger,

		startTime: time.Now(),
	}
}

// GetStartTime thời điểm service khởi động
func (as *AddressService) GetStartTime() time.Time {
	return as.startTime
}

// SnapshotVersion phiên bản snapshot đang phục vụ
func (as *AddressService) SnapshotVersion() string {
	return as.holder.Load().Version()
}

// SearchAddress tìm kiếm tự do; không có kết quả thì kèm gợi ý gần đúng
func (as *AddressService) SearchAddress(ctx context.Context, query string, includeMerged bool, limit int) (*SearchResult, error) {
	start := time.Now()
	matches, err := as.searcher.SearchAddress(ctx, query, includeMerged, limit)
	if err != nil {
		return nil, err
	}
	as.metrics.ObserveSearch("search", len(matches) > 0, time.Since(start))

	res := &SearchResult{Query: query, Matches: matches}
	if len(matches) == 0 {
		sugg, err := as.searcher.Suggest(ctx, query, 5, as.cfg.SuggestThreshold)
		if err != nil {
			as.logger.Debug("Không lấy được gợi ý", zap.String("query", query), zap.Error(err))
		}
		res.Suggestions = sugg
	}
	return res, nil
}

// Suggest gợi ý "có phải bạn muốn tìm"
func (as *AddressService) Suggest(ctx context.Context, query string, limit int) ([]search.Suggestion, error) {
	start := time.Now()
	sugg, err := as.searcher.Suggest(ctx, query, limit, as.cfg.SuggestThreshold)
	if err != nil {
		return nil, err
	}
	as.metrics.ObserveSearch("suggest", len(sugg) > 0, time.Since(start))
	return sugg, nil
}

// ValidateAddress kiểm tra request và dựng AddressMetadata + chuỗi hiển thị
func (as *AddressService) ValidateAddress(ctx context.Context, req address.Request) (*address.Address, error) {
	return as.builder.Build(ctx, req)
}

// GetMergeHistory lịch sử sáp nhập của một đơn vị
func (as *AddressService) GetMergeHistory(ctx context.Context, unitType models.UnitType, code string) (*history.MergeHistory, error) {
	return as.reporter.GetMergeHistory(ctx, unitType, code)
}

// FindUnit tra cứu đơn vị theo mã hoặc id
func (as *AddressService) FindUnit(ctx context.Context, kind, ref string, includeInactive bool) (*UnitDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k, err := parseKind(kind)
	if err != nil {
		return nil, err
	}
	snap := as.holder.Load()
	u, err := snap.FindUnit(k, ref, scopeOf(includeInactive))
	if err != nil {
		return nil, err
	}
	return &UnitDetail{
		Unit:      u,
		FullName:  u.FullName(),
		Level:     k.Level(),
		Ancestors: snap.Ancestors(u),
	}, nil
}

// ListChildren đơn vị con trực tiếp của đơn vị ref
func (as *AddressService) ListChildren(ctx context.Context, kind, ref string, includeInactive bool) ([]registry.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k, err := parseKind(kind)
	if err != nil {
		return nil, err
	}
	snap := as.holder.Load()
	// đơn vị cha có thể đã ngừng hiệu lực, vẫn cho liệt kê con
	u, err := snap.FindUnit(k, ref, registry.ScopeAll)
	if err != nil {
		return nil, err
	}
	return snap.ListChildren(k, u.ID, scopeOf(includeInactive))
}

func parseKind(kind string) (registry.Kind, error) {
	k, err := registry.ParseKind(kind)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKind, err)
	}
	return k, nil
}

func scopeOf(includeInactive bool) registry.Scope {
	if includeInactive {
		return registry.ScopeAll
	}
	return registry.ScopeActive
}
