// Package search tìm kiếm đơn vị hành chính trên snapshot và xuất chỉ mục sang Meilisearch
package search

import (
	"context"
	"fmt"
	"strconv"
	"time"

	ms "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"github.com/address-converter/internal/normalizer"
	"github.com/address-converter/internal/registry"
)

// MeiliConfig cấu hình cho Meilisearch
type MeiliConfig struct {
	Host      string
	APIKey    string
	IndexName string
	BatchSize int
}

// UnitDocument document Meilisearch của một đơn vị
type UnitDocument struct {
	ID              string        `json:"id"`
	Kind            registry.Kind `json:"kind"`
	UnitID          int64         `json:"unit_id"`
	Code            string        `json:"code,omitempty"`
	Name            string        `json:"name"`
	NormalizedName  string        `json:"normalized_name"`
	OriginalName    string        `json:"original_name,omitempty"`
	FullName        string        `json:"full_name"`
	Path            string        `json:"path"`
	Level           int           `json:"level"`
	Structure       string        `json:"structure"`
	ParentID        *int64        `json:"parent_id,omitempty"`
	IsMerged        bool          `json:"is_merged"`
	IsActive        bool          `json:"is_active"`
	SnapshotVersion string        `json:"snapshot_version"`
}

// MeiliIndexer xuất đơn vị của snapshot sang Meilisearch cho autocomplete bên ngoài
type MeiliIndexer struct {
	cli       ms.ServiceManager
	indexName string
	batchSize int
	logger    *zap.Logger
}

// NewMeiliIndexer tạo indexer và kiểm tra kết nối
func NewMeiliIndexer(cfg MeiliConfig, logger *zap.Logger) (*MeiliIndexer, error) {
	client := ms.New(cfg.Host, ms.WithAPIKey(cfg.APIKey))
	if _, err := client.Health(); err != nil {
		return nil, fmt.Errorf("không thể kết nối Meilisearch: %w", err)
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 1000
	}
	return &MeiliIndexer{cli: client, indexName: cfg.IndexName, batchSize: batch, logger: logger}, nil
}

// BuildDocuments chuyển mọi đơn vị (kể cả đã ngừng hiệu lực) thành document
func BuildDocuments(snap *registry.Snapshot) []UnitDocument {
	units := snap.Units(registry.ScopeAll)
	docs := make([]UnitDocument, 0, len(units))
	for _, u := range units {
		docs = append(docs, UnitDocument{
			ID:              string(u.Kind) + "-" + strconv.FormatInt(u.ID, 10),
			Kind:            u.Kind,
			UnitID:          u.ID,
			Code:            u.Code,
			Name:            u.Name,
			NormalizedName:  normalizer.Fold(u.Name),
			OriginalName:    u.OriginalName,
			FullName:        u.FullName(),
			Path:            pathOf(snap, u),
			Level:           u.Kind.Level(),
			Structure:       string(u.Structure),
			ParentID:        u.ParentID,
			IsMerged:        u.IsMerged,
			IsActive:        u.IsActive,
			SnapshotVersion: snap.Version(),
		})
	}
	return docs
}

// ConfigureIndex cấu hình thuộc tính tìm kiếm và lọc của index
func (mi *MeiliIndexer) ConfigureIndex() error {
	index := mi.cli.Index(mi.indexName)

	task, err := index.UpdateSettings(&ms.Settings{
		SearchableAttributes: []string{"name", "normalized_name", "original_name", "full_name"},
		FilterableAttributes: []string{"kind", "level", "structure", "parent_id", "is_merged", "is_active", "snapshot_version"},
		SortableAttributes:   []string{"level", "code"},
		RankingRules:         []string{"words", "typo", "proximity", "attribute", "sort", "exactness"},
		Synonyms: map[string][]string{
			"tp": {"thanh pho"},
			"q":  {"quan"},
			"p":  {"phuong"},
		},
		TypoTolerance: &ms.TypoTolerance{
			Enabled: true,
			MinWordSizeForTypos: ms.MinWordSizeForTypos{
				OneTypo:  3,
				TwoTypos: 7,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("lỗi cấu hình index: %w", err)
	}
	mi.logger.Info("Đã cấu hình index Meilisearch", zap.String("index", mi.indexName), zap.Int64("task_uid", task.TaskUID))
	return nil
}

// IndexSnapshot nạp document theo lô, trả về số document đã gửi
func (mi *MeiliIndexer) IndexSnapshot(ctx context.Context, snap *registry.Snapshot) (int, error) {
	start := time.Now()
	if err := mi.ConfigureIndex(); err != nil {
		return 0, err
	}
	docs := BuildDocuments(snap)
	index := mi.cli.Index(mi.indexName)

	for i := 0; i < len(docs); i += mi.batchSize {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		end := i + mi.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		task, err := index.AddDocuments(docs[i:end], "id")
		if err != nil {
			return i, fmt.Errorf("lỗi thêm documents batch %d-%d: %w", i, end, err)
		}
		mi.logger.Debug("Đã thêm batch documents",
			zap.Int("from", i),
			zap.Int("to", end),
			zap.Int64("task_uid", task.TaskUID))
	}

	mi.logger.Info("Đã xuất snapshot sang Meilisearch",
		zap.String("snapshot_version", snap.Version()),
		zap.Int("total_documents", len(docs)),
		zap.Duration("duration", time.Since(start)))
	return len(docs), nil
}
