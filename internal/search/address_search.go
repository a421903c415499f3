package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/address-converter/app/models"
	"github.com/address-converter/internal/normalizer"
	"github.com/address-converter/internal/registry"
)

// ErrEmptyQuery query rỗng sau khi chuẩn hóa
var ErrEmptyQuery = errors.New("query không được để trống")

const (
	scoreExact  = 1.0
	scorePrefix = 0.9
	// Điểm "chứa" luôn thấp hơn điểm "bắt đầu bằng"
	maxContainsScore = 0.89
)

// SnapshotSource nguồn snapshot hiện hành
type SnapshotSource interface {
	Load() *registry.Snapshot
}

// Options cấu hình searcher
type Options struct {
	FoldDiacritics bool
	DefaultLimit   int
	MaxLimit       int
}

// Match một kết quả tìm kiếm có điểm
type Match struct {
	Kind      registry.Kind           `json:"kind"`
	Structure models.StructureVersion `json:"structure"`
	UnitType  models.UnitType         `json:"unit_type"`
	Level     int                     `json:"level"`
	ID        int64                   `json:"id"`
	Code      string                  `json:"code,omitempty"`
	Name      string                  `json:"name"`
	FullName  string                  `json:"full_name"`
	Path      string                  `json:"path,omitempty"`
	Score     float64                 `json:"score"`
	MatchedOn string                  `json:"matched_on"`
	IsMerged  bool                    `json:"is_merged"`
	IsActive  bool                    `json:"is_active"`
}

// Searcher tìm kiếm tự do trên cả hai sổ đăng ký
type Searcher struct {
	src    SnapshotSource
	opts   Options
	logger *zap.Logger
}

// NewSearcher tạo searcher mới
func NewSearcher(src SnapshotSource, opts Options, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	return &Searcher{src: src, opts: opts, logger: logger}
}

// Score điểm khớp của query với text: khớp hoàn toàn 1.0, bắt đầu bằng 0.9,
// chứa ở vị trí idx: 0.5 + 0.25*(1 - idx/len) + 0.25*(qlen/len), tính theo rune.
func Score(text, query string) float64 {
	t := normalizer.Clean(text)
	q := normalizer.Clean(query)
	if t == "" || q == "" {
		return 0
	}
	if t == q {
		return scoreExact
	}
	if strings.HasPrefix(t, q) {
		return scorePrefix
	}
	idx := strings.Index(t, q)
	if idx < 0 {
		return 0
	}
	textLen := float64(utf8.RuneCountInString(t))
	pos := float64(utf8.RuneCountInString(t[:idx]))
	queryLen := float64(utf8.RuneCountInString(q))
	score := 0.5 + 0.25*(1-pos/textLen) + 0.25*(queryLen/textLen)
	if score > maxContainsScore {
		score = maxContainsScore
	}
	return score
}

// SearchAddress tìm đơn vị theo tên. includeMerged = true thêm đơn vị đã sáp nhập/ngừng hiệu lực
// và so khớp cả tên gốc; khớp qua tên gốc đánh dấu IsMerged trên chính kết quả đó.
func (s *Searcher) SearchAddress(ctx context.Context, query string, includeMerged bool, limit int) ([]Match, error) {
	start := time.Now()
	q := normalizer.Clean(query)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q = normalizer.ExpandAliases(q)
	limit = s.clampLimit(limit)
	snap := s.src.Load()

	scope := registry.ScopeActive
	if includeMerged {
		scope = registry.ScopeAll
	}

	stripped := normalizer.StripAdminPrefix(q)
	folded := normalizer.Fold(q)
	foldedStripped := normalizer.StripAdminPrefix(folded)

	var matches []Match
	for _, u := range snap.Units(scope) {
		if u.IsMerged && !includeMerged {
			continue
		}
		score := s.score(u.Name, q, stripped, folded, foldedStripped)
		matchedOn := "name"
		isMerged := u.IsMerged
		if includeMerged && u.OriginalName != "" && u.OriginalName != u.Name {
			if alt := s.score(u.OriginalName, q, stripped, folded, foldedStripped); alt > score {
				score = alt
				matchedOn = "original_name"
				isMerged = true
			}
		}
		if score <= 0 {
			continue
		}
		matches = append(matches, Match{
			Kind:      u.Kind,
			Structure: u.Structure,
			UnitType:  u.Kind.UnitType(),
			Level:     u.Kind.Level(),
			ID:        u.ID,
			Code:      u.Code,
			Name:      u.Name,
			FullName:  u.FullName(),
			Path:      pathOf(snap, u),
			Score:     score,
			MatchedOn: matchedOn,
			IsMerged:  isMerged,
			IsActive:  u.IsActive,
		})
	}

	sortMatches(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	s.logger.Debug("Tìm kiếm địa chỉ",
		zap.String("query", query),
		zap.Bool("include_merged", includeMerged),
		zap.Int("results", len(matches)),
		zap.Duration("duration", time.Since(start)))
	return matches, nil
}

func (s *Searcher) score(name, q, stripped, folded, foldedStripped string) float64 {
	best := Score(name, q)
	if stripped != q {
		best = maxf(best, Score(name, stripped))
	}
	if s.opts.FoldDiacritics && best < scoreExact {
		fn := normalizer.Fold(name)
		best = maxf(best, Score(fn, folded))
		if foldedStripped != folded {
			best = maxf(best, Score(fn, foldedStripped))
		}
	}
	return best
}

func (s *Searcher) clampLimit(limit int) int {
	if limit <= 0 {
		return s.opts.DefaultLimit
	}
	if limit > s.opts.MaxLimit {
		return s.opts.MaxLimit
	}
	return limit
}

// sortMatches điểm giảm dần, rồi cấp (tỉnh > quận > phường), rồi tên
func sortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ID < b.ID
	})
}

func pathOf(snap *registry.Snapshot, u registry.Unit) string {
	parts := []string{u.FullName()}
	for _, a := range snap.Ancestors(u) {
		parts = append(parts, a.FullName())
	}
	return strings.Join(parts, ", ")
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
