package search

import (
	"context"
	"sort"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"

	"github.com/address-converter/internal/normalizer"
	"github.com/address-converter/internal/registry"
)

// Suggestion gợi ý "có phải bạn muốn tìm" khi tìm kiếm không ra kết quả
type Suggestion struct {
	Kind       registry.Kind `json:"kind"`
	ID         int64         `json:"id"`
	Code       string        `json:"code,omitempty"`
	Name       string        `json:"name"`
	FullName   string        `json:"full_name"`
	Path       string        `json:"path,omitempty"`
	Similarity float64       `json:"similarity"`
}

// Similarity độ giống nhau 0..1 giữa hai tên, không phân biệt dấu.
// Kết hợp Jaro-Winkler (ưu tiên tiền tố) và Levenshtein chuẩn hóa theo độ dài.
func Similarity(a, b string) float64 {
	fa := normalizer.StripAdminPrefix(normalizer.Fold(a))
	fb := normalizer.StripAdminPrefix(normalizer.Fold(b))
	if fa == "" || fb == "" {
		return 0
	}
	if fa == fb {
		return 1
	}
	jw := smetrics.JaroWinkler(fa, fb, 0.7, 4)
	maxLen := utf8.RuneCountInString(fa)
	if l := utf8.RuneCountInString(fb); l > maxLen {
		maxLen = l
	}
	lev := 1 - float64(levenshtein.ComputeDistance(fa, fb))/float64(maxLen)
	if lev < 0 {
		lev = 0
	}
	return 0.6*jw + 0.4*lev
}

// Suggest gợi ý đơn vị đang hoạt động có tên gần giống query
func (s *Searcher) Suggest(ctx context.Context, query string, limit int, threshold float64) ([]Suggestion, error) {
	if normalizer.Clean(query) == "" {
		return nil, ErrEmptyQuery
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = s.clampLimit(limit)
	snap := s.src.Load()

	var out []Suggestion
	for _, u := range snap.Units(registry.ScopeActive) {
		if u.IsMerged {
			continue
		}
		sim := Similarity(u.Name, query)
		if sim < threshold {
			continue
		}
		out = append(out, Suggestion{
			Kind:       u.Kind,
			ID:         u.ID,
			Code:       u.Code,
			Name:       u.Name,
			FullName:   u.FullName(),
			Path:       pathOf(snap, u),
			Similarity: sim,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if a.Kind.Level() != b.Kind.Level() {
			return a.Kind.Level() < b.Kind.Level()
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
