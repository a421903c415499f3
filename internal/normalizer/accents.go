package normalizer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var reSpaces = regexp.MustCompile(`\s+`)

// Tiền tố loại đơn vị hành chính, dài trước ngắn sau
var adminPrefixes = []string{
	"thành phố ", "thanh pho ", "thị trấn ", "thi tran ", "thị xã ", "thi xa ",
	"tỉnh ", "tinh ", "quận ", "quan ", "huyện ", "huyen ", "phường ", "phuong ", "xã ", "xa ",
	"tp. ", "tp ", "q. ", "p. ",
}

// StripDiacritics loại bỏ dấu tiếng Việt, giữ nguyên chữ đ
func StripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	out, _, _ := transform.String(t, s)
	return out
}

// isMn kiểm tra xem rune có phải là diacritic mark không
func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}

// Clean chuẩn hóa NFC, lowercase, gộp khoảng trắng
func Clean(s string) string {
	s = norm.NFC.String(s)
	s = reSpaces.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.ToLower(s)
}

// Fold bỏ dấu hoàn toàn (kể cả đ -> d) để so khớp không phân biệt dấu
func Fold(s string) string {
	return strings.ToLower(unidecode.Unidecode(StripDiacritics(Clean(s))))
}

// StripAdminPrefix bỏ tiền tố loại đơn vị ("Phường ", "Quận ", "TP. "...) khỏi chuỗi đã Clean
func StripAdminPrefix(s string) string {
	for _, p := range adminPrefixes {
		if strings.HasPrefix(s, p) {
			return strings.TrimSpace(s[len(p):])
		}
	}
	return s
}
