package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Vietnamese district", "Ba Đình", "ba dinh"},
		{"Upper case", "HOÀN KIẾM", "hoan kiem"},
		{"Extra spaces", "  Tuyên   Quang ", "tuyen quang"},
		{"Decomposed input", "Hà Nội", "ha noi"},
		{"Already plain", "quang trung", "quang trung"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Fold(tc.input))
		})
	}
}

func TestStripDiacritics_KeepsD(t *testing.T) {
	assert.Equal(t, "Đoi Can", StripDiacritics("Đội Cấn"))
}

func TestClean(t *testing.T) {
	assert.Equal(t, "phường điện biên", Clean(" Phường   Điện Biên "))
}

func TestStripAdminPrefix(t *testing.T) {
	assert.Equal(t, "ba đình", StripAdminPrefix(Clean("Quận Ba Đình")))
	assert.Equal(t, "hà nội", StripAdminPrefix(Clean("Thành phố Hà Nội")))
	assert.Equal(t, "hoan kiem", StripAdminPrefix(Fold("Phường Hoàn Kiếm")))
	assert.Equal(t, "giảng võ", StripAdminPrefix("giảng võ"))
}

func TestExpandAliases(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Abbreviation", "hcm", "hồ chí minh"},
		{"Abbreviation with accents folded", "Sài Gòn", "hồ chí minh"},
		{"English suffix", "ba đình district", "quận ba đình"},
		{"English prefix", "ward điện biên", "phường điện biên"},
		{"Single english word", "district", "district"},
		{"No alias", "giảng võ", "giảng võ"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExpandAliases(Clean(tc.input)))
		})
	}
}

func TestLoadAliasConfig(t *testing.T) {
	cfg, err := LoadAliasConfig()
	assert.NoError(t, err)
	assert.Equal(t, "hà nội", cfg.UnitAliases["hn"])
	assert.Equal(t, "phường", cfg.EnglishTypes["ward"])
}
