package normalizer

import (
	_ "embed"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/aliases.yaml
var aliasesYAML []byte

// AliasConfig tên gọi khác của đơn vị và loại đơn vị tiếng Anh, load từ YAML nhúng
type AliasConfig struct {
	UnitAliases  map[string]string `yaml:"unit_aliases"`
	EnglishTypes map[string]string `yaml:"english_types"`
}

// LoadAliasConfig load cấu hình alias từ embedded YAML
func LoadAliasConfig() (*AliasConfig, error) {
	cfg := &AliasConfig{}
	if err := yaml.Unmarshal(aliasesYAML, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	aliasOnce sync.Once
	aliases   *AliasConfig
)

func defaultAliases() *AliasConfig {
	aliasOnce.Do(func() {
		cfg, err := LoadAliasConfig()
		if err != nil {
			cfg = &AliasConfig{}
		}
		aliases = cfg
	})
	return aliases
}

// ExpandAliases đổi query đã Clean sang tên chuẩn: "hcm" -> "hồ chí minh",
// "ba dinh district" -> "quận ba dinh". Không khớp thì trả nguyên query.
func ExpandAliases(q string) string {
	cfg := defaultAliases()
	if name, ok := cfg.UnitAliases[Fold(q)]; ok {
		return name
	}

	words := strings.Fields(q)
	if len(words) < 2 {
		return q
	}
	if t, ok := cfg.EnglishTypes[words[len(words)-1]]; ok {
		return t + " " + strings.Join(words[:len(words)-1], " ")
	}
	if t, ok := cfg.EnglishTypes[words[0]]; ok {
		return t + " " + strings.Join(words[1:], " ")
	}
	return q
}
