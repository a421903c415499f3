package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/address-converter/internal/conversion"
	"github.com/address-converter/internal/store"
)

// EnvPrefix tiền tố biến môi trường, ví dụ ADDR_CONVERSION_MIN_ACCURACY
const EnvPrefix = "ADDR"

type AppCfg struct {
	Env string `yaml:"env" mapstructure:"env"`
}

type ConversionCfg struct {
	MinAccuracy   int    `yaml:"min_accuracy" mapstructure:"min_accuracy"`
	TieBreak      string `yaml:"tie_break" mapstructure:"tie_break"`
	BatchWorkers  int    `yaml:"batch_workers" mapstructure:"batch_workers"`
	ItemTimeoutMs int    `yaml:"item_timeout_ms" mapstructure:"item_timeout_ms"`
	MaxBatchSize  int    `yaml:"max_batch_size" mapstructure:"max_batch_size"`
}

// ItemTimeout timeout cho từng phần tử của batch
func (c ConversionCfg) ItemTimeout() time.Duration {
	return time.Duration(c.ItemTimeoutMs) * time.Millisecond
}

type SearchCfg struct {
	DefaultLimit     int     `yaml:"default_limit" mapstructure:"default_limit"`
	MaxLimit         int     `yaml:"max_limit" mapstructure:"max_limit"`
	FoldDiacritics   bool    `yaml:"fold_diacritics" mapstructure:"fold_diacritics"`
	SuggestThreshold float64 `yaml:"suggest_threshold" mapstructure:"suggest_threshold"`
}

type CacheCfg struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	L1Size     int    `yaml:"l1_size" mapstructure:"l1_size"`
	RedisURL   string `yaml:"redis_url" mapstructure:"redis_url"`
	TTLMinutes int    `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// TTL thời gian sống của entry trong Redis
func (c CacheCfg) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

type MeiliCfg struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Host      string `yaml:"host" mapstructure:"host"`
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	IndexName string `yaml:"index_name" mapstructure:"index_name"`
}

type HTTPCfg struct {
	Port             string  `yaml:"port" mapstructure:"port"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	RateLimitBurst   int     `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	RequestTimeoutMs int     `yaml:"request_timeout_ms" mapstructure:"request_timeout_ms"`
	AdminToken       string  `yaml:"admin_token" mapstructure:"admin_token"`
}

// RequestTimeout timeout xử lý một request
func (c HTTPCfg) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

type Config struct {
	App        AppCfg        `yaml:"app" mapstructure:"app"`
	Conversion ConversionCfg `yaml:"conversion" mapstructure:"conversion"`
	Search     SearchCfg     `yaml:"search" mapstructure:"search"`
	Cache      CacheCfg      `yaml:"cache" mapstructure:"cache"`
	Store      store.Config  `yaml:"store" mapstructure:"store"`
	Meili      MeiliCfg      `yaml:"meili" mapstructure:"meili"`
	HTTP       HTTPCfg       `yaml:"http" mapstructure:"http"`
}

var C Config

// Defaults cấu hình mặc định khi không có file
func Defaults() Config {
	return Config{
		App: AppCfg{Env: "development"},
		Conversion: ConversionCfg{
			MinAccuracy:   0,
			TieBreak:      string(conversion.TieBreakNearestFirst),
			BatchWorkers:  8,
			ItemTimeoutMs: 500,
			MaxBatchSize:  1000,
		},
		Search: SearchCfg{
			DefaultLimit:     10,
			MaxLimit:         50,
			FoldDiacritics:   true,
			SuggestThreshold: 0.75,
		},
		Cache: CacheCfg{
			Enabled:    true,
			L1Size:     10000,
			TTLMinutes: 60,
		},
		Store: store.Config{
			Driver:        store.DriverSQLite,
			DSN:           "address.db",
			MongoDatabase: "address_converter",
		},
		Meili: MeiliCfg{
			Host:      "http://localhost:7700",
			IndexName: "admin_units",
		},
		HTTP: HTTPCfg{
			Port:             "8080",
			RateLimitRPS:     100,
			RateLimitBurst:   200,
			RequestTimeoutMs: 1500,
		},
	}
}

// Load đọc file YAML (nếu có) đè lên mặc định, sau đó áp biến môi trường ADDR_*
func Load(path string) error {
	cfg, err := Read(path)
	if err != nil {
		return err
	}
	C = cfg
	return nil
}

// Read như Load nhưng không ghi vào C
func Read(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// chạy bằng mặc định + env
		case err != nil:
			return cfg, fmt.Errorf("lỗi đọc file cấu hình: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("lỗi parse file cấu hình %s: %w", path, err)
			}
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv đăng ký mọi khóa hiện có làm default của viper rồi để AutomaticEnv đè lên
func applyEnv(cfg *Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("lỗi serialize cấu hình: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("lỗi serialize cấu hình: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, val := range flatten("", tree) {
		v.SetDefault(key, val)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("lỗi áp biến môi trường: %w", err)
	}
	return nil
}

func flatten(prefix string, tree map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = v
	}
	return out
}

// Validate kiểm tra giá trị hợp lệ
func (c Config) Validate() error {
	if c.Conversion.MinAccuracy < 0 || c.Conversion.MinAccuracy > 100 {
		return fmt.Errorf("conversion.min_accuracy phải trong khoảng 0-100, nhận %d", c.Conversion.MinAccuracy)
	}
	if _, err := conversion.ParseTieBreak(c.Conversion.TieBreak); err != nil {
		return fmt.Errorf("conversion.tie_break: %w", err)
	}
	if c.Conversion.MaxBatchSize <= 0 {
		return fmt.Errorf("conversion.max_batch_size phải dương")
	}
	if c.Search.SuggestThreshold < 0 || c.Search.SuggestThreshold > 1 {
		return fmt.Errorf("search.suggest_threshold phải trong khoảng 0-1")
	}
	switch strings.ToLower(c.Store.Driver) {
	case store.DriverPostgres, store.DriverSQLite, store.DriverMongo:
	default:
		return fmt.Errorf("store.driver: %w: %q", store.ErrUnknownDriver, c.Store.Driver)
	}
	return nil
}

// ParsedTieBreak thứ tự ưu tiên đã parse, sai giá trị thì về nearest_first
func (c ConversionCfg) ParsedTieBreak() conversion.TieBreak {
	tb, err := conversion.ParseTieBreak(c.TieBreak)
	if err != nil {
		return conversion.TieBreakNearestFirst
	}
	return tb
}

// IsProduction môi trường production
func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}
