// Command seed nạp dataset JSON vào store đã cấu hình và tùy chọn xuất chỉ mục Meilisearch
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/address-converter/app/config"
	"github.com/address-converter/internal/registry"
	"github.com/address-converter/internal/search"
	"github.com/address-converter/internal/store"
)

func main() {
	configPath := flag.String("config", "config/app.yaml", "đường dẫn file cấu hình")
	dataPath := flag.String("data", "", "file dataset JSON (bắt buộc)")
	index := flag.Bool("index", false, "xuất chỉ mục Meilisearch sau khi seed")
	flag.Parse()

	if *dataPath == "" {
		log.Fatal("-data là bắt buộc")
	}
	if err := config.Load(*configPath); err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}
	cfg := config.C

	logger := initLogger(cfg)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ds, err := store.LoadDatasetFile(*dataPath)
	if err != nil {
		logger.Fatal("Failed to read dataset", zap.String("path", *dataPath), zap.Error(err))
	}
	// kiểm tra ràng buộc trước khi ghi
	snap, err := registry.NewSnapshot(ds)
	if err != nil {
		logger.Fatal("Dataset không hợp lệ", zap.Error(err))
	}
	if issues := registry.CheckConsistency(snap); len(issues) > 0 {
		logger.Warn("Dataset có sai lệch giữa chỉ mục phụ và mapping", zap.Int("issues", len(issues)))
	}

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()

	start := time.Now()
	if err := st.Seed(ctx, ds); err != nil {
		logger.Fatal("Seed failed", zap.Error(err))
	}
	logger.Info("Seed completed",
		zap.String("driver", cfg.Store.Driver),
		zap.Any("counts", ds.Counts()),
		zap.Duration("duration", time.Since(start)))

	if !*index {
		return
	}
	mi, err := search.NewMeiliIndexer(search.MeiliConfig{
		Host:      cfg.Meili.Host,
		APIKey:    cfg.Meili.APIKey,
		IndexName: cfg.Meili.IndexName,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to connect Meilisearch", zap.Error(err))
	}
	n, err := mi.IndexSnapshot(ctx, snap)
	if err != nil {
		logger.Fatal("Index failed", zap.Error(err))
	}
	logger.Info("Index completed", zap.Int("documents", n))
}

func initLogger(cfg config.Config) *zap.Logger {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = cfg.App.Env
	}

	var zc zap.Config
	if env == "production" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}

	logger, err := zc.Build()
	if err != nil {
		log.Fatal("Cannot initialize logger:", err)
	}
	return logger
}
