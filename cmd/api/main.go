package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/address-converter/app/config"
	"github.com/address-converter/app/controllers"
	"github.com/address-converter/app/services"
	"github.com/address-converter/internal/metrics"
	"github.com/address-converter/internal/registry"
	"github.com/address-converter/internal/search"
	"github.com/address-converter/internal/store"
	"github.com/address-converter/routes"
)

func main() {
	configPath := flag.String("config", "config/app.yaml", "đường dẫn file cấu hình")
	flag.Parse()

	// 1. Load configuration
	if err := config.Load(*configPath); err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}
	cfg := config.C

	// 2. Khởi tạo logger
	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting Address Converter Service",
		zap.String("env", cfg.App.Env),
		zap.String("store", cfg.Store.Driver))

	// 3. Kết nối store
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	st, err := store.Open(ctx, cfg.Store, logger)
	cancel()
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("Error closing store", zap.Error(err))
		}
	}()

	// 4. Metrics và cache (LRU L1 + Redis L2)
	m := metrics.New()
	cache, err := services.NewCacheFromConfig(cfg.Cache, m, logger)
	if err != nil {
		logger.Fatal("Failed to initialize cache", zap.Error(err))
	}
	if cache != nil {
		defer cache.Close()
	}

	// 5. Meilisearch (tùy chọn)
	var indexer services.SnapshotIndexer
	if cfg.Meili.Enabled {
		mi, err := search.NewMeiliIndexer(search.MeiliConfig{
			Host:      cfg.Meili.Host,
			APIKey:    cfg.Meili.APIKey,
			IndexName: cfg.Meili.IndexName,
		}, logger)
		if err != nil {
			logger.Warn("Meilisearch không khả dụng, bỏ qua xuất chỉ mục", zap.Error(err))
		} else {
			indexer = mi
		}
	}

	// 6. Nạp snapshot ban đầu
	holder := registry.NewHolder(nil)
	adminService := services.NewAdminService(holder, st, cache, indexer, m, logger)
	reloadCtx, reloadCancel := context.WithTimeout(context.Background(), time.Minute)
	if _, err := adminService.Reload(reloadCtx); err != nil {
		logger.Fatal("Failed to load snapshot", zap.Error(err))
	}
	reloadCancel()

	// 7. Khởi tạo services và controllers
	conversionService := services.NewConversionService(holder, cfg.Conversion, cache, m, logger)
	addressService := services.NewAddressService(holder, cfg.Search, m, logger)

	ctrl := routes.Controllers{
		Conversion: controllers.NewConversionController(conversionService, logger),
		Address:    controllers.NewAddressController(addressService, logger),
		Admin:      controllers.NewAdminController(adminService, logger),
	}

	// 8. Khởi tạo Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	routes.SetupAllRoutes(router, ctrl, cfg.HTTP, m, logger)

	// 9. Khởi động server
	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Chờ tín hiệu dừng
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
}

// initLogger khởi tạo structured logger, APP_ENV đè lên cấu hình
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
