package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/address-converter/app/config"
	"github.com/address-converter/app/services"
	"github.com/address-converter/internal/metrics"
	"github.com/address-converter/internal/registry"
	"github.com/address-converter/internal/store"
)

func main() {
	configPath := flag.String("config", "config/app.yaml", "đường dẫn file cấu hình")
	inPath := flag.String("in", "-", "file NDJSON đầu vào, - là stdin")
	outPath := flag.String("out", "-", "file NDJSON kết quả, - là stdout")
	minAccuracy := flag.Int("min-accuracy", -1, "ngưỡng độ chính xác, -1 dùng cấu hình")
	flag.Parse()

	if err := config.Load(*configPath); err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}
	cfg := config.C

	logger := initLogger(cfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()

	ds, err := st.LoadDataset(ctx)
	if err != nil {
		logger.Fatal("Failed to load dataset", zap.Error(err))
	}
	snap, err := registry.NewSnapshot(ds)
	if err != nil {
		logger.Fatal("Failed to build snapshot", zap.Error(err))
	}
	holder := registry.NewHolder(snap)

	m := metrics.New()
	cache, err := services.NewCacheFromConfig(cfg.Cache, m, logger)
	if err != nil {
		logger.Fatal("Failed to initialize cache", zap.Error(err))
	}
	conversionService := services.NewConversionService(holder, cfg.Conversion, cache, m, logger)

	in, closeIn := openInput(*inPath, logger)
	defer closeIn()
	out, closeOut := openOutput(*outPath, logger)
	defer closeOut()

	p := &processor{
		convert:   conversionService.ConvertBatch,
		chunkSize: cfg.Conversion.MaxBatchSize,
		logger:    logger,
	}
	if *minAccuracy >= 0 {
		p.minAccuracy = minAccuracy
	}

	logger.Info("Starting batch worker",
		zap.String("snapshot_version", snap.Version()),
		zap.String("in", *inPath),
		zap.String("out", *outPath))
	start := time.Now()
	sum, err := p.Run(ctx, in, out)
	if err != nil {
		logger.Error("Worker stopped", zap.Error(err), zap.Int("lines", sum.Lines))
		os.Exit(1)
	}
	logger.Info("Worker finished",
		zap.Int("lines", sum.Lines),
		zap.Int("succeeded", sum.Succeeded),
		zap.Int("failed", sum.Failed),
		zap.Int("low_confidence", sum.LowConfidence),
		zap.Duration("duration", time.Since(start)))
}

func openInput(path string, logger *zap.Logger) (io.Reader, func()) {
	if path == "-" {
		return os.Stdin, func() {}
	}
	f, err := os.Open(path)
	if err != nil {
		logger.Fatal("Cannot open input", zap.String("path", path), zap.Error(err))
	}
	return f, func() { _ = f.Close() }
}

func openOutput(path string, logger *zap.Logger) (io.Writer, func()) {
	if path == "-" {
		return os.Stdout, func() {}
	}
	f, err := os.Create(path)
	if err != nil {
		logger.Fatal("Cannot create output", zap.String("path", path), zap.Error(err))
	}
	return f, func() { _ = f.Close() }
}

// initLogger khởi tạo logger; log ra stderr để stdout chỉ chứa NDJSON
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
	zc.OutputPaths = []string{"stderr"}

	logger, err := zc.Build()
	if err != nil {
		log.Fatal("Cannot initialize logger:", err)
	}
	return logger
}
