// Package main wires together the image gateway binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"imagegate/internal/api"
	"imagegate/internal/classify"
	"imagegate/internal/classify/onnx"
	"imagegate/internal/classify/static"
	"imagegate/internal/config"
	"imagegate/internal/logging"
	"imagegate/internal/upload"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var backend classify.Classifier
	switch cfg.Classifier.Backend {
	case config.BackendONNX:
		onnxClassifier, err := onnx.New(
			cfg.Classifier.ModelPath,
			cfg.Classifier.MetadataPath,
			cfg.Classifier.AnomalyThreshold,
		)
		if err != nil {
			logger.Fatal("onnx classifier init failed", zap.Error(err))
		}
		defer onnxClassifier.Close()
		logger.Info("using onnx classifier", zap.String("model", cfg.Classifier.ModelPath))
		backend = onnxClassifier
	case config.BackendStatic:
		logger.Info("using static classifier; every upload gets the configured answer",
			zap.String("label", cfg.Classifier.StaticLabel))
		backend = static.New(cfg.Classifier.StaticLabel, cfg.Classifier.StaticProbability)
	default:
		logger.Fatal("unknown classifier backend", zap.String("backend", cfg.Classifier.Backend))
	}

	validator := upload.NewValidator(cfg.Upload.MaxBytes, cfg.Upload.AllowedExtensions)
	adapter := classify.NewAdapter(backend, cfg.ClassifyBudget(), logger.Named("classify"))
	apiServer := api.NewServer(validator, adapter, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout(),
		WriteTimeout:      cfg.RequestTimeout(),
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}
