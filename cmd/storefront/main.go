package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jacentio/storefront/blob"
	"github.com/jacentio/storefront/commerce"
	"github.com/jacentio/storefront/httpapi"
	"github.com/jacentio/storefront/internal/awsconf"
	"github.com/jacentio/storefront/internal/config"
	"github.com/jacentio/storefront/internal/logger"
	"github.com/jacentio/storefront/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.New(prometheus.DefaultRegisterer)

	// --- Metrics Server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- AWS Clients ---
	clients, err := awsconf.Load(ctx, cfg.AWS)
	if err != nil {
		logger.Error("failed to initialize aws clients", "error", err)
		os.Exit(1)
	}

	repo := commerce.NewDynamoRepository(clients.DynamoDB, cfg.TablePrefix, cfg.NumShards)
	bucket := blob.New(clients.S3, clients.Presigner, blob.Config{
		Bucket:    cfg.Bucket,
		URLExpiry: cfg.SignedURLTTL,
	})

	// --- Services ---
	opts := commerce.Options{
		SubdomainSuffix: cfg.SubdomainSuffix,
		TxTimeout:       cfg.TxTimeout,
		BlobTimeout:     cfg.BlobTimeout,
		BcryptCost:      cfg.BcryptCost,
		Logger:          logger,
		Recorder:        m,
	}

	router := httpapi.NewRouter(httpapi.Config{
		Tenants:        commerce.NewTenantService(repo, opts),
		Stores:         commerce.NewStoreService(repo, bucket, opts),
		Products:       commerce.NewProductService(repo, bucket, opts),
		Logger:         logger,
		Metrics:        m,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// --- API Server ---
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		logger.Info("starting api server", "addr", server.Addr, "tables", cfg.TablePrefix, "bucket", cfg.Bucket)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("api server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}
