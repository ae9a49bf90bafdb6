// Command blobsweeper is a Lambda function attached to the stores and
// products table streams. It deletes blobs that no live entity references.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jacentio/storefront/blob"
	"github.com/jacentio/storefront/internal/awsconf"
	"github.com/jacentio/storefront/internal/config"
	"github.com/jacentio/storefront/internal/logger"
	"github.com/jacentio/storefront/internal/metrics"
	"github.com/jacentio/storefront/stream"
)

func main() {
	cfg, err := config.LoadSweeper()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	clients, err := awsconf.Load(context.Background(), cfg.AWS)
	if err != nil {
		logger.Error("failed to initialize aws clients", "error", err)
		os.Exit(1)
	}

	bucket := blob.New(clients.S3, clients.Presigner, blob.Config{Bucket: cfg.Bucket})
	handler := stream.NewHandler(bucket, metrics.New(prometheus.DefaultRegisterer), logger)

	lambda.Start(handler.HandleBlobSweep)
}
