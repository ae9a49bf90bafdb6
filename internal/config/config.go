// Package config loads service configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// AWS holds the settings shared by every AWS client.
type AWS struct {
	Region           string `env:"AWS_REGION" envDefault:"us-east-1"`
	DynamoDBEndpoint string `env:"DYNAMODB_ENDPOINT"`
	S3Endpoint       string `env:"S3_ENDPOINT"`
	S3UsePathStyle   bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
	Bucket           string `env:"S3_BUCKET_NAME,required,notEmpty"`
	TablePrefix      string `env:"TABLE_PREFIX" envDefault:"storefront"`
	NumShards        int    `env:"NUM_SHARDS" envDefault:"1"`
}

// Config holds the HTTP service configuration.
type Config struct {
	AWS

	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":3000"`
	MetricsAddr     string        `env:"METRICS_ADDR" envDefault:":9091"`
	SignedURLTTL    time.Duration `env:"SIGNED_URL_TTL" envDefault:"900s"`
	SubdomainSuffix string        `env:"SUBDOMAIN_SUFFIX" envDefault:"--shophive.netlify.app"`
	TxTimeout       time.Duration `env:"TX_TIMEOUT" envDefault:"10s"`
	BlobTimeout     time.Duration `env:"BLOB_TIMEOUT" envDefault:"30s"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"` // 10MiB
	BcryptCost      int           `env:"BCRYPT_COST" envDefault:"10"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Sweeper holds the blob sweeper Lambda configuration.
type Sweeper struct {
	AWS

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the HTTP service configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSweeper reads the sweeper configuration from environment variables.
func LoadSweeper() (*Sweeper, error) {
	_ = godotenv.Load()

	cfg := &Sweeper{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
