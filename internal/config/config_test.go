package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("S3_BUCKET_NAME", "images")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bucket != "images" {
		t.Errorf("Bucket = %q, want images", cfg.Bucket)
	}
	if cfg.HTTPAddr != ":3000" {
		t.Errorf("HTTPAddr = %q, want :3000", cfg.HTTPAddr)
	}
	if cfg.TablePrefix != "storefront" {
		t.Errorf("TablePrefix = %q, want storefront", cfg.TablePrefix)
	}
	if cfg.SignedURLTTL != 900*time.Second {
		t.Errorf("SignedURLTTL = %v, want 15m", cfg.SignedURLTTL)
	}
	if cfg.TxTimeout != 10*time.Second || cfg.BlobTimeout != 30*time.Second {
		t.Errorf("timeouts = %v/%v, want 10s/30s", cfg.TxTimeout, cfg.BlobTimeout)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 10<<20)
	}
	if cfg.SubdomainSuffix != "--shophive.netlify.app" {
		t.Errorf("SubdomainSuffix = %q", cfg.SubdomainSuffix)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("S3_BUCKET_NAME", "images")
	t.Setenv("TX_TIMEOUT", "2s")
	t.Setenv("NUM_SHARDS", "4")
	t.Setenv("S3_USE_PATH_STYLE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test,https://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TxTimeout != 2*time.Second {
		t.Errorf("TxTimeout = %v, want 2s", cfg.TxTimeout)
	}
	if cfg.NumShards != 4 {
		t.Errorf("NumShards = %d, want 4", cfg.NumShards)
	}
	if !cfg.S3UsePathStyle {
		t.Error("S3UsePathStyle = false, want true")
	}
	if len(cfg.AllowedOrigins) != 2 {
		t.Errorf("AllowedOrigins = %v, want 2 entries", cfg.AllowedOrigins)
	}
}

func TestLoad_RequiresBucket(t *testing.T) {
	t.Setenv("S3_BUCKET_NAME", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() without S3_BUCKET_NAME succeeded")
	}
}

func TestLoadSweeper(t *testing.T) {
	t.Setenv("S3_BUCKET_NAME", "images")
	t.Setenv("TABLE_PREFIX", "shop")

	cfg, err := LoadSweeper()
	if err != nil {
		t.Fatalf("LoadSweeper() error = %v", err)
	}
	if cfg.TablePrefix != "shop" || cfg.Bucket != "images" {
		t.Errorf("cfg = %+v", cfg)
	}
}
