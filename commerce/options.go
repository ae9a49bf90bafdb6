package commerce

import (
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// DefaultSubdomainSuffix is appended to every store subdomain.
const DefaultSubdomainSuffix = "--shophive.netlify.app"

const (
	maxNewProductImages    = 10
	maxUpdateProductImages = 5
)

// Options configures the services.
type Options struct {
	// SubdomainSuffix is appended to store subdomains.
	// Default: DefaultSubdomainSuffix
	SubdomainSuffix string

	// TxTimeout bounds the database phase of a mutating operation.
	// Default: 10s
	TxTimeout time.Duration

	// BlobTimeout bounds blob uploads and deletions. Deletions after a
	// commit run under it even if the request was canceled.
	// Default: 30s
	BlobTimeout time.Duration

	// BcryptCost is the password hashing cost.
	// Default: 10
	BcryptCost int

	// BlobConcurrency limits concurrent blob uploads and URL signing per request.
	// Default: 8
	BlobConcurrency int

	Logger   *slog.Logger
	Recorder Recorder
}

func (o Options) withDefaults() Options {
	if o.SubdomainSuffix == "" {
		o.SubdomainSuffix = DefaultSubdomainSuffix
	}
	if o.TxTimeout <= 0 {
		o.TxTimeout = 10 * time.Second
	}
	if o.BlobTimeout <= 0 {
		o.BlobTimeout = 30 * time.Second
	}
	if o.BcryptCost < bcrypt.MinCost || o.BcryptCost > bcrypt.MaxCost {
		o.BcryptCost = bcrypt.DefaultCost
	}
	if o.BlobConcurrency <= 0 {
		o.BlobConcurrency = 8
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	return o
}
