package commerce

import (
	"context"

	"github.com/jacentio/storefront/blob"
)

// Repository is the document store behind the services. Reads outside a
// transaction are strongly consistent. Missing records are reported with
// docdb.ErrNotFound.
type Repository interface {
	Begin() Tx

	Tenant(ctx context.Context, id string) (*Tenant, error)
	TenantByUsername(ctx context.Context, username string) (*Tenant, error)
	TenantByMail(ctx context.Context, mail string) (*Tenant, error)
	Store(ctx context.Context, id string) (*Store, error)
	Product(ctx context.Context, id string) (*Product, error)

	// Products returns the products with the given ids in order, skipping
	// ids that no longer exist.
	Products(ctx context.Context, ids []string) ([]*Product, error)
}

// Tx stages writes that are applied together by Commit. Updates and deletes
// are conditioned on the Version of the record passed in, so a record that
// changed since it was read fails the commit with
// docdb.ErrConcurrentModification. Abort discards staged writes and is safe
// to call after Commit.
type Tx interface {
	Tenant(ctx context.Context, id string) (*Tenant, error)
	Store(ctx context.Context, id string) (*Store, error)
	Product(ctx context.Context, id string) (*Product, error)

	// StoreProducts returns every product whose parent is the store.
	StoreProducts(ctx context.Context, storeID string) ([]*Product, error)

	CreateTenant(t *Tenant) error
	UpdateTenant(ctx context.Context, t *Tenant) error
	CreateStore(s *Store) error
	UpdateStore(ctx context.Context, s *Store) error
	DeleteStore(s *Store) error
	CreateProduct(p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(p *Product) error

	// DeleteStoreProducts stages deletion of every product of the store.
	DeleteStoreProducts(ctx context.Context, storeID string) error

	Commit(ctx context.Context) error
	Abort()
}

// BlobStore holds logo and product images.
type BlobStore interface {
	Put(ctx context.Context, prefix string, obj blob.Object) (string, error)
	SignedURL(ctx context.Context, key string) (string, error)

	// DeleteMany attempts every key and reports keys it could not remove
	// with a *blob.DeleteError.
	DeleteMany(ctx context.Context, keys []string) error
}

// Recorder receives operation outcomes for metrics.
type Recorder interface {
	StoreDeleted(outcome string)
	BlobCleanupFailed(op string, keys int)
}

type nopRecorder struct{}

func (nopRecorder) StoreDeleted(string)           {}
func (nopRecorder) BlobCleanupFailed(string, int) {}
