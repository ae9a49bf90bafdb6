package commerce

import (
	"context"
	"log/slog"

	"github.com/jacentio/storefront/docdb"
)

// Transaction items staged by a store deletion. A product takes its record,
// its productId constraint and its relationship record; so does the store.
const (
	productDeleteItems = 3
	storeDeleteItems   = 3
	tenantUpdateItems  = 1
)

// MaxStoreProducts is the largest number of products a store can hold while
// its deletion still fits in one transaction.
const MaxStoreProducts = (docdb.MaxTransactItems - storeDeleteItems - tenantUpdateItems) / productDeleteItems

// Deletion describes what a store deletion removed.
type Deletion struct {
	StoreID    string   `json:"storeId"`
	ProductIDs []string `json:"productIds"`
	BlobKeys   []string `json:"blobKeys"`

	// Orphaned lists blob keys that could not be deleted after commit.
	Orphaned []string `json:"orphanedKeys,omitempty"`
}

// Delete removes a tenant's store, all of its products and the tenant's
// reference to it in one transaction, then deletes the logo and product
// images.
//
// Any failure before commit aborts the transaction: the database is left as
// it was and no blob is touched. Once the commit succeeded the deletion is
// final; if blob cleanup then fails, Delete returns the Deletion with the
// orphaned keys together with a KindServer error wrapping ErrBlobCleanup.
func (s *StoreService) Delete(ctx context.Context, tenantID, storeID string) (*Deletion, error) {
	del, err := s.deleteRecords(ctx, tenantID, storeID)
	if err != nil {
		s.opts.Recorder.StoreDeleted("aborted")
		s.opts.Logger.Warn("store deletion aborted",
			slog.String("tenantId", tenantID),
			slog.String("storeId", storeID),
			slog.Any("error", err),
		)
		return nil, err
	}

	s.opts.Logger.Info("store deleted",
		slog.String("tenantId", tenantID),
		slog.String("storeId", storeID),
		slog.Int("products", len(del.ProductIDs)),
		slog.Int("blobs", len(del.BlobKeys)),
	)

	orphaned, err := s.blobs.purge(ctx, "store_delete", del.BlobKeys)
	if err != nil {
		del.Orphaned = orphaned
		s.opts.Recorder.StoreDeleted("degraded")
		return del, &Error{
			Kind: KindServer,
			Msg:  "Store deleted but some images could not be removed",
			Err:  err,
		}
	}

	s.opts.Recorder.StoreDeleted("ok")
	return del, nil
}

// deleteRecords is the database phase of Delete. Writes are ordered
// products, store, tenant; all of them commit together or not at all.
func (s *StoreService) deleteRecords(ctx context.Context, tenantID, storeID string) (*Deletion, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	tx := s.repo.Begin()
	defer tx.Abort()

	tenant, store, err := owned(ctx, tx, tenantID, storeID)
	if err != nil {
		return nil, err
	}

	products, err := tx.StoreProducts(ctx, store.ID)
	if err != nil {
		return nil, ServerError("failed to load store products", err)
	}

	del := &Deletion{
		StoreID:    store.ID,
		ProductIDs: make([]string, 0, len(products)),
		BlobKeys:   blobKeys(store, products),
	}
	for _, p := range products {
		del.ProductIDs = append(del.ProductIDs, p.ID)
	}

	if err := tx.DeleteStoreProducts(ctx, store.ID); err != nil {
		return nil, ServerError("failed to stage product deletion", err)
	}
	if err := tx.DeleteStore(store); err != nil {
		return nil, ServerError("failed to stage store deletion", err)
	}

	tenant.StoreRef = ""
	tenant.StoreID = ""
	if err := tx.UpdateTenant(ctx, tenant); err != nil {
		return nil, writeError(err, "")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, writeError(err, "")
	}
	return del, nil
}

// blobKeys lists the logo followed by every product image, in product order.
func blobKeys(store *Store, products []*Product) []string {
	keys := []string{}
	if store.LogoKey != "" {
		keys = append(keys, store.LogoKey)
	}
	for _, p := range products {
		for _, img := range p.Images {
			if img != "" {
				keys = append(keys, img)
			}
		}
	}
	return keys
}
