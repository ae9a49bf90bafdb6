package commerce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jacentio/storefront/blob"
	"github.com/jacentio/storefront/docdb"
)

// ProductService manages the products of a store.
type ProductService struct {
	repo  Repository
	blobs blobOps
	opts  Options
}

func NewProductService(repo Repository, blobs BlobStore, opts Options) *ProductService {
	opts = opts.withDefaults()
	return &ProductService{
		repo:  repo,
		blobs: blobOps{store: blobs, opts: opts},
		opts:  opts,
	}
}

// List returns the store's products in the store's order.
func (s *ProductService) List(ctx context.Context, storeID string) ([]ProductView, error) {
	store, err := s.repo.Store(ctx, storeID)
	if err != nil {
		return nil, lookupError(err, "Store not found")
	}

	products, err := s.repo.Products(ctx, store.ProductIDs)
	if err != nil {
		return nil, ServerError("failed to load products", err)
	}
	return s.blobs.productViews(ctx, products)
}

// Get returns a product of the store.
func (s *ProductService) Get(ctx context.Context, storeID, id string) (*ProductView, error) {
	product, err := s.productOf(ctx, storeID, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, product)
}

func (s *ProductService) productOf(ctx context.Context, storeID, id string) (*Product, error) {
	product, err := s.repo.Product(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Product not found")
	}
	if product.StoreID != storeID {
		return nil, NotFound("Product not found")
	}
	return product, nil
}

func (s *ProductService) view(ctx context.Context, p *Product) (*ProductView, error) {
	views, err := s.blobs.productViews(ctx, []*Product{p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Add creates a product in the tenant's store and appends it to the store's
// product list. Images are uploaded under the product's prefix before the
// transaction and removed again if it fails.
func (s *ProductService) Add(ctx context.Context, tenantID, storeID string, in NewProduct) (*ProductView, error) {
	if len(in.Images) > maxNewProductImages {
		return nil, BadRequestf("at most %d images can be uploaded", maxNewProductImages)
	}

	tenant, err := s.repo.Tenant(ctx, tenantID)
	if err != nil {
		return nil, lookupError(err, "Tenant not found")
	}
	if !tenant.HasStore() {
		return nil, BadRequest("Please add store before adding the Product")
	}
	if tenant.StoreID != storeID {
		return nil, BadRequest("Store does not belong to tenant")
	}

	product := &Product{
		ID:                uuid.NewString(),
		StoreID:           storeID,
		ProductID:         in.ProductID,
		Name:              in.Name,
		Category:          in.Category,
		Subcategory:       in.Subcategory,
		Price:             in.Price,
		SizeOptions:       []string(in.SizeOptions),
		Colors:            in.Colors,
		Description:       in.Description,
		QuantityAvailable: in.QuantityAvailable,
		Images:            []string{},
	}
	if product.SizeOptions == nil {
		product.SizeOptions = []string{}
	}
	if err := product.validate(); err != nil {
		return nil, err
	}

	keys, err := s.blobs.upload(ctx, blob.ProductPrefix(storeID, product.ProductID), in.Images)
	if err != nil {
		return nil, err
	}
	if keys != nil {
		product.Images = keys
	}

	if err := s.commitAdd(ctx, product); err != nil {
		s.blobs.discard(ctx, "product_add", keys)
		return nil, err
	}

	s.opts.Logger.Info("product added",
		slog.String("storeId", storeID),
		slog.String("productId", product.ID),
		slog.Int("images", len(product.Images)),
	)
	return s.view(ctx, product)
}

func (s *ProductService) commitAdd(ctx context.Context, product *Product) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	tx := s.repo.Begin()
	defer tx.Abort()

	store, err := tx.Store(ctx, product.StoreID)
	if err != nil {
		return lookupError(err, "Store not found")
	}
	if len(store.ProductIDs) >= MaxStoreProducts {
		return BadRequestf("a store can hold at most %d products", MaxStoreProducts)
	}
	if err := tx.CreateProduct(product); err != nil {
		return ServerError("failed to stage product", err)
	}
	store.ProductIDs = append(store.ProductIDs, product.ID)
	if err := tx.UpdateStore(ctx, store); err != nil {
		return writeError(err, "")
	}
	if err := tx.Commit(ctx); err != nil {
		return writeError(err, fmt.Sprintf("Product %s already exists in store", product.ProductID))
	}
	return nil
}

// Update applies patch to a product. New images replace the current ones,
// which are deleted after the update commits.
func (s *ProductService) Update(ctx context.Context, storeID, id string, patch ProductPatch) (*ProductView, error) {
	if len(patch.Images) > maxUpdateProductImages {
		return nil, BadRequestf("at most %d images can be uploaded", maxUpdateProductImages)
	}

	product, err := s.productOf(ctx, storeID, id)
	if err != nil {
		return nil, err
	}
	patch.apply(product)
	if err := product.validate(); err != nil {
		return nil, err
	}

	var replaced []string
	uploaded := len(patch.Images) > 0
	if uploaded {
		keys, err := s.blobs.upload(ctx, blob.ProductPrefix(storeID, product.ProductID), patch.Images)
		if err != nil {
			return nil, err
		}
		replaced, product.Images = product.Images, keys
	}

	if err := s.commitUpdate(ctx, product); err != nil {
		if uploaded {
			s.blobs.discard(ctx, "product_update", product.Images)
		}
		return nil, err
	}

	if len(replaced) > 0 {
		// Superseded images are no longer referenced by any record.
		_, _ = s.blobs.purge(ctx, "product_update", replaced)
	}
	return s.view(ctx, product)
}

func (s *ProductService) commitUpdate(ctx context.Context, product *Product) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	tx := s.repo.Begin()
	defer tx.Abort()

	if err := tx.UpdateProduct(ctx, product); err != nil {
		return writeError(err, "")
	}
	return writeError(tx.Commit(ctx), "")
}

// Delete removes a product and its entry in the store's product list, then
// deletes its images. Image cleanup failures are reported like those of a
// store deletion.
func (s *ProductService) Delete(ctx context.Context, id string) (*Deletion, error) {
	product, err := s.deleteRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	del := &Deletion{
		StoreID:    product.StoreID,
		ProductIDs: []string{product.ID},
		BlobKeys:   compact(product.Images),
	}
	orphaned, err := s.blobs.purge(ctx, "product_delete", del.BlobKeys)
	if err != nil {
		del.Orphaned = orphaned
		return del, &Error{Kind: KindServer, Msg: "Product deleted but some images could not be removed", Err: err}
	}
	return del, nil
}

func (s *ProductService) deleteRecord(ctx context.Context, id string) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	tx := s.repo.Begin()
	defer tx.Abort()

	product, err := tx.Product(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Product not found")
	}
	if err := tx.DeleteProduct(product); err != nil {
		return nil, ServerError("failed to stage product deletion", err)
	}

	store, err := tx.Store(ctx, product.StoreID)
	switch {
	case err == nil:
		store.removeProduct(product.ID)
		if err := tx.UpdateStore(ctx, store); err != nil {
			return nil, writeError(err, "")
		}
	case errors.Is(err, docdb.ErrNotFound):
		// Orphaned product; nothing to unlink.
	default:
		return nil, ServerError("database read failed", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, writeError(err, "")
	}
	return product, nil
}
