package commerce_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/jacentio/storefront/commerce"
	"github.com/jacentio/storefront/commerce/mocks"
)

const (
	tenantID = "t-1"
	storeID  = "s-1"
	logoKey  = "stores/s-1/logo/L"
	imgA     = "stores/s-1/products/SKU-1/a"
	imgB     = "stores/s-1/products/SKU-1/b"
	imgC     = "stores/s-1/products/SKU-2/c"
)

type env struct {
	repo     *mocks.MemRepository
	blobs    *mocks.MemBlobs
	recorder *mocks.Recorder
	opts     commerce.Options
	stores   *commerce.StoreService
	products *commerce.ProductService
	tenants  *commerce.TenantService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		repo:     mocks.NewMemRepository(),
		blobs:    mocks.NewMemBlobs(),
		recorder: &mocks.Recorder{},
	}
	e.opts = commerce.Options{
		BcryptCost: bcrypt.MinCost,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Recorder:   e.recorder,
	}
	e.stores = commerce.NewStoreService(e.repo, e.blobs, e.opts)
	e.products = commerce.NewProductService(e.repo, e.blobs, e.opts)
	e.tenants = commerce.NewTenantService(e.repo, e.opts)
	return e
}

// seedShop creates tenant T owning store S with logo L, product P1 with
// images [a, b] and product P2 with image [c].
func (e *env) seedShop() {
	e.repo.PutTenant(commerce.Tenant{
		ID:       tenantID,
		Username: "ada",
		Mail:     "ada@example.com",
		Role:     commerce.RoleTenant,
		StoreRef: commerce.StoreRef(storeID),
		StoreID:  storeID,
	})
	e.repo.PutStore(commerce.Store{
		ID:         storeID,
		TenantID:   tenantID,
		Name:       "Corner Shop",
		Subdomain:  "corner" + commerce.DefaultSubdomainSuffix,
		LogoKey:    logoKey,
		Theme:      commerce.Theme{PrimaryColor: "#000", SecondaryColor: "#fff"},
		Mail:       "shop@example.com",
		ProductIDs: []string{"p-1", "p-2"},
	})
	e.repo.PutProduct(commerce.Product{ID: "p-1", StoreID: storeID, ProductID: "SKU-1", Name: "Mug", Category: "kitchen", Images: []string{imgA, imgB}})
	e.repo.PutProduct(commerce.Product{ID: "p-2", StoreID: storeID, ProductID: "SKU-2", Name: "Cup", Category: "kitchen", Images: []string{imgC}})
	e.blobs.Seed(logoKey, imgA, imgB, imgC)
}

// fillStore adds products to the seeded store until it holds n.
func (e *env) fillStore(n int) {
	store, err := e.repo.Store(context.Background(), storeID)
	if err != nil {
		panic(err)
	}
	for i := len(store.ProductIDs); i < n; i++ {
		id := fmt.Sprintf("bulk-%03d", i)
		e.repo.PutProduct(commerce.Product{ID: id, StoreID: storeID, ProductID: fmt.Sprintf("B-%d", i), Category: "bulk"})
		store.ProductIDs = append(store.ProductIDs, id)
	}
	e.repo.PutStore(*store)
}
