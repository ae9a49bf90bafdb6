package commerce

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jacentio/storefront/blob"
)

// StoreService manages a tenant's store.
type StoreService struct {
	repo  Repository
	blobs blobOps
	opts  Options
}

func NewStoreService(repo Repository, blobs BlobStore, opts Options) *StoreService {
	opts = opts.withDefaults()
	return &StoreService{
		repo:  repo,
		blobs: blobOps{store: blobs, opts: opts},
		opts:  opts,
	}
}

// storeReader is satisfied by both Repository and Tx.
type storeReader interface {
	Tenant(ctx context.Context, id string) (*Tenant, error)
	Store(ctx context.Context, id string) (*Store, error)
}

// owned loads a tenant and a store and checks that the tenant owns it.
func owned(ctx context.Context, r storeReader, tenantID, storeID string) (*Tenant, *Store, error) {
	tenant, err := r.Tenant(ctx, tenantID)
	if err != nil {
		return nil, nil, lookupError(err, "Tenant not found")
	}
	store, err := r.Store(ctx, storeID)
	if err != nil {
		return nil, nil, lookupError(err, "Store not found")
	}
	if store.TenantID != tenant.ID {
		return nil, nil, NotFound("Store not found")
	}
	return tenant, store, nil
}

// Get returns the tenant's store with a signed logo URL.
func (s *StoreService) Get(ctx context.Context, tenantID, storeID string) (*StoreView, error) {
	_, store, err := owned(ctx, s.repo, tenantID, storeID)
	if err != nil {
		return nil, err
	}
	return s.blobs.storeView(ctx, store)
}

// Create creates the tenant's only store. The logo is uploaded first and
// removed again if the store cannot be committed.
func (s *StoreService) Create(ctx context.Context, tenantID string, in NewStore) (*StoreView, error) {
	tenant, err := s.repo.Tenant(ctx, tenantID)
	if err != nil {
		return nil, lookupError(err, "Tenant not found")
	}
	if tenant.HasStore() {
		return nil, BadRequest("Tenant can only have one store")
	}

	storeID := in.StoreID
	if storeID == "" {
		storeID = uuid.NewString()
	}
	store := &Store{
		ID:             storeID,
		TenantID:       tenant.ID,
		Name:           in.Name,
		Subdomain:      withSuffix(in.Subdomain, s.opts.SubdomainSuffix),
		Description:    in.Description,
		Theme:          in.Theme,
		Address:        in.Address,
		Contact:        in.Contact,
		Mail:           in.Mail,
		ReturnPolicy:   in.ReturnPolicy,
		ShippingPolicy: in.ShippingPolicy,
		ProductIDs:     []string{},
	}
	if err := store.validate(); err != nil {
		return nil, err
	}

	if in.Logo != nil {
		keys, err := s.blobs.upload(ctx, blob.LogoPrefix(storeID), []blob.Object{*in.Logo})
		if err != nil {
			return nil, err
		}
		store.LogoKey = keys[0]
	}

	if err := s.commitCreate(ctx, tenant, store); err != nil {
		s.blobs.discard(ctx, "store_create", []string{store.LogoKey})
		return nil, err
	}

	s.opts.Logger.Info("store created",
		slog.String("tenantId", tenant.ID),
		slog.String("storeId", store.ID),
	)
	return s.blobs.storeView(ctx, store)
}

func (s *StoreService) commitCreate(ctx context.Context, tenant *Tenant, store *Store) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	tx := s.repo.Begin()
	defer tx.Abort()

	if err := tx.CreateStore(store); err != nil {
		return ServerError("failed to stage store", err)
	}
	tenant.StoreRef = StoreRef(store.ID)
	tenant.StoreID = store.ID
	if err := tx.UpdateTenant(ctx, tenant); err != nil {
		return writeError(err, "")
	}
	if err := tx.Commit(ctx); err != nil {
		return writeError(err, fmt.Sprintf("Store %s or subdomain %s already exists", store.ID, store.Subdomain))
	}
	return nil
}

// Update applies patch to the tenant's store. A replaced logo is deleted
// after the update commits.
func (s *StoreService) Update(ctx context.Context, tenantID, storeID string, patch StorePatch) (*StoreView, error) {
	_, store, err := owned(ctx, s.repo, tenantID, storeID)
	if err != nil {
		return nil, err
	}

	oldLogo := store.LogoKey
	patch.apply(store, s.opts.SubdomainSuffix)
	if err := store.validate(); err != nil {
		return nil, err
	}

	if patch.Logo != nil {
		keys, err := s.blobs.upload(ctx, blob.LogoPrefix(store.ID), []blob.Object{*patch.Logo})
		if err != nil {
			return nil, err
		}
		store.LogoKey = keys[0]
	}

	if err := s.commitUpdate(ctx, store); err != nil {
		if store.LogoKey != oldLogo {
			s.blobs.discard(ctx, "store_update", []string{store.LogoKey})
		}
		return nil, err
	}

	if store.LogoKey != oldLogo {
		// The new record no longer references the old logo.
		_, _ = s.blobs.purge(ctx, "store_update", []string{oldLogo})
	}
	return s.blobs.storeView(ctx, store)
}

func (s *StoreService) commitUpdate(ctx context.Context, store *Store) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	tx := s.repo.Begin()
	defer tx.Abort()

	if err := tx.UpdateStore(ctx, store); err != nil {
		return writeError(err, "")
	}
	if err := tx.Commit(ctx); err != nil {
		return writeError(err, fmt.Sprintf("Subdomain %s already exists", store.Subdomain))
	}
	return nil
}
