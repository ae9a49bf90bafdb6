package mocks

import (
	"context"
	"fmt"

	"github.com/jacentio/storefront/commerce"
	"github.com/jacentio/storefront/docdb"
)

// state is the set of tables a commit works on.
type state struct {
	tenants  map[string]commerce.Tenant
	stores   map[string]commerce.Store
	products map[string]commerce.Product
}

type op func(*state) error

// Item counts per staged write, as docdb stages them: an entity write plus
// its unique constraint, relationship and parent check records.
const (
	tenantPutItems     = 3
	storePutItems      = 4
	productPutItems    = 4
	updateItems        = 1
	storeDeleteItems   = 3
	productDeleteItems = 3
)

type memTx struct {
	repo   *MemRepository
	ops    []op
	items  int
	closed bool
}

func (t *memTx) Tenant(ctx context.Context, id string) (*commerce.Tenant, error) {
	return t.repo.Tenant(ctx, id)
}

func (t *memTx) Store(ctx context.Context, id string) (*commerce.Store, error) {
	return t.repo.Store(ctx, id)
}

func (t *memTx) Product(ctx context.Context, id string) (*commerce.Product, error) {
	return t.repo.Product(ctx, id)
}

func (t *memTx) StoreProducts(_ context.Context, storeID string) ([]*commerce.Product, error) {
	return t.repo.storeProducts(storeID)
}

func (t *memTx) stage(items int, o op) error {
	if t.closed {
		return docdb.ErrTxClosed
	}
	t.ops = append(t.ops, o)
	t.items += items
	return nil
}

func (t *memTx) stageUpdate(o op) error {
	if t.repo.StageErr != nil {
		return t.repo.StageErr
	}
	return t.stage(updateItems, o)
}

func (t *memTx) CreateTenant(tenant *commerce.Tenant) error {
	rec := *tenant
	return t.stage(tenantPutItems, func(s *state) error {
		if _, ok := s.tenants[rec.ID]; ok {
			return docdb.ErrAlreadyExists
		}
		for _, other := range s.tenants {
			if other.Username == rec.Username || other.Mail == rec.Mail {
				return docdb.ErrDuplicateValue
			}
		}
		rec.Version = 1
		s.tenants[rec.ID] = rec
		return nil
	})
}

func (t *memTx) UpdateTenant(_ context.Context, tenant *commerce.Tenant) error {
	rec := *tenant
	return t.stageUpdate(func(s *state) error {
		cur, ok := s.tenants[rec.ID]
		if !ok || cur.Version != rec.Version {
			return docdb.ErrConcurrentModification
		}
		rec.Version++
		s.tenants[rec.ID] = rec
		return nil
	})
}

func (t *memTx) CreateStore(store *commerce.Store) error {
	rec := *store
	return t.stage(storePutItems, func(s *state) error {
		if _, ok := s.tenants[rec.TenantID]; !ok {
			return docdb.ErrParentNotFound
		}
		if _, ok := s.stores[rec.ID]; ok {
			return docdb.ErrAlreadyExists
		}
		for _, other := range s.stores {
			if other.Subdomain == rec.Subdomain {
				return docdb.ErrDuplicateValue
			}
		}
		rec.Version = 1
		s.stores[rec.ID] = rec
		return nil
	})
}

func (t *memTx) UpdateStore(_ context.Context, store *commerce.Store) error {
	rec := *store
	rec.ProductIDs = append([]string{}, store.ProductIDs...)
	return t.stageUpdate(func(s *state) error {
		cur, ok := s.stores[rec.ID]
		if !ok || cur.Version != rec.Version {
			return docdb.ErrConcurrentModification
		}
		for id, other := range s.stores {
			if id != rec.ID && other.Subdomain == rec.Subdomain {
				return docdb.ErrDuplicateValue
			}
		}
		rec.Version++
		s.stores[rec.ID] = rec
		return nil
	})
}

func (t *memTx) DeleteStore(store *commerce.Store) error {
	id, version := store.ID, store.Version
	return t.stage(storeDeleteItems, func(s *state) error {
		cur, ok := s.stores[id]
		if !ok || cur.Version != version {
			return docdb.ErrConcurrentModification
		}
		delete(s.stores, id)
		return nil
	})
}

func (t *memTx) CreateProduct(p *commerce.Product) error {
	rec := *p
	return t.stage(productPutItems, func(s *state) error {
		if _, ok := s.stores[rec.StoreID]; !ok {
			return docdb.ErrParentNotFound
		}
		if _, ok := s.products[rec.ID]; ok {
			return docdb.ErrAlreadyExists
		}
		for _, other := range s.products {
			if other.StoreID == rec.StoreID && other.ProductID == rec.ProductID {
				return docdb.ErrDuplicateValue
			}
		}
		rec.Version = 1
		s.products[rec.ID] = rec
		return nil
	})
}

func (t *memTx) UpdateProduct(_ context.Context, p *commerce.Product) error {
	rec := *p
	return t.stageUpdate(func(s *state) error {
		cur, ok := s.products[rec.ID]
		if !ok || cur.Version != rec.Version {
			return docdb.ErrConcurrentModification
		}
		rec.Version++
		s.products[rec.ID] = rec
		return nil
	})
}

func (t *memTx) DeleteProduct(p *commerce.Product) error {
	id, version := p.ID, p.Version
	return t.stage(productDeleteItems, func(s *state) error {
		cur, ok := s.products[id]
		if !ok || cur.Version != version {
			return docdb.ErrConcurrentModification
		}
		delete(s.products, id)
		return nil
	})
}

func (t *memTx) DeleteStoreProducts(ctx context.Context, storeID string) error {
	products, err := t.StoreProducts(ctx, storeID)
	if err != nil {
		return err
	}
	for _, p := range products {
		if err := t.DeleteProduct(p); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTx) Commit(context.Context) error {
	if t.closed {
		return docdb.ErrTxClosed
	}
	t.closed = true

	m := t.repo
	if m.BeforeCommit != nil {
		m.BeforeCommit(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CommitErr != nil {
		return m.CommitErr
	}
	if t.items > docdb.MaxTransactItems {
		return fmt.Errorf("%w: %d staged", docdb.ErrTransactionTooLarge, t.items)
	}

	next := &state{
		tenants:  cloneMap(m.tenants),
		stores:   cloneMap(m.stores),
		products: cloneMap(m.products),
	}
	for _, o := range t.ops {
		if err := o(next); err != nil {
			return err
		}
	}

	m.tenants, m.stores, m.products = next.tenants, next.stores, next.products
	m.Commits++
	m.Mutations += len(t.ops)
	return nil
}

func (t *memTx) Abort() {
	if !t.closed {
		t.repo.mu.Lock()
		t.repo.Aborts++
		t.repo.mu.Unlock()
	}
	t.closed = true
	t.ops = nil
}
