// Package mocks provides in-memory implementations of the commerce
// collaborators for tests.
package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/jacentio/storefront/commerce"
	"github.com/jacentio/storefront/docdb"
)

var _ commerce.Repository = (*MemRepository)(nil)

// MemRepository is an in-memory commerce.Repository. Transactions apply
// all staged writes or none, enforce version conditions and unique values,
// and report failures with the docdb sentinels.
type MemRepository struct {
	mu       sync.Mutex
	tenants  map[string]commerce.Tenant
	stores   map[string]commerce.Store
	products map[string]commerce.Product

	// ReadErr is returned by every read.
	ReadErr error
	// StageErr is returned by every staged update.
	StageErr error
	// CommitErr makes every commit fail without applying anything.
	CommitErr error
	// BeforeCommit runs before staged writes are applied.
	BeforeCommit func(*MemRepository)

	Commits   int
	Aborts    int
	Mutations int
}

func NewMemRepository() *MemRepository {
	return &MemRepository{
		tenants:  make(map[string]commerce.Tenant),
		stores:   make(map[string]commerce.Store),
		products: make(map[string]commerce.Product),
	}
}

// PutTenant seeds a tenant. A zero version is stored as 1.
func (m *MemRepository) PutTenant(t commerce.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Version == 0 {
		t.Version = 1
	}
	m.tenants[t.ID] = t
}

// PutStore seeds a store.
func (m *MemRepository) PutStore(s commerce.Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Version == 0 {
		s.Version = 1
	}
	m.stores[s.ID] = s
}

// PutProduct seeds a product.
func (m *MemRepository) PutProduct(p commerce.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Version == 0 {
		p.Version = 1
	}
	m.products[p.ID] = p
}

// Snapshot returns copies of every record, for asserting "unchanged".
func (m *MemRepository) Snapshot() (map[string]commerce.Tenant, map[string]commerce.Store, map[string]commerce.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneMap(m.tenants), cloneMap(m.stores), cloneMap(m.products)
}

func (m *MemRepository) TenantCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tenants)
}

func (m *MemRepository) Begin() commerce.Tx {
	return &memTx{repo: m}
}

func (m *MemRepository) Tenant(_ context.Context, id string) (*commerce.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return get(m.tenants, id, m.ReadErr)
}

func (m *MemRepository) TenantByUsername(_ context.Context, username string) (*commerce.Tenant, error) {
	return m.findTenant(func(t commerce.Tenant) bool { return t.Username == username })
}

func (m *MemRepository) TenantByMail(_ context.Context, mail string) (*commerce.Tenant, error) {
	return m.findTenant(func(t commerce.Tenant) bool { return t.Mail == mail })
}

func (m *MemRepository) findTenant(match func(commerce.Tenant) bool) (*commerce.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	for _, t := range m.tenants {
		if match(t) {
			return &t, nil
		}
	}
	return nil, docdb.ErrNotFound
}

func (m *MemRepository) Store(_ context.Context, id string) (*commerce.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := get(m.stores, id, m.ReadErr)
	if s != nil {
		s.ProductIDs = append([]string{}, s.ProductIDs...)
	}
	return s, err
}

func (m *MemRepository) Product(_ context.Context, id string) (*commerce.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return get(m.products, id, m.ReadErr)
}

func (m *MemRepository) Products(_ context.Context, ids []string) ([]*commerce.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	var out []*commerce.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (m *MemRepository) storeProducts(storeID string) ([]*commerce.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	var out []*commerce.Product
	for _, p := range m.products {
		p := p
		if p.StoreID == storeID {
			out = append(out, &p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func get[T any](m map[string]T, id string, readErr error) (*T, error) {
	if readErr != nil {
		return nil, readErr
	}
	v, ok := m[id]
	if !ok {
		return nil, docdb.ErrNotFound
	}
	return &v, nil
}

func cloneMap[T any](m map[string]T) map[string]T {
	out := make(map[string]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
