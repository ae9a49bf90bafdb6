package commerce

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/sync/errgroup"

	"github.com/jacentio/storefront/docdb"
)

const (
	typeTenant  = "tenant"
	typeStore   = "store"
	typeProduct = "product"
)

// Tables names the entity tables.
type Tables struct {
	Tenants  string
	Stores   string
	Products string
}

// TablesFor returns the table names for a prefix, e.g. "storefront_stores".
func TablesFor(prefix string) Tables {
	if prefix == "" {
		prefix = "storefront"
	}
	return Tables{
		Tenants:  prefix + "_tenants",
		Stores:   prefix + "_stores",
		Products: prefix + "_products",
	}
}

// NewRegistry describes the cascade hierarchy: a tenant's store and a
// store's products.
func NewRegistry(tables Tables) *docdb.Registry {
	reg := docdb.NewRegistry()
	reg.Register(docdb.Relationship{
		ParentType:     typeTenant,
		ChildType:      typeStore,
		ChildTableName: tables.Stores,
		ParentKeyAttr:  "tenant_id",
	})
	reg.Register(docdb.Relationship{
		ParentType:     typeStore,
		ChildType:      typeProduct,
		ChildTableName: tables.Products,
		ParentKeyAttr:  "store_id",
	})
	return reg
}

func idKey(id string) docdb.PK {
	return docdb.PK{"id": &types.AttributeValueMemberS{Value: id}}
}

// --- Entities ---

type tenantEntity struct {
	t     *Tenant
	table string
}

func (e tenantEntity) TableName() string  { return e.table }
func (e tenantEntity) GetKey() docdb.PK   { return idKey(e.t.ID) }
func (e tenantEntity) EntityRef() string  { return docdb.Ref(typeTenant, e.t.ID) }
func (e tenantEntity) EntityType() string { return typeTenant }
func (e tenantEntity) UniqueFields() map[string]string {
	return map[string]string{"username": e.t.Username, "mail": e.t.Mail}
}

type storeEntity struct {
	s      *Store
	tables Tables
}

func (e storeEntity) TableName() string  { return e.tables.Stores }
func (e storeEntity) GetKey() docdb.PK   { return idKey(e.s.ID) }
func (e storeEntity) EntityRef() string  { return StoreRef(e.s.ID) }
func (e storeEntity) EntityType() string { return typeStore }
func (e storeEntity) ParentRef() string  { return docdb.Ref(typeTenant, e.s.TenantID) }
func (e storeEntity) ParentCheck() *docdb.ConditionCheck {
	return &docdb.ConditionCheck{TableName: e.tables.Tenants, Key: idKey(e.s.TenantID)}
}
func (e storeEntity) UniqueFields() map[string]string {
	return map[string]string{"subdomain": e.s.Subdomain}
}

type productEntity struct {
	p      *Product
	tables Tables
}

func (e productEntity) TableName() string   { return e.tables.Products }
func (e productEntity) GetKey() docdb.PK    { return idKey(e.p.ID) }
func (e productEntity) EntityRef() string   { return docdb.Ref(typeProduct, e.p.ID) }
func (e productEntity) EntityType() string  { return typeProduct }
func (e productEntity) ParentRef() string   { return StoreRef(e.p.StoreID) }
func (e productEntity) UniqueScope() string { return e.ParentRef() }
func (e productEntity) ParentCheck() *docdb.ConditionCheck {
	return &docdb.ConditionCheck{TableName: e.tables.Stores, Key: idKey(e.p.StoreID)}
}
func (e productEntity) UniqueFields() map[string]string {
	return map[string]string{"product_id": e.p.ProductID}
}

// --- Codec ---

type getter interface {
	Get(ctx context.Context, table string, key docdb.PK) (*docdb.Item, error)
}

func load[T any](ctx context.Context, g getter, table, id string) (*T, error) {
	item, err := g.Get(ctx, table, idKey(id))
	if err != nil {
		return nil, err
	}
	return decode[T](item.Raw)
}

func decode[T any](raw map[string]types.AttributeValue) (*T, error) {
	v := new(T)
	if err := attributevalue.UnmarshalMap(raw, v); err != nil {
		return nil, fmt.Errorf("decode %T: %w", v, err)
	}
	if n, ok := any(v).(interface{ normalize() }); ok {
		n.normalize()
	}
	return v, nil
}

func (s *Store) normalize() {
	if s.ProductIDs == nil {
		s.ProductIDs = []string{}
	}
}

func (p *Product) normalize() {
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.SizeOptions == nil {
		p.SizeOptions = []string{}
	}
}

// changes marshals v for an update. Attributes listed in clearable are
// removed when v leaves them empty.
func changes(v any, clearable ...string) (map[string]types.AttributeValue, error) {
	m, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	for _, name := range clearable {
		if _, ok := m[name]; !ok {
			m[name] = nil
		}
	}
	return m, nil
}

// --- Repository ---

// DynamoRepository is a Repository on docdb tables.
type DynamoRepository struct {
	db     *docdb.Store
	tables Tables
}

// NewDynamoRepository creates a repository whose tables share prefix.
func NewDynamoRepository(client docdb.API, prefix string, numShards int) *DynamoRepository {
	tables := TablesFor(prefix)
	return &DynamoRepository{
		db:     docdb.NewWithRegistry(client, docdb.PrefixedConfig(prefix, numShards), NewRegistry(tables)),
		tables: tables,
	}
}

// Tables returns the entity table names.
func (r *DynamoRepository) Tables() Tables {
	return r.tables
}

func (r *DynamoRepository) Begin() Tx {
	return &dynamoTx{tx: r.db.Begin(), tables: r.tables, products: make(map[string][]docdb.Descendant)}
}

func (r *DynamoRepository) Tenant(ctx context.Context, id string) (*Tenant, error) {
	return load[Tenant](ctx, r.db, r.tables.Tenants, id)
}

func (r *DynamoRepository) TenantByUsername(ctx context.Context, username string) (*Tenant, error) {
	return r.tenantByUnique(ctx, "username", username)
}

func (r *DynamoRepository) TenantByMail(ctx context.Context, mail string) (*Tenant, error) {
	return r.tenantByUnique(ctx, "mail", mail)
}

func (r *DynamoRepository) tenantByUnique(ctx context.Context, field, value string) (*Tenant, error) {
	ref, err := r.db.FindUnique(ctx, "", typeTenant, field, value)
	if err != nil {
		return nil, err
	}
	_, id := docdb.SplitRef(ref)
	return r.Tenant(ctx, id)
}

func (r *DynamoRepository) Store(ctx context.Context, id string) (*Store, error) {
	return load[Store](ctx, r.db, r.tables.Stores, id)
}

func (r *DynamoRepository) Product(ctx context.Context, id string) (*Product, error) {
	return load[Product](ctx, r.db, r.tables.Products, id)
}

func (r *DynamoRepository) Products(ctx context.Context, ids []string) ([]*Product, error) {
	found := make([]*Product, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			p, err := r.Product(gctx, id)
			if errors.Is(err, docdb.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			found[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*Product, 0, len(found))
	for _, p := range found {
		if p != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- Transaction ---

type dynamoTx struct {
	tx     *docdb.Tx
	tables Tables

	// products caches the descendants read by StoreProducts so that
	// DeleteStoreProducts stages deletes for the versions that were read.
	products map[string][]docdb.Descendant
}

func (t *dynamoTx) Tenant(ctx context.Context, id string) (*Tenant, error) {
	return load[Tenant](ctx, t.tx, t.tables.Tenants, id)
}

func (t *dynamoTx) Store(ctx context.Context, id string) (*Store, error) {
	return load[Store](ctx, t.tx, t.tables.Stores, id)
}

func (t *dynamoTx) Product(ctx context.Context, id string) (*Product, error) {
	return load[Product](ctx, t.tx, t.tables.Products, id)
}

func (t *dynamoTx) descendants(ctx context.Context, storeID string) ([]docdb.Descendant, error) {
	if ds, ok := t.products[storeID]; ok {
		return ds, nil
	}
	ds, err := t.tx.Descendants(ctx, typeStore, StoreRef(storeID))
	if err != nil {
		return nil, err
	}
	t.products[storeID] = ds
	return ds, nil
}

func (t *dynamoTx) StoreProducts(ctx context.Context, storeID string) ([]*Product, error) {
	ds, err := t.descendants(ctx, storeID)
	if err != nil {
		return nil, err
	}

	var products []*Product
	for _, d := range ds {
		if d.Item == nil || d.Ref.Type != typeProduct {
			continue
		}
		p, err := decode[Product](d.Item.Raw)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (t *dynamoTx) DeleteStoreProducts(ctx context.Context, storeID string) error {
	ds, err := t.descendants(ctx, storeID)
	if err != nil {
		return err
	}
	for _, d := range ds {
		t.tx.DeleteDescendant(d)
	}
	return nil
}

func (t *dynamoTx) CreateTenant(tenant *Tenant) error {
	item, err := attributevalue.MarshalMap(tenant)
	if err != nil {
		return fmt.Errorf("encode tenant: %w", err)
	}
	return t.tx.Create(tenantEntity{t: tenant, table: t.tables.Tenants}, item)
}

func (t *dynamoTx) UpdateTenant(ctx context.Context, tenant *Tenant) error {
	ch, err := changes(tenant, "store_ref", "store_id")
	if err != nil {
		return err
	}
	return t.tx.Update(ctx, tenantEntity{t: tenant, table: t.tables.Tenants}, ch, tenant.Version)
}

func (t *dynamoTx) CreateStore(s *Store) error {
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	return t.tx.Create(storeEntity{s: s, tables: t.tables}, item)
}

func (t *dynamoTx) UpdateStore(ctx context.Context, s *Store) error {
	ch, err := changes(s)
	if err != nil {
		return err
	}
	return t.tx.Update(ctx, storeEntity{s: s, tables: t.tables}, ch, s.Version)
}

func (t *dynamoTx) DeleteStore(s *Store) error {
	t.tx.Delete(storeEntity{s: s, tables: t.tables}, s.Version)
	return nil
}

func (t *dynamoTx) CreateProduct(p *Product) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}
	return t.tx.Create(productEntity{p: p, tables: t.tables}, item)
}

func (t *dynamoTx) UpdateProduct(ctx context.Context, p *Product) error {
	ch, err := changes(p)
	if err != nil {
		return err
	}
	return t.tx.Update(ctx, productEntity{p: p, tables: t.tables}, ch, p.Version)
}

func (t *dynamoTx) DeleteProduct(p *Product) error {
	t.tx.Delete(productEntity{p: p, tables: t.tables}, p.Version)
	return nil
}

func (t *dynamoTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *dynamoTx) Abort() {
	t.tx.Abort()
}
