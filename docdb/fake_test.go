package docdb

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI serves GetItem from a table|id map and Query from relationship
// records grouped by pk. TransactWriteItems is recorded, not applied.
type fakeAPI struct {
	mu       sync.Mutex
	items    map[string]map[string]types.AttributeValue
	links    map[string][]map[string]types.AttributeValue
	getErr   error
	queryErr error
	txErr    error
	txCalls  []*dynamodb.TransactWriteItemsInput
	queried  []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		items: make(map[string]map[string]types.AttributeValue),
		links: make(map[string][]map[string]types.AttributeValue),
	}
}

func (f *fakeAPI) put(table, id string, item map[string]types.AttributeValue) {
	item["id"] = &types.AttributeValueMemberS{Value: id}
	f.items[table+"|"+id] = item
}

func (f *fakeAPI) link(pk, childRef, childType, table, id string) {
	f.links[pk] = append(f.links[pk], map[string]types.AttributeValue{
		"pk":          &types.AttributeValueMemberS{Value: pk},
		"child_ref":   &types.AttributeValueMemberS{Value: childRef},
		"child_type":  &types.AttributeValueMemberS{Value: childType},
		"child_table": &types.AttributeValueMemberS{Value: table},
		"child_key": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		}},
	})
}

func (f *fakeAPI) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}

	var id string
	if v, ok := in.Key["id"].(*types.AttributeValueMemberS); ok {
		id = v.Value
	} else if v, ok := in.Key["pk"].(*types.AttributeValueMemberS); ok {
		id = v.Value
	}
	return &dynamodb.GetItemOutput{Item: f.items[*in.TableName+"|"+id]}, nil
}

func (f *fakeAPI) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	pk := in.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS).Value
	f.queried = append(f.queried, pk)
	return &dynamodb.QueryOutput{Items: f.links[pk]}, nil
}

func (f *fakeAPI) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txCalls = append(f.txCalls, in)
	if f.txErr != nil {
		return nil, f.txErr
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// --- Test entities ---

type tenantEntity struct {
	ID       string
	Username string
}

func (t tenantEntity) TableName() string  { return "tenants" }
func (t tenantEntity) EntityRef() string  { return Ref("tenant", t.ID) }
func (t tenantEntity) EntityType() string { return "tenant" }
func (t tenantEntity) GetKey() PK {
	return PK{"id": &types.AttributeValueMemberS{Value: t.ID}}
}
func (t tenantEntity) UniqueFields() map[string]string {
	return map[string]string{"username": t.Username}
}

type storeEntity struct {
	ID        string
	TenantID  string
	Subdomain string
}

func (s storeEntity) TableName() string  { return "stores" }
func (s storeEntity) EntityRef() string  { return Ref("store", s.ID) }
func (s storeEntity) EntityType() string { return "store" }
func (s storeEntity) GetKey() PK {
	return PK{"id": &types.AttributeValueMemberS{Value: s.ID}}
}
func (s storeEntity) ParentCheck() *ConditionCheck {
	return &ConditionCheck{
		TableName: "tenants",
		Key:       PK{"id": &types.AttributeValueMemberS{Value: s.TenantID}},
	}
}
func (s storeEntity) ParentRef() string { return Ref("tenant", s.TenantID) }
func (s storeEntity) UniqueFields() map[string]string {
	return map[string]string{"subdomain": s.Subdomain}
}

type productEntity struct {
	ID        string
	StoreID   string
	ProductID string
}

func (p productEntity) TableName() string  { return "products" }
func (p productEntity) EntityRef() string  { return Ref("product", p.ID) }
func (p productEntity) EntityType() string { return "product" }
func (p productEntity) GetKey() PK {
	return PK{"id": &types.AttributeValueMemberS{Value: p.ID}}
}
func (p productEntity) ParentCheck() *ConditionCheck {
	return &ConditionCheck{
		TableName: "stores",
		Key:       PK{"id": &types.AttributeValueMemberS{Value: p.StoreID}},
	}
}
func (p productEntity) ParentRef() string   { return Ref("store", p.StoreID) }
func (p productEntity) UniqueScope() string { return p.ParentRef() }
func (p productEntity) UniqueFields() map[string]string {
	return map[string]string{"product_id": p.ProductID}
}

func testStore(api *fakeAPI) *Store {
	reg := NewRegistry()
	reg.Register(Relationship{ParentType: "tenant", ChildType: "store", ChildTableName: "stores", ParentKeyAttr: "tenant_id"})
	reg.Register(Relationship{ParentType: "store", ChildType: "product", ChildTableName: "products", ParentKeyAttr: "store_id"})
	return NewWithRegistry(api, DefaultConfig(), reg)
}

func strAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
