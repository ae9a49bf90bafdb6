package docdb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// API is the subset of *dynamodb.Client used by Store.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// PK represents a DynamoDB primary key.
type PK map[string]types.AttributeValue

// Entity is the base interface for all storable types.
type Entity interface {
	// TableName returns the DynamoDB table name for this entity type.
	TableName() string

	// GetKey returns the primary key for this entity.
	GetKey() PK

	// EntityRef returns the type-qualified reference (e.g., "store#abc").
	EntityRef() string

	// EntityType returns the entity type name (e.g., "store").
	EntityType() string
}

// ParentChecker is implemented by entities that have a parent.
type ParentChecker interface {
	// ParentCheck returns the condition check for parent validation.
	// Returns nil for root entities or when parent validation should be skipped.
	ParentCheck() *ConditionCheck

	// ParentRef returns the parent's entity reference (e.g., "tenant#uuid").
	// Returns empty string for root entities.
	ParentRef() string
}

// ConditionCheck defines a parent existence check for transactions.
type ConditionCheck struct {
	TableName string
	Key       PK

	// ConditionExpr is an optional custom condition expression.
	// If empty, ParentExistsCondition() is used.
	ConditionExpr string
}

// UniqueFielder is implemented by entities with unique field constraints.
type UniqueFielder interface {
	// UniqueFields returns field name to value mappings for fields
	// that must be unique. Empty values are not constrained.
	UniqueFields() map[string]string
}

// UniqueScoper narrows an entity's unique constraints to a scope, usually
// its parent reference. Entities that don't implement it are unique globally.
type UniqueScoper interface {
	UniqueScope() string
}

// Item represents a retrieved DynamoDB item with common fields.
type Item struct {
	// Raw is the raw DynamoDB item.
	Raw map[string]types.AttributeValue

	// Table is the table the item was read from.
	Table string

	// Key is the item's primary key, when known.
	Key PK

	// Version is the optimistic lock version.
	Version int64

	// CreatedAt is the ISO 8601 creation timestamp.
	CreatedAt string

	// UpdatedAt is the ISO 8601 last update timestamp.
	UpdatedAt string

	// EntityRef is the type-qualified entity reference.
	EntityRef string

	// ParentRef is the parent's entity reference (empty for root entities).
	ParentRef string

	// UniquePKs lists the unique constraint records owned by the item.
	UniquePKs []string
}

// EntityType returns the type part of the item's entity reference.
func (i *Item) EntityType() string {
	t, _ := SplitRef(i.EntityRef)
	return t
}

// ChildRef represents a reference to a child entity in the relationship table.
type ChildRef struct {
	// Ref is the child's entity reference.
	Ref string

	// Type is the child's entity type.
	Type string

	// TableName is the DynamoDB table containing the child.
	TableName string

	// Key is the primary key to locate the child.
	Key PK

	// ShardPK is the relationship table partition key.
	ShardPK string
}
