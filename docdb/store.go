package docdb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/storefront/internal/shard"
)

// Store provides DynamoDB operations with hierarchical entity support.
type Store struct {
	client   API
	config   Config
	registry *Registry
	now      func() time.Time
}

// New creates a new Store instance.
func New(client API, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
		now:    time.Now,
	}
}

// NewWithRegistry creates a new Store instance with a relationship registry.
func NewWithRegistry(client API, config Config, registry *Registry) *Store {
	s := New(client, config)
	s.registry = registry
	return s
}

// relationshipPK computes the sharded partition key for a relationship record.
func (s *Store) relationshipPK(parentRef, childRef string) string {
	return shard.RelationshipPK(parentRef, childRef, s.config.NumShards)
}

// Get retrieves an entity by key with a strongly consistent read,
// returning ErrNotFound if it is missing.
func (s *Store) Get(ctx context.Context, table string, key PK) (*Item, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", table, err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	item := s.unmarshalItem(result.Item)
	item.Table = table
	item.Key = key
	return item, nil
}

// FindUnique returns the entity reference that currently holds a unique value.
func (s *Store) FindUnique(ctx context.Context, scope, entityType, field, value string) (string, error) {
	pk := shard.UniqueConstraintPK(scope, entityType, field, value)
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.UniqueTable),
		Key:            uniqueKey(pk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get unique %s: %w", field, err)
	}
	if result.Item == nil {
		return "", ErrNotFound
	}
	ref, ok := result.Item["entity_ref"].(*types.AttributeValueMemberS)
	if !ok || ref.Value == "" {
		return "", ErrNotFound
	}
	return ref.Value, nil
}

// Descendant is a child found through the relationship table.
// Item is nil when the relationship record outlived the child.
type Descendant struct {
	Ref  ChildRef
	Item *Item
}

// Descendants returns every child of parentRef and, following the registry,
// their children in turn. Without a registry only direct children are returned.
func (s *Store) Descendants(ctx context.Context, parentType, parentRef string) ([]Descendant, error) {
	children, err := s.QueryAllChildren(ctx, parentRef)
	if err != nil {
		return nil, err
	}

	var out []Descendant
	for _, child := range children {
		if s.registry != nil && child.Type != "" && !s.registry.Cascades(parentType, child.Type) {
			continue
		}

		item, err := s.Get(ctx, child.TableName, child.Key)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("load child %s: %w", child.Ref, err)
		}
		out = append(out, Descendant{Ref: child, Item: item})

		if item == nil || s.registry == nil || !s.registry.HasChildren(child.Type) {
			continue
		}
		nested, err := s.Descendants(ctx, child.Type, child.Ref)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

// QueryAllChildren returns all children of an entity from the relationship table.
func (s *Store) QueryAllChildren(ctx context.Context, parentRef string) ([]ChildRef, error) {
	numShards := s.config.NumShards
	if numShards < 1 {
		numShards = 1
	}

	// Fast path for single shard (default)
	if numShards == 1 {
		return s.queryChildrenShard(ctx, fmt.Sprintf("%s#00", parentRef))
	}

	var mu sync.Mutex
	var allChildren []ChildRef
	var wg sync.WaitGroup
	errs := make(chan error, numShards)

	for shardNum := 0; shardNum < numShards; shardNum++ {
		wg.Add(1)
		go func(shardNum int) {
			defer wg.Done()

			shardChildren, err := s.queryChildrenShard(ctx, fmt.Sprintf("%s#%02x", parentRef, shardNum))
			if err != nil {
				errs <- fmt.Errorf("shard %02x: %w", shardNum, err)
				return
			}

			mu.Lock()
			allChildren = append(allChildren, shardChildren...)
			mu.Unlock()
		}(shardNum)
	}

	go func() {
		wg.Wait()
		close(errs)
	}()

	for err := range errs {
		if err != nil {
			return nil, err
		}
	}

	// Shards finish in any order; keep results stable for callers.
	sort.Slice(allChildren, func(i, j int) bool { return allChildren[i].Ref < allChildren[j].Ref })
	return allChildren, nil
}

func (s *Store) queryChildrenShard(ctx context.Context, shardPK string) ([]ChildRef, error) {
	var children []ChildRef

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.config.RelationshipTable),
		KeyConditionExpression: aws.String("pk = :pk"),
		ConsistentRead:         aws.Bool(true),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: shardPK},
		},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			children = append(children, s.unmarshalChildRef(item, shardPK))
		}
	}

	return children, nil
}

// unmarshalItem converts a DynamoDB item to an Item struct.
func (s *Store) unmarshalItem(raw map[string]types.AttributeValue) *Item {
	item := &Item{Raw: raw}

	if v, ok := raw["version"].(*types.AttributeValueMemberN); ok {
		item.Version, _ = strconv.ParseInt(v.Value, 10, 64)
	}
	if v, ok := raw["created_at"].(*types.AttributeValueMemberS); ok {
		item.CreatedAt = v.Value
	}
	if v, ok := raw["updated_at"].(*types.AttributeValueMemberS); ok {
		item.UpdatedAt = v.Value
	}
	if v, ok := raw["entity_ref"].(*types.AttributeValueMemberS); ok {
		item.EntityRef = v.Value
	}
	if v, ok := raw["parent_ref"].(*types.AttributeValueMemberS); ok {
		item.ParentRef = v.Value
	}
	if v, ok := raw["_unique_pks"].(*types.AttributeValueMemberL); ok {
		for _, pk := range v.Value {
			if str, ok := pk.(*types.AttributeValueMemberS); ok {
				item.UniquePKs = append(item.UniquePKs, str.Value)
			}
		}
	}

	return item
}

// unmarshalChildRef converts a relationship item to a ChildRef.
func (s *Store) unmarshalChildRef(item map[string]types.AttributeValue, shardPK string) ChildRef {
	ref := ChildRef{ShardPK: shardPK}

	if v, ok := item["child_ref"].(*types.AttributeValueMemberS); ok {
		ref.Ref = v.Value
	}
	if v, ok := item["child_type"].(*types.AttributeValueMemberS); ok {
		ref.Type = v.Value
	} else {
		ref.Type, _ = SplitRef(ref.Ref)
	}
	if v, ok := item["child_table"].(*types.AttributeValueMemberS); ok {
		ref.TableName = v.Value
	}
	if v, ok := item["child_key"].(*types.AttributeValueMemberM); ok {
		ref.Key = v.Value
	}

	return ref
}

func uniqueKey(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: pk},
		"sk": &types.AttributeValueMemberS{Value: "CONSTRAINT"},
	}
}
