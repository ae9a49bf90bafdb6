package docdb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/storefront/internal/shard"
)

// MaxTransactItems is the number of writes DynamoDB accepts in one transaction.
const MaxTransactItems = 100

// opKind tells mapError what a failed condition on a staged item means.
type opKind int

const (
	opPlain opKind = iota
	opVersioned
	opParentCheck
	opEntityPut
	opUnique
)

// managedFields are maintained by the store and never written from user changes.
var managedFields = map[string]bool{
	"id":          true,
	"entity_ref":  true,
	"parent_ref":  true,
	"version":     true,
	"created_at":  true,
	"updated_at":  true,
	"_unique_pks": true,
}

// Tx stages writes and sends them as a single TransactWriteItems call.
// Nothing reaches DynamoDB before Commit; Abort discards the staged writes.
// A Tx is not safe for concurrent use.
type Tx struct {
	store  *Store
	items  []types.TransactWriteItem
	kinds  []opKind
	closed bool
}

// Begin starts a new transaction.
func (s *Store) Begin() *Tx {
	return &Tx{store: s}
}

// Get reads an entity with a strongly consistent read.
func (tx *Tx) Get(ctx context.Context, table string, key PK) (*Item, error) {
	return tx.store.Get(ctx, table, key)
}

// Descendants returns the registered descendants of parentRef.
func (tx *Tx) Descendants(ctx context.Context, parentType, parentRef string) ([]Descendant, error) {
	return tx.store.Descendants(ctx, parentType, parentRef)
}

// Len returns the number of staged writes.
func (tx *Tx) Len() int {
	return len(tx.items)
}

func (tx *Tx) stage(kind opKind, item types.TransactWriteItem) {
	tx.items = append(tx.items, item)
	tx.kinds = append(tx.kinds, kind)
}

// Create stages a new entity together with its parent check, unique
// constraint records and relationship record.
func (tx *Tx) Create(entity Entity, item map[string]types.AttributeValue) error {
	if tx.closed {
		return ErrTxClosed
	}

	now := tx.store.now()
	nowISO := now.UTC().Format(time.RFC3339)

	// 1. Parent condition check
	if checker, ok := entity.(ParentChecker); ok {
		if check := checker.ParentCheck(); check != nil {
			condExpr := check.ConditionExpr
			if condExpr == "" {
				condExpr = ParentExistsCondition()
			}
			tx.stage(opParentCheck, types.TransactWriteItem{
				ConditionCheck: &types.ConditionCheck{
					TableName:           aws.String(check.TableName),
					Key:                 check.Key,
					ConditionExpression: aws.String(condExpr),
				},
			})
		}
	}

	// 2. Managed fields
	item["entity_ref"] = &types.AttributeValueMemberS{Value: entity.EntityRef()}
	item["version"] = &types.AttributeValueMemberN{Value: "1"}
	item["created_at"] = &types.AttributeValueMemberS{Value: nowISO}
	item["updated_at"] = &types.AttributeValueMemberS{Value: nowISO}

	var parentRef string
	if checker, ok := entity.(ParentChecker); ok {
		parentRef = checker.ParentRef()
		if parentRef != "" {
			item["parent_ref"] = &types.AttributeValueMemberS{Value: parentRef}
		}
	}

	// 3. Unique constraints
	uniquePKs := uniqueConstraintPKs(entity)
	for _, uc := range uniquePKs {
		tx.stage(opUnique, tx.putUnique(entity, uc))
	}
	if len(uniquePKs) > 0 {
		item["_unique_pks"] = uniquePKList(uniquePKs)
	}

	// 4. Entity
	tx.stage(opEntityPut, types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(entity.TableName()),
			Item:                item,
			ConditionExpression: aws.String("attribute_not_exists(id)"),
		},
	})

	// 5. Relationship record
	if parentRef != "" {
		childRef := entity.EntityRef()
		tx.stage(opPlain, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(tx.store.config.RelationshipTable),
				Item: map[string]types.AttributeValue{
					"pk":          &types.AttributeValueMemberS{Value: tx.store.relationshipPK(parentRef, childRef)},
					"child_ref":   &types.AttributeValueMemberS{Value: childRef},
					"child_type":  &types.AttributeValueMemberS{Value: entity.EntityType()},
					"parent_ref":  &types.AttributeValueMemberS{Value: parentRef},
					"child_table": &types.AttributeValueMemberS{Value: entity.TableName()},
					"child_key":   &types.AttributeValueMemberM{Value: entity.GetKey()},
				},
			},
		})
	}

	return nil
}

// Update stages a partial update conditioned on expectedVersion. A nil value
// removes the attribute. When the entity has unique fields their constraint
// records are moved to the new values in the same transaction.
func (tx *Tx) Update(ctx context.Context, entity Entity, changes map[string]types.AttributeValue, expectedVersion int64) error {
	if tx.closed {
		return ErrTxClosed
	}

	exprNames := map[string]string{
		"#updated_at": "updated_at",
		"#version":    "version",
	}
	exprValues := map[string]types.AttributeValue{
		":updated_at":       &types.AttributeValueMemberS{Value: tx.store.now().UTC().Format(time.RFC3339)},
		":one":              &types.AttributeValueMemberN{Value: "1"},
		":expected_version": &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion, 10)},
	}

	var setClauses, removeClauses []string

	if _, ok := entity.(UniqueFielder); ok {
		current, err := tx.store.Get(ctx, entity.TableName(), entity.GetKey())
		if err != nil {
			return err
		}
		if current.Version != expectedVersion {
			return ErrConcurrentModification
		}

		newPKs := uniqueConstraintPKs(entity)
		if changed := tx.moveUniques(entity, current.UniquePKs, newPKs); changed {
			exprNames["#unique_pks"] = "_unique_pks"
			if len(newPKs) == 0 {
				removeClauses = append(removeClauses, "#unique_pks")
			} else {
				exprValues[":unique_pks"] = uniquePKList(newPKs)
				setClauses = append(setClauses, "#unique_pks = :unique_pks")
			}
		}
	}

	keys := make([]string, 0, len(changes))
	for k := range changes {
		if !managedFields[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for i, k := range keys {
		nameKey := fmt.Sprintf("#attr%d", i)
		exprNames[nameKey] = k
		if changes[k] == nil {
			removeClauses = append(removeClauses, nameKey)
			continue
		}
		valueKey := fmt.Sprintf(":val%d", i)
		exprValues[valueKey] = changes[k]
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}

	setClauses = append(setClauses, "#updated_at = :updated_at", "#version = #version + :one")

	updateExpr := "SET " + strings.Join(setClauses, ", ")
	if len(removeClauses) > 0 {
		updateExpr += " REMOVE " + strings.Join(removeClauses, ", ")
	}

	tx.stage(opVersioned, types.TransactWriteItem{
		Update: &types.Update{
			TableName:                 aws.String(entity.TableName()),
			Key:                       entity.GetKey(),
			UpdateExpression:          aws.String(updateExpr),
			ConditionExpression:       aws.String(VersionCondition()),
			ExpressionAttributeNames:  exprNames,
			ExpressionAttributeValues: exprValues,
		},
	})
	return nil
}

// moveUniques stages the constraint puts and deletes needed to go from
// oldPKs to newPKs and reports whether anything changed.
func (tx *Tx) moveUniques(entity Entity, oldPKs []string, newPKs []uniquePK) bool {
	old := make(map[string]bool, len(oldPKs))
	for _, pk := range oldPKs {
		old[pk] = true
	}
	keep := make(map[string]bool, len(newPKs))

	changed := false
	for _, uc := range newPKs {
		keep[uc.pk] = true
		if !old[uc.pk] {
			tx.stage(opUnique, tx.putUnique(entity, uc))
			changed = true
		}
	}
	for _, pk := range oldPKs {
		if !keep[pk] {
			tx.stage(opPlain, tx.deleteUnique(pk))
			changed = true
		}
	}
	return changed
}

// Delete stages removal of an entity conditioned on expectedVersion, along
// with its unique constraint records and its relationship record.
func (tx *Tx) Delete(entity Entity, expectedVersion int64) {
	var linkPK string
	if checker, ok := entity.(ParentChecker); ok && checker.ParentRef() != "" {
		linkPK = tx.store.relationshipPK(checker.ParentRef(), entity.EntityRef())
	}

	var pks []string
	for _, uc := range uniqueConstraintPKs(entity) {
		pks = append(pks, uc.pk)
	}

	tx.stageDelete(entity.TableName(), entity.GetKey(), expectedVersion, pks)
	if linkPK != "" {
		tx.stage(opPlain, tx.deleteLink(linkPK, entity.EntityRef()))
	}
}

// DeleteDescendant stages removal of a descendant returned by Descendants.
// Stale relationship records are removed on their own.
func (tx *Tx) DeleteDescendant(d Descendant) {
	if d.Item != nil {
		tx.stageDelete(d.Ref.TableName, d.Ref.Key, d.Item.Version, d.Item.UniquePKs)
	}
	tx.stage(opPlain, tx.deleteLink(d.Ref.ShardPK, d.Ref.Ref))
}

func (tx *Tx) stageDelete(table string, key PK, expectedVersion int64, uniquePKs []string) {
	tx.stage(opVersioned, types.TransactWriteItem{
		Delete: &types.Delete{
			TableName:                aws.String(table),
			Key:                      key,
			ConditionExpression:      aws.String(VersionCondition()),
			ExpressionAttributeNames: map[string]string{"#version": "version"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":expected_version": &types.AttributeValueMemberN{Value: strconv.FormatInt(expectedVersion, 10)},
			},
		},
	})

	for _, pk := range uniquePKs {
		tx.stage(opPlain, tx.deleteUnique(pk))
	}
}

func (tx *Tx) deleteLink(shardPK, childRef string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(tx.store.config.RelationshipTable),
			Key: map[string]types.AttributeValue{
				"pk":        &types.AttributeValueMemberS{Value: shardPK},
				"child_ref": &types.AttributeValueMemberS{Value: childRef},
			},
		},
	}
}

func (tx *Tx) putUnique(entity Entity, uc uniquePK) types.TransactWriteItem {
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName: aws.String(tx.store.config.UniqueTable),
			Item: map[string]types.AttributeValue{
				"pk":          &types.AttributeValueMemberS{Value: uc.pk},
				"sk":          &types.AttributeValueMemberS{Value: "CONSTRAINT"},
				"scope":       &types.AttributeValueMemberS{Value: uc.scope},
				"entity_type": &types.AttributeValueMemberS{Value: entity.EntityType()},
				"field_name":  &types.AttributeValueMemberS{Value: uc.field},
				"field_value": &types.AttributeValueMemberS{Value: uc.value},
				"entity_ref":  &types.AttributeValueMemberS{Value: entity.EntityRef()},
			},
			// Fails if another entity already has this unique value
			ConditionExpression: aws.String("attribute_not_exists(pk)"),
		},
	}
}

func (tx *Tx) deleteUnique(pk string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: aws.String(tx.store.config.UniqueTable),
			Key:       uniqueKey(pk),
		},
	}
}

// Commit sends every staged write in one transaction. The transaction is
// closed afterwards whether or not the commit succeeded.
func (tx *Tx) Commit(ctx context.Context) error {
	if tx.closed {
		return ErrTxClosed
	}
	tx.closed = true

	tx.dropCoveredChecks()
	if len(tx.items) == 0 {
		return nil
	}
	if len(tx.items) > MaxTransactItems {
		return fmt.Errorf("%w: %d staged, limit %d", ErrTransactionTooLarge, len(tx.items), MaxTransactItems)
	}

	_, err := tx.store.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems:      tx.items,
		ClientRequestToken: aws.String(uuid.NewString()),
	})
	return tx.mapError(err)
}

// dropCoveredChecks removes condition checks on items that another staged
// write already touches. DynamoDB rejects two operations on one item, and the
// write's own version condition fails if the item is gone.
func (tx *Tx) dropCoveredChecks() {
	written := make(map[string]bool)
	for _, it := range tx.items {
		switch {
		case it.Update != nil:
			written[target(it.Update.TableName, it.Update.Key)] = true
		case it.Delete != nil:
			written[target(it.Delete.TableName, it.Delete.Key)] = true
		}
	}

	items := tx.items[:0]
	kinds := tx.kinds[:0]
	for i, it := range tx.items {
		if it.ConditionCheck != nil && written[target(it.ConditionCheck.TableName, it.ConditionCheck.Key)] {
			continue
		}
		items = append(items, it)
		kinds = append(kinds, tx.kinds[i])
	}
	tx.items = items
	tx.kinds = kinds
}

func target(table *string, key map[string]types.AttributeValue) string {
	names := make([]string, 0, len(key))
	for name := range key {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(aws.ToString(table))
	for _, name := range names {
		b.WriteString("|" + name + "=")
		switch v := key[name].(type) {
		case *types.AttributeValueMemberS:
			b.WriteString(v.Value)
		case *types.AttributeValueMemberN:
			b.WriteString(v.Value)
		default:
			fmt.Fprintf(&b, "%v", v)
		}
	}
	return b.String()
}

// Abort discards staged writes. It is safe to call after Commit.
func (tx *Tx) Abort() {
	tx.closed = true
	tx.items = nil
	tx.kinds = nil
}

// mapError maps DynamoDB transaction errors using the kind of the item whose
// condition failed.
func (tx *Tx) mapError(err error) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for i, reason := range txErr.CancellationReasons {
			if reason.Code == nil {
				continue
			}
			switch *reason.Code {
			case "ConditionalCheckFailed":
				if i >= len(tx.kinds) {
					return ErrConcurrentModification
				}
				switch tx.kinds[i] {
				case opParentCheck:
					return ErrParentNotFound
				case opEntityPut:
					return ErrAlreadyExists
				case opUnique:
					return ErrDuplicateValue
				default:
					return ErrConcurrentModification
				}
			case "TransactionConflict":
				return ErrConcurrentModification
			}
		}
	}

	var conflict *types.TransactionConflictException
	if errors.As(err, &conflict) {
		return ErrConcurrentModification
	}

	return fmt.Errorf("transact write: %w", err)
}

type uniquePK struct {
	pk    string
	scope string
	field string
	value string
}

// uniqueConstraintPKs computes the constraint records for an entity's
// non-empty unique fields, in field order.
func uniqueConstraintPKs(entity Entity) []uniquePK {
	uf, ok := entity.(UniqueFielder)
	if !ok {
		return nil
	}

	var scope string
	if sc, ok := entity.(UniqueScoper); ok {
		scope = sc.UniqueScope()
	}

	fields := uf.UniqueFields()
	names := make([]string, 0, len(fields))
	for name, value := range fields {
		if value != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	out := make([]uniquePK, 0, len(names))
	for _, name := range names {
		out = append(out, uniquePK{
			pk:    shard.UniqueConstraintPK(scope, entity.EntityType(), name, fields[name]),
			scope: scope,
			field: name,
			value: fields[name],
		})
	}
	return out
}

func uniquePKList(pks []uniquePK) types.AttributeValue {
	values := make([]string, len(pks))
	for i, uc := range pks {
		values[i] = uc.pk
	}
	list, _ := attributevalue.MarshalList(values)
	return &types.AttributeValueMemberL{Value: list}
}
