// Package docdb provides a DynamoDB data access layer with hierarchical entity support.
//
// docdb models parent/child relationships in DynamoDB while maintaining
// referential integrity and unique constraints, and lets callers stage several
// writes into one all-or-nothing transaction.
//
// # Key Features
//
//   - Parent validation on child creation (atomic)
//   - Relationship records for finding and deleting descendants
//   - Unique field constraints, global or scoped to a parent
//   - Optimistic locking with version field
//   - Staged multi-item transactions with commit/abort ([Tx])
//   - Configurable write sharding for relationship records
//
// # Entity Interfaces
//
// All entities must implement the [Entity] interface:
//
//	type Entity interface {
//	    TableName() string
//	    GetKey() PK
//	    EntityRef() string
//	    EntityType() string
//	}
//
// Child entities should also implement [ParentChecker]. Entities with unique
// constraints implement [UniqueFielder], and [UniqueScoper] when the
// uniqueness only holds within a parent.
//
// # Transactions
//
// Reads happen before staging; every staged update or delete is conditioned on
// the version that was read, so a commit fails with
// [ErrConcurrentModification] when another writer got there first:
//
//	tx := db.Begin()
//	defer tx.Abort()
//	item, err := tx.Get(ctx, "stores", key)
//	...
//	tx.Delete(store, item.Version)
//	err = tx.Commit(ctx)
//
// # Errors
//
//   - [ErrNotFound] - entity doesn't exist
//   - [ErrParentNotFound] - parent validation failed
//   - [ErrAlreadyExists] - entity with ID already exists
//   - [ErrConcurrentModification] - optimistic lock failed
//   - [ErrDuplicateValue] - unique constraint violated
//   - [ErrTransactionTooLarge] - more writes staged than DynamoDB accepts
package docdb
