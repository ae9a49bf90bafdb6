package docdb

import "errors"

var (
	// ErrParentNotFound is returned when the parent entity doesn't exist.
	ErrParentNotFound = errors.New("docdb: parent entity not found")

	// ErrNotFound is returned when an entity doesn't exist.
	ErrNotFound = errors.New("docdb: entity not found")

	// ErrAlreadyExists is returned when attempting to create an entity with an existing ID.
	ErrAlreadyExists = errors.New("docdb: entity already exists")

	// ErrConcurrentModification is returned when optimistic lock fails (version mismatch)
	// or DynamoDB cancels the transaction because of a conflicting one.
	ErrConcurrentModification = errors.New("docdb: entity was modified concurrently")

	// ErrDuplicateValue is returned when a unique constraint is violated.
	ErrDuplicateValue = errors.New("docdb: duplicate value for unique field")

	// ErrTransactionTooLarge is returned when more writes are staged than fit in one transaction.
	ErrTransactionTooLarge = errors.New("docdb: transaction exceeds item limit")

	// ErrTxClosed is returned when committing a transaction that was already committed or aborted.
	ErrTxClosed = errors.New("docdb: transaction already closed")
)
