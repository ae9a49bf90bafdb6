// Package shard provides partition key generation for the relationship and
// unique constraint tables.
package shard

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
)

// RelationshipPK computes the sharded partition key for a relationship record.
// With numShards=1, all children of a parent share shard "00".
// With numShards>1, children are spread across shards by childRef hash.
func RelationshipPK(parentRef, childRef string, numShards int) string {
	if numShards <= 1 {
		return fmt.Sprintf("%s#00", parentRef)
	}
	h := fnv.New32a()
	h.Write([]byte(childRef))
	shard := h.Sum32() % uint32(numShards)
	return fmt.Sprintf("%s#%02x", parentRef, shard)
}

// UniqueConstraintPK computes a hash-distributed partition key for a unique
// constraint. scope is empty for globally unique fields (a tenant's mail) and
// a parent reference for fields unique within a parent (a product id inside
// a store).
func UniqueConstraintPK(scope, entityType, field, value string) string {
	data := fmt.Sprintf("%s#%s#%s#%s", scope, entityType, field, value)
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:16]) // 128-bit hash as hex
}
