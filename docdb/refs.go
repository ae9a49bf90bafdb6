package docdb

import "strings"

// Ref builds a type-qualified entity reference ("store#abc").
func Ref(entityType, id string) string {
	return entityType + "#" + id
}

// SplitRef splits an entity reference into its type and id.
// A reference without a separator is returned as an id with no type.
func SplitRef(ref string) (entityType, id string) {
	t, rest, ok := strings.Cut(ref, "#")
	if !ok {
		return "", ref
	}
	return t, rest
}

// ParentExistsCondition returns the condition expression for parent validation.
func ParentExistsCondition() string {
	return "attribute_exists(id)"
}

// VersionCondition returns the optimistic lock condition used by staged updates and deletes.
func VersionCondition() string {
	return "#version = :expected_version"
}
