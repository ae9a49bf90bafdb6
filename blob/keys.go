package blob

import "strings"

// StorePrefix is the namespace holding every object of a store.
func StorePrefix(storeID string) string {
	return "stores/" + storeID + "/"
}

// LogoPrefix is the namespace for a store's logo.
func LogoPrefix(storeID string) string {
	return StorePrefix(storeID) + "logo/"
}

// ProductPrefix is the namespace for a product's images.
func ProductPrefix(storeID, productID string) string {
	return StorePrefix(storeID) + "products/" + productID + "/"
}

// Within reports whether key lives under prefix.
func Within(key, prefix string) bool {
	return strings.HasPrefix(key, prefix) && len(key) > len(prefix)
}
