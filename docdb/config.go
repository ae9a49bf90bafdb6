package docdb

// Config holds configuration for the Store.
type Config struct {
	// RelationshipTable is the name of the relationship table.
	// Default: "storefront_relationships"
	RelationshipTable string

	// UniqueTable is the name of the unique constraints table.
	// Default: "storefront_unique_constraints"
	UniqueTable string

	// NumShards is the number of shards for the relationship table.
	// Higher values increase write throughput per parent but require more
	// parallel queries when listing children.
	// Default: 1 (no sharding, single query)
	// Max: 256
	NumShards int
}

// DefaultConfig returns sensible defaults for small datasets.
func DefaultConfig() Config {
	return Config{
		RelationshipTable: "storefront_relationships",
		UniqueTable:       "storefront_unique_constraints",
		NumShards:         1,
	}
}

// PrefixedConfig returns the default configuration with table names
// derived from prefix, e.g. "shop" gives "shop_relationships".
func PrefixedConfig(prefix string, numShards int) Config {
	if prefix == "" {
		cfg := DefaultConfig()
		cfg.NumShards = numShards
		cfg.validate()
		return cfg
	}
	cfg := Config{
		RelationshipTable: prefix + "_relationships",
		UniqueTable:       prefix + "_unique_constraints",
		NumShards:         numShards,
	}
	cfg.validate()
	return cfg
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.RelationshipTable == "" {
		c.RelationshipTable = "storefront_relationships"
	}
	if c.UniqueTable == "" {
		c.UniqueTable = "storefront_unique_constraints"
	}
	if c.NumShards < 1 {
		c.NumShards = 1
	}
	if c.NumShards > 256 {
		c.NumShards = 256
	}
}
