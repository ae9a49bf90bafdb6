package docdb_test

import (
	"testing"

	"github.com/jacentio/storefront/docdb"
)

func TestRegistry(t *testing.T) {
	reg := docdb.NewRegistry()
	if reg.HasChildren("store") {
		t.Error("empty registry should have no children")
	}

	reg.Register(docdb.Relationship{ParentType: "tenant", ChildType: "store", ChildTableName: "storefront_stores", ParentKeyAttr: "tenant_id"})
	reg.Register(docdb.Relationship{ParentType: "store", ChildType: "product", ChildTableName: "storefront_products", ParentKeyAttr: "store_id"})

	if len(reg.AllRelationships()) != 2 {
		t.Errorf("expected 2 relationships, got %d", len(reg.AllRelationships()))
	}
	if children := reg.ChildrenOf("store"); len(children) != 1 || children[0].ChildType != "product" {
		t.Errorf("unexpected children of store: %+v", children)
	}
	if reg.HasChildren("product") {
		t.Error("product should be a leaf")
	}
	if len(reg.ChildrenOf("unknown")) != 0 {
		t.Error("expected no children for unknown type")
	}
}

func TestRegistry_Cascades(t *testing.T) {
	reg := docdb.NewRegistry()
	reg.Register(docdb.Relationship{ParentType: "store", ChildType: "product"})

	tests := []struct {
		parent, child string
		want          bool
	}{
		{"store", "product", true},
		{"store", "review", false},
		{"tenant", "store", false},
		{"product", "store", false},
	}
	for _, tt := range tests {
		if got := reg.Cascades(tt.parent, tt.child); got != tt.want {
			t.Errorf("Cascades(%q, %q) = %v, want %v", tt.parent, tt.child, got, tt.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := docdb.DefaultConfig()
	if cfg.RelationshipTable != "storefront_relationships" {
		t.Errorf("unexpected relationship table %q", cfg.RelationshipTable)
	}
	if cfg.UniqueTable != "storefront_unique_constraints" {
		t.Errorf("unexpected unique table %q", cfg.UniqueTable)
	}
	if cfg.NumShards != 1 {
		t.Errorf("expected 1 shard, got %d", cfg.NumShards)
	}
}

func TestPrefixedConfig(t *testing.T) {
	tests := []struct {
		prefix    string
		shards    int
		relTable  string
		numShards int
	}{
		{"shop", 4, "shop_relationships", 4},
		{"", 0, "storefront_relationships", 1},
		{"shop", 1000, "shop_relationships", 256},
	}
	for _, tt := range tests {
		cfg := docdb.PrefixedConfig(tt.prefix, tt.shards)
		if cfg.RelationshipTable != tt.relTable || cfg.NumShards != tt.numShards {
			t.Errorf("PrefixedConfig(%q, %d) = %+v", tt.prefix, tt.shards, cfg)
		}
	}
}

func TestSplitRef(t *testing.T) {
	tests := []struct {
		ref, typ, id string
	}{
		{"store#abc", "store", "abc"},
		{"product#a#b", "product", "a#b"},
		{"plain", "", "plain"},
	}
	for _, tt := range tests {
		typ, id := docdb.SplitRef(tt.ref)
		if typ != tt.typ || id != tt.id {
			t.Errorf("SplitRef(%q) = %q, %q", tt.ref, typ, id)
		}
	}
	if docdb.Ref("tenant", "t1") != "tenant#t1" {
		t.Error("unexpected Ref output")
	}
}
