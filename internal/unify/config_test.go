package unify_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LayeredData/POI-Backend/internal/unify"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unify.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestLoadConfig_Defaults verifies that a minimal config picks up the
// default source schema, SRID, exclude patterns and expected schema.
func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
datasets:
  - galleries
  - long_term_listings
query_layer: long_term_listings
`)

	cfg, err := unify.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.SourceSchema != "berlin_source_data" {
		t.Errorf("source schema = %q", cfg.SourceSchema)
	}
	if cfg.SRID != 4326 {
		t.Errorf("srid = %d, want 4326", cfg.SRID)
	}
	if len(cfg.Columns) == 0 || len(cfg.RequiredColumns) == 0 {
		t.Error("expected schema defaults not applied")
	}
	if !cfg.Excluded("berlin_districts") || !cfg.Excluded("neighborhoods") {
		t.Error("default exclude patterns not applied")
	}
	if cfg.Excluded("galleries") {
		t.Error("galleries must not match an exclude pattern")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("minimal config should validate, got %v", err)
	}
}

// TestLoadConfig_Overrides verifies explicit values survive loading.
func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfig(t, `
source_schema: hamburg_source_data
srid: 25832
datasets:
  - banks
query_layer: banks
exclude_patterns:
  - "%boundaries%"
`)

	cfg, err := unify.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SourceSchema != "hamburg_source_data" || cfg.SRID != 25832 {
		t.Errorf("overrides lost: %+v", cfg)
	}
	if !cfg.Excluded("city_boundaries") || cfg.Excluded("berlin_districts") {
		t.Error("explicit exclude patterns should replace the defaults")
	}
}

// TestConfigValidate_PrefixCollision verifies that colliding dataset name
// prefixes are a fatal configuration error.
func TestConfigValidate_PrefixCollision(t *testing.T) {
	cfg := unify.Config{
		SourceSchema: "berlin_source_data",
		Datasets:     []string{"food_markets", "food_halls"},
		QueryLayer:   "food_markets",
		SRID:         4326,
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected a prefix collision error")
	}
	if !strings.Contains(err.Error(), "food") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestConfigValidate_QueryLayer verifies the query layer must be set and
// must not be an excluded category.
func TestConfigValidate_QueryLayer(t *testing.T) {
	cfg := unify.Config{
		SourceSchema: "berlin_source_data",
		Datasets:     []string{"galleries"},
		SRID:         4326,
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for empty query_layer")
	}

	cfg.Datasets = []string{"galleries", "city_districts"}
	cfg.QueryLayer = "city_districts"
	cfg.ExcludePatterns = []string{"%districts%"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for an excluded query_layer")
	}
}

// TestConfigValidate_UnknownQueryLayer verifies that a query layer absent
// from the datasets include list is rejected up front: a typo'd layer name
// would otherwise run to completion with zero enrichment and no error.
func TestConfigValidate_UnknownQueryLayer(t *testing.T) {
	cfg := unify.Config{
		SourceSchema: "berlin_source_data",
		Datasets:     []string{"galleries", "banks"},
		QueryLayer:   "long_term_listingz",
		SRID:         4326,
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error for a query_layer outside the include list")
	}
	if !strings.Contains(err.Error(), "long_term_listingz") {
		t.Errorf("error should name the offending layer, got %v", err)
	}
}

// TestConfigValidate_KeyRole verifies unknown key roles are rejected.
func TestConfigValidate_KeyRole(t *testing.T) {
	cfg := unify.Config{
		SourceSchema: "berlin_source_data",
		Datasets:     []string{"galleries", "banks"},
		QueryLayer:   "banks",
		SRID:         4326,
		Columns:      []unify.ColumnSpec{{Name: "id", Type: "character varying", Key: "unique"}},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected an error for unknown key role")
	}
}
