package unify

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Key roles a column can carry in the expected schema.
const (
	KeyNone    = ""
	KeyPrimary = "primary"
	KeyForeign = "foreign"
)

// ColumnSpec describes one column of the expected source schema. Type names
// follow information_schema.columns.data_type ("character varying",
// "numeric", ...). Precision/Scale are checked for numeric columns only; a
// zero precision means "don't check".
type ColumnSpec struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	Precision int    `yaml:"precision,omitempty"`
	Scale     int    `yaml:"scale,omitempty"`
	NotNull   bool   `yaml:"not_null,omitempty"`
	Key       string `yaml:"key,omitempty"`
}

// Config is the full configuration for one unification run.
type Config struct {
	// SourceSchema holds the raw source datasets, one table per dataset.
	SourceSchema string `yaml:"source_schema"`
	// Datasets is the explicit include list for this run. Only tables named
	// here are considered (the original pipeline hardcoded this list).
	Datasets []string `yaml:"datasets"`
	// ExcludePatterns are ILIKE-style patterns for tables that are
	// structurally different and must never be schema-checked or merged.
	ExcludePatterns []string `yaml:"exclude_patterns"`
	// QueryLayer is the one layer whose records receive nearest-neighbor
	// enrichment.
	QueryLayer string `yaml:"query_layer"`
	// SRID is the spatial reference system shared by all geometries.
	SRID int `yaml:"srid"`
	// Columns is the expected schema every source dataset must conform to.
	Columns []ColumnSpec `yaml:"columns"`
	// RequiredColumns must all be present (case-insensitive) in a dataset.
	RequiredColumns []string `yaml:"required_columns"`
}

// DefaultColumns is the expected schema of the Berlin source datasets.
func DefaultColumns() []ColumnSpec {
	return []ColumnSpec{
		{Name: "id", Type: "character varying", NotNull: true, Key: KeyPrimary},
		{Name: "district_id", Type: "character varying", NotNull: true, Key: KeyForeign},
		{Name: "name", Type: "character varying"},
		{Name: "latitude", Type: "numeric", Precision: 9, Scale: 6},
		{Name: "longitude", Type: "numeric", Precision: 9, Scale: 6},
		{Name: "neighborhood", Type: "character varying"},
		{Name: "district", Type: "character varying"},
		{Name: "neighborhood_id", Type: "character varying"},
	}
}

// DefaultRequiredColumns lists the columns every mergeable dataset must have.
func DefaultRequiredColumns() []string {
	return []string{
		"id", "name", "district_id", "district",
		"latitude", "longitude", "neighborhood_id", "neighborhood", "geometry",
	}
}

// LoadConfig reads a YAML run configuration and fills in defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SourceSchema == "" {
		c.SourceSchema = "berlin_source_data"
	}
	if c.SRID == 0 {
		c.SRID = 4326
	}
	if len(c.ExcludePatterns) == 0 {
		c.ExcludePatterns = []string{"%districts%", "%neighborhoods%"}
	}
	if len(c.Columns) == 0 {
		c.Columns = DefaultColumns()
	}
	if len(c.RequiredColumns) == 0 {
		c.RequiredColumns = DefaultRequiredColumns()
	}
}

// Validate front-loads every fatal configuration error so a bad config never
// touches the canonical dataset.
func (c Config) Validate() error {
	if c.SourceSchema == "" {
		return errors.New("source_schema is empty")
	}
	if len(c.Datasets) == 0 {
		return errors.New("datasets include list is empty")
	}
	if c.QueryLayer == "" {
		return errors.New("query_layer is empty")
	}
	if c.Excluded(c.QueryLayer) {
		return fmt.Errorf("query_layer %q matches an exclude pattern", c.QueryLayer)
	}
	if !containsString(c.Datasets, c.QueryLayer) {
		return fmt.Errorf("query_layer %q is not on the datasets include list", c.QueryLayer)
	}
	if err := CheckPrefixCollisions(c.Datasets); err != nil {
		return err
	}
	for _, col := range c.Columns {
		switch col.Key {
		case KeyNone, KeyPrimary, KeyForeign:
		default:
			return fmt.Errorf("column %q: unknown key role %q", col.Name, col.Key)
		}
	}
	return nil
}

// Excluded reports whether a table name matches any exclude pattern.
func (c Config) Excluded(name string) bool {
	for _, p := range c.ExcludePatterns {
		if matchPattern(name, p) {
			return true
		}
	}
	return false
}

// matchPattern implements case-insensitive ILIKE matching with % wildcards,
// which is all the exclude patterns use.
func matchPattern(name, pattern string) bool {
	name = strings.ToLower(name)
	pattern = strings.ToLower(pattern)

	parts := strings.Split(pattern, "%")
	if len(parts) == 1 {
		return name == pattern
	}
	if !strings.HasPrefix(name, parts[0]) {
		return false
	}
	rest := name[len(parts[0]):]
	for _, mid := range parts[1 : len(parts)-1] {
		if mid == "" {
			continue
		}
		i := strings.Index(rest, mid)
		if i < 0 {
			return false
		}
		rest = rest[i+len(mid):]
	}
	return strings.HasSuffix(rest, parts[len(parts)-1])
}
