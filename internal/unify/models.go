package unify

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// JSONB maps onto a jsonb column.
type JSONB map[string]any

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return fmt.Errorf("unsupported jsonb source type %T", src)
}

// EWKT carries geometry as extended well-known text
// (e.g. "SRID=4326;POINT(13.4 52.5)"). Postgres parses it on insert through
// the geometry input function.
type EWKT string

func (g EWKT) Value() (driver.Value, error) {
	if g == "" {
		return nil, nil
	}
	return string(g), nil
}

func (g *EWKT) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*g = ""
		return nil
	case []byte:
		*g = EWKT(v)
		return nil
	case string:
		*g = EWKT(v)
		return nil
	}
	return errors.New("unsupported geometry source type")
}

// POI is one canonical record in the unified dataset. Nullable source fields
// stay pointers so that NULLs round-trip instead of turning into zero values.
type POI struct {
	PoiID          string   `gorm:"primaryKey;column:poi_id" json:"poi_id"`
	Name           *string  `gorm:"column:name" json:"name"`
	Layer          string   `gorm:"column:layer" json:"layer"`
	DistrictID     *string  `gorm:"column:district_id" json:"district_id"`
	District       *string  `gorm:"column:district" json:"district"`
	NeighborhoodID *string  `gorm:"column:neighborhood_id" json:"neighborhood_id"`
	Neighborhood   *string  `gorm:"column:neighborhood" json:"neighborhood"`
	Latitude       *float64 `gorm:"column:latitude" json:"latitude"`
	Longitude      *float64 `gorm:"column:longitude" json:"longitude"`
	Geometry       EWKT     `gorm:"column:geometry" json:"geometry"`
	Attributes     JSONB    `gorm:"column:attributes" json:"attributes"`
	NearestPois    JSONB    `gorm:"column:nearest_pois" json:"nearest_pois,omitempty"`
}

func (POI) TableName() string { return "public.unified_pois" }

// Exclusion is one validation finding for a source dataset. A dataset can
// accumulate several findings in a single run.
type Exclusion struct {
	Dataset    string    `gorm:"column:table_name" json:"table_name"`
	Reason     string    `gorm:"column:reason" json:"reason"`
	ExcludedAt time.Time `gorm:"column:exclusion_date" json:"exclusion_date"`
}

func (Exclusion) TableName() string { return "public.excluded_tables_log" }

// ProcessedTable is the ledger entry guarding against re-merging a dataset.
type ProcessedTable struct {
	Dataset     string    `gorm:"primaryKey;column:table_name" json:"table_name"`
	ProcessedAt time.Time `gorm:"column:processed_date" json:"processed_date"`
}

func (ProcessedTable) TableName() string { return "public.processed_tables_log" }

// EnsureTables creates the canonical table and the ledger if they do not
// exist yet. Both are append-only across runs, so nothing is dropped here.
func EnsureTables(d *gorm.DB) error {
	if err := d.Exec(`
		CREATE TABLE IF NOT EXISTS public.unified_pois (
			poi_id VARCHAR(50) PRIMARY KEY,
			name VARCHAR(200),
			layer VARCHAR(100),
			district_id VARCHAR(20),
			district VARCHAR(100),
			neighborhood_id VARCHAR(20),
			neighborhood VARCHAR(100),
			latitude DECIMAL(9,6),
			longitude DECIMAL(9,6),
			geometry GEOMETRY,
			attributes JSONB,
			nearest_pois JSONB
		);
	`).Error; err != nil {
		return fmt.Errorf("create unified_pois: %w", err)
	}

	if err := d.Exec(`
		CREATE TABLE IF NOT EXISTS public.processed_tables_log (
			table_name VARCHAR(255) PRIMARY KEY,
			processed_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`).Error; err != nil {
		return fmt.Errorf("create processed_tables_log: %w", err)
	}

	return nil
}

// EnsureExclusionLog creates the exclusion log table if absent.
func EnsureExclusionLog(d *gorm.DB) error {
	if err := d.Exec(`
		CREATE TABLE IF NOT EXISTS public.excluded_tables_log (
			table_name VARCHAR(255),
			reason VARCHAR(500),
			exclusion_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`).Error; err != nil {
		return fmt.Errorf("create excluded_tables_log: %w", err)
	}
	return nil
}

// ResetExclusionLog rebuilds the exclusion log. Unlike the canonical table
// and the ledger it reflects only the current validation pass, so every run
// starts it from scratch.
func ResetExclusionLog(d *gorm.DB) error {
	if err := d.Exec(`DROP TABLE IF EXISTS public.excluded_tables_log CASCADE`).Error; err != nil {
		return fmt.Errorf("drop excluded_tables_log: %w", err)
	}
	return EnsureExclusionLog(d)
}
