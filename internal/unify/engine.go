package unify

import (
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Columns promoted to named canonical fields. Everything else a source table
// carries lands in the attribute bag.
var promotedColumns = map[string]bool{
	"id":              true,
	"name":            true,
	"district_id":     true,
	"district":        true,
	"neighborhood_id": true,
	"neighborhood":    true,
	"latitude":        true,
	"longitude":       true,
	"geometry":        true,
}

// ProjectDataset streams one validated source table and produces a canonical
// record per row. The source table is read-only; rows with missing or
// unparseable geometry are kept (they just never take part in
// nearest-neighbor lookups).
func ProjectDataset(d *gorm.DB, cfg Config, dataset string) ([]*POI, error) {
	rows, err := d.Raw(fmt.Sprintf(`SELECT * FROM %q.%q`, cfg.SourceSchema, dataset)).Rows()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dataset, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", dataset, err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types of %s: %w", dataset, err)
	}
	dbTypes := make([]string, len(colTypes))
	for i, ct := range colTypes {
		dbTypes[i] = ct.DatabaseTypeName()
	}

	var out []*POI
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row of %s: %w", dataset, err)
		}

		rec, err := ProjectRow(dataset, cols, dbTypes, vals, cfg.SRID)
		if err != nil {
			return nil, fmt.Errorf("project row of %s: %w", dataset, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ProjectRow maps one source row onto the canonical record shape: promoted
// fields by name, geometry rewritten into the configured SRID, and every
// remaining column folded verbatim into the attribute bag. dbTypes carries
// the driver's type name per column so numeric and boolean values keep their
// type through the fold.
func ProjectRow(dataset string, cols, dbTypes []string, vals []any, srid int) (*POI, error) {
	if len(cols) != len(vals) {
		return nil, fmt.Errorf("row has %d values for %d columns", len(vals), len(cols))
	}

	row := map[string]any{}
	for i, c := range cols {
		row[strings.ToLower(c)] = decodeValue(vals[i], typeAt(dbTypes, i))
	}

	id := stringField(row, "id")
	if id == nil || *id == "" {
		return nil, fmt.Errorf("row in %s has no id", dataset)
	}

	rec := &POI{
		PoiID:          PoiID(dataset, *id),
		Name:           stringField(row, "name"),
		Layer:          dataset,
		DistrictID:     stringField(row, "district_id"),
		District:       stringField(row, "district"),
		NeighborhoodID: stringField(row, "neighborhood_id"),
		Neighborhood:   stringField(row, "neighborhood"),
		Latitude:       floatField(row, "latitude"),
		Longitude:      floatField(row, "longitude"),
		Attributes:     foldAttributes(cols, dbTypes, vals),
	}

	if g := stringField(row, "geometry"); g != nil {
		rec.Geometry = NormalizeEWKT(*g, srid)
	}

	return rec, nil
}

// foldAttributes packs every non-promoted column into the attribute bag,
// keeping the source column names as keys and the source values as-is: a
// numeric source column stays a JSON number, a boolean stays a boolean.
func foldAttributes(cols, dbTypes []string, vals []any) JSONB {
	bag := JSONB{}
	for i, c := range cols {
		if promotedColumns[strings.ToLower(c)] {
			continue
		}
		bag[c] = decodeValue(vals[i], typeAt(dbTypes, i))
	}
	if len(bag) == 0 {
		return nil
	}
	return bag
}

// NormalizeEWKT forces a geometry literal into the configured SRID. A bare
// WKT gets the SRID prepended; an existing SRID prefix is replaced.
func NormalizeEWKT(geom string, srid int) EWKT {
	geom = strings.TrimSpace(geom)
	if geom == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToUpper(geom), "SRID=") {
		if i := strings.Index(geom, ";"); i >= 0 {
			geom = geom[i+1:]
		}
	}
	return EWKT(fmt.Sprintf("SRID=%d;%s", srid, geom))
}

// decodeValue converts driver-level values into JSON-friendly ones.
// database/sql hands numerics, booleans and text back as []byte; the database
// type name decides which Go type the bytes decode to, so values survive the
// round trip without being flattened to strings.
func decodeValue(v any, dbType string) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	s := string(b)
	switch strings.ToUpper(dbType) {
	case "NUMERIC", "DECIMAL", "INT2", "INT4", "INT8", "FLOAT4", "FLOAT8":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case "BOOL", "BOOLEAN":
		if t, err := strconv.ParseBool(s); err == nil {
			return t
		}
	}
	return s
}

func typeAt(dbTypes []string, i int) string {
	if i < len(dbTypes) {
		return dbTypes[i]
	}
	return ""
}

func stringField(row map[string]any, key string) *string {
	v, ok := row[key]
	if !ok || v == nil {
		return nil
	}
	switch s := v.(type) {
	case string:
		return &s
	default:
		str := fmt.Sprint(v)
		return &str
	}
}

func floatField(row map[string]any, key string) *float64 {
	v, ok := row[key]
	if !ok || v == nil {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return &n
	case float32:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return &f
		}
	}
	return nil
}
