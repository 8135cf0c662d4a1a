package unify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ColumnMeta is one column as reported by information_schema.
type ColumnMeta struct {
	Name             string
	DataType         string
	NumericPrecision *int64
	NumericScale     *int64
	Nullable         bool
}

// TableMeta is everything the validator needs to know about one source table.
type TableMeta struct {
	Name              string
	Columns           []ColumnMeta
	PrimaryKeyColumns []string
	HasForeignKey     bool
}

// ListCandidateTables returns the source tables considered for this run:
// present in the source schema, named on the include list and not matching
// any exclude pattern. Sorted for deterministic run order.
func ListCandidateTables(d *gorm.DB, cfg Config) ([]string, error) {
	rows, err := d.Raw(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = ?
		  AND table_name = ANY(?)
		ORDER BY table_name
	`, cfg.SourceSchema, pq.Array(cfg.Datasets)).Rows()
	if err != nil {
		return nil, fmt.Errorf("list candidate tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		if cfg.Excluded(name) {
			continue
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Introspect loads column and constraint metadata for one source table.
func Introspect(d *gorm.DB, schema, table string) (TableMeta, error) {
	meta := TableMeta{Name: table}

	rows, err := d.Raw(`
		SELECT column_name, data_type, numeric_precision, numeric_scale, is_nullable
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`, schema, table).Rows()
	if err != nil {
		return meta, fmt.Errorf("introspect columns of %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c ColumnMeta
		var nullable string
		if err := rows.Scan(&c.Name, &c.DataType, &c.NumericPrecision, &c.NumericScale, &nullable); err != nil {
			return meta, fmt.Errorf("scan column of %s: %w", table, err)
		}
		c.Nullable = nullable == "YES"
		meta.Columns = append(meta.Columns, c)
	}
	if err := rows.Err(); err != nil {
		return meta, err
	}

	pkRows, err := d.Raw(`
		SELECT LOWER(kcu.column_name)
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name
			AND kcu.table_name = tc.table_name
		WHERE tc.table_schema = ?
		  AND tc.table_name = ?
		  AND tc.constraint_type = 'PRIMARY KEY'
	`, schema, table).Rows()
	if err != nil {
		return meta, fmt.Errorf("introspect primary key of %s: %w", table, err)
	}
	defer pkRows.Close()

	for pkRows.Next() {
		var col string
		if err := pkRows.Scan(&col); err != nil {
			return meta, fmt.Errorf("scan pk column of %s: %w", table, err)
		}
		meta.PrimaryKeyColumns = append(meta.PrimaryKeyColumns, col)
	}
	if err := pkRows.Err(); err != nil {
		return meta, err
	}

	var fkCount int64
	if err := d.Raw(`
		SELECT COUNT(1)
		FROM information_schema.table_constraints
		WHERE table_schema = ? AND table_name = ? AND constraint_type = 'FOREIGN KEY'
	`, schema, table).Scan(&fkCount).Error; err != nil {
		return meta, fmt.Errorf("introspect foreign keys of %s: %w", table, err)
	}
	meta.HasForeignKey = fkCount > 0

	return meta, nil
}

// CheckTable runs all five schema checks against one table and returns every
// finding. Checks are independent: a table missing columns is still checked
// for type, nullability and key problems on the columns it does have.
func CheckTable(meta TableMeta, cfg Config) []string {
	byName := map[string]ColumnMeta{}
	for _, c := range meta.Columns {
		byName[strings.ToLower(c.Name)] = c
	}

	var reasons []string

	// 1. Completeness: one aggregated reason, names sorted.
	var missing []string
	for _, req := range cfg.RequiredColumns {
		if _, ok := byName[strings.ToLower(req)]; !ok {
			missing = append(missing, strings.ToLower(req))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		reasons = append(reasons, "Missing columns: "+strings.Join(missing, ", "))
	}

	for _, spec := range cfg.Columns {
		col, ok := byName[strings.ToLower(spec.Name)]
		if !ok {
			continue // absence already reported above
		}

		// 2. Type correctness, including numeric precision/scale.
		if col.DataType != spec.Type {
			reasons = append(reasons, fmt.Sprintf(
				"Expected data type %s, got %s", typeLabel(spec), actualTypeLabel(col)))
		} else if spec.Type == "numeric" && spec.Precision > 0 {
			if !numericMatches(col, spec) {
				reasons = append(reasons, fmt.Sprintf(
					"Expected data type %s, got %s", typeLabel(spec), actualTypeLabel(col)))
			}
		}

		// 3. Nullability.
		if spec.NotNull && col.Nullable {
			reasons = append(reasons, fmt.Sprintf(
				"Column %s allows NULL, expected NOT NULL", spec.Name))
		}
	}

	// 4. Primary key on the identifier column.
	for _, spec := range cfg.Columns {
		if spec.Key != KeyPrimary {
			continue
		}
		if !containsString(meta.PrimaryKeyColumns, strings.ToLower(spec.Name)) {
			reasons = append(reasons, fmt.Sprintf("Missing PRIMARY KEY on %s column", spec.Name))
		}
	}

	// 5. Referential constraint on the district linkage.
	for _, spec := range cfg.Columns {
		if spec.Key != KeyForeign {
			continue
		}
		if !meta.HasForeignKey {
			reasons = append(reasons, fmt.Sprintf("Missing or incorrect foreign key on %s", spec.Name))
		}
	}

	return reasons
}

func numericMatches(col ColumnMeta, spec ColumnSpec) bool {
	if col.NumericPrecision == nil || col.NumericScale == nil {
		return false
	}
	return *col.NumericPrecision == int64(spec.Precision) && *col.NumericScale == int64(spec.Scale)
}

func typeLabel(spec ColumnSpec) string {
	if spec.Type == "numeric" && spec.Precision > 0 {
		return fmt.Sprintf("numeric(%d,%d)", spec.Precision, spec.Scale)
	}
	return spec.Type
}

func actualTypeLabel(col ColumnMeta) string {
	if col.DataType == "numeric" && col.NumericPrecision != nil && col.NumericScale != nil {
		return fmt.Sprintf("numeric(%d,%d)", *col.NumericPrecision, *col.NumericScale)
	}
	return col.DataType
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
