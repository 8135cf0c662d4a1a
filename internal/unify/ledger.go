package unify

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IsProcessed reports whether a dataset has been merged in a previous run.
func IsProcessed(d *gorm.DB, dataset string) (bool, error) {
	var n int64
	err := d.Model(&ProcessedTable{}).Where("table_name = ?", dataset).Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("ledger lookup for %s: %w", dataset, err)
	}
	return n > 0, nil
}

// MarkProcessed records a dataset as merged. Re-marking an already-logged
// dataset is a silent no-op, so retried runs never fail here.
func MarkProcessed(d *gorm.DB, dataset string) error {
	entry := ProcessedTable{Dataset: dataset, ProcessedAt: time.Now()}
	if err := d.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
		return fmt.Errorf("ledger mark for %s: %w", dataset, err)
	}
	return nil
}
