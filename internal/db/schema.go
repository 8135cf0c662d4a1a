package db

import "gorm.io/gorm"

// EnsurePostGIS enables the postgis extension. The geometry column, the GiST
// index and the distance operators all depend on it.
func EnsurePostGIS(d *gorm.DB) error {
	return d.Exec(`CREATE EXTENSION IF NOT EXISTS postgis`).Error
}
