package poiapi

import (
	"log"

	"github.com/LayeredData/POI-Backend/internal/db"
	"github.com/LayeredData/POI-Backend/internal/unify"
	"gorm.io/gorm"
)

func Init(d *gorm.DB) {
	// PostGIS first: the canonical table has a geometry column.
	if err := db.EnsurePostGIS(d); err != nil {
		log.Fatal("Failed to enable postgis extension: ", err)
	}

	if err := unify.EnsureTables(d); err != nil {
		log.Fatal("Failed to ensure canonical tables: ", err)
	}

	if err := unify.EnsureExclusionLog(d); err != nil {
		log.Fatal("Failed to ensure exclusion log: ", err)
	}

	if _, err := unify.EnsureSpatialIndex(d); err != nil {
		log.Fatal("Failed to ensure spatial index: ", err)
	}

	log.Println("POI module initialized")
}
