package main

import (
	"flag"
	"log"
	"os"

	"github.com/LayeredData/POI-Backend/internal/db"
	"github.com/LayeredData/POI-Backend/internal/unify"
	"github.com/joho/godotenv"
)

func main() {
	var (
		configPath = flag.String("config", "unify.yaml", "path to run configuration")
		dbURL      = flag.String("db", "", "DATABASE_URL (falls back to env)")
	)
	flag.Parse()

	_ = godotenv.Load(".env.local")

	dsn := *dbURL
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := unify.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	d, err := db.Connect(dsn)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.EnsurePostGIS(d); err != nil {
		log.Fatal(err)
	}

	rep, err := unify.Run(d, cfg)
	if err != nil {
		log.Fatal(err)
	}

	log.Printf("run %s finished in %s", rep.RunID, rep.FinishedAt.Sub(rep.StartedAt))
	for _, ds := range rep.Datasets {
		switch ds.Status {
		case unify.StatusExcluded:
			log.Printf("  %-24s %s", ds.Dataset, ds.Status)
			for _, reason := range ds.Reasons {
				log.Printf("      - %s", reason)
			}
		default:
			log.Printf("  %-24s %s", ds.Dataset, ds.Status)
		}
	}
	log.Printf("records added: %d", rep.RecordsAdded)
	if rep.IndexCreated {
		log.Printf("spatial index created")
	} else {
		log.Printf("spatial index already present")
	}
}
