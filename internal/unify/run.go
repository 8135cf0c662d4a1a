package unify

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Per-dataset outcome of a run.
const (
	StatusMerged   = "merged"
	StatusExcluded = "excluded"
	StatusSkipped  = "skipped"
)

// DatasetResult reports what happened to one candidate dataset.
type DatasetResult struct {
	Dataset string   `json:"dataset"`
	Status  string   `json:"status"`
	Reasons []string `json:"reasons,omitempty"`
}

// Report summarises one unification run.
type Report struct {
	RunID        uuid.UUID       `json:"run_id"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
	Datasets     []DatasetResult `json:"datasets"`
	RecordsAdded int             `json:"records_added"`
	IndexCreated bool            `json:"index_created"`
}

// Run executes one unification batch: validate candidates, project the
// eligible ones, enrich the query layer, and persist everything as a single
// unit of work. The exclusion log rebuild, canonical inserts and ledger marks
// share one transaction, so a failed run leaves no half-merged dataset
// behind; retrying is safe because the ledger skips whatever did commit.
func Run(d *gorm.DB, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run config: %w", err)
	}

	rep := &Report{RunID: uuid.New(), StartedAt: time.Now()}

	err := d.Transaction(func(tx *gorm.DB) error {
		if err := EnsureTables(tx); err != nil {
			return err
		}
		if err := ResetExclusionLog(tx); err != nil {
			return err
		}

		candidates, err := ListCandidateTables(tx, cfg)
		if err != nil {
			return err
		}

		var inflight []*POI
		var merged []string

		for _, name := range candidates {
			meta, err := Introspect(tx, cfg.SourceSchema, name)
			if err != nil {
				return err
			}

			if reasons := CheckTable(meta, cfg); len(reasons) > 0 {
				now := time.Now()
				for _, reason := range reasons {
					e := Exclusion{Dataset: name, Reason: reason, ExcludedAt: now}
					if err := tx.Create(&e).Error; err != nil {
						return fmt.Errorf("log exclusion for %s: %w", name, err)
					}
				}
				rep.Datasets = append(rep.Datasets, DatasetResult{
					Dataset: name, Status: StatusExcluded, Reasons: reasons,
				})
				log.Printf("unify: excluded %s (%d findings)", name, len(reasons))
				continue
			}

			done, err := IsProcessed(tx, name)
			if err != nil {
				return err
			}
			if done {
				rep.Datasets = append(rep.Datasets, DatasetResult{Dataset: name, Status: StatusSkipped})
				log.Printf("unify: skipped %s (already processed)", name)
				continue
			}

			recs, err := ProjectDataset(tx, cfg, name)
			if err != nil {
				return err
			}
			inflight = append(inflight, recs...)
			merged = append(merged, name)
			rep.Datasets = append(rep.Datasets, DatasetResult{Dataset: name, Status: StatusMerged})
			log.Printf("unify: merging %s (%d records)", name, len(recs))
		}

		// Enrichment sees records from every dataset merged this run, since
		// nearest candidates come from all other layers.
		EnrichNearest(inflight, cfg.QueryLayer)

		if len(inflight) > 0 {
			if err := tx.CreateInBatches(inflight, 500).Error; err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					return fmt.Errorf("duplicate poi_id violates %s: %w", pgErr.ConstraintName, err)
				}
				return fmt.Errorf("insert canonical records: %w", err)
			}
		}

		for _, name := range merged {
			if err := MarkProcessed(tx, name); err != nil {
				return err
			}
		}

		rep.RecordsAdded = len(inflight)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The index lives outside the transaction: it is idempotent on its own
	// and must survive even if a later run aborts.
	created, err := EnsureSpatialIndex(d)
	if err != nil {
		return nil, err
	}
	rep.IndexCreated = created
	rep.FinishedAt = time.Now()

	return rep, nil
}

// EnsureSpatialIndex keeps the GiST index over the canonical geometry column
// alive. Safe to call after every run; reports whether it actually created
// the index this time.
func EnsureSpatialIndex(d *gorm.DB) (created bool, err error) {
	var n int64
	err = d.Raw(`
		SELECT COUNT(1)
		FROM pg_indexes
		WHERE schemaname = 'public' AND tablename = 'unified_pois' AND indexname = 'idx_poi_geom'
	`).Scan(&n).Error
	if err != nil {
		return false, fmt.Errorf("probe spatial index: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	err = d.Exec(`
		CREATE INDEX IF NOT EXISTS idx_poi_geom ON public.unified_pois
		USING GIST (geometry)
	`).Error
	if err != nil {
		return false, fmt.Errorf("create spatial index: %w", err)
	}
	return true, nil
}
