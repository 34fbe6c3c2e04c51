package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// InitSchema creates the persons and report_cache tables. The statements
// are valid for both SQLite and PostgreSQL.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createPersonsQuery := `
	CREATE TABLE IF NOT EXISTS persons (
		person_id TEXT PRIMARY KEY,
		household_id TEXT NOT NULL,
		attributes TEXT NOT NULL,
		plan_xml TEXT NOT NULL,
		plan_extras TEXT NOT NULL,
		score DOUBLE PRECISION,
		activities INTEGER NOT NULL,
		legs INTEGER NOT NULL
	);
	`

	createHouseholdIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_persons_household
	ON persons(household_id, person_id);
	`

	createReportCacheQuery := `
	CREATE TABLE IF NOT EXISTS report_cache (
		cache_key TEXT PRIMARY KEY,
		report TEXT NOT NULL,
		created_at BIGINT NOT NULL
	);
	`

	statements := []string{
		createPersonsQuery,
		createHouseholdIndexQuery,
		createReportCacheQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
