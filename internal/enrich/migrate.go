package enrich

import (
	"database/sql"
	"fmt"
)

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS enrichment_cache (
		row_hash   TEXT PRIMARY KEY,
		tldr       TEXT NOT NULL,
		challenge  TEXT NOT NULL CHECK(challenge IN ('practice','expert')),
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create enrichment_cache table: %w", err)
	}
	return nil
}
