package store

import (
	"database/sql"
	"fmt"
)

// migration represents a single idempotent schema migration, applied in
// order once at Store construction.
type migration struct {
	version     int
	description string
	apply       func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations. New migrations
// are appended at the end; never modify existing entries.
var migrations = []migration{
	{
		version:     1,
		description: "base schema (documents, pages, chunk_store, vec_chunks, embedding_manifest, query_log)",
		apply:       func(tx *sql.Tx) error { return nil }, // applied separately via schemaSQL
	},
}

// applyMigrations runs any migration whose version exceeds the currently
// recorded schema_version, inside a single transaction per migration.
func applyMigrations(db *sql.DB) error {
	var current int
	row := db.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&current); err == sql.ErrNoRows {
		current = 0
	} else if err != nil {
		return fmt.Errorf("reading schema_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d (%s): %w", m.version, m.description, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", m.version, err)
		}
		current = m.version
	}

	if _, err := db.Exec("DELETE FROM schema_version"); err != nil {
		return fmt.Errorf("resetting schema_version: %w", err)
	}
	if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", current); err != nil {
		return fmt.Errorf("recording schema_version: %w", err)
	}
	return nil
}
