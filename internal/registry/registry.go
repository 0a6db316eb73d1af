// Package registry records one snapshot per successful compile in a
// SQLite database. Later compiles check their wire numbers against the
// latest snapshot, and diff can use it as a base schema when no base
// file is given.
package registry

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - initial layout (builds + field_numbers)
const currentSchemaVersion = 1

// Registry is a snapshot store backed by a single SQLite file.
type Registry struct {
	db *sql.DB
}

// Open creates or opens the registry database at the given path.
// Pragmas and migrations apply on every open; the call is idempotent.
//
// The database runs in WAL mode with NORMAL synchronous writes, a
// 5-second busy timeout and foreign keys enforced.
func Open(path string) (*Registry, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening registry: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to registry: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring registry: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating registry: %w", err)
	}
	return &Registry{db: db}, nil
}

// Close closes the underlying database.
func (r *Registry) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("executing %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema creates the layout if missing and advances user_version.
// schema.sql is idempotent, so re-running it on an existing database is
// a no-op.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("reading user_version: %w", err)
	}
	// Version 1 is the initial layout, created in full by schema.sql.
	// Incremental migrations for later versions slot in here.
	if version < currentSchemaVersion {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("setting user_version: %w", err)
		}
	}
	return nil
}
