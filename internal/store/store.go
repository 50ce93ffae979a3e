// Package store implements Focal's persistent graph store: a single SQLite
// database file holding repositories, files, symbols, edges, memories, and
// their full-text shadows, behind a narrow set of operations. Grounded on
// josephgoksu-TaskWing's internal/memory.SQLiteStore (modernc.org/sqlite
// opened through database/sql, schema applied with CREATE TABLE IF NOT
// EXISTS, transactions wrapping multi-table writes) and generalized to the
// graph shape and additive-migration discipline this store needs.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/focal-dev/focal/internal/errs"
)

// Store is the single persistent-state handle for a running Focal process.
// Every method, reads included, is serialized by mu, and the pool holds a
// single connection, per the single-writer model.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates the database directory if needed, opens the database file at
// path, applies pragmas, the base schema, and any pending additive
// migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.Fatalf("store: create directory %s: %v", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Fatalf("store: open %s: %v", path, err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, errs.Fatalf("store: pragma %q: %v", p, err)
		}
	}

	if _, err := db.Exec(baseSchema); err != nil {
		db.Close()
		return nil, errs.Fatalf("store: apply base schema: %v", err)
	}
	if err := applyAdditiveMigrations(db); err != nil {
		db.Close()
		return nil, errs.Fatalf("store: apply migrations: %v", err)
	}

	s := &Store{db: db}
	if err := s.purgeExpiredAutoMemories(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// purgeExpiredAutoMemories removes auto-observation memories older than 90
// days, run once at startup per the memory lifecycle contract.
func (s *Store) purgeExpiredAutoMemories() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-90 * 24 * time.Hour).Unix()
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("purge expired auto memories: %w", err)
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM memories_fts WHERE rowid IN (SELECT id FROM memories WHERE category = 'auto' AND created_at < ?)`, cutoff); err != nil {
		return fmt.Errorf("purge expired auto memories: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM memories WHERE category = 'auto' AND created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("purge expired auto memories: %w", err)
	}
	return tx.Commit()
}

// DBSizeBytes stats the database file for get_health.
func (s *Store) DBSizeBytes(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
