package store

import "database/sql"

// migration is one additive schema change, applied at most once. Order
// matters: migrations run in slice order and each is gated on its own key
// in schema_meta so re-running Open never re-applies one.
type migration struct {
	key string
	ddl []string
}

// migrations lists every additive change shipped after baseSchema. Empty
// today; new columns/tables land here as the schema grows, never as edits
// to baseSchema itself.
var migrations = []migration{}

func applyAdditiveMigrations(db *sql.DB) error {
	for _, m := range migrations {
		var applied string
		err := db.QueryRow(`SELECT value FROM schema_meta WHERE key = ?`, m.key).Scan(&applied)
		if err == nil {
			continue // already applied
		}
		if err != sql.ErrNoRows {
			return err
		}
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		for _, stmt := range m.ddl {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return err
			}
		}
		if _, err := tx.Exec(`INSERT INTO schema_meta(key, value) VALUES (?, '1')`, m.key); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}
