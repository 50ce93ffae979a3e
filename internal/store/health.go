package store

import "fmt"

// Health is the diagnostic payload get_health returns.
type Health struct {
	DBBytes         int64
	RepositoryCount int
	FileCount       int
	SymbolCount     int
	EdgeCount       int
	MemoryCount     int
	FTSIntegrityOK  bool
}

// CheckHealth reports row counts and runs FTS5's integrity-check command
// against both full-text tables.
func (s *Store) CheckHealth(dbPath string) (Health, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var h Health
	h.DBBytes = s.DBSizeBytes(dbPath)

	counts := []struct {
		table string
		dest  *int
	}{
		{"repositories", &h.RepositoryCount},
		{"files", &h.FileCount},
		{"symbols", &h.SymbolCount},
		{"edges", &h.EdgeCount},
		{"memories", &h.MemoryCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", c.table)).Scan(c.dest); err != nil {
			return h, fmt.Errorf("count %s: %w", c.table, err)
		}
	}

	h.FTSIntegrityOK = true
	for _, tbl := range []string{"symbols_fts", "memories_fts"} {
		if _, err := s.db.Exec(fmt.Sprintf("INSERT INTO %s(%s) VALUES('integrity-check')", tbl, tbl)); err != nil {
			h.FTSIntegrityOK = false
		}
	}
	return h, nil
}
