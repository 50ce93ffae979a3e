package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/focal-dev/focal/internal/model"
)

// snapshotMemoryLinksTx captures (memory_id, symbol_name, prior_body_hash)
// for every memory linked to a symbol in fileID, before those symbols are
// deleted — the input to the re-linking rule in reindex.go.
func snapshotMemoryLinksTx(tx *sql.Tx, fileID int64) ([]model.MemoryLink, error) {
	rows, err := tx.Query(`
		SELECT memory_id, symbol_id, symbol_name, file_id, prior_body_hash
		FROM memory_symbols WHERE file_id = ?
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("snapshot memory links: %w", err)
	}
	defer rows.Close()

	var out []model.MemoryLink
	for rows.Next() {
		var l model.MemoryLink
		if err := rows.Scan(&l.MemoryID, &l.SymbolID, &l.SymbolName, &l.FileID, &l.PriorBodyHash); err != nil {
			return nil, fmt.Errorf("scan memory link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SaveMemory inserts a new memory, links it to symbolIDs (by current name
// and body_hash, seeding the re-linking snapshot), and returns its id.
func (s *Store) SaveMemory(content string, category model.MemoryCategory, source, sessionID string, symbolIDs []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	res, err := tx.Exec(`
		INSERT INTO memories(content, category, source, session_id, created_at, stale, needs_review)
		VALUES (?, ?, ?, ?, ?, 0, 0)
	`, content, string(category), source, sessionID, now)
	if err != nil {
		return 0, fmt.Errorf("insert memory: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("memory id: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO memories_fts(rowid, content, category) VALUES (?, ?, ?)`,
		id, content, string(category)); err != nil {
		return 0, fmt.Errorf("insert memory fts: %w", err)
	}

	if err := linkMemorySymbolsTx(tx, id, symbolIDs); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func linkMemorySymbolsTx(tx *sql.Tx, memoryID int64, symbolIDs []int64) error {
	for _, symID := range symbolIDs {
		var name string
		var fileID int64
		var bodyHashVal string
		err := tx.QueryRow(`SELECT name, file_id, body_hash FROM symbols WHERE id = ?`, symID).
			Scan(&name, &fileID, &bodyHashVal)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return fmt.Errorf("lookup symbol for link: %w", err)
		}
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO memory_symbols(memory_id, symbol_id, symbol_name, file_id, prior_body_hash)
			VALUES (?, ?, ?, ?, ?)
		`, memoryID, symID, name, fileID, bodyHashVal); err != nil {
			return fmt.Errorf("link memory symbol: %w", err)
		}
	}
	return nil
}

// UnlinkAllForMemory removes every memory_symbols row for memoryID, used
// before re-linking on update_memory.
func (s *Store) UnlinkAllForMemory(memoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM memory_symbols WHERE memory_id = ?`, memoryID)
	return err
}

// LinkMemorySymbols is the exported, lock-guarded form of linkMemorySymbolsTx
// for update_memory and save_memory callers outside a larger transaction.
func (s *Store) LinkMemorySymbols(memoryID int64, symbolIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	if err := linkMemorySymbolsTx(tx, memoryID, symbolIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateMemory updates content and/or category in place; an empty string
// leaves the corresponding field unchanged. The FTS shadow row is rewritten
// in the same transaction.
func (s *Store) UpdateMemory(memoryID int64, content, category string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var cur model.Memory
	var catStr string
	if err := tx.QueryRow(`SELECT content, category FROM memories WHERE id = ?`, memoryID).
		Scan(&cur.Content, &catStr); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("memory not found: %d", memoryID)
		}
		return fmt.Errorf("get memory: %w", err)
	}
	if content != "" {
		cur.Content = content
	}
	if category != "" {
		catStr = category
	}

	if _, err := tx.Exec(`UPDATE memories SET content = ?, category = ? WHERE id = ?`, cur.Content, catStr, memoryID); err != nil {
		return fmt.Errorf("update memory: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM memories_fts WHERE rowid = ?`, memoryID); err != nil {
		return fmt.Errorf("delete memory fts: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO memories_fts(rowid, content, category) VALUES (?, ?, ?)`, memoryID, cur.Content, catStr); err != nil {
		return fmt.Errorf("insert memory fts: %w", err)
	}
	return tx.Commit()
}

// DeleteMemory removes a memory row, its FTS shadow, and its symbol links
// (cascade).
func (s *Store) DeleteMemory(memoryID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM memories_fts WHERE rowid = ?`, memoryID); err != nil {
		return fmt.Errorf("delete memory fts: %w", err)
	}
	res, err := tx.Exec(`DELETE FROM memories WHERE id = ?`, memoryID)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("memory not found: %d", memoryID)
	}
	return tx.Commit()
}

// MemoryFilter narrows ListMemories.
type MemoryFilter struct {
	Category     string
	IncludeStale bool
	SymbolName   string
}

// ListMemories returns memories matching filter, newest first.
func (s *Store) ListMemories(filter MemoryFilter) ([]model.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT DISTINCT m.id, m.content, m.category, m.source, m.session_id, m.created_at, m.stale, m.needs_review
		FROM memories m`
	var args []any
	var where []string

	if filter.SymbolName != "" {
		query += ` JOIN memory_symbols ms ON ms.memory_id = m.id`
		where = append(where, `ms.symbol_name = ?`)
		args = append(args, filter.SymbolName)
	}
	if filter.Category != "" {
		where = append(where, `m.category = ?`)
		args = append(args, filter.Category)
	}
	if !filter.IncludeStale {
		where = append(where, `m.stale = 0`)
	}
	if len(where) > 0 {
		query += " WHERE " + where[0]
		for _, w := range where[1:] {
			query += " AND " + w
		}
	}
	query += " ORDER BY m.created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

func scanMemories(rows *sql.Rows) ([]model.Memory, error) {
	var out []model.Memory
	for rows.Next() {
		var m model.Memory
		var cat string
		var stale, needsReview int
		if err := rows.Scan(&m.ID, &m.Content, &cat, &m.Source, &m.SessionID, &m.CreatedAt, &stale, &needsReview); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.Category = model.MemoryCategory(cat)
		m.Stale = stale != 0
		m.NeedsReview = needsReview != 0
		out = append(out, m)
	}
	return out, rows.Err()
}

// MemoriesForSymbol returns every memory linked to symbolID, used by
// query_symbol to attach context.
func (s *Store) MemoriesForSymbol(symbolID int64) ([]model.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT m.id, m.content, m.category, m.source, m.session_id, m.created_at, m.stale, m.needs_review
		FROM memories m JOIN memory_symbols ms ON ms.memory_id = m.id
		WHERE ms.symbol_id = ? ORDER BY m.created_at DESC
	`, symbolID)
	if err != nil {
		return nil, fmt.Errorf("memories for symbol: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}

// MemoriesForSymbolIDs batches MemoriesForSymbol across several symbols,
// deduplicated by memory id, preserving the context engine's attach-once rule.
func (s *Store) MemoriesForSymbolIDs(symbolIDs []int64) ([]model.Memory, error) {
	seen := make(map[int64]bool)
	var out []model.Memory
	for _, id := range symbolIDs {
		mems, err := s.MemoriesForSymbol(id)
		if err != nil {
			return nil, err
		}
		for _, m := range mems {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			out = append(out, m)
		}
	}
	return out, nil
}
