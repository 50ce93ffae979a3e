package store

import (
	"fmt"

	"github.com/focal-dev/focal/internal/model"
)

// SymbolHit is one ranked search_symbols_fts result.
type SymbolHit struct {
	Symbol   model.Symbol
	FilePath string
	Rank     float64 // bm25, lower is better
}

// SearchSymbolsFTS ranks symbols matching query (FTS5 MATCH syntax) within
// an optional kind/repo scope, using SQLite's built-in bm25() weighting.
func (s *Store) SearchSymbolsFTS(query string, kind string, repoID *int64, limit int) ([]SymbolHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlQuery := `
		SELECT s.id, s.file_id, s.name, s.kind, s.signature, s.body, s.body_hash,
		       s.start_line, s.end_line, s.parent_id, f.path, bm25(symbols_fts) as rank
		FROM symbols_fts
		JOIN symbols s ON s.id = symbols_fts.rowid
		JOIN files f ON f.id = s.file_id
		WHERE symbols_fts MATCH ?
	`
	args := []any{query}
	if kind != "" {
		sqlQuery += " AND s.kind = ?"
		args = append(args, kind)
	}
	if repoID != nil {
		sqlQuery += " AND f.repo_id = ?"
		args = append(args, *repoID)
	}
	sqlQuery += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search symbols fts: %w", err)
	}
	defer rows.Close()

	var out []SymbolHit
	for rows.Next() {
		var hit SymbolHit
		var kindStr string
		var parentID *int64
		if err := rows.Scan(&hit.Symbol.ID, &hit.Symbol.FileID, &hit.Symbol.Name, &kindStr,
			&hit.Symbol.Signature, &hit.Symbol.Body, &hit.Symbol.BodyHash, &hit.Symbol.StartLine,
			&hit.Symbol.EndLine, &parentID, &hit.FilePath, &hit.Rank); err != nil {
			return nil, fmt.Errorf("scan symbol hit: %w", err)
		}
		hit.Symbol.Kind = model.SymbolKind(kindStr)
		hit.Symbol.ParentID = parentID
		out = append(out, hit)
	}
	return out, rows.Err()
}

// SearchSymbolsSubstring is the case-insensitive name-substring fallback the
// context engine's pivot selection falls back to when FTS returns fewer
// than 3 hits.
func (s *Store) SearchSymbolsSubstring(substr string, repoID *int64, limit int) ([]SymbolHit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlQuery := `
		SELECT s.id, s.file_id, s.name, s.kind, s.signature, s.body, s.body_hash,
		       s.start_line, s.end_line, s.parent_id, f.path
		FROM symbols s JOIN files f ON f.id = s.file_id
		WHERE s.name LIKE '%' || ? || '%' COLLATE NOCASE
	`
	args := []any{substr}
	if repoID != nil {
		sqlQuery += " AND f.repo_id = ?"
		args = append(args, *repoID)
	}
	sqlQuery += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search symbols substring: %w", err)
	}
	defer rows.Close()

	var out []SymbolHit
	for rows.Next() {
		var hit SymbolHit
		var kindStr string
		var parentID *int64
		if err := rows.Scan(&hit.Symbol.ID, &hit.Symbol.FileID, &hit.Symbol.Name, &kindStr,
			&hit.Symbol.Signature, &hit.Symbol.Body, &hit.Symbol.BodyHash, &hit.Symbol.StartLine,
			&hit.Symbol.EndLine, &parentID, &hit.FilePath); err != nil {
			return nil, fmt.Errorf("scan symbol hit: %w", err)
		}
		hit.Symbol.Kind = model.SymbolKind(kindStr)
		hit.Symbol.ParentID = parentID
		out = append(out, hit)
	}
	return out, rows.Err()
}

// SearchMemoriesFTS ranks memories matching query.
func (s *Store) SearchMemoriesFTS(query string, limit int) ([]model.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT m.id, m.content, m.category, m.source, m.session_id, m.created_at, m.stale, m.needs_review
		FROM memories_fts
		JOIN memories m ON m.id = memories_fts.rowid
		WHERE memories_fts MATCH ?
		ORDER BY bm25(memories_fts)
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search memories fts: %w", err)
	}
	defer rows.Close()
	return scanMemories(rows)
}
