package store

import (
	"database/sql"
	"fmt"

	"github.com/focal-dev/focal/internal/model"
)

// insertSymbolTx inserts one symbol row and its FTS shadow row, in the same
// transaction, per §3's row-for-row FTS invariant. parentID may be nil.
func insertSymbolTx(tx *sql.Tx, fileID int64, sym model.Symbol, parentID *int64) (int64, error) {
	res, err := tx.Exec(`
		INSERT INTO symbols(file_id, name, kind, signature, body, body_hash, start_line, end_line, parent_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, fileID, sym.Name, string(sym.Kind), sym.Signature, sym.Body, sym.BodyHash, sym.StartLine, sym.EndLine, parentID)
	if err != nil {
		return 0, fmt.Errorf("insert symbol: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("symbol id: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO symbols_fts(rowid, name, signature, body) VALUES (?, ?, ?, ?)`,
		id, sym.Name, sym.Signature, sym.Body); err != nil {
		return 0, fmt.Errorf("insert symbol fts: %w", err)
	}
	return id, nil
}

// deleteSymbolsByFileTx deletes every symbol owned by fileID along with
// their FTS shadow rows; edges and memory_symbols links cascade via foreign
// keys.
func deleteSymbolsByFileTx(tx *sql.Tx, fileID int64) error {
	rows, err := tx.Query(`SELECT id FROM symbols WHERE file_id = ?`, fileID)
	if err != nil {
		return fmt.Errorf("list symbols to delete: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan symbol id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()

	for _, id := range ids {
		if _, err := tx.Exec(`DELETE FROM symbols_fts WHERE rowid = ?`, id); err != nil {
			return fmt.Errorf("delete symbol fts: %w", err)
		}
	}
	if _, err := tx.Exec(`DELETE FROM symbols WHERE file_id = ?`, fileID); err != nil {
		return fmt.Errorf("delete symbols: %w", err)
	}
	return nil
}

// GetSymbol resolves one symbol by id.
func (s *Store) GetSymbol(id int64) (*model.Symbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getSymbolLocked(id)
}

func (s *Store) getSymbolLocked(id int64) (*model.Symbol, error) {
	var sym model.Symbol
	var kind string
	var parentID sql.NullInt64
	err := s.db.QueryRow(`
		SELECT id, file_id, name, kind, signature, body, body_hash, start_line, end_line, parent_id
		FROM symbols WHERE id = ?
	`, id).Scan(&sym.ID, &sym.FileID, &sym.Name, &kind, &sym.Signature, &sym.Body, &sym.BodyHash,
		&sym.StartLine, &sym.EndLine, &parentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get symbol: %w", err)
	}
	sym.Kind = model.SymbolKind(kind)
	if parentID.Valid {
		sym.ParentID = &parentID.Int64
	}
	return &sym, nil
}

// FindSymbolsByName resolves every symbol with the given name, optionally
// scoped to a repository, used by query_symbol and by traversal name
// resolution.
func (s *Store) FindSymbolsByName(name string, repoID *int64) ([]model.Symbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findSymbolsByNameLocked(name, repoID)
}

func (s *Store) findSymbolsByNameLocked(name string, repoID *int64) ([]model.Symbol, error) {
	var rows *sql.Rows
	var err error
	if repoID != nil {
		rows, err = s.db.Query(`
			SELECT sym.id, sym.file_id, sym.name, sym.kind, sym.signature, sym.body, sym.body_hash,
			       sym.start_line, sym.end_line, sym.parent_id
			FROM symbols sym JOIN files f ON f.id = sym.file_id
			WHERE sym.name = ? AND f.repo_id = ?
		`, name, *repoID)
	} else {
		rows, err = s.db.Query(`
			SELECT id, file_id, name, kind, signature, body, body_hash, start_line, end_line, parent_id
			FROM symbols WHERE name = ?
		`, name)
	}
	if err != nil {
		return nil, fmt.Errorf("find symbols by name: %w", err)
	}
	defer rows.Close()

	var out []model.Symbol
	for rows.Next() {
		var sym model.Symbol
		var kind string
		var parentID sql.NullInt64
		if err := rows.Scan(&sym.ID, &sym.FileID, &sym.Name, &kind, &sym.Signature, &sym.Body, &sym.BodyHash,
			&sym.StartLine, &sym.EndLine, &parentID); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		sym.Kind = model.SymbolKind(kind)
		if parentID.Valid {
			sym.ParentID = &parentID.Int64
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// ListSymbolsByFile returns every symbol owned by fileID, ordered by start
// line — the shape get_file_symbols and get_skeleton need.
func (s *Store) ListSymbolsByFile(fileID int64) ([]model.Symbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, file_id, name, kind, signature, body, body_hash, start_line, end_line, parent_id
		FROM symbols WHERE file_id = ? ORDER BY start_line
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("list symbols by file: %w", err)
	}
	defer rows.Close()

	var out []model.Symbol
	for rows.Next() {
		var sym model.Symbol
		var kind string
		var parentID sql.NullInt64
		if err := rows.Scan(&sym.ID, &sym.FileID, &sym.Name, &kind, &sym.Signature, &sym.Body, &sym.BodyHash,
			&sym.StartLine, &sym.EndLine, &parentID); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		sym.Kind = model.SymbolKind(kind)
		if parentID.Valid {
			sym.ParentID = &parentID.Int64
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// ListSymbolsByRepo returns every symbol belonging to a repository, the
// input the indexer's reference-resolution pass builds its name map from.
func (s *Store) ListSymbolsByRepo(repoID int64) ([]model.Symbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT sym.id, sym.file_id, sym.name, sym.kind, sym.signature, sym.body, sym.body_hash,
		       sym.start_line, sym.end_line, sym.parent_id
		FROM symbols sym JOIN files f ON f.id = sym.file_id
		WHERE f.repo_id = ?
	`, repoID)
	if err != nil {
		return nil, fmt.Errorf("list symbols by repo: %w", err)
	}
	defer rows.Close()

	var out []model.Symbol
	for rows.Next() {
		var sym model.Symbol
		var kind string
		var parentID sql.NullInt64
		if err := rows.Scan(&sym.ID, &sym.FileID, &sym.Name, &kind, &sym.Signature, &sym.Body, &sym.BodyHash,
			&sym.StartLine, &sym.EndLine, &parentID); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		sym.Kind = model.SymbolKind(kind)
		if parentID.Valid {
			sym.ParentID = &parentID.Int64
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// FilePathByID is a small helper the context/traversal engines use to
// annotate symbols with their owning file's path.
func (s *Store) FilePathByID(fileID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var path string
	err := s.db.QueryRow(`SELECT path FROM files WHERE id = ?`, fileID).Scan(&path)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return path, err
}
