package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/focal-dev/focal/internal/model"
)

// GetFile returns the file row for (repoID, path), or nil if not yet indexed.
func (s *Store) GetFile(repoID int64, path string) (*model.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getFileLocked(repoID, path)
}

func (s *Store) getFileLocked(repoID int64, path string) (*model.File, error) {
	var f model.File
	err := s.db.QueryRow(`
		SELECT id, repo_id, path, language, content_hash, indexed_at
		FROM files WHERE repo_id = ? AND path = ?
	`, repoID, path).Scan(&f.ID, &f.RepoID, &f.Path, &f.Language, &f.ContentHash, &f.IndexedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return &f, nil
}

// GetFileByID returns the file row by id, used by the context engine's
// recency bias to read a pivot's owning file's indexed_at.
func (s *Store) GetFileByID(fileID int64) (*model.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var f model.File
	err := s.db.QueryRow(`
		SELECT id, repo_id, path, language, content_hash, indexed_at
		FROM files WHERE id = ?
	`, fileID).Scan(&f.ID, &f.RepoID, &f.Path, &f.Language, &f.ContentHash, &f.IndexedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file by id: %w", err)
	}
	return &f, nil
}

// PutFile inserts or replaces the files row for (repo_id, path), returning
// the file id. Callers needing the symbol-replacement transaction (full
// index, incremental update) use ReindexFile, which upserts the row through
// putFileTx inside its own *sql.Tx.
func (s *Store) PutFile(repoID int64, path, language, contentHash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	id, err := putFileTx(tx, repoID, path, language, contentHash)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func putFileTx(tx *sql.Tx, repoID int64, path, language, contentHash string) (int64, error) {
	now := time.Now().Unix()
	res, err := tx.Exec(`
		INSERT INTO files(repo_id, path, language, content_hash, indexed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(repo_id, path) DO UPDATE SET
			language = excluded.language,
			content_hash = excluded.content_hash,
			indexed_at = excluded.indexed_at
	`, repoID, path, language, contentHash, now)
	if err != nil {
		return 0, fmt.Errorf("upsert file: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil && id != 0 {
		return id, nil
	}
	var id int64
	if err := tx.QueryRow(`SELECT id FROM files WHERE repo_id = ? AND path = ?`, repoID, path).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve file id: %w", err)
	}
	return id, nil
}

// DeleteFile removes the files row; ON DELETE CASCADE removes its symbols,
// their edges, and their memory_symbols links.
func (s *Store) DeleteFile(fileID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM files WHERE id = ?`, fileID)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// ListFiles returns every file the store has indexed for a repository, used
// by the watcher to expand directory-level events.
func (s *Store) ListFiles(repoID int64) ([]model.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT id, repo_id, path, language, content_hash, indexed_at
		FROM files WHERE repo_id = ? ORDER BY path
	`, repoID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []model.File
	for rows.Next() {
		var f model.File
		if err := rows.Scan(&f.ID, &f.RepoID, &f.Path, &f.Language, &f.ContentHash, &f.IndexedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// CountFilesByLanguage powers get_repo_overview.
func (s *Store) CountFilesByLanguage(repoID int64) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT language, COUNT(*) FROM files WHERE repo_id = ? GROUP BY language
	`, repoID)
	if err != nil {
		return nil, fmt.Errorf("count files by language: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		out[lang] = n
	}
	return out, rows.Err()
}
