package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/focal-dev/focal/internal/model"
)

// UpsertRepository returns the existing repository id for rootPath, or
// creates one. name is only applied on creation; an existing repository
// keeps its original name.
func (s *Store) UpsertRepository(name, rootPath string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.db.QueryRow(`SELECT id FROM repositories WHERE root_path = ?`, rootPath).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("lookup repository: %w", err)
	}

	res, err := s.db.Exec(`INSERT INTO repositories(name, root_path, indexed_at) VALUES (?, ?, ?)`,
		name, rootPath, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("insert repository: %w", err)
	}
	return res.LastInsertId()
}

// TouchRepository updates indexed_at to now, called after a full index run.
func (s *Store) TouchRepository(repoID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE repositories SET indexed_at = ? WHERE id = ?`, time.Now().Unix(), repoID)
	return err
}

// GetRepository resolves a repository by exact name or by root-path prefix;
// an empty selector is an error — callers wanting "all repositories" should
// use ListRepositories instead.
func (s *Store) GetRepository(selector string) (*model.Repository, error) {
	if selector == "" {
		return nil, fmt.Errorf("get repository: empty selector")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getRepositoryLocked(selector)
}

func (s *Store) getRepositoryLocked(selector string) (*model.Repository, error) {
	row := s.db.QueryRow(`
		SELECT id, name, root_path, indexed_at FROM repositories
		WHERE name = ? OR root_path LIKE ? || '%'
		ORDER BY (name = ?) DESC LIMIT 1
	`, selector, selector, selector)
	var r model.Repository
	if err := row.Scan(&r.ID, &r.Name, &r.RootPath, &r.IndexedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get repository: %w", err)
	}
	return &r, nil
}

// GetRepositoryByID resolves a repository by its primary key, used by
// get_symbol_history to find the git root a resolved symbol's file lives
// under.
func (s *Store) GetRepositoryByID(id int64) (*model.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var r model.Repository
	err := s.db.QueryRow(`SELECT id, name, root_path, indexed_at FROM repositories WHERE id = ?`, id).
		Scan(&r.ID, &r.Name, &r.RootPath, &r.IndexedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get repository by id: %w", err)
	}
	return &r, nil
}

// ListRepositories returns every repository, optionally filtered by a
// name-or-prefix selector (empty selector returns all).
func (s *Store) ListRepositories(selector string) ([]model.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	var err error
	if selector == "" {
		rows, err = s.db.Query(`SELECT id, name, root_path, indexed_at FROM repositories ORDER BY name`)
	} else {
		rows, err = s.db.Query(`
			SELECT id, name, root_path, indexed_at FROM repositories
			WHERE name = ? OR root_path LIKE ? || '%' ORDER BY name
		`, selector, selector)
	}
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var out []model.Repository
	for rows.Next() {
		var r model.Repository
		if err := rows.Scan(&r.ID, &r.Name, &r.RootPath, &r.IndexedAt); err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
