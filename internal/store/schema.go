package store

// baseSchema creates the tables that have existed since the first shipped
// version. Everything added later goes through migrations in migrate.go —
// presence-checked, additive only, grounded on the teacher's merge-by-
// presence-check pattern in internal/config/config_merge_test.go.
const baseSchema = `
CREATE TABLE IF NOT EXISTS repositories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	root_path TEXT NOT NULL UNIQUE,
	indexed_at INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	repo_id INTEGER NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	path TEXT NOT NULL,
	language TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	indexed_at INTEGER NOT NULL,
	UNIQUE(repo_id, path)
);
CREATE INDEX IF NOT EXISTS idx_files_repo ON files(repo_id);

CREATE TABLE IF NOT EXISTS symbols (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	signature TEXT NOT NULL,
	body TEXT NOT NULL,
	body_hash TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	parent_id INTEGER REFERENCES symbols(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id, name);
CREATE INDEX IF NOT EXISTS idx_symbols_kind_name ON symbols(kind, name);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);

CREATE TABLE IF NOT EXISTS edges (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
	target_id INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	UNIQUE(source_id, target_id, kind)
);
CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);

CREATE TABLE IF NOT EXISTS memories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	content TEXT NOT NULL,
	category TEXT NOT NULL,
	source TEXT NOT NULL,
	session_id TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	stale INTEGER NOT NULL DEFAULT 0,
	needs_review INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_memories_category ON memories(category);

CREATE TABLE IF NOT EXISTS memory_symbols (
	memory_id INTEGER NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	symbol_id INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
	symbol_name TEXT NOT NULL,
	file_id INTEGER NOT NULL,
	prior_body_hash TEXT NOT NULL,
	PRIMARY KEY (memory_id, symbol_id)
);
CREATE INDEX IF NOT EXISTS idx_memory_symbols_symbol ON memory_symbols(symbol_id);

CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(name, signature, body);
CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(content, category);

CREATE TABLE IF NOT EXISTS schema_meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
