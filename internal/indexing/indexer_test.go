package indexing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focal-dev/focal/internal/grammar"
	"github.com/focal-dev/focal/internal/store"
	"github.com/focal-dev/focal/internal/watch"
)

func newTestRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "caller.go"), []byte(`package demo

func Caller() int {
	return Callee()
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "callee.go"), []byte(`package demo

func Callee() int {
	return 42
}
`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "vendor"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "vendor", "skip.go"), []byte(`package vendor`), 0o644))
	return root
}

func newTestIndexer(t *testing.T) (*Indexer, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	registry := grammar.NewRegistry()
	return New(s, registry, Config{ExcludePatterns: []string{"**/vendor/**"}}), s
}

func TestFullIndex_ParsesAndResolvesReferences(t *testing.T) {
	root := newTestRepo(t)
	idx, s := newTestIndexer(t)

	stats, err := idx.FullIndex("demo", root)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FilesParsed, "vendor/skip.go is excluded")
	assert.Equal(t, 2, stats.SymbolsInserted)
	assert.Equal(t, 1, stats.EdgesInserted, "Caller calling Callee resolves to one edge")
	assert.Empty(t, stats.Errors)

	repo, err := s.GetRepository(root)
	require.NoError(t, err)
	require.NotNil(t, repo)

	syms, err := s.ListSymbolsByRepo(repo.ID)
	require.NoError(t, err)
	var names []string
	for _, sym := range syms {
		names = append(names, sym.Name)
	}
	assert.Contains(t, names, "Caller")
	assert.Contains(t, names, "Callee")
}

func TestFullIndex_IsIdempotentOnUnchangedFiles(t *testing.T) {
	root := newTestRepo(t)
	idx, _ := newTestIndexer(t)

	_, err := idx.FullIndex("demo", root)
	require.NoError(t, err)

	stats2, err := idx.FullIndex("demo", root)
	require.NoError(t, err)

	assert.Equal(t, 0, stats2.FilesParsed, "unchanged content is skipped on re-index")
	assert.Equal(t, 2, stats2.FilesSkippedUnchanged)
}

func TestHandleBatch_DeletedFileRemovesSymbols(t *testing.T) {
	root := newTestRepo(t)
	idx, s := newTestIndexer(t)

	_, err := idx.FullIndex("demo", root)
	require.NoError(t, err)

	repo, err := s.GetRepository(root)
	require.NoError(t, err)

	calleePath := filepath.Join(root, "callee.go")
	require.NoError(t, os.Remove(calleePath))

	stats, err := idx.HandleBatch(repo.ID, root, []watch.PathEvent{
		{Path: calleePath, Classification: watch.Deleted},
	})
	require.NoError(t, err)
	assert.Empty(t, stats.Errors)

	syms, err := s.ListSymbolsByRepo(repo.ID)
	require.NoError(t, err)
	for _, sym := range syms {
		assert.NotEqual(t, "Callee", sym.Name, "deleted file's symbols must be gone")
	}
}

func TestHandleBatch_CreatedFileIsParsedAndLinked(t *testing.T) {
	root := newTestRepo(t)
	idx, s := newTestIndexer(t)

	_, err := idx.FullIndex("demo", root)
	require.NoError(t, err)

	repo, err := s.GetRepository(root)
	require.NoError(t, err)

	newFile := filepath.Join(root, "extra.go")
	require.NoError(t, os.WriteFile(newFile, []byte(`package demo

func Extra() int {
	return Callee()
}
`), 0o644))

	stats, err := idx.HandleBatch(repo.ID, root, []watch.PathEvent{
		{Path: newFile, Classification: watch.Created},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesParsed)
	assert.Equal(t, 1, stats.EdgesInserted)
}

func TestKnownPaths_ReflectsIndexedFiles(t *testing.T) {
	root := newTestRepo(t)
	idx, s := newTestIndexer(t)

	_, err := idx.FullIndex("demo", root)
	require.NoError(t, err)

	repo, err := s.GetRepository(root)
	require.NoError(t, err)

	paths := idx.KnownPaths(repo.ID)()
	assert.ElementsMatch(t, []string{"caller.go", "callee.go"}, paths)
}
