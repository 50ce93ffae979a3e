package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focal-dev/focal/internal/grammar"
	"github.com/focal-dev/focal/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertRepository_IsIdempotent(t *testing.T) {
	s := openTestStore(t)

	id1, err := s.UpsertRepository("demo", "/repo/demo")
	require.NoError(t, err)
	id2, err := s.UpsertRepository("demo-renamed", "/repo/demo")
	require.NoError(t, err)

	assert.Equal(t, id1, id2)

	repo, err := s.GetRepository("/repo/demo")
	require.NoError(t, err)
	require.NotNil(t, repo)
	assert.Equal(t, "demo", repo.Name, "name is only applied on creation")
}

func TestReindexFile_ReplacesSymbolsOnRepeatedRuns(t *testing.T) {
	s := openTestStore(t)
	repoID, err := s.UpsertRepository("demo", "/repo/demo")
	require.NoError(t, err)

	first := []grammar.Symbol{
		{Name: "Foo", Kind: model.KindFunction, Signature: "func Foo()", Body: "return 1", StartLine: 1, EndLine: 2},
	}
	res1, err := s.ReindexFile(repoID, "a.go", "go", "hash1", first)
	require.NoError(t, err)
	syms, err := s.ListSymbolsByFile(res1.FileID)
	require.NoError(t, err)
	require.Len(t, syms, 1)

	second := []grammar.Symbol{
		{Name: "Bar", Kind: model.KindFunction, Signature: "func Bar()", Body: "return 2", StartLine: 1, EndLine: 2},
	}
	res2, err := s.ReindexFile(repoID, "a.go", "go", "hash2", second)
	require.NoError(t, err)
	assert.Equal(t, res1.FileID, res2.FileID, "same path reindexes the same file row")

	syms, err = s.ListSymbolsByFile(res2.FileID)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "Bar", syms[0].Name, "old symbols are replaced, not accumulated")
}

func TestReindexFile_SamePathIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	repoID, err := s.UpsertRepository("demo", "/repo/demo")
	require.NoError(t, err)

	syms := []grammar.Symbol{
		{Name: "Foo", Kind: model.KindFunction, Signature: "func Foo()", Body: "return 1", StartLine: 1, EndLine: 2},
	}
	res1, err := s.ReindexFile(repoID, "a.go", "go", "hash1", syms)
	require.NoError(t, err)
	res2, err := s.ReindexFile(repoID, "a.go", "go", "hash1", syms)
	require.NoError(t, err)

	list1, err := s.ListSymbolsByFile(res1.FileID)
	require.NoError(t, err)
	list2, err := s.ListSymbolsByFile(res2.FileID)
	require.NoError(t, err)
	assert.Equal(t, len(list1), len(list2))
}

func TestMemoryRelinking_BodyUnchangedStaysFreshAcrossFileEdit(t *testing.T) {
	s := openTestStore(t)
	repoID, err := s.UpsertRepository("demo", "/repo/demo")
	require.NoError(t, err)

	syms := []grammar.Symbol{
		{Name: "Foo", Kind: model.KindFunction, Signature: "func Foo()", Body: "return 1", StartLine: 1, EndLine: 2},
		{Name: "Bar", Kind: model.KindFunction, Signature: "func Bar()", Body: "return 2", StartLine: 4, EndLine: 5},
	}
	res, err := s.ReindexFile(repoID, "a.go", "go", "hash1", syms)
	require.NoError(t, err)

	fooID := res.SymbolsByName["Foo"][0]
	memID, err := s.SaveMemory("Foo handles the happy path", model.CategoryDecision, "manual", "sess-1", []int64{fooID})
	require.NoError(t, err)

	// Re-index the file, touching Bar's body but leaving Foo's body identical.
	syms2 := []grammar.Symbol{
		{Name: "Foo", Kind: model.KindFunction, Signature: "func Foo()", Body: "return 1", StartLine: 1, EndLine: 2},
		{Name: "Bar", Kind: model.KindFunction, Signature: "func Bar()", Body: "return 3 // changed", StartLine: 4, EndLine: 5},
	}
	_, err = s.ReindexFile(repoID, "a.go", "go", "hash2", syms2)
	require.NoError(t, err)

	mems, err := s.ListMemories(MemoryFilter{})
	require.NoError(t, err)
	require.Len(t, mems, 1)
	assert.False(t, mems[0].Stale)
	assert.False(t, mems[0].NeedsReview, "Foo's body did not change, so the memory stays fresh")
	_ = memID
}

func TestMemoryRelinking_BodyChangeMarksNeedsReview(t *testing.T) {
	s := openTestStore(t)
	repoID, err := s.UpsertRepository("demo", "/repo/demo")
	require.NoError(t, err)

	syms := []grammar.Symbol{
		{Name: "Foo", Kind: model.KindFunction, Signature: "func Foo()", Body: "return 1", StartLine: 1, EndLine: 2},
	}
	res, err := s.ReindexFile(repoID, "a.go", "go", "hash1", syms)
	require.NoError(t, err)
	fooID := res.SymbolsByName["Foo"][0]

	_, err = s.SaveMemory("Foo always returns 1", model.CategoryDecision, "manual", "sess-1", []int64{fooID})
	require.NoError(t, err)

	syms2 := []grammar.Symbol{
		{Name: "Foo", Kind: model.KindFunction, Signature: "func Foo()", Body: "return 42", StartLine: 1, EndLine: 2},
	}
	_, err = s.ReindexFile(repoID, "a.go", "go", "hash2", syms2)
	require.NoError(t, err)

	mems, err := s.ListMemories(MemoryFilter{})
	require.NoError(t, err)
	require.Len(t, mems, 1)
	assert.False(t, mems[0].Stale)
	assert.True(t, mems[0].NeedsReview, "body hash changed, so the memory needs review")
}

func TestMemoryRelinking_SymbolRemovedMarksStale(t *testing.T) {
	s := openTestStore(t)
	repoID, err := s.UpsertRepository("demo", "/repo/demo")
	require.NoError(t, err)

	syms := []grammar.Symbol{
		{Name: "Foo", Kind: model.KindFunction, Signature: "func Foo()", Body: "return 1", StartLine: 1, EndLine: 2},
	}
	res, err := s.ReindexFile(repoID, "a.go", "go", "hash1", syms)
	require.NoError(t, err)
	fooID := res.SymbolsByName["Foo"][0]

	_, err = s.SaveMemory("Foo notes", model.CategoryDecision, "manual", "sess-1", []int64{fooID})
	require.NoError(t, err)

	// Foo is renamed/removed entirely from the file.
	syms2 := []grammar.Symbol{
		{Name: "Baz", Kind: model.KindFunction, Signature: "func Baz()", Body: "return 1", StartLine: 1, EndLine: 2},
	}
	_, err = s.ReindexFile(repoID, "a.go", "go", "hash2", syms2)
	require.NoError(t, err)

	mems, err := s.ListMemories(MemoryFilter{IncludeStale: true})
	require.NoError(t, err)
	require.Len(t, mems, 1)
	assert.True(t, mems[0].Stale, "Foo no longer exists in the file, so the memory is stale")
}

func TestDeleteFileAndRelink_MarksLinkedMemoriesStale(t *testing.T) {
	s := openTestStore(t)
	repoID, err := s.UpsertRepository("demo", "/repo/demo")
	require.NoError(t, err)

	syms := []grammar.Symbol{
		{Name: "Foo", Kind: model.KindFunction, Signature: "func Foo()", Body: "return 1", StartLine: 1, EndLine: 2},
	}
	res, err := s.ReindexFile(repoID, "a.go", "go", "hash1", syms)
	require.NoError(t, err)
	fooID := res.SymbolsByName["Foo"][0]

	_, err = s.SaveMemory("Foo notes", model.CategoryDecision, "manual", "sess-1", []int64{fooID})
	require.NoError(t, err)

	require.NoError(t, s.DeleteFileAndRelink(res.FileID))

	files, err := s.ListFiles(repoID)
	require.NoError(t, err)
	assert.Empty(t, files)

	mems, err := s.ListMemories(MemoryFilter{IncludeStale: true})
	require.NoError(t, err)
	require.Len(t, mems, 1)
	assert.True(t, mems[0].Stale)
}

func TestEdges_BFSRespectsDepth(t *testing.T) {
	s := openTestStore(t)
	repoID, err := s.UpsertRepository("demo", "/repo/demo")
	require.NoError(t, err)

	syms := []grammar.Symbol{
		{Name: "A", Kind: model.KindFunction, Signature: "func A()", Body: "B()", StartLine: 1, EndLine: 1},
		{Name: "B", Kind: model.KindFunction, Signature: "func B()", Body: "C()", StartLine: 2, EndLine: 2},
		{Name: "C", Kind: model.KindFunction, Signature: "func C()", Body: "", StartLine: 3, EndLine: 3},
	}
	res, err := s.ReindexFile(repoID, "a.go", "go", "hash1", syms)
	require.NoError(t, err)

	aID := res.SymbolsByName["A"][0]
	bID := res.SymbolsByName["B"][0]
	cID := res.SymbolsByName["C"][0]

	require.NoError(t, s.InsertEdge(aID, bID, model.EdgeCalls))
	require.NoError(t, s.InsertEdge(bID, cID, model.EdgeCalls))

	depsDepth1, err := s.GetDependencies(aID, 1)
	require.NoError(t, err)
	assert.Len(t, depsDepth1, 1)

	depsDepth2, err := s.GetDependencies(aID, 2)
	require.NoError(t, err)
	assert.Len(t, depsDepth2, 2)
}

func TestSearchSymbolsFTS_FindsByName(t *testing.T) {
	s := openTestStore(t)
	repoID, err := s.UpsertRepository("demo", "/repo/demo")
	require.NoError(t, err)

	syms := []grammar.Symbol{
		{Name: "ParseConfig", Kind: model.KindFunction, Signature: "func ParseConfig()", Body: "", StartLine: 1, EndLine: 1},
	}
	_, err = s.ReindexFile(repoID, "a.go", "go", "hash1", syms)
	require.NoError(t, err)

	hits, err := s.SearchSymbolsFTS("ParseConfig", "", &repoID, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "ParseConfig", hits[0].Symbol.Name)
}
