package traversal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focal-dev/focal/internal/grammar"
	"github.com/focal-dev/focal/internal/model"
	"github.com/focal-dev/focal/internal/store"
)

// buildChain creates A -> B -> C -> D (calls edges) in a fresh store and
// returns the engine plus each symbol's id by name.
func buildChain(t *testing.T) (*Engine, map[string]int64) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	repoID, err := s.UpsertRepository("demo", "/repo/demo")
	require.NoError(t, err)

	syms := []grammar.Symbol{
		{Name: "A", Kind: model.KindFunction, Signature: "func A()", StartLine: 1, EndLine: 1},
		{Name: "B", Kind: model.KindFunction, Signature: "func B()", StartLine: 2, EndLine: 2},
		{Name: "C", Kind: model.KindFunction, Signature: "func C()", StartLine: 3, EndLine: 3},
		{Name: "D", Kind: model.KindFunction, Signature: "func D()", StartLine: 4, EndLine: 4},
	}
	res, err := s.ReindexFile(repoID, "a.go", "go", "hash1", syms)
	require.NoError(t, err)

	ids := map[string]int64{}
	for name, idList := range res.SymbolsByName {
		ids[name] = idList[0]
	}

	require.NoError(t, s.InsertEdge(ids["A"], ids["B"], model.EdgeCalls))
	require.NoError(t, s.InsertEdge(ids["B"], ids["C"], model.EdgeCalls))
	require.NoError(t, s.InsertEdge(ids["C"], ids["D"], model.EdgeCalls))

	return New(s), ids
}

func TestImpact_DistanceOrdering(t *testing.T) {
	engine, ids := buildChain(t)

	nodes, err := engine.Impact(ids["D"], 3)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	assert.Equal(t, "C", nodes[0].Symbol.Name)
	assert.Equal(t, 1, nodes[0].Distance)
	assert.Equal(t, "B", nodes[1].Symbol.Name)
	assert.Equal(t, 2, nodes[1].Distance)
	assert.Equal(t, "A", nodes[2].Symbol.Name)
	assert.Equal(t, 3, nodes[2].Distance)
}

func TestImpact_DepthClampsToBounds(t *testing.T) {
	engine, ids := buildChain(t)

	nodes, err := engine.Impact(ids["D"], 100)
	require.NoError(t, err)
	assert.Len(t, nodes, 3, "only A, B, C are reachable regardless of the requested depth")

	nodes, err = engine.Impact(ids["D"], 1)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func TestLogicFlow_FindsSingleChainPath(t *testing.T) {
	engine, ids := buildChain(t)

	paths, err := engine.LogicFlow(ids["A"], ids["D"], "A", "D", 3)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"A", "B", "C", "D"}, paths[0].Names)
}

func TestLogicFlow_NoPathReturnsEmpty(t *testing.T) {
	engine, ids := buildChain(t)

	paths, err := engine.LogicFlow(ids["D"], ids["A"], "D", "A", 3)
	require.NoError(t, err)
	assert.Empty(t, paths, "no forward edges run from D back to A")
}

func TestLogicFlow_SelfCycleNeverLoops(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer s.Close()

	repoID, err := s.UpsertRepository("demo", "/repo/demo")
	require.NoError(t, err)
	syms := []grammar.Symbol{
		{Name: "Self", Kind: model.KindFunction, Signature: "func Self()", StartLine: 1, EndLine: 1},
	}
	res, err := s.ReindexFile(repoID, "a.go", "go", "hash1", syms)
	require.NoError(t, err)
	selfID := res.SymbolsByName["Self"][0]
	require.NoError(t, s.InsertEdge(selfID, selfID, model.EdgeCalls))

	engine := New(s)
	paths, err := engine.LogicFlow(selfID, selfID, "Self", "Self", 3)
	require.NoError(t, err)
	assert.Empty(t, paths, "a path must have more than one hop to count as reaching the target")
}
