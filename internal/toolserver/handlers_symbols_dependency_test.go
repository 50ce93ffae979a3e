package toolserver

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focal-dev/focal/internal/grammar"
	"github.com/focal-dev/focal/internal/model"
	"github.com/focal-dev/focal/internal/store"
)

func newDependencyHintsFixture(t *testing.T) (*Server, int64, int64, int64) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	repoID, err := st.UpsertRepository("demo", "/repo/demo")
	require.NoError(t, err)

	syms := []grammar.Symbol{
		{Name: "Handler", Kind: model.KindFunction, Signature: "func Handler()", StartLine: 1, EndLine: 1},
		{Name: "Callee", Kind: model.KindFunction, Signature: "func Callee()", StartLine: 2, EndLine: 2},
		{Name: "Widget", Kind: model.KindStruct, Signature: "type Widget struct{}", StartLine: 3, EndLine: 3},
		{Name: "utils", Kind: model.KindFunction, Signature: "import utils", StartLine: 4, EndLine: 4},
	}
	res, err := st.ReindexFile(repoID, "a.go", "go", "hash1", syms)
	require.NoError(t, err)

	handlerID := res.SymbolsByName["Handler"][0]
	calleeID := res.SymbolsByName["Callee"][0]
	widgetID := res.SymbolsByName["Widget"][0]
	utilsID := res.SymbolsByName["utils"][0]

	require.NoError(t, st.InsertEdge(handlerID, calleeID, model.EdgeCalls))
	require.NoError(t, st.InsertEdge(handlerID, widgetID, model.EdgeTypeRef))
	require.NoError(t, st.InsertEdge(handlerID, utilsID, model.EdgeImports))

	return &Server{store: st}, handlerID, calleeID, widgetID
}

func TestDependencyHints_FormatsByEdgeKind(t *testing.T) {
	s, handlerID, _, _ := newDependencyHintsFixture(t)

	hints, err := s.dependencyHints(handlerID, map[int64]bool{})
	require.NoError(t, err)

	assert.Contains(t, hints, "Calls `Callee` (not in context)")
	assert.Contains(t, hints, "References trait `Widget` (not in context)")
	assert.Contains(t, hints, "Imports `utils` (not in context)")
	assert.Len(t, hints, 3)
}

func TestDependencyHints_SkipsTargetsAlreadyInResultSet(t *testing.T) {
	s, handlerID, calleeID, widgetID := newDependencyHintsFixture(t)

	hints, err := s.dependencyHints(handlerID, map[int64]bool{calleeID: true, widgetID: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"Imports `utils` (not in context)"}, hints)
}
