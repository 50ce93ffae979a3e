package context

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focal-dev/focal/internal/grammar"
	"github.com/focal-dev/focal/internal/model"
	"github.com/focal-dev/focal/internal/store"
)

func TestClassify_KeywordPrecedenceAndCleanedQuery(t *testing.T) {
	intent, cleaned := classify("fix the ParseConfig crash")
	assert.Equal(t, IntentDebug, intent)
	assert.Equal(t, "the parseconfig", cleaned)

	intent, _ = classify("rename ParseConfig everywhere")
	assert.Equal(t, IntentRefactor, intent)

	intent, _ = classify("add a new ParseConfig feature")
	assert.Equal(t, IntentModify, intent)

	intent, cleaned = classify("where is ParseConfig used")
	assert.Equal(t, IntentExplore, intent)
	assert.Equal(t, "where is parseconfig used", cleaned)
}

func TestExpansionDirection_PerIntent(t *testing.T) {
	assert.Equal(t, direction{forward: true, reverse: true}, expansionDirection(IntentDebug))
	assert.Equal(t, direction{reverse: true}, expansionDirection(IntentRefactor))
	assert.Equal(t, direction{forward: true}, expansionDirection(IntentModify))
	assert.Equal(t, direction{forward: true}, expansionDirection(IntentExplore))
}

func newEngineWithChain(t *testing.T) (*Engine, *store.Store, map[string]int64) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	repoID, err := s.UpsertRepository("demo", "/repo/demo")
	require.NoError(t, err)

	syms := []grammar.Symbol{
		{Name: "ParseConfig", Kind: model.KindFunction, Signature: "func ParseConfig() Config", Body: "return Config{}", StartLine: 1, EndLine: 3},
		{Name: "ValidateConfig", Kind: model.KindFunction, Signature: "func ValidateConfig(c Config) error", Body: "return nil", StartLine: 5, EndLine: 7},
	}
	res, err := s.ReindexFile(repoID, "config.go", "go", "hash1", syms)
	require.NoError(t, err)

	require.NoError(t, s.InsertEdge(res.SymbolsByName["ParseConfig"][0], res.SymbolsByName["ValidateConfig"][0], model.EdgeCalls))

	ids := map[string]int64{}
	for name, idList := range res.SymbolsByName {
		ids[name] = idList[0]
	}
	return New(s), s, ids
}

func TestBuildCapsule_FindsPivotAndExpandsGraph(t *testing.T) {
	engine, _, ids := newEngineWithChain(t)

	capsule, newlySent, err := engine.BuildCapsule("ParseConfig", 10_000, nil, nil)
	require.NoError(t, err)

	require.NotEmpty(t, capsule.Items)
	assert.Equal(t, ids["ParseConfig"], capsule.Items[0].SymbolID)
	assert.NotEmpty(t, capsule.Items[0].Body)
	assert.Contains(t, newlySent, ids["ParseConfig"])

	// IntentExplore expands forward, so ValidateConfig (the callee) should
	// show up as a skeleton (no body).
	var found *Item
	for i := range capsule.Items {
		if capsule.Items[i].SymbolID == ids["ValidateConfig"] {
			found = &capsule.Items[i]
		}
	}
	require.NotNil(t, found, "forward expansion should surface the callee")
	assert.Empty(t, found.Body, "expanded symbols are skeletons, no body")
}

func TestBuildCapsule_RespectsTokenBudget(t *testing.T) {
	engine, _, _ := newEngineWithChain(t)

	capsule, _, err := engine.BuildCapsule("ParseConfig", 1, nil, nil)
	require.NoError(t, err)

	assert.LessOrEqual(t, capsule.TotalTokens, capsule.Budget+0, "a budget of 1 token admits nothing")
	assert.Empty(t, capsule.Items)
}

func TestBuildCapsule_ProgressiveDisclosureOmitsBodyOnceSent(t *testing.T) {
	engine, _, ids := newEngineWithChain(t)

	alreadySent := map[int64]bool{ids["ParseConfig"]: true}
	capsule, newlySent, err := engine.BuildCapsule("ParseConfig", 10_000, nil, alreadySent)
	require.NoError(t, err)

	require.NotEmpty(t, capsule.Items)
	assert.Equal(t, ids["ParseConfig"], capsule.Items[0].SymbolID)
	assert.Empty(t, capsule.Items[0].Body)
	assert.Equal(t, alreadySentMarker, capsule.Items[0].Note)
	assert.NotContains(t, newlySent, ids["ParseConfig"], "a pivot already sent this session isn't re-reported as newly sent")
}
