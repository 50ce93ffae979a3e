package toolserver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/focal-dev/focal/internal/model"
	"github.com/focal-dev/focal/internal/store"
)

func TestFilterByKind_OnlyMatchingKindSurvives(t *testing.T) {
	symbols := []model.Symbol{
		{Name: "Foo", Kind: model.KindFunction},
		{Name: "Bar", Kind: model.KindStruct},
		{Name: "Baz", Kind: model.KindFunction},
	}

	out := filterByKind(symbols, "function")
	var names []string
	for _, s := range out {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Foo", "Baz"}, names)
}

func TestFilterByKind_EmptyKindFiltersToNothing(t *testing.T) {
	symbols := []model.Symbol{{Name: "Foo", Kind: model.KindFunction}}
	out := filterByKind(symbols, "")
	assert.Empty(t, out)
}

func TestEstimateBatchTokens_ScalesWithBodyLength(t *testing.T) {
	sym := model.Symbol{Name: "Foo", Kind: model.KindFunction, Signature: "func Foo()"}
	short := estimateBatchTokens(sym, "return 1")
	long := estimateBatchTokens(sym, "return 1 // plus a much longer body with more characters to estimate")
	assert.Greater(t, long, short)
}

func TestAsSymbolHits_PreservesOrderAndFields(t *testing.T) {
	hits := []store.SymbolHit{
		{Symbol: model.Symbol{Name: "Foo"}, FilePath: "a.go", Rank: 0.5},
		{Symbol: model.Symbol{Name: "Bar"}, FilePath: "b.go", Rank: 0.2},
	}
	out := asSymbolHits(hits)
	assert.Len(t, out, 2)
	assert.Equal(t, "a.go", out[0]["file_path"])
	assert.Equal(t, 0.2, out[1]["rank"])
}
