package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goSample = `package sample

func Add(a, b int) int {
	return a + b
}

type Point struct {
	X int
	Y int
}
`

func TestRegistry_SupportsAndGrammarFor(t *testing.T) {
	r := NewRegistry()

	assert.True(t, r.Supports(".go"))
	assert.True(t, r.Supports(".py"))
	assert.True(t, r.Supports(".rs"))
	assert.False(t, r.Supports(".md"))

	g, ok := r.GrammarFor(".go")
	require.True(t, ok)
	assert.Equal(t, "go", g.Language())
}

func TestRegistry_ParseAndExtractGoSymbols(t *testing.T) {
	r := NewRegistry()

	tree, g, err := r.Parse(".go", []byte(goSample))
	require.NoError(t, err)
	require.NotNil(t, tree)
	defer tree.Close()

	symbols, err := g.ExtractSymbols([]byte(goSample), tree)
	require.NoError(t, err)

	var names []string
	for _, s := range symbols {
		names = append(names, s.Name)
	}
	assert.Contains(t, names, "Add")
	assert.Contains(t, names, "Point")
}

func TestRegistry_ParseUnsupportedExtension(t *testing.T) {
	r := NewRegistry()
	_, _, err := r.Parse(".md", []byte("# hello"))
	assert.Error(t, err)
}
