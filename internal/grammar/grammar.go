// Package grammar implements the grammar capability (spec §4.A): given
// source bytes and a parse tree, produce symbols and references as total,
// side-effect-free functions. It is backed by
// github.com/tree-sitter/go-tree-sitter and the per-language grammars
// vendored alongside it in the retrieval pack.
package grammar

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/focal-dev/focal/internal/model"
)

// Symbol is a single extracted declaration, before insertion assigns it an
// ID and resolves ParentPath to a ParentID within the owning file.
type Symbol struct {
	Name       string
	Kind       model.SymbolKind
	Signature  string
	Body       string
	StartLine  int // 1-based, inclusive
	EndLine    int // 1-based, inclusive
	ParentPath string
}

// Reference is a single extracted relation, before resolution against the
// repository's name map.
type Reference struct {
	FromSymbol string
	ToName     string
	Kind       model.EdgeKind
}

// Grammar extracts symbols and references from one language's parse trees.
// Implementations must be total functions of (source, tree): no I/O, no
// global state, consistent with spec §4.A's constraints.
type Grammar interface {
	Language() string
	Extensions() []string
	ExtractSymbols(source []byte, tree *sitter.Tree) ([]Symbol, error)
	ExtractReferences(source []byte, tree *sitter.Tree) ([]Reference, error)
}
