package grammar

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/focal-dev/focal/internal/model"
)

// queryGrammar extracts symbols from a tree-sitter query string alone,
// grounded on the teacher's internal/parser.CommunityParserAdapter: a
// single capture-driven query replaces a hand-written tree walk for
// languages where Focal doesn't need per-language nuance (no nested-method
// parent resolution, no reference extraction beyond calls).
//
// Captures named "function"/"method"/"class"/"struct"/"interface"/"trait"/
// "enum" (with a ".name" sub-capture) become symbols of the matching kind.
// Calls-references are found by a plain tree walk (see ExtractReferences),
// not by query captures.
type queryGrammar struct {
	lang     string
	exts     []string
	language *sitter.Language
	query    string
}

func (g queryGrammar) Language() string     { return g.lang }
func (g queryGrammar) Extensions() []string { return g.exts }

var captureKind = map[string]model.SymbolKind{
	"function":  model.KindFunction,
	"method":    model.KindMethod,
	"class":     model.KindClass,
	"struct":    model.KindStruct,
	"interface": model.KindInterface,
	"trait":     model.KindTrait,
	"enum":      model.KindEnum,
}

func (g queryGrammar) compiledQuery() (*sitter.Query, error) {
	return sitter.NewQuery(g.language, g.query)
}

func (g queryGrammar) ExtractSymbols(source []byte, tree *sitter.Tree) ([]Symbol, error) {
	if tree == nil || tree.RootNode() == nil {
		return nil, errNilTree
	}
	query, err := g.compiledQuery()
	if err != nil || query == nil {
		return nil, err
	}
	defer query.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()

	names := query.CaptureNames()
	matches := qc.Matches(query, tree.RootNode(), source)

	var out []Symbol
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		var nameText string
		var mainNode *sitter.Node
		var mainKind model.SymbolKind
		for _, c := range match.Captures {
			captureName := names[c.Index]
			node := c.Node
			if strings.HasSuffix(captureName, ".name") {
				nameText = nodeText(&node, source)
				continue
			}
			if kind, ok := captureKind[captureName]; ok {
				mainKind = kind
				n := node
				mainNode = &n
			}
		}
		if mainNode == nil || nameText == "" {
			continue
		}
		out = append(out, Symbol{
			Name:      nameText,
			Kind:      mainKind,
			Signature: signatureLine(mainNode, source, "body"),
			Body:      nodeText(mainNode, source),
			StartLine: startLine(mainNode),
			EndLine:   endLine(mainNode),
		})
	}
	return out, nil
}

func (g queryGrammar) ExtractReferences(source []byte, tree *sitter.Tree) ([]Reference, error) {
	if tree == nil || tree.RootNode() == nil {
		return nil, errNilTree
	}
	// Reference extraction for community-tier languages is limited to calls
	// made from the innermost named declaration, found with a plain walk
	// (queries don't easily express "nearest enclosing named ancestor").
	var out []Reference
	var scope []string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		name := g.declarationName(n, source)
		if name != "" {
			scope = append(scope, name)
			for i := uint(0); i < n.ChildCount(); i++ {
				visit(n.Child(i))
			}
			scope = scope[:len(scope)-1]
			return
		}
		if g.isCall(n) && len(scope) > 0 {
			if callee := g.calleeName(n, source); callee != "" {
				out = append(out, Reference{FromSymbol: scope[len(scope)-1], ToName: callee, Kind: model.EdgeCalls})
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}
	visit(tree.RootNode())
	return out, nil
}

// declarationName returns the name of n if n is one of this language's
// declaration kinds, else "".
func (g queryGrammar) declarationName(n *sitter.Node, source []byte) string {
	switch n.Kind() {
	case "function_definition", "function_declaration", "function_item",
		"method_declaration", "method_definition",
		"class_declaration", "class_specifier", "class_definition",
		"struct_item", "struct_specifier",
		"interface_declaration", "trait_item":
		if name := fieldText(n, "name", source); name != "" {
			return name
		}
		if child := childByType(n, "identifier"); child != nil {
			return nodeText(child, source)
		}
	}
	return ""
}

func (queryGrammar) isCall(n *sitter.Node) bool {
	switch n.Kind() {
	case "call_expression", "method_invocation", "invocation_expression", "function_call_expression":
		return true
	}
	return false
}

func (queryGrammar) calleeName(n *sitter.Node, source []byte) string {
	if fn := n.ChildByFieldName("function"); fn != nil {
		return calleeLeaf(fn, source)
	}
	if fn := n.ChildByFieldName("name"); fn != nil {
		return calleeLeaf(fn, source)
	}
	// Fall back to the last identifier child, which covers grammars that
	// don't label the callee field consistently (java method_invocation,
	// csharp invocation_expression).
	var last *sitter.Node
	walk(n, func(c *sitter.Node) {
		if c.Kind() == "identifier" {
			x := c
			last = x
		}
	})
	return calleeLeaf(last, source)
}

func calleeLeaf(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "identifier", "field_identifier":
		return nodeText(n, source)
	case "selector_expression", "member_expression", "field_expression", "scoped_identifier":
		if field := n.ChildByFieldName("field"); field != nil {
			return nodeText(field, source)
		}
		if field := n.ChildByFieldName("name"); field != nil {
			return nodeText(field, source)
		}
	}
	return nodeText(n, source)
}
