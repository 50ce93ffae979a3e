package grammar

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/focal-dev/focal/internal/model"
)

// jsGrammar covers JavaScript/JSX; typescriptGrammar reuses its symbol and
// reference extraction and adds the TS-only declaration kinds (interface, type alias, enum), grounded on the
// teacher's internal/parser/parser_language_setup.go query pairs for
// .js/.jsx vs .ts/.tsx.
type jsGrammar struct {
	lang string
	exts []string
}

func newJavaScriptGrammar() Grammar {
	return jsGrammar{lang: "javascript", exts: []string{".js", ".jsx", ".mjs"}}
}

func (g jsGrammar) Language() string     { return g.lang }
func (g jsGrammar) Extensions() []string { return g.exts }

func (g jsGrammar) ExtractSymbols(source []byte, tree *sitter.Tree) ([]Symbol, error) {
	if tree == nil || tree.RootNode() == nil {
		return nil, errNilTree
	}
	var out []Symbol
	collectJS(tree.RootNode(), source, "", &out)
	return out, nil
}

func collectJS(node *sitter.Node, source []byte, parentPath string, out *[]Symbol) {
	if node == nil {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "function_declaration", "generator_function_declaration":
			name := fieldText(child, "name", source)
			*out = append(*out, Symbol{
				Name: name, Kind: model.KindFunction,
				Signature: signatureLine(child, source, "body"), Body: nodeText(child, source),
				StartLine: startLine(child), EndLine: endLine(child), ParentPath: parentPath,
			})
		case "class_declaration":
			name := fieldText(child, "name", source)
			*out = append(*out, Symbol{
				Name: name, Kind: model.KindClass,
				Signature: signatureLine(child, source, "body"), Body: nodeText(child, source),
				StartLine: startLine(child), EndLine: endLine(child), ParentPath: parentPath,
			})
			if body := child.ChildByFieldName("body"); body != nil {
				collectJS(body, source, name, out)
			}
			continue
		case "method_definition":
			name := fieldText(child, "name", source)
			*out = append(*out, Symbol{
				Name: name, Kind: model.KindMethod,
				Signature: signatureLine(child, source, "body"), Body: nodeText(child, source),
				StartLine: startLine(child), EndLine: endLine(child), ParentPath: parentPath,
			})
			continue
		case "lexical_declaration", "variable_declaration":
			for _, decl := range childrenByType(child, "variable_declarator") {
				value := decl.ChildByFieldName("value")
				if value == nil {
					continue
				}
				if value.Kind() == "arrow_function" || value.Kind() == "function_expression" {
					name := fieldText(decl, "name", source)
					*out = append(*out, Symbol{
						Name: name, Kind: model.KindFunction,
						Signature: nodeText(decl, source), Body: nodeText(child, source),
						StartLine: startLine(child), EndLine: endLine(child), ParentPath: parentPath,
					})
				}
			}
		}
		if child.Kind() != "class_declaration" {
			collectJS(child, source, parentPath, out)
		}
	}
}

func (g jsGrammar) ExtractReferences(source []byte, tree *sitter.Tree) ([]Reference, error) {
	if tree == nil || tree.RootNode() == nil {
		return nil, errNilTree
	}
	var out []Reference
	var scope []string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "function_declaration", "generator_function_declaration", "class_declaration", "method_definition":
			name := fieldText(n, "name", source)
			scope = append(scope, name)
			for i := uint(0); i < n.ChildCount(); i++ {
				visit(n.Child(i))
			}
			scope = scope[:len(scope)-1]
			return
		case "call_expression":
			fn := n.ChildByFieldName("function")
			name := jsCalleeName(fn, source)
			if name != "" && len(scope) > 0 {
				out = append(out, Reference{FromSymbol: scope[len(scope)-1], ToName: name, Kind: model.EdgeCalls})
			}
		case "class_heritage":
			for _, id := range allIdentifiers(n) {
				if len(scope) > 0 {
					out = append(out, Reference{FromSymbol: scope[len(scope)-1], ToName: nodeText(id, source), Kind: model.EdgeImplements})
				}
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}
	visit(tree.RootNode())
	return out, nil
}

func jsCalleeName(fn *sitter.Node, source []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return nodeText(fn, source)
	case "member_expression":
		prop := fn.ChildByFieldName("property")
		return nodeText(prop, source)
	}
	return ""
}

func allIdentifiers(node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	walk(node, func(n *sitter.Node) {
		if n.Kind() == "identifier" {
			out = append(out, n)
		}
	})
	return out
}
