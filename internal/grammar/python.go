package grammar

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/focal-dev/focal/internal/model"
)

type pythonGrammar struct{}

func newPythonGrammar() Grammar { return pythonGrammar{} }

func (pythonGrammar) Language() string     { return "python" }
func (pythonGrammar) Extensions() []string { return []string{".py"} }

func (g pythonGrammar) ExtractSymbols(source []byte, tree *sitter.Tree) ([]Symbol, error) {
	if tree == nil || tree.RootNode() == nil {
		return nil, errNilTree
	}
	var out []Symbol
	g.collect(tree.RootNode(), source, "", &out)
	return out, nil
}

func (g pythonGrammar) collect(node *sitter.Node, source []byte, parentPath string, out *[]Symbol) {
	if node == nil {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "function_definition":
			name := fieldText(child, "name", source)
			kind := model.KindFunction
			if parentPath != "" {
				kind = model.KindMethod
			}
			*out = append(*out, Symbol{
				Name:       name,
				Kind:       kind,
				Signature:  signatureLine(child, source, "body"),
				Body:       nodeText(child, source),
				StartLine:  startLine(child),
				EndLine:    endLine(child),
				ParentPath: parentPath,
			})
		case "class_definition":
			name := fieldText(child, "name", source)
			*out = append(*out, Symbol{
				Name:       name,
				Kind:       model.KindClass,
				Signature:  signatureLine(child, source, "body"),
				Body:       nodeText(child, source),
				StartLine:  startLine(child),
				EndLine:    endLine(child),
				ParentPath: parentPath,
			})
			if body := child.ChildByFieldName("body"); body != nil {
				g.collect(body, source, name, out)
			}
			continue
		}
		// Recurse into compound statements (if/try/with at module scope)
		// so top-level conditional definitions are still found, without
		// descending into function bodies (those aren't further nested
		// declarations worth promoting to symbols).
		if child.Kind() != "function_definition" {
			g.collect(child, source, parentPath, out)
		}
	}
}

func (pythonGrammar) ExtractReferences(source []byte, tree *sitter.Tree) ([]Reference, error) {
	if tree == nil || tree.RootNode() == nil {
		return nil, errNilTree
	}
	root := tree.RootNode()
	var out []Reference
	var scopeStack []string

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Kind() {
		case "function_definition", "class_definition":
			name := fieldText(n, "name", source)
			scopeStack = append(scopeStack, name)
			for i := uint(0); i < n.ChildCount(); i++ {
				visit(n.Child(i))
			}
			scopeStack = scopeStack[:len(scopeStack)-1]
			return
		case "call":
			fn := n.ChildByFieldName("function")
			name := pyCalleeName(fn, source)
			if name != "" && len(scopeStack) > 0 {
				out = append(out, Reference{FromSymbol: scopeStack[len(scopeStack)-1], ToName: name, Kind: model.EdgeCalls})
			}
		case "import_statement", "import_from_statement":
			if len(scopeStack) > 0 {
				for _, dotted := range childrenByType(n, "dotted_name") {
					out = append(out, Reference{FromSymbol: scopeStack[len(scopeStack)-1], ToName: nodeText(dotted, source), Kind: model.EdgeImports})
				}
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
	return out, nil
}

func pyCalleeName(fn *sitter.Node, source []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return nodeText(fn, source)
	case "attribute":
		attr := fn.ChildByFieldName("attribute")
		return nodeText(attr, source)
	}
	return ""
}
