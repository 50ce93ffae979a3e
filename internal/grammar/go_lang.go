package grammar

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/focal-dev/focal/internal/model"
)

// goGrammar extracts symbols and references from Go source, grounded on the
// teacher's internal/symbollinker/go_extractor.go and go_resolver.go.
type goGrammar struct{}

func newGoGrammar() Grammar { return goGrammar{} }

func (goGrammar) Language() string     { return "go" }
func (goGrammar) Extensions() []string { return []string{".go"} }

func (g goGrammar) ExtractSymbols(source []byte, tree *sitter.Tree) ([]Symbol, error) {
	if tree == nil || tree.RootNode() == nil {
		return nil, errNilTree
	}
	root := tree.RootNode()
	var out []Symbol

	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "function_declaration":
			out = append(out, g.functionSymbol(child, source, ""))
		case "method_declaration":
			out = append(out, g.methodSymbol(child, source))
		case "type_declaration":
			out = append(out, g.typeSymbols(child, source)...)
		case "const_declaration":
			out = append(out, g.constSymbols(child, source)...)
		}
	}
	return out, nil
}

func (goGrammar) functionSymbol(node *sitter.Node, source []byte, parentPath string) Symbol {
	name := fieldText(node, "name", source)
	return Symbol{
		Name:       name,
		Kind:       model.KindFunction,
		Signature:  signatureLine(node, source, "body"),
		Body:       nodeText(node, source),
		StartLine:  startLine(node),
		EndLine:    endLine(node),
		ParentPath: parentPath,
	}
}

func (goGrammar) methodSymbol(node *sitter.Node, source []byte) Symbol {
	name := fieldText(node, "name", source)
	receiver := receiverTypeName(node, source)
	return Symbol{
		Name:       name,
		Kind:       model.KindMethod,
		Signature:  signatureLine(node, source, "body"),
		Body:       nodeText(node, source),
		StartLine:  startLine(node),
		EndLine:    endLine(node),
		ParentPath: receiver,
	}
}

// receiverTypeName extracts the dereferenced receiver type name, e.g. "*Foo" -> "Foo".
func receiverTypeName(method *sitter.Node, source []byte) string {
	params := method.ChildByFieldName("receiver")
	if params == nil {
		return ""
	}
	var recvName string
	walk(params, func(n *sitter.Node) {
		switch n.Kind() {
		case "type_identifier":
			if recvName == "" {
				recvName = nodeText(n, source)
			}
		}
	})
	return recvName
}

func (goGrammar) typeSymbols(decl *sitter.Node, source []byte) []Symbol {
	var out []Symbol
	for _, spec := range childrenByType(decl, "type_spec") {
		name := fieldText(spec, "name", source)
		typeNode := spec.ChildByFieldName("type")
		kind := model.KindTypeAlias
		if typeNode != nil {
			switch typeNode.Kind() {
			case "struct_type":
				kind = model.KindStruct
			case "interface_type":
				kind = model.KindInterface
			}
		}
		out = append(out, Symbol{
			Name:      name,
			Kind:      kind,
			Signature: signatureLine(spec, source, "__none__"),
			Body:      nodeText(spec, source),
			StartLine: startLine(spec),
			EndLine:   endLine(spec),
		})
	}
	return out
}

func (goGrammar) constSymbols(decl *sitter.Node, source []byte) []Symbol {
	var out []Symbol
	for _, spec := range childrenByType(decl, "const_spec") {
		for _, ident := range childrenByType(spec, "identifier") {
			out = append(out, Symbol{
				Name:      nodeText(ident, source),
				Kind:      model.KindConst,
				Signature: nodeText(spec, source),
				Body:      nodeText(spec, source),
				StartLine: startLine(spec),
				EndLine:   endLine(spec),
			})
		}
	}
	return out
}

func (g goGrammar) ExtractReferences(source []byte, tree *sitter.Tree) ([]Reference, error) {
	if tree == nil || tree.RootNode() == nil {
		return nil, errNilTree
	}
	root := tree.RootNode()
	var out []Reference

	// imports: every file-level import_spec becomes one reference from each
	// top-level function, method and type declared in the file, since Go
	// imports are file-scoped rather than symbol-scoped.
	var fileSymbolNames []string
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "function_declaration":
			fileSymbolNames = append(fileSymbolNames, fieldText(child, "name", source))
		case "method_declaration":
			fileSymbolNames = append(fileSymbolNames, fieldText(child, "name", source))
		case "type_declaration":
			for _, spec := range childrenByType(child, "type_spec") {
				fileSymbolNames = append(fileSymbolNames, fieldText(spec, "name", source))
			}
		}
	}

	var currentFunc string
	walk(root, func(n *sitter.Node) {
		switch n.Kind() {
		case "function_declaration":
			currentFunc = fieldText(n, "name", source)
		case "method_declaration":
			currentFunc = fieldText(n, "name", source)
		case "call_expression":
			fn := n.ChildByFieldName("function")
			name := calleeName(fn, source)
			if name != "" && currentFunc != "" {
				out = append(out, Reference{FromSymbol: currentFunc, ToName: name, Kind: model.EdgeCalls})
			}
		case "type_identifier":
			if currentFunc != "" {
				name := nodeText(n, source)
				if name != "" {
					out = append(out, Reference{FromSymbol: currentFunc, ToName: name, Kind: model.EdgeTypeRef})
				}
			}
		}
	})

	for _, spec := range importSpecs(root) {
		path := importPath(spec, source)
		if path == "" {
			continue
		}
		for _, name := range fileSymbolNames {
			out = append(out, Reference{FromSymbol: name, ToName: path, Kind: model.EdgeImports})
		}
	}

	return out, nil
}

func calleeName(fn *sitter.Node, source []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return nodeText(fn, source)
	case "selector_expression":
		field := fn.ChildByFieldName("field")
		return nodeText(field, source)
	}
	return ""
}

func importSpecs(root *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil || child.Kind() != "import_declaration" {
			continue
		}
		if list := childByType(child, "import_spec_list"); list != nil {
			out = append(out, childrenByType(list, "import_spec")...)
		} else if spec := childByType(child, "import_spec"); spec != nil {
			out = append(out, spec)
		}
	}
	return out
}

func importPath(spec *sitter.Node, source []byte) string {
	for i := uint(0); i < spec.ChildCount(); i++ {
		child := spec.Child(i)
		if child != nil && child.Kind() == "interpreted_string_literal" {
			text := nodeText(child, source)
			if len(text) >= 2 {
				return text[1 : len(text)-1]
			}
		}
	}
	return ""
}
