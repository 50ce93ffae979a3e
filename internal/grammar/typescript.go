package grammar

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/focal-dev/focal/internal/model"
)

type typescriptGrammar struct{}

func newTypeScriptGrammar() Grammar { return typescriptGrammar{} }

func (typescriptGrammar) Language() string     { return "typescript" }
func (typescriptGrammar) Extensions() []string { return []string{".ts", ".tsx"} }

func (g typescriptGrammar) ExtractSymbols(source []byte, tree *sitter.Tree) ([]Symbol, error) {
	if tree == nil || tree.RootNode() == nil {
		return nil, errNilTree
	}
	var out []Symbol
	collectJS(tree.RootNode(), source, "", &out)
	collectTSDecls(tree.RootNode(), source, "", &out)
	return out, nil
}

func collectTSDecls(node *sitter.Node, source []byte, parentPath string, out *[]Symbol) {
	if node == nil {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "interface_declaration":
			name := fieldText(child, "name", source)
			*out = append(*out, Symbol{
				Name: name, Kind: model.KindInterface,
				Signature: signatureLine(child, source, "body"), Body: nodeText(child, source),
				StartLine: startLine(child), EndLine: endLine(child), ParentPath: parentPath,
			})
		case "type_alias_declaration":
			name := fieldText(child, "name", source)
			*out = append(*out, Symbol{
				Name: name, Kind: model.KindTypeAlias,
				Signature: nodeText(child, source), Body: nodeText(child, source),
				StartLine: startLine(child), EndLine: endLine(child), ParentPath: parentPath,
			})
		case "enum_declaration":
			name := fieldText(child, "name", source)
			*out = append(*out, Symbol{
				Name: name, Kind: model.KindEnum,
				Signature: signatureLine(child, source, "body"), Body: nodeText(child, source),
				StartLine: startLine(child), EndLine: endLine(child), ParentPath: parentPath,
			})
		}
		collectTSDecls(child, source, parentPath, out)
	}
}

func (g typescriptGrammar) ExtractReferences(source []byte, tree *sitter.Tree) ([]Reference, error) {
	if tree == nil || tree.RootNode() == nil {
		return nil, errNilTree
	}
	js := jsGrammar{lang: "typescript", exts: []string{".ts", ".tsx"}}
	refs, err := js.ExtractReferences(source, tree)
	if err != nil {
		return nil, err
	}

	// interface "extends" clauses become implements edges.
	root := tree.RootNode()
	var scope string
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Kind() == "interface_declaration" {
			scope = fieldText(n, "name", source)
		}
		if n.Kind() == "extends_type_clause" && scope != "" {
			for _, id := range allIdentifiers(n) {
				refs = append(refs, Reference{FromSymbol: scope, ToName: nodeText(id, source), Kind: model.EdgeImplements})
			}
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
	return refs, nil
}
