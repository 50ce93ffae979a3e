package grammar

import (
	"fmt"
	"sync"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// Registry maps file extensions to Grammars and to the tree-sitter
// languages/parsers needed to produce their parse trees. Files with an
// unregistered extension are skipped silently, per spec §4.A.
type Registry struct {
	grammars  map[string]Grammar
	languages map[string]*sitter.Language

	mu      sync.Mutex
	parsers map[string]*sync.Pool // ext -> pool of *sitter.Parser
}

// NewRegistry builds the default registry covering the ten languages the
// retrieval pack vendors tree-sitter grammars for.
func NewRegistry() *Registry {
	r := &Registry{
		grammars:  make(map[string]Grammar),
		languages: make(map[string]*sitter.Language),
		parsers:   make(map[string]*sync.Pool),
	}

	r.register(newGoGrammar(), sitter.NewLanguage(tree_sitter_go.Language()))
	r.register(newPythonGrammar(), sitter.NewLanguage(tree_sitter_python.Language()))
	r.register(newJavaScriptGrammar(), sitter.NewLanguage(tree_sitter_javascript.Language()))
	r.register(newTypeScriptGrammar(), sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()))

	rustLang := sitter.NewLanguage(tree_sitter_rust.Language())
	r.register(queryGrammar{
		lang: "rust", exts: []string{".rs"}, language: rustLang,
		query: `
			(function_item name: (identifier) @function.name) @function
			(struct_item name: (type_identifier) @struct.name) @struct
			(trait_item name: (type_identifier) @trait.name) @trait
			(enum_item name: (type_identifier) @enum.name) @enum
		`,
	}, rustLang)

	javaLang := sitter.NewLanguage(tree_sitter_java.Language())
	r.register(queryGrammar{
		lang: "java", exts: []string{".java"}, language: javaLang,
		query: `
			(method_declaration name: (identifier) @method.name) @method
			(class_declaration name: (identifier) @class.name) @class
			(interface_declaration name: (identifier) @interface.name) @interface
			(enum_declaration name: (identifier) @enum.name) @enum
		`,
	}, javaLang)

	cppLang := sitter.NewLanguage(tree_sitter_cpp.Language())
	r.register(queryGrammar{
		lang: "cpp", exts: []string{".cpp", ".cc", ".cxx", ".hpp", ".h", ".hh"}, language: cppLang,
		query: `
			(function_definition declarator: (function_declarator declarator: (identifier) @function.name)) @function
			(function_definition declarator: (function_declarator declarator: (field_identifier) @method.name)) @method
			(class_specifier name: (type_identifier) @class.name) @class
			(struct_specifier name: (type_identifier) @struct.name) @struct
		`,
	}, cppLang)

	csharpLang := sitter.NewLanguage(tree_sitter_csharp.Language())
	r.register(queryGrammar{
		lang: "csharp", exts: []string{".cs"}, language: csharpLang,
		query: `
			(method_declaration name: (identifier) @method.name) @method
			(class_declaration name: (identifier) @class.name) @class
			(interface_declaration name: (identifier) @interface.name) @interface
			(enum_declaration name: (identifier) @enum.name) @enum
		`,
	}, csharpLang)

	phpLang := sitter.NewLanguage(tree_sitter_php.LanguagePHP())
	r.register(queryGrammar{
		lang: "php", exts: []string{".php"}, language: phpLang,
		query: `
			(function_definition name: (name) @function.name) @function
			(method_declaration name: (name) @method.name) @method
			(class_declaration name: (name) @class.name) @class
			(interface_declaration name: (name) @interface.name) @interface
		`,
	}, phpLang)

	zigLang := sitter.NewLanguage(tree_sitter_zig.Language())
	r.register(queryGrammar{
		lang: "zig", exts: []string{".zig"}, language: zigLang,
		query: `
			(FnProto name: (IDENTIFIER) @function.name) @function
		`,
	}, zigLang)

	return r
}

func (r *Registry) register(g Grammar, lang *sitter.Language) {
	for _, ext := range g.Extensions() {
		r.grammars[ext] = g
		r.languages[ext] = lang
		r.parsers[ext] = &sync.Pool{New: func() interface{} {
			p := sitter.NewParser()
			_ = p.SetLanguage(lang)
			return p
		}}
	}
}

// GrammarFor returns the grammar registered for ext, or false if unregistered.
func (r *Registry) GrammarFor(ext string) (Grammar, bool) {
	g, ok := r.grammars[ext]
	return g, ok
}

// Supports reports whether ext has a registered grammar.
func (r *Registry) Supports(ext string) bool {
	_, ok := r.grammars[ext]
	return ok
}

// Parse parses source with the parser registered to ext, returning the
// resulting tree. The caller must call tree.Close() when done.
func (r *Registry) Parse(ext string, source []byte) (*sitter.Tree, Grammar, error) {
	g, ok := r.grammars[ext]
	if !ok {
		return nil, nil, fmt.Errorf("grammar: no grammar registered for extension %q", ext)
	}

	r.mu.Lock()
	pool := r.parsers[ext]
	r.mu.Unlock()

	parserIface := pool.Get()
	parser := parserIface.(*sitter.Parser)
	defer pool.Put(parser)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, nil, fmt.Errorf("grammar: parse failed for extension %q", ext)
	}
	return tree, g, nil
}
