// Package model holds the entities of Focal's symbol/dependency graph,
// shared by the grammar capability, the store, the indexer, the context
// engine and the traversal engine.
package model

// SymbolKind enumerates the declaration kinds a grammar can produce.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindStruct    SymbolKind = "struct"
	KindClass     SymbolKind = "class"
	KindInterface SymbolKind = "interface"
	KindTrait     SymbolKind = "trait"
	KindTypeAlias SymbolKind = "type_alias"
	KindConst     SymbolKind = "const"
	KindModule    SymbolKind = "module"
	KindEnum      SymbolKind = "enum"
)

// kindResolutionPriority implements the indexer's ambiguous-reference
// tie-break rule (spec §4.B): function/method outrank type-like kinds,
// which outrank const, which outranks module.
var kindResolutionPriority = map[SymbolKind]int{
	KindFunction:  0,
	KindMethod:    0,
	KindStruct:    1,
	KindClass:     1,
	KindInterface: 1,
	KindTrait:     1,
	KindEnum:      1,
	KindTypeAlias: 1,
	KindConst:     2,
	KindModule:    3,
}

// ResolutionPriority returns the tie-break rank of kind; lower wins.
func ResolutionPriority(kind SymbolKind) int {
	if p, ok := kindResolutionPriority[kind]; ok {
		return p
	}
	return 99
}

// EdgeKind enumerates the directed relations extracted between symbols.
type EdgeKind string

const (
	EdgeCalls      EdgeKind = "calls"
	EdgeImports    EdgeKind = "imports"
	EdgeImplements EdgeKind = "implements"
	EdgeEmbeds     EdgeKind = "embeds"
	EdgeTypeRef    EdgeKind = "type_ref"
)

// MemoryCategory enumerates the kinds of notes a memory can record.
type MemoryCategory string

const (
	CategoryDecision     MemoryCategory = "decision"
	CategoryPattern      MemoryCategory = "pattern"
	CategoryBugFix       MemoryCategory = "bug_fix"
	CategoryArchitecture MemoryCategory = "architecture"
	CategoryConvention   MemoryCategory = "convention"
	CategoryAuto         MemoryCategory = "auto"
)

// Repository is a configured root directory Focal indexes.
type Repository struct {
	ID        int64
	Name      string
	RootPath  string
	IndexedAt int64 // unix seconds
}

// File is one accepted source file under a repository.
type File struct {
	ID          int64
	RepoID      int64
	Path        string // relative to the repository root
	Language    string
	ContentHash string // hex xxhash64 digest of the exact parsed bytes
	IndexedAt   int64
}

// Symbol is a named, spanned declaration extracted from a File.
type Symbol struct {
	ID        int64
	FileID    int64
	Name      string
	Kind      SymbolKind
	Signature string
	Body      string
	BodyHash  string
	StartLine int
	EndLine   int
	ParentID  *int64
}

// Edge is a directed "source depends on target" relation.
type Edge struct {
	ID       int64
	SourceID int64
	TargetID int64
	Kind     EdgeKind
}

// Memory is a persistent note, manually saved or auto-observed.
type Memory struct {
	ID          int64
	Content     string
	Category    MemoryCategory
	Source      string // "manual" or "auto:<tool>"
	SessionID   string
	CreatedAt   int64
	Stale       bool
	NeedsReview bool
}

// MemoryLink is the association between a memory and a symbol it mentions,
// carrying the snapshot fields the re-linking pass needs (spec §4.B).
type MemoryLink struct {
	MemoryID      int64
	SymbolID      int64
	SymbolName    string
	FileID        int64
	PriorBodyHash string
}

// SymbolWithFile pairs a symbol with the path of the file owning it, the
// shape most traversal/context results return.
type SymbolWithFile struct {
	Symbol   Symbol
	FilePath string
}
