package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/focal-dev/focal/internal/model"
	"github.com/focal-dev/focal/internal/store"
)

func (s *Server) registerSymbolTools() {
	s.addTool(tool{
		name:        "query_symbol",
		description: "Resolve a symbol by name and return its definition plus linked memories.",
		properties: map[string]*jsonschema.Schema{
			"name":    stringProp("Symbol name"),
			"kind":    stringProp("Restrict to a symbol kind (function, method, struct, ...)"),
			"repo":    stringProp("Repository name or root-path prefix"),
			"session": stringProp("Session id (optional; a new one is minted if omitted)"),
		},
		required: []string{"name"},
	}, s.handleQuerySymbol)

	s.addTool(tool{
		name:        "get_file_symbols",
		description: "List every symbol declared in a file, in source order.",
		properties: map[string]*jsonschema.Schema{
			"file_path": stringProp("File path relative to the repository root"),
			"repo":      stringProp("Repository name or root-path prefix"),
			"session":   stringProp("Session id (optional; a new one is minted if omitted)"),
		},
		required: []string{"file_path"},
	}, s.handleGetFileSymbols)

	s.addTool(tool{
		name:        "get_skeleton",
		description: "Signatures-only view of a file's symbols, without bodies.",
		properties: map[string]*jsonschema.Schema{
			"file_path": stringProp("File path relative to the repository root"),
			"repo":      stringProp("Repository name or root-path prefix"),
			"detail":    stringProp("Unused reserved detail level"),
			"session":   stringProp("Session id (optional; a new one is minted if omitted)"),
		},
		required: []string{"file_path"},
	}, s.handleGetSkeleton)

	s.addTool(tool{
		name:        "batch_query",
		description: "Fetch several named symbols within a token budget, with dependency hints.",
		properties: map[string]*jsonschema.Schema{
			"symbol_names": stringArrayProp("Symbol names to fetch"),
			"max_tokens":   intProp("Token budget (default 4000)"),
			"include_body": boolProp("Include full bodies (default true)"),
			"session":      stringProp("Session id"),
		},
		required: []string{"symbol_names"},
	}, s.handleBatchQuery)

	s.addTool(tool{
		name:        "search_code",
		description: "Rank symbols against a full-text query, optionally scoped by kind/repo.",
		properties: map[string]*jsonschema.Schema{
			"query":       stringProp("Search text (FTS5 MATCH syntax)"),
			"kind":        stringProp("Restrict to a symbol kind"),
			"repo":        stringProp("Repository name or root-path prefix"),
			"max_results": intProp("Max results (default 20)"),
		},
		required: []string{"query"},
	}, s.handleSearchCode)
}

type querySymbolParams struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Repo    string `json:"repo"`
	Session string `json:"session"`
}

func (s *Server) handleQuerySymbol(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p querySymbolParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("query_symbol", fmt.Errorf("invalid parameters: %w", err))
	}
	if p.Name == "" {
		return errorResponse("query_symbol", fmt.Errorf("name is required"))
	}

	repoID, err := s.resolveRepoID(p.Repo)
	if err != nil {
		return errorResponse("query_symbol", err)
	}
	symbols, err := s.store.FindSymbolsByName(p.Name, repoID)
	if err != nil {
		return errorResponse("query_symbol", err)
	}
	if p.Kind != "" {
		symbols = filterByKind(symbols, p.Kind)
	}
	if len(symbols) == 0 {
		return errorResponse("query_symbol", fmt.Errorf("no symbol named %q found", p.Name))
	}

	sessionID, session := s.sessions.get(p.Session)
	type result struct {
		Symbol    model.Symbol   `json:"symbol"`
		FilePath  string         `json:"file_path"`
		Memories  []model.Memory `json:"memories"`
	}
	var out []result
	var ids []int64
	for _, sym := range symbols {
		filePath, _ := s.store.FilePathByID(sym.FileID)
		mems, err := s.store.MemoriesForSymbol(sym.ID)
		if err != nil {
			return errorResponse("query_symbol", err)
		}
		out = append(out, result{Symbol: sym, FilePath: filePath, Memories: mems})
		ids = append(ids, sym.ID)
		session.touch(filePath, sym.ID)
	}
	session.markSent(ids...)
	s.observe("query_symbol", sessionID, ids, fmt.Sprintf("looked up %q (%d match(es))", p.Name, len(ids)))

	return jsonResponse(map[string]interface{}{"session_id": sessionID, "results": out})
}

func filterByKind(symbols []model.Symbol, kind string) []model.Symbol {
	var out []model.Symbol
	for _, sym := range symbols {
		if string(sym.Kind) == kind {
			out = append(out, sym)
		}
	}
	return out
}

type fileSymbolsParams struct {
	FilePath string `json:"file_path"`
	Repo     string `json:"repo"`
	Session  string `json:"session"`
}

// resolveFile finds the file row for filePath, scoped to repo if given, or
// by scanning every repository's files table otherwise.
func (s *Server) resolveFile(filePath, repo string) (*model.File, error) {
	if repo != "" {
		r, err := s.store.GetRepository(repo)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, fmt.Errorf("no repository matches %q", repo)
		}
		return s.store.GetFile(r.ID, filePath)
	}
	repos, err := s.store.ListRepositories("")
	if err != nil {
		return nil, err
	}
	for _, r := range repos {
		f, err := s.store.GetFile(r.ID, filePath)
		if err != nil {
			return nil, err
		}
		if f != nil {
			return f, nil
		}
	}
	return nil, nil
}

func (s *Server) handleGetFileSymbols(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p fileSymbolsParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("get_file_symbols", fmt.Errorf("invalid parameters: %w", err))
	}
	f, err := s.resolveFile(p.FilePath, p.Repo)
	if err != nil {
		return errorResponse("get_file_symbols", err)
	}
	if f == nil {
		return errorResponse("get_file_symbols", fmt.Errorf("file %q not indexed", p.FilePath))
	}
	symbols, err := s.store.ListSymbolsByFile(f.ID)
	if err != nil {
		return errorResponse("get_file_symbols", err)
	}

	sessionID, session := s.sessions.get(p.Session)
	ids := make([]int64, 0, len(symbols))
	for _, sym := range symbols {
		ids = append(ids, sym.ID)
		session.touch(p.FilePath, sym.ID)
	}
	s.observe("get_file_symbols", sessionID, ids, fmt.Sprintf("listed %d symbol(s) in %s", len(ids), p.FilePath))

	return jsonResponse(map[string]interface{}{"session_id": sessionID, "file_path": p.FilePath, "symbols": symbols})
}

func (s *Server) handleGetSkeleton(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p fileSymbolsParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("get_skeleton", fmt.Errorf("invalid parameters: %w", err))
	}
	f, err := s.resolveFile(p.FilePath, p.Repo)
	if err != nil {
		return errorResponse("get_skeleton", err)
	}
	if f == nil {
		return errorResponse("get_skeleton", fmt.Errorf("file %q not indexed", p.FilePath))
	}
	symbols, err := s.store.ListSymbolsByFile(f.ID)
	if err != nil {
		return errorResponse("get_skeleton", err)
	}

	type skeletonItem struct {
		Name      string          `json:"name"`
		Kind      model.SymbolKind `json:"kind"`
		Signature string          `json:"signature"`
		StartLine int             `json:"start_line"`
		EndLine   int             `json:"end_line"`
	}
	items := make([]skeletonItem, 0, len(symbols))
	ids := make([]int64, 0, len(symbols))
	sessionID, session := s.sessions.get(p.Session)
	for _, sym := range symbols {
		items = append(items, skeletonItem{
			Name: sym.Name, Kind: sym.Kind, Signature: sym.Signature,
			StartLine: sym.StartLine, EndLine: sym.EndLine,
		})
		ids = append(ids, sym.ID)
		session.touch(p.FilePath, sym.ID)
	}
	s.observe("get_skeleton", sessionID, ids, fmt.Sprintf("skeletonized %d symbol(s) in %s", len(ids), p.FilePath))

	return jsonResponse(map[string]interface{}{"session_id": sessionID, "file_path": p.FilePath, "skeleton": items})
}

type batchQueryParams struct {
	SymbolNames []string `json:"symbol_names"`
	MaxTokens   int      `json:"max_tokens"`
	IncludeBody *bool    `json:"include_body"`
	Session     string   `json:"session"`
}

const defaultBatchTokens = 4000

func (s *Server) handleBatchQuery(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p batchQueryParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("batch_query", fmt.Errorf("invalid parameters: %w", err))
	}
	if len(p.SymbolNames) == 0 {
		return errorResponse("batch_query", fmt.Errorf("symbol_names is required"))
	}
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultBatchTokens
	}
	includeBody := true
	if p.IncludeBody != nil {
		includeBody = *p.IncludeBody
	}

	sessionID, session := s.sessions.get(p.Session)

	type batchItem struct {
		Name            string        `json:"name"`
		Symbol          *model.Symbol `json:"symbol,omitempty"`
		FilePath        string        `json:"file_path,omitempty"`
		DependencyHints []string      `json:"dependency_hints,omitempty"`
		Note            string        `json:"note,omitempty"`
	}

	var items []batchItem
	used := 0
	var touchedIDs []int64
	included := make(map[int64]bool)
	for _, name := range p.SymbolNames {
		matches, err := s.store.FindSymbolsByName(name, nil)
		if err != nil {
			return errorResponse("batch_query", err)
		}
		if len(matches) == 0 {
			items = append(items, batchItem{Name: name, Note: "not found"})
			continue
		}
		sym := matches[0]
		body := sym.Body
		if !includeBody {
			body = ""
		}
		cost := estimateBatchTokens(sym, body)
		if used+cost > maxTokens {
			items = append(items, batchItem{Name: name, Note: "skipped: token budget exhausted"})
			continue
		}
		used += cost
		included[sym.ID] = true
		out := sym
		out.Body = body
		filePath, _ := s.store.FilePathByID(sym.FileID)
		hints, err := s.dependencyHints(sym.ID, included)
		if err != nil {
			return errorResponse("batch_query", err)
		}
		items = append(items, batchItem{Name: name, Symbol: &out, FilePath: filePath, DependencyHints: hints})
		touchedIDs = append(touchedIDs, sym.ID)
		session.touch(filePath, sym.ID)
	}
	if includeBody {
		session.markSent(touchedIDs...)
	}
	s.observe("batch_query", sessionID, touchedIDs, fmt.Sprintf("batch-fetched %d symbol(s)", len(touchedIDs)))

	return jsonResponse(map[string]interface{}{
		"session_id":   sessionID,
		"items":        items,
		"tokens_used":  used,
		"tokens_budget": maxTokens,
	})
}

// estimateBatchTokens applies the same characters/4 estimator the context
// engine uses for its own budgeting (spec §4.E "Token estimation").
func estimateBatchTokens(sym model.Symbol, body string) int {
	n := len(sym.Name) + len(string(sym.Kind)) + len(sym.Signature) + len(body) + 20
	return (n + 3) / 4
}

// dependencyHints formats one line per calls/imports/type_ref edge leading
// out of symbolID, for every target not already present in included — the
// batch's own running result set. Edge kinds outside that set (implements,
// embeds) carry no hint.
func (s *Server) dependencyHints(symbolID int64, included map[int64]bool) ([]string, error) {
	hops, err := s.store.NeighborsForward(symbolID)
	if err != nil {
		return nil, err
	}
	sort.Slice(hops, func(i, j int) bool { return hops[i].Symbol.Name < hops[j].Symbol.Name })

	var hints []string
	for _, h := range hops {
		if included[h.Symbol.ID] {
			continue
		}
		switch h.Edge.Kind {
		case model.EdgeCalls:
			hints = append(hints, fmt.Sprintf("Calls `%s` (not in context)", h.Symbol.Name))
		case model.EdgeImports:
			hints = append(hints, fmt.Sprintf("Imports `%s` (not in context)", h.Symbol.Name))
		case model.EdgeTypeRef:
			hints = append(hints, fmt.Sprintf("References trait `%s` (not in context)", h.Symbol.Name))
		}
	}
	return hints, nil
}

type searchCodeParams struct {
	Query      string `json:"query"`
	Kind       string `json:"kind"`
	Repo       string `json:"repo"`
	MaxResults int    `json:"max_results"`
}

const defaultSearchResults = 20

func (s *Server) handleSearchCode(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p searchCodeParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("search_code", fmt.Errorf("invalid parameters: %w", err))
	}
	if p.Query == "" {
		return errorResponse("search_code", fmt.Errorf("query is required"))
	}
	limit := p.MaxResults
	if limit <= 0 {
		limit = defaultSearchResults
	}
	repoID, err := s.resolveRepoID(p.Repo)
	if err != nil {
		return errorResponse("search_code", err)
	}

	hits, err := s.store.SearchSymbolsFTS(p.Query, p.Kind, repoID, limit)
	if err != nil {
		return errorResponse("search_code", err)
	}
	if len(hits) == 0 {
		hits, err = s.store.SearchSymbolsSubstring(p.Query, repoID, limit)
		if err != nil {
			return errorResponse("search_code", err)
		}
	}
	return jsonResponse(map[string]interface{}{"query": p.Query, "hits": asSymbolHits(hits)})
}

func asSymbolHits(hits []store.SymbolHit) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(hits))
	for _, h := range hits {
		out = append(out, map[string]interface{}{
			"symbol": h.Symbol, "file_path": h.FilePath, "rank": h.Rank,
		})
	}
	return out
}
