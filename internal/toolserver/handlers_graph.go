package toolserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/focal-dev/focal/internal/model"
	"github.com/focal-dev/focal/internal/store"
)

func (s *Server) registerGraphTools() {
	s.addTool(tool{
		name:        "get_dependencies",
		description: "List symbols a symbol depends on (forward edges), breadth-first to a given depth (1-3).",
		properties: map[string]*jsonschema.Schema{
			"symbol_name": stringProp("Symbol name to resolve"),
			"depth":       intProp("BFS depth, 1-3 (default 1)"),
			"repo":        stringProp("Repository name or root-path prefix"),
			"session":     stringProp("Session id (optional; a new one is minted if omitted)"),
		},
		required: []string{"symbol_name"},
	}, s.handleGetDependencies)

	s.addTool(tool{
		name:        "get_dependents",
		description: "List symbols that depend on a symbol (reverse edges), breadth-first to a given depth (1-3).",
		properties: map[string]*jsonschema.Schema{
			"symbol_name": stringProp("Symbol name to resolve"),
			"depth":       intProp("BFS depth, 1-3 (default 1)"),
			"repo":        stringProp("Repository name or root-path prefix"),
			"session":     stringProp("Session id (optional; a new one is minted if omitted)"),
		},
		required: []string{"symbol_name"},
	}, s.handleGetDependents)

	s.addTool(tool{
		name:        "get_impact_graph",
		description: "Blast-radius BFS over reverse edges from a root symbol, up to depth 5.",
		properties: map[string]*jsonschema.Schema{
			"symbol_name": stringProp("Root symbol to resolve"),
			"depth":       intProp("Depth, 1-5 (default 2)"),
			"repo":        stringProp("Repository name or root-path prefix"),
			"session":     stringProp("Session id (optional; a new one is minted if omitted)"),
		},
		required: []string{"symbol_name"},
	}, s.handleGetImpactGraph)

	s.addTool(tool{
		name:        "search_logic_flow",
		description: "Enumerate forward-edge paths from one symbol to another, up to max_paths.",
		properties: map[string]*jsonschema.Schema{
			"from_symbol": stringProp("Start symbol name"),
			"to_symbol":   stringProp("Target symbol name"),
			"max_paths":   intProp("Max completed paths to return (default 3)"),
			"repo":        stringProp("Repository name or root-path prefix"),
			"session":     stringProp("Session id (optional; a new one is minted if omitted)"),
		},
		required: []string{"from_symbol", "to_symbol"},
	}, s.handleSearchLogicFlow)
}

// resolveOneSymbol resolves name to a single symbol, preferring the
// kind-priority "primary" declaration when the name is ambiguous (the
// first such match wins a tie).
func (s *Server) resolveOneSymbol(name string, repoID *int64) (*model.Symbol, error) {
	matches, err := s.store.FindSymbolsByName(name, repoID)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no symbol named %q found", name)
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if model.ResolutionPriority(m.Kind) < model.ResolutionPriority(best.Kind) {
			best = m
		}
	}
	return &best, nil
}

type depthRepoParams struct {
	SymbolName string `json:"symbol_name"`
	Depth      int    `json:"depth"`
	Repo       string `json:"repo"`
	Session    string `json:"session"`
}

func (s *Server) handleGetDependencies(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleDepthQuery(req, "get_dependencies", true)
}

func (s *Server) handleGetDependents(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.handleDepthQuery(req, "get_dependents", false)
}

func (s *Server) handleDepthQuery(req *mcp.CallToolRequest, op string, forward bool) (*mcp.CallToolResult, error) {
	var p depthRepoParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse(op, fmt.Errorf("invalid parameters: %w", err))
	}
	if p.SymbolName == "" {
		return errorResponse(op, fmt.Errorf("symbol_name is required"))
	}
	repoID, err := s.resolveRepoID(p.Repo)
	if err != nil {
		return errorResponse(op, err)
	}
	root, err := s.resolveOneSymbol(p.SymbolName, repoID)
	if err != nil {
		return errorResponse(op, err)
	}

	var hops []store.EdgeHop
	var err2 error
	if forward {
		hops, err2 = s.traverser.Dependencies(root.ID, p.Depth)
	} else {
		hops, err2 = s.traverser.Dependents(root.ID, p.Depth)
	}
	if err2 != nil {
		return errorResponse(op, err2)
	}

	sessionID, session := s.sessions.get(p.Session)
	ids := []int64{root.ID}
	rootFilePath, _ := s.store.FilePathByID(root.FileID)
	session.touch(rootFilePath, root.ID)
	for _, h := range hops {
		ids = append(ids, h.Symbol.ID)
		filePath, _ := s.store.FilePathByID(h.Symbol.FileID)
		session.touch(filePath, h.Symbol.ID)
	}
	s.observe(op, sessionID, ids, fmt.Sprintf("%s(%s) returned %d edge(s)", op, p.SymbolName, len(hops)))

	return jsonResponse(map[string]interface{}{"session_id": sessionID, "root": root, "edges": hops})
}

type impactParams struct {
	SymbolName string `json:"symbol_name"`
	Depth      int    `json:"depth"`
	Repo       string `json:"repo"`
	Session    string `json:"session"`
}

func (s *Server) handleGetImpactGraph(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p impactParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("get_impact_graph", fmt.Errorf("invalid parameters: %w", err))
	}
	if p.SymbolName == "" {
		return errorResponse("get_impact_graph", fmt.Errorf("symbol_name is required"))
	}
	repoID, err := s.resolveRepoID(p.Repo)
	if err != nil {
		return errorResponse("get_impact_graph", err)
	}
	root, err := s.resolveOneSymbol(p.SymbolName, repoID)
	if err != nil {
		return errorResponse("get_impact_graph", err)
	}
	nodes, err := s.traverser.Impact(root.ID, p.Depth)
	if err != nil {
		return errorResponse("get_impact_graph", err)
	}

	sessionID, session := s.sessions.get(p.Session)
	ids := []int64{root.ID}
	rootFilePath, _ := s.store.FilePathByID(root.FileID)
	session.touch(rootFilePath, root.ID)
	for _, n := range nodes {
		ids = append(ids, n.Symbol.ID)
		session.touch(n.FilePath, n.Symbol.ID)
	}
	s.observe("get_impact_graph", sessionID, ids, fmt.Sprintf("impact(%s) touched %d symbol(s)", p.SymbolName, len(nodes)))

	return jsonResponse(map[string]interface{}{"session_id": sessionID, "root": root, "impact": nodes})
}

type logicFlowParams struct {
	FromSymbol string `json:"from_symbol"`
	ToSymbol   string `json:"to_symbol"`
	MaxPaths   int    `json:"max_paths"`
	Repo       string `json:"repo"`
	Session    string `json:"session"`
}

func (s *Server) handleSearchLogicFlow(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p logicFlowParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("search_logic_flow", fmt.Errorf("invalid parameters: %w", err))
	}
	if p.FromSymbol == "" || p.ToSymbol == "" {
		return errorResponse("search_logic_flow", fmt.Errorf("from_symbol and to_symbol are required"))
	}
	repoID, err := s.resolveRepoID(p.Repo)
	if err != nil {
		return errorResponse("search_logic_flow", err)
	}
	from, err := s.resolveOneSymbol(p.FromSymbol, repoID)
	if err != nil {
		return errorResponse("search_logic_flow", err)
	}
	to, err := s.resolveOneSymbol(p.ToSymbol, repoID)
	if err != nil {
		return errorResponse("search_logic_flow", err)
	}
	paths, err := s.traverser.LogicFlow(from.ID, to.ID, from.Name, to.Name, p.MaxPaths)
	if err != nil {
		return errorResponse("search_logic_flow", err)
	}

	sessionID, session := s.sessions.get(p.Session)
	fromFilePath, _ := s.store.FilePathByID(from.FileID)
	toFilePath, _ := s.store.FilePathByID(to.FileID)
	session.touch(fromFilePath, from.ID)
	session.touch(toFilePath, to.ID)
	ids := []int64{from.ID, to.ID}
	for _, path := range paths {
		ids = append(ids, path.SymbolIDs...)
	}
	s.observe("search_logic_flow", sessionID, ids, fmt.Sprintf("logic flow %s -> %s: %d path(s)", p.FromSymbol, p.ToSymbol, len(paths)))

	return jsonResponse(map[string]interface{}{"session_id": sessionID, "from": from, "to": to, "paths": paths})
}
