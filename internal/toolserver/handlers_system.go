package toolserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/focal-dev/focal/internal/gitblame"
	"github.com/focal-dev/focal/internal/model"
)

const defaultHistoryEntries = 20

func (s *Server) registerSystemTools() {
	s.addTool(tool{
		name:        "get_repo_overview",
		description: "Summarize a repository's (or all repositories') indexed file counts per language.",
		properties: map[string]*jsonschema.Schema{
			"repo": stringProp("Repository name or root-path prefix"),
		},
	}, s.handleGetRepoOverview)

	s.addTool(tool{
		name:        "get_health",
		description: "Report store diagnostics: row counts, database size, FTS integrity.",
		properties:  map[string]*jsonschema.Schema{},
	}, s.handleGetHealth)

	s.addTool(tool{
		name:        "get_symbol_history",
		description: "Blame a resolved symbol's line range via git.",
		properties: map[string]*jsonschema.Schema{
			"symbol_name": stringProp("Symbol name to resolve"),
			"max_entries": intProp("Max distinct commits to return (default 20)"),
			"repo":        stringProp("Repository name or root-path prefix"),
			"session":     stringProp("Session id (optional; a new one is minted if omitted)"),
		},
		required: []string{"symbol_name"},
	}, s.handleGetSymbolHistory)

	s.addTool(tool{
		name:        "recover_session",
		description: "Recover or start a session: clears already_sent and returns recently touched files/symbols.",
		properties: map[string]*jsonschema.Schema{
			"session_id": stringProp("Session id to recover (omit to start a fresh one)"),
		},
	}, s.handleRecoverSession)
}

type repoOverviewParams struct {
	Repo string `json:"repo"`
}

func (s *Server) handleGetRepoOverview(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p repoOverviewParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("get_repo_overview", fmt.Errorf("invalid parameters: %w", err))
	}

	repos, err := s.store.ListRepositories(p.Repo)
	if err != nil {
		return errorResponse("get_repo_overview", err)
	}
	if len(repos) == 0 {
		return errorResponse("get_repo_overview", fmt.Errorf("no repository matches %q", p.Repo))
	}

	type repoOverview struct {
		Repository      model.Repository `json:"repository"`
		FilesByLanguage map[string]int   `json:"files_by_language"`
	}
	var out []repoOverview
	for _, r := range repos {
		counts, err := s.store.CountFilesByLanguage(r.ID)
		if err != nil {
			return errorResponse("get_repo_overview", err)
		}
		out = append(out, repoOverview{Repository: r, FilesByLanguage: counts})
	}
	return jsonResponse(map[string]interface{}{"repositories": out})
}

func (s *Server) handleGetHealth(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	health, err := s.store.CheckHealth(s.dbPath)
	if err != nil {
		return errorResponse("get_health", err)
	}
	return jsonResponse(health)
}

type symbolHistoryParams struct {
	SymbolName string `json:"symbol_name"`
	MaxEntries int    `json:"max_entries"`
	Repo       string `json:"repo"`
	Session    string `json:"session"`
}

func (s *Server) handleGetSymbolHistory(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p symbolHistoryParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("get_symbol_history", fmt.Errorf("invalid parameters: %w", err))
	}
	if p.SymbolName == "" {
		return errorResponse("get_symbol_history", fmt.Errorf("symbol_name is required"))
	}
	maxEntries := p.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultHistoryEntries
	}

	repoID, err := s.resolveRepoID(p.Repo)
	if err != nil {
		return errorResponse("get_symbol_history", err)
	}
	sym, err := s.resolveOneSymbol(p.SymbolName, repoID)
	if err != nil {
		return errorResponse("get_symbol_history", err)
	}
	file, err := s.store.GetFileByID(sym.FileID)
	if err != nil || file == nil {
		return errorResponse("get_symbol_history", fmt.Errorf("owning file not found for %q", p.SymbolName))
	}
	repo, err := s.store.GetRepositoryByID(file.RepoID)
	if err != nil || repo == nil {
		return errorResponse("get_symbol_history", fmt.Errorf("owning repository not found for %q", p.SymbolName))
	}

	entries, err := gitblame.Blame(ctx, repo.RootPath, file.Path, sym.StartLine, sym.EndLine, maxEntries)
	if err != nil {
		return errorResponse("get_symbol_history", err)
	}

	sessionID, session := s.sessions.get(p.Session)
	session.touch(file.Path, sym.ID)
	s.observe("get_symbol_history", sessionID, []int64{sym.ID}, fmt.Sprintf("blamed %q (%d commit(s))", p.SymbolName, len(entries)))

	return jsonResponse(map[string]interface{}{"session_id": sessionID, "symbol": sym, "file_path": file.Path, "history": entries})
}

type recoverSessionParams struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleRecoverSession(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p recoverSessionParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("recover_session", fmt.Errorf("invalid parameters: %w", err))
	}
	sessionID, _, files, symbolIDs := s.sessions.reset(p.SessionID)
	return jsonResponse(map[string]interface{}{
		"session_id":      sessionID,
		"touched_files":   files,
		"touched_symbols": symbolIDs,
	})
}
