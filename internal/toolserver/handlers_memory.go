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

func (s *Server) registerMemoryTools() {
	s.addTool(tool{
		name:        "search_memory",
		description: "Rank memories against a full-text query.",
		properties: map[string]*jsonschema.Schema{
			"query":       stringProp("Search text (FTS5 MATCH syntax)"),
			"max_results": intProp("Max results (default 20)"),
		},
		required: []string{"query"},
	}, s.handleSearchMemory)

	s.addTool(tool{
		name:        "save_memory",
		description: "Save a note, optionally linked to named symbols.",
		properties: map[string]*jsonschema.Schema{
			"content":      stringProp("Memory content"),
			"category":     stringProp("decision, pattern, bug_fix, architecture, convention, or auto"),
			"symbol_names": stringArrayProp("Symbol names to link"),
			"session":      stringProp("Session id"),
		},
		required: []string{"content", "category"},
	}, s.handleSaveMemory)

	s.addTool(tool{
		name:        "list_memories",
		description: "List memories, optionally filtered by category, staleness, or linked symbol.",
		properties: map[string]*jsonschema.Schema{
			"category":      stringProp("Restrict to a category"),
			"include_stale": boolProp("Include memories marked stale (default false)"),
			"symbol_name":   stringProp("Restrict to memories linked to this symbol name"),
		},
	}, s.handleListMemories)

	s.addTool(tool{
		name:        "update_memory",
		description: "Update a memory's content, category, and/or symbol links.",
		properties: map[string]*jsonschema.Schema{
			"memory_id":    intProp("Memory id"),
			"content":      stringProp("New content (omit to leave unchanged)"),
			"category":     stringProp("New category (omit to leave unchanged)"),
			"symbol_names": stringArrayProp("Replace the symbol links (omit to leave unchanged)"),
		},
		required: []string{"memory_id"},
	}, s.handleUpdateMemory)

	s.addTool(tool{
		name:        "delete_memory",
		description: "Delete a memory.",
		properties: map[string]*jsonschema.Schema{
			"memory_id": intProp("Memory id"),
		},
		required: []string{"memory_id"},
	}, s.handleDeleteMemory)
}

type searchMemoryParams struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

func (s *Server) handleSearchMemory(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p searchMemoryParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("search_memory", fmt.Errorf("invalid parameters: %w", err))
	}
	if p.Query == "" {
		return errorResponse("search_memory", fmt.Errorf("query is required"))
	}
	limit := p.MaxResults
	if limit <= 0 {
		limit = defaultSearchResults
	}
	mems, err := s.store.SearchMemoriesFTS(p.Query, limit)
	if err != nil {
		return errorResponse("search_memory", err)
	}
	return jsonResponse(map[string]interface{}{"query": p.Query, "memories": mems})
}

type saveMemoryParams struct {
	Content     string   `json:"content"`
	Category    string   `json:"category"`
	SymbolNames []string `json:"symbol_names"`
	Session     string   `json:"session"`
}

func (s *Server) handleSaveMemory(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p saveMemoryParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("save_memory", fmt.Errorf("invalid parameters: %w", err))
	}
	if p.Content == "" || p.Category == "" {
		return errorResponse("save_memory", fmt.Errorf("content and category are required"))
	}

	sessionID, _ := s.sessions.get(p.Session)
	ids, err := s.resolveSymbolNames(p.SymbolNames)
	if err != nil {
		return errorResponse("save_memory", err)
	}

	id, err := s.store.SaveMemory(p.Content, model.MemoryCategory(p.Category), "manual", sessionID, ids)
	if err != nil {
		return errorResponse("save_memory", err)
	}
	return jsonResponse(map[string]interface{}{"session_id": sessionID, "memory_id": id})
}

// resolveSymbolNames resolves each name to its first match's id, skipping
// names with no match rather than failing the whole call.
func (s *Server) resolveSymbolNames(names []string) ([]int64, error) {
	var ids []int64
	for _, name := range names {
		matches, err := s.store.FindSymbolsByName(name, nil)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			ids = append(ids, matches[0].ID)
		}
	}
	return ids, nil
}

type listMemoriesParams struct {
	Category     string `json:"category"`
	IncludeStale bool   `json:"include_stale"`
	SymbolName   string `json:"symbol_name"`
}

func (s *Server) handleListMemories(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p listMemoriesParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("list_memories", fmt.Errorf("invalid parameters: %w", err))
	}
	mems, err := s.store.ListMemories(store.MemoryFilter{
		Category: p.Category, IncludeStale: p.IncludeStale, SymbolName: p.SymbolName,
	})
	if err != nil {
		return errorResponse("list_memories", err)
	}
	return jsonResponse(map[string]interface{}{"memories": mems})
}

type updateMemoryParams struct {
	MemoryID    int64    `json:"memory_id"`
	Content     string   `json:"content"`
	Category    string   `json:"category"`
	SymbolNames []string `json:"symbol_names"`
}

func (s *Server) handleUpdateMemory(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(req.Params.Arguments, &raw); err != nil {
		return errorResponse("update_memory", fmt.Errorf("invalid parameters: %w", err))
	}
	var p updateMemoryParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("update_memory", fmt.Errorf("invalid parameters: %w", err))
	}
	if p.MemoryID == 0 {
		return errorResponse("update_memory", fmt.Errorf("memory_id is required"))
	}
	_, hasSymbols := raw["symbol_names"]

	if err := s.store.UpdateMemory(p.MemoryID, p.Content, p.Category); err != nil {
		return errorResponse("update_memory", err)
	}
	if hasSymbols {
		ids, err := s.resolveSymbolNames(p.SymbolNames)
		if err != nil {
			return errorResponse("update_memory", err)
		}
		if err := s.store.UnlinkAllForMemory(p.MemoryID); err != nil {
			return errorResponse("update_memory", err)
		}
		if err := s.store.LinkMemorySymbols(p.MemoryID, ids); err != nil {
			return errorResponse("update_memory", err)
		}
	}
	return jsonResponse(map[string]interface{}{"ok": true, "memory_id": p.MemoryID})
}

type deleteMemoryParams struct {
	MemoryID int64 `json:"memory_id"`
}

func (s *Server) handleDeleteMemory(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p deleteMemoryParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("delete_memory", fmt.Errorf("invalid parameters: %w", err))
	}
	if p.MemoryID == 0 {
		return errorResponse("delete_memory", fmt.Errorf("memory_id is required"))
	}
	if err := s.store.DeleteMemory(p.MemoryID); err != nil {
		return errorResponse("delete_memory", err)
	}
	return jsonResponse(map[string]interface{}{"ok": true, "memory_id": p.MemoryID})
}
