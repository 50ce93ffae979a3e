package toolserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerContextTool() {
	s.addTool(tool{
		name:        "get_context",
		description: "Build a token-budgeted context capsule for a natural-language query (spec capsule construction).",
		properties: map[string]*jsonschema.Schema{
			"query":      stringProp("Natural-language query; its wording drives intent classification"),
			"max_tokens": intProp("Token budget (default 12000)"),
			"repo":       stringProp("Repository name or root-path prefix"),
			"session":    stringProp("Session id (required to track progressive disclosure across calls)"),
		},
		required: []string{"query"},
	}, s.handleGetContext)
}

type getContextParams struct {
	Query     string `json:"query"`
	MaxTokens int    `json:"max_tokens"`
	Repo      string `json:"repo"`
	Session   string `json:"session"`
}

const defaultContextTokens = 12000

func (s *Server) handleGetContext(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p getContextParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return errorResponse("get_context", fmt.Errorf("invalid parameters: %w", err))
	}
	if p.Query == "" {
		return errorResponse("get_context", fmt.Errorf("query is required"))
	}
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultContextTokens
	}

	repoID, err := s.resolveRepoID(p.Repo)
	if err != nil {
		return errorResponse("get_context", err)
	}

	sessionID, session := s.sessions.get(p.Session)
	alreadySent := session.sentSnapshot()

	capsule, newlySent, err := s.ctxEngine.BuildCapsule(p.Query, maxTokens, repoID, alreadySent)
	if err != nil {
		return errorResponse("get_context", err)
	}
	session.markSent(newlySent...)
	for _, item := range capsule.Items {
		session.touch(item.FilePath, item.SymbolID)
	}

	allIDs := make([]int64, 0, len(capsule.Items))
	for _, item := range capsule.Items {
		allIDs = append(allIDs, item.SymbolID)
	}
	s.observe("get_context", sessionID, allIDs, fmt.Sprintf("built a %s-intent capsule (%d items)", capsule.Intent, len(capsule.Items)))

	return jsonResponse(map[string]interface{}{"session_id": sessionID, "capsule": capsule})
}
