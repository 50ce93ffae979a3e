package toolserver

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/focal-dev/focal/internal/model"
)

// jsonResponse marshals data as the tool's JSON result payload.
func jsonResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

// errorResponse reports an in-band tool error (IsError: true), never an
// MCP protocol-level error, so the calling model can see and self-correct.
func errorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	resp, marshalErr := jsonResponse(map[string]interface{}{
		"success":   false,
		"operation": operation,
		"error":     err.Error(),
	})
	if marshalErr != nil {
		return nil, marshalErr
	}
	resp.IsError = true
	return resp, nil
}

// observe synthesizes a compact auto-observation memory for a
// symbol-touching tool call (spec §4.G), linking it to symbolIDs. Failures
// are swallowed: a missed observation must never fail the tool call itself.
func (s *Server) observe(tool, sessionID string, symbolIDs []int64, detail string) {
	if len(symbolIDs) == 0 {
		return
	}
	content := fmt.Sprintf("%s: %s", tool, detail)
	if len(content) > 200 {
		content = content[:200]
	}
	_, _ = s.store.SaveMemory(content, model.CategoryAuto, "auto:"+tool, sessionID, symbolIDs)
}
