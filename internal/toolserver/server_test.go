package toolserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverMiddleware_ConvertsPanicToErrorResponse(t *testing.T) {
	wrapped := recoverMiddleware("crashy_tool", func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		panic("boom")
	})

	result, err := wrapped(context.Background(), &mcp.CallToolRequest{})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.IsError)

	text := result.Content[0].(*mcp.TextContent)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	assert.Equal(t, "crashy_tool", decoded["operation"])
	assert.Equal(t, false, decoded["success"])
}

func TestRecoverMiddleware_PassesThroughNormalResult(t *testing.T) {
	wrapped := recoverMiddleware("ok_tool", func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResponse(map[string]interface{}{"ok": true})
	})

	result, err := wrapped(context.Background(), &mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.False(t, result.IsError)
}
