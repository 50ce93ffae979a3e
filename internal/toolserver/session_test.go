package toolserver

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_GetMintsIDWhenEmpty(t *testing.T) {
	m := newSessionManager()

	id, st := m.get("")
	assert.NotEmpty(t, id)
	require.NotNil(t, st)

	id2, st2 := m.get(id)
	assert.Equal(t, id, id2)
	assert.Same(t, st, st2, "the same session id returns the same state")
}

func TestSessionState_MarkSentAndSnapshotAreIndependent(t *testing.T) {
	st := newSessionState()
	st.markSent(1, 2, 3)

	snap := st.sentSnapshot()
	assert.True(t, snap[1])
	assert.True(t, snap[2])
	assert.True(t, snap[3])

	snap[4] = true
	assert.False(t, st.sentSnapshot()[4], "snapshot mutation must not leak back into session state")
}

func TestSessionState_TouchCapsAndDedupes(t *testing.T) {
	st := newSessionState()
	total := touchedSymbolsCap + 5
	for i := 0; i < total; i++ {
		st.touch("file.go", int64(i))
	}
	assert.Len(t, st.touchedFiles, 1, "the same file path is never duplicated")
	assert.Len(t, st.touchedSymbolID, touchedSymbolsCap, "symbol history is capped")
	assert.Equal(t, int64(total-1), st.touchedSymbolID[0], "most recent symbol is first")
}

func TestSessionManager_ResetClearsAlreadySentButReturnsHistory(t *testing.T) {
	m := newSessionManager()
	id, st := m.get("")
	st.markSent(10)
	st.touch("a.go", 10)

	gotID, gotState, files, symbols := m.reset(id)
	assert.Equal(t, id, gotID)
	assert.Same(t, st, gotState)
	assert.Equal(t, []string{"a.go"}, files)
	assert.Equal(t, []int64{10}, symbols)
	assert.Empty(t, st.sentSnapshot(), "reset clears already_sent")
}

func TestJSONResponse_MarshalsPayload(t *testing.T) {
	result, err := jsonResponse(map[string]interface{}{"ok": true})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	assert.Equal(t, true, decoded["ok"])
	assert.False(t, result.IsError)
}

func TestErrorResponse_SetsIsErrorAndIncludesMessage(t *testing.T) {
	result, err := errorResponse("get_symbol", errors.New("not found"))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	text := result.Content[0].(*mcp.TextContent)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &decoded))
	assert.Equal(t, "get_symbol", decoded["operation"])
	assert.Equal(t, "not found", decoded["error"])
	assert.Equal(t, false, decoded["success"])
}
