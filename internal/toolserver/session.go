package toolserver

import (
	"sync"

	"github.com/google/uuid"
)

// touchedFilesCap and touchedSymbolsCap bound recover_session's recovery
// payload (spec §5 resource policy: "recovery file list capped at 20,
// symbol list at 30").
const (
	touchedFilesCap   = 20
	touchedSymbolsCap = 30
)

// sessionState is one session's progressive-disclosure set plus the
// recently touched files/symbols recover_session replays. Guarded by its
// own lock, separate from the store's lock (spec §7: "treat it as
// per-session state protected by its own lock").
type sessionState struct {
	mu              sync.Mutex
	alreadySent     map[int64]bool
	touchedFiles    []string
	touchedSymbolID []int64
}

func newSessionState() *sessionState {
	return &sessionState{alreadySent: make(map[int64]bool)}
}

func (s *sessionState) markSent(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.alreadySent[id] = true
	}
}

func (s *sessionState) sentSnapshot() map[int64]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]bool, len(s.alreadySent))
	for id := range s.alreadySent {
		out[id] = true
	}
	return out
}

// touch records that a tool call resolved filePath/symbolID, for
// recover_session to replay. New entries go to the front; a repeat touch
// leaves an entry where it is. Capped.
func (s *sessionState) touch(filePath string, symbolID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedFiles = prependCapped(s.touchedFiles, filePath, touchedFilesCap)
	s.touchedSymbolID = prependCappedInt64(s.touchedSymbolID, symbolID, touchedSymbolsCap)
}

func prependCapped(list []string, v string, cap int) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	list = append([]string{v}, list...)
	if len(list) > cap {
		list = list[:cap]
	}
	return list
}

func prependCappedInt64(list []int64, v int64, cap int) []int64 {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	list = append([]int64{v}, list...)
	if len(list) > cap {
		list = list[:cap]
	}
	return list
}

// sessionManager hands out and tracks sessionState by session id.
type sessionManager struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
}

func newSessionManager() *sessionManager {
	return &sessionManager{sessions: make(map[string]*sessionState)}
}

// get returns the session for id, creating it if id is new. An empty id
// mints a fresh session id (spec §4.G: "a monotonically unique string
// generated at session start").
func (m *sessionManager) get(id string) (string, *sessionState) {
	if id == "" {
		id = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.sessions[id]
	if !ok {
		st = newSessionState()
		m.sessions[id] = st
	}
	return id, st
}

// reset clears a session's already_sent set in place, implementing
// recover_session's "clears already_sent" contract, and returns copies of
// the touched history (which it keeps) for the SessionRecoveryData payload.
func (m *sessionManager) reset(id string) (string, *sessionState, []string, []int64) {
	id, st := m.get(id)
	st.mu.Lock()
	files := append([]string(nil), st.touchedFiles...)
	symbols := append([]int64(nil), st.touchedSymbolID...)
	st.alreadySent = make(map[int64]bool)
	st.mu.Unlock()
	return id, st, files, symbols
}
