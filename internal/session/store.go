package session

import (
	"sort"
	"sync"
)

// Store keeps the latest session per workspace in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]Session)}
}

// start records a new session, discarding the previous one for its workspace.
func (st *Store) start(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.Workspace] = *s
}

// update saves progress unless a newer session replaced s.
func (st *Store) update(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if cur, ok := st.sessions[s.Workspace]; ok && cur.ID != s.ID {
		return
	}
	st.sessions[s.Workspace] = *s
}

// Get returns a copy of the latest session for workspace.
func (st *Store) Get(workspace string) (Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[workspace]
	return s, ok
}

// Workspaces returns the workspaces with a session, sorted.
func (st *Store) Workspaces() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	names := make([]string, 0, len(st.sessions))
	for name := range st.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
