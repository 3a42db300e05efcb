package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/KaramelBytes/reportloom-cli/internal/backend"
)

// Store keeps sessions by id.
type Store struct {
	svc  backend.Service
	opts []Option

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore builds sessions against svc with opts.
func NewStore(svc backend.Service, opts ...Option) *Store {
	return &Store{svc: svc, opts: opts, sessions: map[string]*Session{}}
}

// Create starts a session with a fresh id.
func (st *Store) Create(datasetID string) *Session {
	return st.Open(uuid.NewString(), datasetID)
}

// Open returns the session with id, creating it when missing. An existing
// session is switched to datasetID when one is given.
func (st *Store) Open(id, datasetID string) *Session {
	st.mu.Lock()
	s, ok := st.sessions[id]
	if !ok {
		s = New(id, datasetID, st.svc, st.opts...)
		st.sessions[id] = s
	}
	st.mu.Unlock()
	if ok {
		s.SwitchDataset(datasetID)
	}
	return s
}

// Get returns the session with id.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete clears and forgets a session. It reports whether it existed.
func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		s.Clear()
	}
	return ok
}

// Len is the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
