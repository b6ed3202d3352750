package server

import (
	"sync"
	"time"

	"github.com/applounge/lounge/pkg/fused"
	"github.com/google/uuid"
)

// session holds exactly one of search or browse.
type session struct {
	search   *fused.SearchSession
	browse   *fused.BrowseSession
	lastUsed time.Time
}

// sessionStore keeps paging sessions until they sit idle longer than ttl.
// Expired sessions are swept on every access.
type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*session
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{ttl: ttl, now: time.Now, sessions: make(map[string]*session)}
}

func (st *sessionStore) put(sess *session) string {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweep()
	id := uuid.NewString()
	sess.lastUsed = st.now()
	st.sessions[id] = sess
	return id
}

func (st *sessionStore) get(id string) (*session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweep()
	sess, ok := st.sessions[id]
	if ok {
		sess.lastUsed = st.now()
	}
	return sess, ok
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweep()
	return len(st.sessions)
}

func (st *sessionStore) sweep() {
	cutoff := st.now().Add(-st.ttl)
	for id, sess := range st.sessions {
		if sess.lastUsed.Before(cutoff) {
			delete(st.sessions, id)
		}
	}
}
