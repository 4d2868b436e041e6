package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds the one workbook a browser session is working on.
type Session struct {
	ID         uuid.UUID
	FileName   string
	Data       []byte
	UploadedAt time.Time
	LastSeen   time.Time
}

// SessionStore keeps sessions in memory. Nothing is shared between sessions
// and nothing outlives the process.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore returns a store whose sessions expire after ttl without use.
// A non-positive ttl disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Put replaces whatever workbook the session held.
func (s *SessionStore) Put(id uuid.UUID, fileName string, data []byte) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	sess := &Session{ID: id, FileName: fileName, Data: data, UploadedAt: now, LastSeen: now}
	s.sessions[id] = sess
	return *sess
}

// Get returns the session and marks it as used.
func (s *SessionStore) Get(id uuid.UUID) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	sess.LastSeen = s.now()
	return *sess, true
}

// Delete discards the session.
func (s *SessionStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the ttl and returns how many went.
func (s *SessionStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	n := 0
	for id, sess := range s.sessions {
		if sess.LastSeen.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
