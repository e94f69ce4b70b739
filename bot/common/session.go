package common

import (
	"sync"
	"time"
)

// SessionKind names the conversation step a user is in
type SessionKind string

const (
	SessionDepositAmount  SessionKind = "deposit_amount"
	SessionDepositReceipt SessionKind = "deposit_receipt"
	SessionSupportMessage SessionKind = "support_message"
	SessionSupportReply   SessionKind = "support_reply"
	SessionBetPhoto       SessionKind = "bet_photo"
)

// Session stores the pending conversation step of a user
type Session struct {
	Kind SessionKind
	// Amount is the requested credit amount of a deposit
	Amount int64
	// Target is the user a support reply is addressed to
	Target    int64
	Timestamp time.Time
}

// SessionStore keeps at most one session per user
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	now      func() time.Time
}

// NewSessionStore creates an empty session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]Session),
		now:      time.Now,
	}
}

// Start replaces any session of the user
func (s *SessionStore) Start(userID int64, session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.Timestamp = s.now()
	s.sessions[userID] = session
}

// Get retrieves the session of a user
func (s *SessionStore) Get(userID int64) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

// End removes the session of a user and reports whether one existed
func (s *SessionStore) End(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	delete(s.sessions, userID)
	return ok
}

// Sweep removes sessions older than maxAge and returns how many were removed
func (s *SessionStore) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for userID, session := range s.sessions {
		if now.Sub(session.Timestamp) > maxAge {
			delete(s.sessions, userID)
			removed++
		}
	}
	return removed
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
