package telegram

import (
	"sync"
	"time"
)

// State is the conversation state of one user. It is one of Idle,
// AwaitingReview, RepliesTo or CreatingOrder.
type State interface {
	stateName() string
}

// Idle is the state of every user without a session.
type Idle struct{}

// AwaitingReview: the next text message is stored as a review.
type AwaitingReview struct{}

// RepliesTo: the next manager text is relayed to the client.
type RepliesTo struct {
	ClientID string
}

// CreatingOrder: the next manager text is parsed as "@client, item, price".
type CreatingOrder struct{}

func (Idle) stateName() string           { return "idle" }
func (AwaitingReview) stateName() string { return "awaiting_review" }
func (RepliesTo) stateName() string      { return "replies_to" }
func (CreatingOrder) stateName() string  { return "creating_order" }

const defaultSessionTTL = 30 * time.Minute

// Session holds the state of one user until ExpiresAt.
type Session struct {
	State     State
	ExpiresAt time.Time
}

// sessionStore keeps sessions in memory keyed by user ID; a restart drops them.
type sessionStore struct {
	mu   sync.Mutex
	data map[int64]*Session
	ttl  time.Duration
	now  func() time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &sessionStore{
		data: make(map[int64]*Session),
		ttl:  ttl,
		now:  time.Now,
	}
}

// get returns Idle for unknown or expired sessions.
func (s *sessionStore) get(userID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.data[userID]
	if !ok {
		return Idle{}
	}
	if s.now().After(sess.ExpiresAt) {
		delete(s.data, userID)
		return Idle{}
	}
	return sess.State
}

// set replaces the user's state and restarts its TTL. Setting Idle clears it.
func (s *sessionStore) set(userID int64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	if _, idle := st.(Idle); idle || st == nil {
		delete(s.data, userID)
		return
	}
	s.data[userID] = &Session{State: st, ExpiresAt: s.now().Add(s.ttl)}
}

func (s *sessionStore) clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
}

func (s *sessionStore) pruneLocked() {
	now := s.now()
	for id, sess := range s.data {
		if now.After(sess.ExpiresAt) {
			delete(s.data, id)
		}
	}
}
