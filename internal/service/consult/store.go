package consult

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prisme-studio/prisme/backend/internal/model/consult"
)

var ErrSessionNotFound = errors.New("session not found")

// UnknownClient is the sentinel used when the caller's identity cannot be
// determined; ownership checks are permissive on either side being unknown.
const UnknownClient = "unknown"

// Store keeps consult sessions in memory, keyed by opaque token. Expired
// sessions are evicted lazily on lookup; there is no background sweep.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*consult.Session

	maxTurns int
	ttl      time.Duration
	now      func() time.Time
}

// NewStore bootstraps the in-memory session store.
func NewStore(maxTurns int, ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*consult.Session),
		maxTurns: maxTurns,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create allocates a fresh ACTIVE session bound to the invite code and client
// address, registered under a new unguessable token.
func (s *Store) Create(inviteCode, clientIP string) *consult.Session {
	now := s.now()
	session := &consult.Session{
		Token:          uuid.NewString(),
		InviteCode:     inviteCode,
		ClientIP:       clientIP,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.ttl),
		RemainingTurns: s.maxTurns,
		State:          consult.StateActive,
		Answers:        consult.StructuredAnswers{},
		Messages:       []consult.Message{},
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	return session
}

// Get returns the session for token if present and not expired. An expired
// session is evicted here; this is the sole expiry-enforcement point.
func (s *Store) Get(token string) (*consult.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, false
	}

	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, token)
		return nil, false
	}

	return session, true
}

// EnsureOwnership soft-binds a session to the client address it was created
// from. Not cryptographic: either side reporting UnknownClient passes.
func (s *Store) EnsureOwnership(session *consult.Session, clientIP string) bool {
	if session.ClientIP == UnknownClient || clientIP == UnknownClient {
		return true
	}
	return session.ClientIP == clientIP
}

// ConsumeTurn decrements the remaining-turn counter, floored at zero, and
// returns the new remaining count. Call at most once per accepted user turn.
func (s *Store) ConsumeTurn(session *consult.Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.RemainingTurns > 0 {
		session.RemainingTurns--
	}
	return session.RemainingTurns
}

// MergeAnswers applies sticky-field merge semantics and returns the merged value.
func (s *Store) MergeAnswers(session *consult.Session, updates consult.StructuredAnswers) consult.StructuredAnswers {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.Answers = consult.MergeAnswers(session.Answers, updates)
	return session.Answers
}

// UpdateState overwrites the lifecycle state. Transitions are driven by the
// turn resolver; no transition table is enforced here.
func (s *Store) UpdateState(session *consult.Session, state consult.State) {
	s.mu.Lock()
	session.State = state
	s.mu.Unlock()
}

// AppendMessage records a transcript entry, stamping it with the store clock.
func (s *Store) AppendMessage(session *consult.Session, role, content string) {
	s.mu.Lock()
	session.Messages = append(session.Messages, consult.Message{
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC(),
	})
	s.mu.Unlock()
}
