package grpc

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/simaogato/wealthflow-valuation/internal/usecase/graph"
	"github.com/simaogato/wealthflow-valuation/internal/usecase/valuation"
)

const defaultSession = "default"

// Session holds the caches of one display session
type Session struct {
	Engine     *valuation.Engine
	Normalizer *graph.Normalizer
}

// SessionStore keeps one Session per session id. A new or reset session
// starts with empty caches.
type SessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*Session
	newEngine func() *valuation.Engine
}

// NewSessionStore creates a store building engines with newEngine
func NewSessionStore(newEngine func() *valuation.Engine) *SessionStore {
	return &SessionStore{
		sessions:  make(map[string]*Session),
		newEngine: newEngine,
	}
}

// Get returns the session with that id, creating it when needed
func (s *SessionStore) Get(id string) *Session {
	if id == "" {
		id = defaultSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		session = s.newSession()
		s.sessions[id] = session
		log.Debug().Str("Session", id).Msg("session created")
	}
	return session
}

// Reset replaces the session with one holding empty caches. Requests still
// running on the old session finish against its engine.
func (s *SessionStore) Reset(id string) {
	if id == "" {
		id = defaultSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		s.sessions[id] = s.newSession()
	}
	log.Debug().Str("Session", id).Msg("session reset")
}

func (s *SessionStore) newSession() *Session {
	engine := s.newEngine()
	return &Session{Engine: engine, Normalizer: graph.NewNormalizer(engine)}
}
