package memory

import (
	"context"
	"sync"
	"time"

	"anime-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// SessionStore is an in-memory implementation of app.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	clock    func() time.Time
	sessions map[string]domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		clock:    time.Now,
		sessions: make(map[string]domain.Session),
	}
}

func (s *SessionStore) Create(_ context.Context, session domain.Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	session.ID = uuid.NewString()
	session.Items = append([]domain.Item{}, session.Items...)
	session.Answers = []domain.Answer{}
	session.IsFinished = false
	session.CreatedAt = now
	session.UpdatedAt = now
	s.sessions[session.ID] = session
	return session.ID, nil
}

func (s *SessionStore) Get(_ context.Context, sessionID string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return clone(session), nil
}

func (s *SessionStore) UpdateAnswers(_ context.Context, sessionID string, expectedLen int, answers []domain.Answer, isFinished bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if len(session.Answers) != expectedLen {
		return domain.ErrAnswerConflict
	}
	session.Answers = append([]domain.Answer{}, answers...)
	session.IsFinished = isFinished
	session.UpdatedAt = s.clock()
	s.sessions[sessionID] = session
	return nil
}

func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *SessionStore) DeleteStale(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, session := range s.sessions {
		if !session.IsFinished && session.UpdatedAt.Before(before) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func clone(session domain.Session) domain.Session {
	session.Items = append([]domain.Item{}, session.Items...)
	session.Answers = append([]domain.Answer{}, session.Answers...)
	return session
}
