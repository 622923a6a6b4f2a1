package app

import (
	"context"
	"fmt"
	"time"

	"anime-quiz-service/internal/domain"
	"anime-quiz-service/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionStore abstracts how game sessions are persisted (in-memory, Redis, Postgres).
type SessionStore interface {
	// Create persists a new session with no answers and returns its generated id.
	Create(ctx context.Context, session domain.Session) (string, error)
	Get(ctx context.Context, sessionID string) (domain.Session, error)
	// UpdateAnswers replaces the stored answers and finished flag wholesale.
	// It fails with domain.ErrAnswerConflict unless expectedLen answers are stored.
	UpdateAnswers(ctx context.Context, sessionID string, expectedLen int, answers []domain.Answer, isFinished bool) error
	Delete(ctx context.Context, sessionID string) error
	// DeleteStale removes unfinished sessions last updated before the cutoff.
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

// RoundDataRepository loads round data for a session (from cache/catalog).
type RoundDataRepository interface {
	GetRoundData(ctx context.Context, sessionID string, itemIDs []string) (domain.RoundData, error)
	// Forget drops whatever is cached for a deleted session.
	Forget(ctx context.Context, sessionID string) error
}

// ItemSelector picks the items for a new game.
type ItemSelector interface {
	SelectItems(ctx context.Context, targetCount int) ([]domain.Item, error)
}

// GameService contains the game use cases. Reads are public; every write
// requires the caller to own the session.
type GameService struct {
	sessions SessionStore
	rounds   RoundDataRepository
	selector ItemSelector
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewGameService(store SessionStore, rounds RoundDataRepository, selector ItemSelector, logger *zap.Logger, m *metrics.Metrics) *GameService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameService{sessions: store, rounds: rounds, selector: selector, logger: logger, metrics: m}
}

// ValidateSessionID rejects ids that could not have been issued by a store.
func ValidateSessionID(sessionID string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSessionID, sessionID)
	}
	return nil
}

// CreateGame selects amount items and persists a fresh session for the owner.
func (s *GameService) CreateGame(ctx context.Context, ownerID, ownerName string, amount int) (string, error) {
	if ownerID == "" {
		return "", domain.ErrUnauthorized
	}
	items, err := s.selector.SelectItems(ctx, amount)
	if err != nil {
		return "", err
	}
	id, err := s.sessions.Create(ctx, domain.Session{
		OwnerID:   ownerID,
		OwnerName: ownerName,
		Items:     items,
	})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	s.metrics.ObserveGameCreated()
	s.logger.Info("game created", zap.String("session", id), zap.String("owner", ownerID), zap.Int("amount", amount))
	return id, nil
}

// GetGame is readable by anyone holding the id so results can be shared.
func (s *GameService) GetGame(ctx context.Context, sessionID string) (domain.Session, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return domain.Session{}, err
	}
	return s.sessions.Get(ctx, sessionID)
}

// GetRoundData returns the screenshots and decoys of a session.
func (s *GameService) GetRoundData(ctx context.Context, sessionID string) (domain.RoundData, error) {
	session, err := s.GetGame(ctx, sessionID)
	if err != nil {
		return domain.RoundData{}, err
	}
	return s.rounds.GetRoundData(ctx, session.ID, session.ItemIDs())
}

// SubmitAnswers stores the caller's full answer array. The array must extend
// the recorded one by exactly one round; resending the recorded array is a
// no-op so a lost acknowledgement can be retried safely.
func (s *GameService) SubmitAnswers(ctx context.Context, ownerID, sessionID string, answers []domain.Answer, isFinished bool) error {
	session, err := s.ownedSession(ctx, ownerID, sessionID)
	if err != nil {
		return err
	}

	recorded := len(session.Answers)
	if len(answers) == recorded && sameAnswers(session.Answers, answers) {
		if isFinished == session.IsFinished {
			return nil
		}
		// Finishing is an explicit confirmation once every round is answered.
		if isFinished && !session.IsFinished && recorded == session.Amount() {
			return s.sessions.UpdateAnswers(ctx, session.ID, recorded, answers, true)
		}
	}
	if session.IsFinished {
		return domain.ErrSessionFinished
	}
	if len(answers) != recorded+1 || len(answers) > session.Amount() {
		return fmt.Errorf("%w: got %d answers, %d recorded", domain.ErrInvalidAnswers, len(answers), recorded)
	}
	if !sameAnswers(session.Answers, answers[:recorded]) {
		return fmt.Errorf("%w: recorded answers were altered", domain.ErrInvalidAnswers)
	}
	latest := answers[recorded]
	if err := checkAnswer(latest, session.Items[recorded]); err != nil {
		return err
	}
	if isFinished && len(answers) != session.Amount() {
		return fmt.Errorf("%w: cannot finish after %d of %d rounds", domain.ErrInvalidAnswers, len(answers), session.Amount())
	}

	if err := s.sessions.UpdateAnswers(ctx, session.ID, recorded, answers, isFinished); err != nil {
		return err
	}
	s.metrics.ObserveAnswer(latest.WasCorrect())
	if isFinished {
		s.logger.Info("game finished", zap.String("session", session.ID),
			zap.Int("score", Score(session.Amount(), answers)), zap.Int("total", session.Amount()))
	}
	return nil
}

// DeleteGame removes the session regardless of its progress.
func (s *GameService) DeleteGame(ctx context.Context, ownerID, sessionID string) error {
	session, err := s.ownedSession(ctx, ownerID, sessionID)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return err
	}
	if err := s.rounds.Forget(ctx, session.ID); err != nil {
		s.logger.Warn("drop round data", zap.String("session", session.ID), zap.Error(err))
	}
	s.logger.Info("game deleted", zap.String("session", session.ID), zap.Int("answered", len(session.Answers)))
	return nil
}

// Results builds the share card of a finished game.
func (s *GameService) Results(ctx context.Context, sessionID string) (domain.ShareCard, error) {
	session, err := s.GetGame(ctx, sessionID)
	if err != nil {
		return domain.ShareCard{}, err
	}
	if !session.IsFinished {
		return domain.ShareCard{}, domain.ErrSessionNotFinished
	}
	return domain.ShareCard{
		SessionID: session.ID,
		OwnerName: session.OwnerName,
		Correct:   Score(session.Amount(), session.Answers),
		Total:     session.Amount(),
	}, nil
}

func (s *GameService) ownedSession(ctx context.Context, ownerID, sessionID string) (domain.Session, error) {
	if ownerID == "" {
		return domain.Session{}, domain.ErrUnauthorized
	}
	session, err := s.GetGame(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	if session.OwnerID != ownerID {
		return domain.Session{}, domain.ErrForbidden
	}
	return session, nil
}

// checkAnswer verifies the answer was given for expected and that its
// correct field follows the hit/miss convention.
func checkAnswer(a domain.Answer, expected domain.Item) error {
	if a.Picked.ID == "" {
		return fmt.Errorf("%w: answer has no picked item", domain.ErrInvalidAnswers)
	}
	if a.Expected().ID != expected.ID {
		return fmt.Errorf("%w: answer is not for item %s", domain.ErrInvalidAnswers, expected.ID)
	}
	if a.Correct != nil && a.Correct.ID == a.Picked.ID {
		return fmt.Errorf("%w: a correct pick must not carry a correct item", domain.ErrInvalidAnswers)
	}
	return nil
}

func sameAnswers(a, b []domain.Answer) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Picked.ID != b[i].Picked.ID || a[i].Expected().ID != b[i].Expected().ID || a[i].WasCorrect() != b[i].WasCorrect() {
			return false
		}
	}
	return true
}
