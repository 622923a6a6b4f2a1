package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"anime-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SessionStore persists sessions in the game_sessions table. Items and
// answers are JSONB; answer_count backs the optimistic length check.
type SessionStore struct {
	pool  *pgxpool.Pool
	clock func() time.Time
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool, clock: time.Now}
}

func (s *SessionStore) Create(ctx context.Context, session domain.Session) (string, error) {
	items, err := json.Marshal(session.Items)
	if err != nil {
		return "", fmt.Errorf("encode items: %w", err)
	}
	id := uuid.NewString()
	now := s.clock().UTC()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO game_sessions (id, owner_id, owner_name, items, answers, answer_count, is_finished, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, '[]'::jsonb, 0, FALSE, $5, $5)`,
		id, session.OwnerID, session.OwnerName, string(items), now)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	var (
		session    domain.Session
		rawItems   []byte
		rawAnswers []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, owner_name, items, answers, is_finished, created_at, updated_at
		 FROM game_sessions WHERE id=$1`, sessionID,
	).Scan(&session.ID, &session.OwnerID, &session.OwnerName, &rawItems, &rawAnswers,
		&session.IsFinished, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	if err := json.Unmarshal(rawItems, &session.Items); err != nil {
		return domain.Session{}, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal(rawAnswers, &session.Answers); err != nil {
		return domain.Session{}, fmt.Errorf("decode answers: %w", err)
	}
	if session.Answers == nil {
		session.Answers = []domain.Answer{}
	}
	return session, nil
}

func (s *SessionStore) UpdateAnswers(ctx context.Context, sessionID string, expectedLen int, answers []domain.Answer, isFinished bool) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE game_sessions
		 SET answers=$3, answer_count=$4, is_finished=$5, updated_at=$6
		 WHERE id=$1 AND answer_count=$2`,
		sessionID, expectedLen, string(raw), len(answers), isFinished, s.clock().UTC())
	if err != nil {
		return fmt.Errorf("update answers: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM game_sessions WHERE id=$1)`, sessionID).Scan(&exists); err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !exists {
		return domain.ErrSessionNotFound
	}
	return domain.ErrAnswerConflict
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM game_sessions WHERE id=$1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM game_sessions WHERE is_finished = FALSE AND updated_at < $1`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete stale sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
