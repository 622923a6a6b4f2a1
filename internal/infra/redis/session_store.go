package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"anime-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "game:session:"
	// unfinishedKey is a sorted set of unfinished session ids scored by
	// updatedAt in unix milliseconds; the sweeper ranges over it.
	unfinishedKey = "game:sessions:unfinished"
)

// deleteStaleScript removes every unfinished session scored below ARGV[1] in
// one atomic step. The session keys it deletes are derived from ARGV[2] and
// are not declared in KEYS, so the store needs a single-node (or
// single-shard) Redis; it is not Redis Cluster safe.
var deleteStaleScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
for _, id in ipairs(ids) do
  redis.call('DEL', ARGV[2] .. id)
  redis.call('ZREM', KEYS[1], id)
end
return #ids
`)

// SessionStore keeps each session as a JSON document in Redis.
type SessionStore struct {
	client *redis.Client
	clock  func() time.Time
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client, clock: time.Now}
}

func (s *SessionStore) Create(ctx context.Context, session domain.Session) (string, error) {
	now := s.clock().UTC()
	session.ID = uuid.NewString()
	session.Answers = []domain.Answer{}
	session.IsFinished = false
	session.CreatedAt = now
	session.UpdatedAt = now

	raw, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(session.ID), raw, 0)
		pipe.ZAdd(ctx, unfinishedKey, redis.Z{Score: score(now), Member: session.ID})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return session.ID, nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.get(ctx, s.client, sessionID)
}

func (s *SessionStore) UpdateAnswers(ctx context.Context, sessionID string, expectedLen int, answers []domain.Answer, isFinished bool) error {
	key := s.key(sessionID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		session, err := s.get(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if len(session.Answers) != expectedLen {
			return domain.ErrAnswerConflict
		}
		session.Answers = append([]domain.Answer{}, answers...)
		session.IsFinished = isFinished
		session.UpdatedAt = s.clock().UTC()
		raw, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, 0)
			if isFinished {
				pipe.ZRem(ctx, unfinishedKey, sessionID)
			} else {
				pipe.ZAdd(ctx, unfinishedKey, redis.Z{Score: score(session.UpdatedAt), Member: sessionID})
			}
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrAnswerConflict
	}
	return err
}

func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.key(sessionID))
		pipe.ZRem(ctx, unfinishedKey, sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if del.Val() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	n, err := deleteStaleScript.Run(ctx, s.client, []string{unfinishedKey},
		strconv.FormatInt(before.UnixMilli(), 10), sessionKeyPrefix).Int64()
	if err != nil {
		return 0, fmt.Errorf("delete stale sessions: %w", err)
	}
	return n, nil
}

func (s *SessionStore) get(ctx context.Context, c getter, sessionID string) (domain.Session, error) {
	raw, err := c.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *SessionStore) key(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
