package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"anime-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// RoundDataLoader fetches round data from the catalog.
type RoundDataLoader interface {
	FetchRoundData(ctx context.Context, itemIDs []string) (domain.RoundData, error)
}

// RoundRepository caches round data in Redis as JSON (one key per session)
// and falls back to the loader on a miss:
//
//	SET game:{sessionID}:rounds {json} EX ttl
type RoundRepository struct {
	client *redis.Client
	loader RoundDataLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewRoundRepository(client *redis.Client, loader RoundDataLoader, ttl time.Duration) *RoundRepository {
	return &RoundRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *RoundRepository) GetRoundData(ctx context.Context, sessionID string, itemIDs []string) (domain.RoundData, error) {
	key := r.key(sessionID)
	if data, ok := r.cached(ctx, key); ok {
		return data, nil
	}

	result, err, _ := r.sf.Do(sessionID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if data, ok := r.cached(ctx, key); ok {
			return data, nil
		}

		data, err := r.loader.FetchRoundData(ctx, itemIDs)
		if err != nil {
			return domain.RoundData{}, err
		}

		if raw, err := json.Marshal(data); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return data, nil
	})
	if err != nil {
		return domain.RoundData{}, err
	}
	return result.(domain.RoundData), nil
}

// Forget drops a session's cached data.
func (r *RoundRepository) Forget(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}

func (r *RoundRepository) cached(ctx context.Context, key string) (domain.RoundData, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.RoundData{}, false
	}
	var data domain.RoundData
	if err := json.Unmarshal(raw, &data); err != nil {
		return domain.RoundData{}, false
	}
	return data, true
}

func (r *RoundRepository) key(sessionID string) string {
	return "game:" + sessionID + ":rounds"
}

func (r *RoundRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
