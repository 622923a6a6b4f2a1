package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"anime-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// RoundDataLoader fetches round data from the catalog.
type RoundDataLoader interface {
	FetchRoundData(ctx context.Context, itemIDs []string) (domain.RoundData, error)
}

// RoundRepository caches round data per session with TTL so a reloaded game
// keeps its screenshots and decoys.
type RoundRepository struct {
	loader RoundDataLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedRoundData
}

type cachedRoundData struct {
	data      domain.RoundData
	expiresAt time.Time
}

func NewRoundRepository(loader RoundDataLoader, ttl time.Duration) *RoundRepository {
	return &RoundRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedRoundData),
	}
}

func (r *RoundRepository) GetRoundData(ctx context.Context, sessionID string, itemIDs []string) (domain.RoundData, error) {
	if data, ok := r.lookup(sessionID); ok {
		return data, nil
	}

	result, err, _ := r.sf.Do(sessionID, func() (interface{}, error) {
		if data, ok := r.lookup(sessionID); ok {
			return data, nil
		}

		data, err := r.loader.FetchRoundData(ctx, itemIDs)
		if err != nil {
			return domain.RoundData{}, err
		}

		now := r.clock()
		r.mu.Lock()
		r.evictExpiredLocked(now)
		r.cache[sessionID] = cachedRoundData{
			data:      data,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return data, nil
	})
	if err != nil {
		return domain.RoundData{}, err
	}
	return result.(domain.RoundData), nil
}

// Forget drops a session's cached data.
func (r *RoundRepository) Forget(_ context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.cache, sessionID)
	r.mu.Unlock()
	return nil
}

// Len reports how many sessions are cached, expired entries included.
func (r *RoundRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *RoundRepository) evictExpiredLocked(now time.Time) {
	for id, entry := range r.cache {
		if !entry.expiresAt.After(now) {
			delete(r.cache, id)
		}
	}
}

func (r *RoundRepository) lookup(sessionID string) (domain.RoundData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[sessionID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.RoundData{}, false
	}
	return entry.data, true
}

func (r *RoundRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
