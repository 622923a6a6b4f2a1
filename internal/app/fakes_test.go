package app_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"anime-quiz-service/internal/app"
	"anime-quiz-service/internal/domain"
	"anime-quiz-service/internal/infra/memory"
)

// fakeCatalog serves scripted batches; once the script runs out it generates
// fresh usable titles.
type fakeCatalog struct {
	mu          sync.Mutex
	batches     [][]domain.Item
	errs        []error
	randomCalls int
	shotCalls   int
	excludes    [][]string
	screenshots map[string][]domain.ImageRef
	next        int
}

func (c *fakeCatalog) FetchRandomBatch(_ context.Context, excludeIDs []string, withScreenshots bool) ([]domain.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.randomCalls++
	c.excludes = append(c.excludes, append([]string{}, excludeIDs...))
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(c.batches) > 0 {
		batch := c.batches[0]
		c.batches = c.batches[1:]
		return batch, nil
	}
	batch := make([]domain.Item, 0, 10)
	for i := 0; i < 10; i++ {
		c.next++
		batch = append(batch, generated(c.next, withScreenshots))
	}
	return batch, nil
}

func (c *fakeCatalog) FetchScreenshots(_ context.Context, ids []string) ([]domain.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shotCalls++
	items := make([]domain.Item, 0, len(ids))
	// Reverse order to prove callers re-order by id.
	for i := len(ids) - 1; i >= 0; i-- {
		id := ids[i]
		images, ok := c.screenshots[id]
		if !ok {
			images = shots(id, 8)
		}
		items = append(items, domain.Item{ID: id, Images: images})
	}
	return items, nil
}

func generated(n int, withScreenshots bool) domain.Item {
	id := fmt.Sprintf("gen-%d", n)
	item := domain.Item{ID: id, Name: "Title " + id}
	if withScreenshots {
		item.Images = shots(id, 2)
	}
	return item
}

func shots(id string, n int) []domain.ImageRef {
	refs := make([]domain.ImageRef, n)
	for i := range refs {
		refs[i] = domain.ImageRef{ID: fmt.Sprintf("%s-shot-%d", id, i), URL: fmt.Sprintf("https://img/%s/%d.jpg", id, i)}
	}
	return refs
}

type transientErr struct{}

func (transientErr) Error() string   { return "upstream unavailable" }
func (transientErr) Temporary() bool { return true }

func fastPolicy() app.RetryPolicy {
	return app.RetryPolicy{
		MaxBatches:      5,
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

type testEnv struct {
	catalog *fakeCatalog
	store   *memory.SessionStore
	rounds  *memory.RoundRepository
	service *app.GameService
}

func newTestEnv() *testEnv {
	catalog := &fakeCatalog{}
	store := memory.NewSessionStore()
	rounds := memory.NewRoundRepository(app.NewDecoyFetcher(catalog, fastPolicy()), time.Minute)
	service := app.NewGameService(store, rounds, app.NewSelector(catalog, fastPolicy()), nil, nil)
	return &testEnv{catalog: catalog, store: store, rounds: rounds, service: service}
}

// lostAckStore persists the next write but reports it as failed.
type lostAckStore struct {
	*memory.SessionStore
	dropAck bool
}

func (s *lostAckStore) UpdateAnswers(ctx context.Context, sessionID string, expectedLen int, answers []domain.Answer, isFinished bool) error {
	if err := s.SessionStore.UpdateAnswers(ctx, sessionID, expectedLen, answers, isFinished); err != nil {
		return err
	}
	if s.dropAck {
		s.dropAck = false
		return fmt.Errorf("timeout waiting for ack")
	}
	return nil
}

// failingStore fails UpdateAnswers while fail is set.
type failingStore struct {
	*memory.SessionStore
	fail bool
}

func (s *failingStore) UpdateAnswers(ctx context.Context, sessionID string, expectedLen int, answers []domain.Answer, isFinished bool) error {
	if s.fail {
		return fmt.Errorf("store unavailable")
	}
	return s.SessionStore.UpdateAnswers(ctx, sessionID, expectedLen, answers, isFinished)
}
