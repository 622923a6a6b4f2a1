package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"anime-quiz-service/internal/app"
	"anime-quiz-service/internal/auth"
	"anime-quiz-service/internal/domain"
	"anime-quiz-service/internal/infra/memory"
	"anime-quiz-service/internal/metrics"
)

const (
	testJWTSecret  = "jwt-secret"
	testCronSecret = "cron-secret"
)

// stubCatalog hands out an endless supply of distinct titles.
type stubCatalog struct {
	mu   sync.Mutex
	next int
}

func (c *stubCatalog) FetchRandomBatch(_ context.Context, _ []string, withScreenshots bool) ([]domain.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := make([]domain.Item, 0, 10)
	for i := 0; i < 10; i++ {
		c.next++
		id := fmt.Sprintf("anime-%d", c.next)
		item := domain.Item{ID: id, Name: "Title " + id}
		if withScreenshots {
			item.Images = []domain.ImageRef{{ID: id + "-s", URL: "https://img/" + id + ".jpg"}}
		}
		batch = append(batch, item)
	}
	return batch, nil
}

func (c *stubCatalog) FetchScreenshots(_ context.Context, ids []string) ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, domain.Item{ID: id, Images: []domain.ImageRef{{ID: id + "-s", URL: "https://img/" + id + ".jpg"}}})
	}
	return items, nil
}

type testServer struct {
	*httptest.Server
	auth    *auth.Authenticator
	service *app.GameService
	store   *agingStore
}

// agingStore makes sessions look older to the sweeper than they are.
type agingStore struct {
	*memory.SessionStore

	mu  sync.Mutex
	age time.Duration
}

func (s *agingStore) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	age := s.age
	s.mu.Unlock()
	return s.SessionStore.DeleteStale(ctx, before.Add(age))
}

func (ts *testServer) advance(d time.Duration) {
	ts.store.mu.Lock()
	defer ts.store.mu.Unlock()
	ts.store.age += d
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{store: &agingStore{SessionStore: memory.NewSessionStore()}}
	catalog := &stubCatalog{}
	policy := app.RetryPolicy{MaxBatches: 10, MaxRetries: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	rounds := memory.NewRoundRepository(app.NewDecoyFetcher(catalog, policy), time.Minute)
	m := metrics.New()
	ts.service = app.NewGameService(ts.store, rounds, app.NewSelector(catalog, policy), nil, m)
	sweeper := app.NewSweeper(ts.store, 10*time.Minute, nil, m)
	ts.auth = auth.NewAuthenticator(testJWTSecret)

	ts.Server = httptest.NewServer(NewRouter(RouterDeps{
		API:     NewAPIHandler(ts.service, sweeper, testCronSecret, nil),
		WS:      NewWSHandler(ts.service, nil),
		Auth:    ts.auth,
		Metrics: m.Handler(),
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) token(t *testing.T, id, name string) string {
	t.Helper()
	tok, err := ts.auth.Issue(id, name)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

// noRedirect keeps 303 responses observable.
var noRedirect = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}
