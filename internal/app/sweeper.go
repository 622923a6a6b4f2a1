package app

import (
	"context"
	"fmt"
	"time"

	"anime-quiz-service/internal/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultStaleAfter is how long an unfinished session may sit idle.
const DefaultStaleAfter = 10 * time.Minute

// StaleSessionDeleter is the bulk delete the sweeper relies on.
type StaleSessionDeleter interface {
	DeleteStale(ctx context.Context, before time.Time) (int64, error)
}

// Sweeper deletes unfinished sessions that have not been updated for a while.
type Sweeper struct {
	store     StaleSessionDeleter
	threshold time.Duration
	now       func() time.Time
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewSweeper(store StaleSessionDeleter, threshold time.Duration, logger *zap.Logger, m *metrics.Metrics) *Sweeper {
	if threshold <= 0 {
		threshold = DefaultStaleAfter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{store: store, threshold: threshold, now: time.Now, logger: logger, metrics: m}
}

// Sweep runs one bulk delete and reports how many sessions were removed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.threshold)
	n, err := s.store.DeleteStale(ctx, cutoff)
	if err != nil {
		s.logger.Error("sweep failed", zap.Error(err))
		return 0, fmt.Errorf("sweep stale sessions: %w", err)
	}
	s.metrics.ObserveSwept(n)
	if n > 0 {
		s.logger.Info("swept stale sessions", zap.Int64("deleted", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}

// Schedule registers Sweep on a cron spec such as "@every 1m". The caller
// starts and stops the returned scheduler.
func (s *Sweeper) Schedule(spec string, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, _ = s.Sweep(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule sweeper %q: %w", spec, err)
	}
	return c, nil
}
