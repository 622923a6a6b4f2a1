package app

import (
	"context"
	"errors"
	"time"

	"anime-quiz-service/internal/domain"
	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds the catalog polling loops. MaxBatches caps how many
// batches one accumulation may consume; MaxRetries caps retries of a single
// failed batch fetch.
type RetryPolicy struct {
	MaxBatches      int
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxBatches:      20,
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	d := DefaultRetryPolicy()
	if p.MaxBatches <= 0 {
		p.MaxBatches = d.MaxBatches
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = d.MaxInterval
	}
	return p
}

// temporary is implemented by transport errors that know whether a retry can help.
type temporary interface {
	Temporary() bool
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, domain.ErrUpstreamInvalid) {
		return false
	}
	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return true
}

// fetchBatch runs op, retrying transient failures with exponential backoff.
func (p RetryPolicy) fetchBatch(ctx context.Context, op func(context.Context) ([]domain.Item, error)) ([]domain.Item, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval

	var items []domain.Item
	err := backoff.Retry(func() error {
		var err error
		items, err = op(ctx)
		if err != nil && !retryable(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxRetries)), ctx))
	if err != nil {
		return nil, err
	}
	return items, nil
}
