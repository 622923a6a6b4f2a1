package app

import (
	"context"
	"fmt"
	"strings"

	"anime-quiz-service/internal/domain"
)

// Catalog is the external source of titles and screenshots.
type Catalog interface {
	FetchRandomBatch(ctx context.Context, excludeIDs []string, withScreenshots bool) ([]domain.Item, error)
	FetchScreenshots(ctx context.Context, ids []string) ([]domain.Item, error)
}

// Selector picks the items a new game is played with.
type Selector struct {
	catalog Catalog
	policy  RetryPolicy
}

func NewSelector(catalog Catalog, policy RetryPolicy) *Selector {
	return &Selector{catalog: catalog, policy: policy.withDefaults()}
}

// SelectItems accumulates targetCount distinct items that have at least one
// screenshot and a display name, in the order the catalog returned them.
func (s *Selector) SelectItems(ctx context.Context, targetCount int) ([]domain.Item, error) {
	if targetCount < domain.MinAmount || targetCount > domain.MaxAmount {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", domain.ErrInvalidAmount, targetCount, domain.MinAmount, domain.MaxAmount)
	}

	selected := make([]domain.Item, 0, targetCount)
	seen := make(map[string]struct{}, targetCount)
	for batch := 0; len(selected) < targetCount; batch++ {
		if batch == s.policy.MaxBatches {
			return nil, fmt.Errorf("%w: selected %d of %d items in %d batches",
				domain.ErrInsufficientData, len(selected), targetCount, batch)
		}

		exclude := idsOf(selected)
		candidates, err := s.policy.fetchBatch(ctx, func(ctx context.Context) ([]domain.Item, error) {
			return s.catalog.FetchRandomBatch(ctx, exclude, true)
		})
		if err != nil {
			return nil, fmt.Errorf("select items: %w", err)
		}

		for _, item := range candidates {
			if len(selected) == targetCount {
				break
			}
			if len(item.Images) == 0 || isBlank(item.Name) {
				continue
			}
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			selected = append(selected, item)
		}
	}
	return selected, nil
}

func idsOf(items []domain.Item) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
