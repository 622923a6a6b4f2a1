package app

import (
	"context"
	"fmt"

	"anime-quiz-service/internal/domain"
)

// DecoyFetcher materializes the screenshots and wrong answers for a game.
type DecoyFetcher struct {
	catalog Catalog
	policy  RetryPolicy
}

func NewDecoyFetcher(catalog Catalog, policy RetryPolicy) *DecoyFetcher {
	return &DecoyFetcher{catalog: catalog, policy: policy.withDefaults()}
}

// FetchRoundData returns one image list per id, in itemIDs order and capped at
// MaxImagesPerItem, plus exactly DecoysPerRound decoys per id.
func (f *DecoyFetcher) FetchRoundData(ctx context.Context, itemIDs []string) (domain.RoundData, error) {
	if len(itemIDs) == 0 {
		return domain.RoundData{Images: []domain.ItemImages{}, Decoys: []domain.Item{}}, nil
	}

	shots, err := f.policy.fetchBatch(ctx, func(ctx context.Context) ([]domain.Item, error) {
		return f.catalog.FetchScreenshots(ctx, itemIDs)
	})
	if err != nil {
		return domain.RoundData{}, fmt.Errorf("fetch screenshots: %w", err)
	}
	byID := make(map[string][]domain.ImageRef, len(shots))
	for _, item := range shots {
		byID[item.ID] = item.Images
	}
	images := make([]domain.ItemImages, len(itemIDs))
	for i, id := range itemIDs {
		refs := byID[id]
		if len(refs) > domain.MaxImagesPerItem {
			refs = refs[:domain.MaxImagesPerItem]
		}
		images[i] = domain.ItemImages{ItemID: id, Images: append([]domain.ImageRef{}, refs...)}
	}

	want := len(images) * domain.DecoysPerRound
	decoys := make([]domain.Item, 0, want)
	exclude := make(map[string]struct{}, len(itemIDs)+want)
	for _, id := range itemIDs {
		exclude[id] = struct{}{}
	}
	for batch := 0; len(decoys) < want; batch++ {
		if batch == f.policy.MaxBatches {
			return domain.RoundData{}, fmt.Errorf("%w: found %d of %d decoys in %d batches",
				domain.ErrInsufficientData, len(decoys), want, batch)
		}

		excludeIDs := append(append([]string{}, itemIDs...), idsOf(decoys)...)
		candidates, err := f.policy.fetchBatch(ctx, func(ctx context.Context) ([]domain.Item, error) {
			return f.catalog.FetchRandomBatch(ctx, excludeIDs, false)
		})
		if err != nil {
			return domain.RoundData{}, fmt.Errorf("fetch decoys: %w", err)
		}
		for _, item := range candidates {
			if len(decoys) == want {
				break
			}
			if isBlank(item.Name) {
				continue
			}
			if _, taken := exclude[item.ID]; taken {
				continue
			}
			exclude[item.ID] = struct{}{}
			decoys = append(decoys, domain.Item{ID: item.ID, Name: item.Name})
		}
	}
	return domain.RoundData{Images: images, Decoys: decoys}, nil
}
