package app_test

import (
	"context"
	"errors"
	"testing"

	"anime-quiz-service/internal/app"
	"anime-quiz-service/internal/domain"
)

func TestFetchRoundDataShapes(t *testing.T) {
	for _, n := range []int{1, 5, 12} {
		catalog := &fakeCatalog{}
		ids := make([]string, n)
		for i := range ids {
			ids[i] = "item-" + string(rune('a'+i))
		}

		data, err := app.NewDecoyFetcher(catalog, fastPolicy()).FetchRoundData(context.Background(), ids)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(data.Decoys) != 3*n {
			t.Fatalf("n=%d: expected %d decoys, got %d", n, 3*n, len(data.Decoys))
		}
		if len(data.Images) != n {
			t.Fatalf("n=%d: expected %d image lists, got %d", n, n, len(data.Images))
		}
		for i, entry := range data.Images {
			if entry.ItemID != ids[i] {
				t.Fatalf("n=%d: image list %d is for %s, want %s", n, i, entry.ItemID, ids[i])
			}
			if len(entry.Images) > domain.MaxImagesPerItem {
				t.Fatalf("n=%d: %d images for %s", n, len(entry.Images), entry.ItemID)
			}
		}
		if catalog.shotCalls != 1 {
			t.Fatalf("n=%d: expected screenshots fetched once, got %d", n, catalog.shotCalls)
		}
	}
}

func TestFetchRoundDataFiltersDecoys(t *testing.T) {
	catalog := &fakeCatalog{batches: [][]domain.Item{
		{{ID: "x", Name: "Chosen"}, {ID: "d1", Name: "One"}, {ID: "d2", Name: ""}, {ID: "d3", Name: "Three"}},
		{{ID: "d1", Name: "One again"}, {ID: "d4", Name: "Four"}, {ID: "d5", Name: "Five"}},
	}}

	data, err := app.NewDecoyFetcher(catalog, fastPolicy()).FetchRoundData(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	want := []string{"d1", "d3", "d4"}
	for i, id := range want {
		if data.Decoys[i].ID != id {
			t.Fatalf("decoy %d: expected %s, got %s", i, id, data.Decoys[i].ID)
		}
	}
	if got := catalog.excludes[0]; len(got) != 1 || got[0] != "x" {
		t.Fatalf("expected chosen ids excluded, got %v", got)
	}
	if got := catalog.excludes[1]; len(got) != 3 {
		t.Fatalf("expected taken decoys excluded on the next batch, got %v", got)
	}
}

func TestFetchRoundDataStopsAfterMaxBatches(t *testing.T) {
	catalog := &fakeCatalog{batches: [][]domain.Item{{}, {}, {}, {}, {}}}

	_, err := app.NewDecoyFetcher(catalog, fastPolicy()).FetchRoundData(context.Background(), []string{"x"})
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Fatalf("expected insufficient data, got %v", err)
	}
}

func TestScoreCountsHits(t *testing.T) {
	a := domain.Item{ID: "a"}
	b := domain.Item{ID: "b"}
	c := domain.Item{ID: "c"}
	answers := []domain.Answer{
		{Picked: a, Correct: nil},
		{Picked: b, Correct: &c},
	}
	if got := app.Score(2, answers); got != 1 {
		t.Fatalf("expected score 1, got %d", got)
	}
	if got := app.Score(5, answers[:1]); got != 1 {
		t.Fatalf("expected partial game score 1, got %d", got)
	}
	if got := app.Score(0, answers); got != 0 {
		t.Fatalf("expected 0 for empty game, got %d", got)
	}
}
