package app_test

import (
	"context"
	"errors"
	"testing"

	"anime-quiz-service/internal/app"
	"anime-quiz-service/internal/domain"
)

func TestSelectItemsReturnsExactUsableItems(t *testing.T) {
	for _, target := range []int{domain.MinAmount, 17, domain.MaxAmount} {
		catalog := &fakeCatalog{}
		selector := app.NewSelector(catalog, app.RetryPolicy{MaxBatches: 10})

		items, err := selector.SelectItems(context.Background(), target)
		if err != nil {
			t.Fatalf("select %d: %v", target, err)
		}
		if len(items) != target {
			t.Fatalf("expected %d items, got %d", target, len(items))
		}
		seen := map[string]bool{}
		for _, item := range items {
			if len(item.Images) == 0 || item.Name == "" {
				t.Fatalf("unusable item selected: %+v", item)
			}
			if seen[item.ID] {
				t.Fatalf("duplicate item %s", item.ID)
			}
			seen[item.ID] = true
		}
	}
}

func TestSelectItemsFiltersAndKeepsOrder(t *testing.T) {
	withShot := func(id, name string) domain.Item {
		return domain.Item{ID: id, Name: name, Images: []domain.ImageRef{{ID: id + "s", URL: "u"}}}
	}
	catalog := &fakeCatalog{batches: [][]domain.Item{
		{withShot("1", "One"), {ID: "2", Name: "No shots"}, withShot("3", "  "), withShot("4", "Four")},
		{withShot("4", "Four again"), withShot("5", "Five"), withShot("6", "Six"), withShot("7", "Seven"), withShot("8", "Eight"), withShot("9", "Nine")},
	}}
	selector := app.NewSelector(catalog, fastPolicy())

	items, err := selector.SelectItems(context.Background(), 5)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	want := []string{"1", "4", "5", "6", "7"}
	for i, id := range want {
		if items[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, items[i].ID)
		}
	}
	if catalog.randomCalls != 2 {
		t.Fatalf("expected 2 batches, got %d", catalog.randomCalls)
	}
	if got := catalog.excludes[1]; len(got) != 2 || got[0] != "1" || got[1] != "4" {
		t.Fatalf("expected second batch to exclude selected ids, got %v", got)
	}
}

func TestSelectItemsRejectsAmountBeforeFetching(t *testing.T) {
	for _, amount := range []int{0, 4, 51, 727} {
		catalog := &fakeCatalog{}
		_, err := app.NewSelector(catalog, fastPolicy()).SelectItems(context.Background(), amount)
		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Fatalf("amount %d: expected range error, got %v", amount, err)
		}
		if catalog.randomCalls != 0 {
			t.Fatalf("amount %d: expected no fetch, got %d", amount, catalog.randomCalls)
		}
	}
}

func TestSelectItemsStopsAfterMaxBatches(t *testing.T) {
	empty := [][]domain.Item{{}, {}, {}, {}, {}, {}}
	catalog := &fakeCatalog{batches: empty}

	_, err := app.NewSelector(catalog, fastPolicy()).SelectItems(context.Background(), 5)
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Fatalf("expected insufficient data, got %v", err)
	}
	if catalog.randomCalls != fastPolicy().MaxBatches {
		t.Fatalf("expected %d batches, got %d", fastPolicy().MaxBatches, catalog.randomCalls)
	}
}

func TestSelectItemsRetriesTransientFailures(t *testing.T) {
	catalog := &fakeCatalog{errs: []error{transientErr{}, transientErr{}}}

	items, err := app.NewSelector(catalog, fastPolicy()).SelectItems(context.Background(), 5)
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if len(items) != 5 || catalog.randomCalls != 3 {
		t.Fatalf("expected 5 items after 3 calls, got %d items after %d calls", len(items), catalog.randomCalls)
	}
}

func TestSelectItemsGivesUpAfterMaxRetries(t *testing.T) {
	catalog := &fakeCatalog{errs: []error{transientErr{}, transientErr{}, transientErr{}, transientErr{}}}

	_, err := app.NewSelector(catalog, fastPolicy()).SelectItems(context.Background(), 5)
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if catalog.randomCalls != fastPolicy().MaxRetries+1 {
		t.Fatalf("expected %d attempts, got %d", fastPolicy().MaxRetries+1, catalog.randomCalls)
	}
}

func TestSelectItemsAbortsOnInvalidUpstream(t *testing.T) {
	catalog := &fakeCatalog{errs: []error{domain.ErrUpstreamInvalid}}

	_, err := app.NewSelector(catalog, fastPolicy()).SelectItems(context.Background(), 5)
	if !errors.Is(err, domain.ErrUpstreamInvalid) {
		t.Fatalf("expected upstream invalid, got %v", err)
	}
	if catalog.randomCalls != 1 {
		t.Fatalf("expected no retry of invalid data, got %d calls", catalog.randomCalls)
	}
}
