package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"anime-quiz-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	id, err := store.Create(ctx, domain.Session{OwnerID: "u1", Items: sampleItems(5)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	session, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if session.OwnerID != "u1" || len(session.Items) != 5 || len(session.Answers) != 0 || session.IsFinished {
		t.Fatalf("unexpected new session: %+v", session)
	}

	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, id); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := store.Delete(ctx, id); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestSessionStoreSequentialAnswers(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	items := sampleItems(5)
	id, _ := store.Create(ctx, domain.Session{OwnerID: "u1", Items: items})

	var answers []domain.Answer
	for i, item := range items {
		answers = append(answers, domain.NewAnswer(item, item))
		finished := i == len(items)-1
		if err := store.UpdateAnswers(ctx, id, i, answers, finished); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		session, _ := store.Get(ctx, id)
		if len(session.Answers) != i+1 {
			t.Fatalf("expected %d answers, got %d", i+1, len(session.Answers))
		}
		if session.IsFinished != finished {
			t.Fatalf("round %d: expected finished=%v", i, finished)
		}
	}
}

func TestSessionStoreRejectsStaleWrites(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	items := sampleItems(5)
	id, _ := store.Create(ctx, domain.Session{OwnerID: "u1", Items: items})

	first := []domain.Answer{domain.NewAnswer(items[0], items[0])}
	if err := store.UpdateAnswers(ctx, id, 0, first, false); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.UpdateAnswers(ctx, id, 0, first, false); !errors.Is(err, domain.ErrAnswerConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := store.UpdateAnswers(ctx, "missing", 0, first, false); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSessionStoreDeleteStale(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore()
	store.clock = func() time.Time { return now }
	items := sampleItems(5)

	now = now.Add(-11 * time.Minute)
	stale, _ := store.Create(ctx, domain.Session{OwnerID: "u1", Items: items})
	finishedOld, _ := store.Create(ctx, domain.Session{OwnerID: "u1", Items: items})
	var answers []domain.Answer
	for i, item := range items {
		answers = append(answers, domain.NewAnswer(item, item))
		_ = store.UpdateAnswers(ctx, finishedOld, i, answers, i == len(items)-1)
	}
	now = now.Add(6 * time.Minute)
	fresh, _ := store.Create(ctx, domain.Session{OwnerID: "u1", Items: items})
	now = now.Add(5 * time.Minute)

	n, err := store.DeleteStale(ctx, now.Add(-10*time.Minute))
	if err != nil {
		t.Fatalf("delete stale: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deleted, got %d", n)
	}
	if _, err := store.Get(ctx, stale); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected stale session removed, got %v", err)
	}
	for _, id := range []string{finishedOld, fresh} {
		if _, err := store.Get(ctx, id); err != nil {
			t.Fatalf("expected session %s retained: %v", id, err)
		}
	}
}

func sampleItems(n int) []domain.Item {
	items := make([]domain.Item, n)
	for i := range items {
		id := string(rune('a' + i))
		items[i] = domain.Item{ID: id, Name: "Title " + id, Images: []domain.ImageRef{{ID: "s" + id, URL: "https://img/" + id}}}
	}
	return items
}
