package storage

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func record(session, question string, createdAt time.Time) *QueryRecord {
	return &QueryRecord{
		ID:        fmt.Sprintf("%s-%s", session, question),
		SessionID: session,
		Question:  question,
		Dataset:   "sales",
		SQL:       "SELECT 1",
		Pandas:    "df.head()",
		Generator: "baseline",
		Outcome:   "success",
		CreatedAt: createdAt,
	}
}

func TestMemoryRepository_SaveAndRecent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 3; i++ {
		rec := record("s1", fmt.Sprintf("q%d", i), base.Add(time.Duration(i)*time.Second))
		if err := repo.Save(ctx, rec); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := repo.Save(ctx, record("other", "qx", base)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	recent, err := repo.Recent(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("got %d records, want 3", len(recent))
	}
	if recent[0].Question != "q2" {
		t.Errorf("newest record should be first, got %q", recent[0].Question)
	}
}

func TestMemoryRepository_RecentHonorsLimit(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		repo.Save(ctx, record("s1", fmt.Sprintf("q%d", i), time.Now()))
	}
	recent, err := repo.Recent(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("got %d records, want 2", len(recent))
	}
}

func TestMemoryRepository_RecentQuestionsDistinct(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	repo.Save(ctx, record("s1", "same question", time.Now()))
	repo.Save(ctx, record("s1", "other question", time.Now()))
	repo.Save(ctx, record("s1", "same question", time.Now()))

	questions, err := repo.RecentQuestions(ctx, "s1", 10)
	if err != nil {
		t.Fatalf("RecentQuestions: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("got %v, want 2 distinct questions", questions)
	}
	if questions[0] != "same question" {
		t.Errorf("latest question should be first, got %q", questions[0])
	}
}

func TestMemoryRepository_ListSessions(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Now()

	repo.Save(ctx, record("s1", "q1", base))
	repo.Save(ctx, record("s2", "q1", base.Add(time.Second)))
	repo.Save(ctx, record("s1", "q2", base.Add(2*time.Second)))

	sessions, err := repo.ListSessions(ctx, 10)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %v, want 2 distinct sessions", sessions)
	}
	if sessions[0] != "s1" || sessions[1] != "s2" {
		t.Errorf("got %v, want most recently active first", sessions)
	}

	limited, err := repo.ListSessions(ctx, 1)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("got %d sessions, want limit of 1", len(limited))
	}
}

func TestMemoryRepository_SaveCopiesRecord(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	rec := record("s1", "q", time.Now())
	repo.Save(ctx, rec)
	rec.Question = "mutated"

	recent, _ := repo.Recent(ctx, "s1", 1)
	if recent[0].Question != "q" {
		t.Error("repository should store a copy, not share the caller's record")
	}
}

func TestMemoryRepository_ContextCancellation(t *testing.T) {
	repo := NewMemoryRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := repo.Save(ctx, record("s1", "q", time.Now())); err == nil {
		t.Error("Save should fail with cancelled context")
	}
	if _, err := repo.Recent(ctx, "s1", 1); err == nil {
		t.Error("Recent should fail with cancelled context")
	}
}
