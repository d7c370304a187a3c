package session

import (
	"testing"
	"time"
)

func TestExistsAndAppend(t *testing.T) {
	s := NewStore(0)
	if s.Exists("c1") {
		t.Fatal("fresh store should have no sessions")
	}

	s.Append("c1", Record{Role: "human", Content: "hello"})
	if !s.Exists("c1") {
		t.Fatal("session should exist after append")
	}
	if s.Exists("c2") {
		t.Fatal("unrelated session should not exist")
	}
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := NewStore(0)
	s.Append("c1", Record{Role: "human", Content: "one"}, Record{Role: "ai", Content: "two"})

	got := s.Messages("c1")
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	got[0].Content = "mutated"
	if s.Messages("c1")[0].Content != "one" {
		t.Fatal("Messages must return a copy")
	}
}

func TestSweepEvictsIdleSessions(t *testing.T) {
	s := NewStore(time.Minute)
	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.Append("stale", Record{Role: "human", Content: "old"})
	clock = clock.Add(2 * time.Minute)
	s.Append("fresh", Record{Role: "human", Content: "new"})

	if removed := s.Sweep(); removed != 1 {
		t.Fatalf("expected 1 eviction, got %d", removed)
	}
	if s.Exists("stale") {
		t.Fatal("stale session should be gone")
	}
	if !s.Exists("fresh") {
		t.Fatal("fresh session should survive")
	}
}

func TestSweepDisabledWithZeroTTL(t *testing.T) {
	s := NewStore(0)
	s.Append("c1", Record{Role: "human", Content: "hello"})
	if removed := s.Sweep(); removed != 0 {
		t.Fatalf("eviction should be disabled, removed %d", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", s.Len())
	}
}
