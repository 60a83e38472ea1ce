package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/deskline/deskline-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAgentRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateAgent(ctx, "bob", "hash")
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}
	if created.Username != "bob" || created.PasswordHash != "hash" {
		t.Fatalf("unexpected agent: %+v", created)
	}

	byName, err := s.GetAgentByUsername(ctx, "bob")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName.ID != created.ID {
		t.Fatalf("expected id %d, got %d", created.ID, byName.ID)
	}

	if _, err := s.GetAgentByUsername(ctx, "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Usernames are unique.
	if _, err := s.CreateAgent(ctx, "bob", "other"); err == nil {
		t.Fatal("expected duplicate username to fail")
	}
}

func TestTicketJournalOrdering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	steps := []struct{ kind, actor string }{
		{"opened", "alice"},
		{"claimed", "bob"},
		{"closed", "bob"},
	}
	for _, step := range steps {
		if err := s.RecordTicketEvent(ctx, "r1", step.kind, step.actor); err != nil {
			t.Fatalf("record %s: %v", step.kind, err)
		}
	}
	// Events for other rooms must not leak in.
	if err := s.RecordTicketEvent(ctx, "r2", "opened", "carol"); err != nil {
		t.Fatalf("record other room: %v", err)
	}

	events, err := s.ListTicketEvents(ctx, "r1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != len(steps) {
		t.Fatalf("expected %d events, got %d", len(steps), len(events))
	}
	for i, ev := range events {
		if ev.Kind != steps[i].kind || ev.Actor != steps[i].actor {
			t.Fatalf("event %d: expected %+v, got kind=%s actor=%s", i, steps[i], ev.Kind, ev.Actor)
		}
	}

	empty, err := s.ListTicketEvents(ctx, "r3")
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no events, got %v", empty)
	}
}
