package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/voyago/voyago/internal/gemini"
	"github.com/voyago/voyago/internal/testutil"
	"github.com/voyago/voyago/internal/turn"
)

func TestBuildContextCapsAtMaxTurns(t *testing.T) {
	store := testutil.NewMemStore()
	s := newTestService(t, store, &testutil.FakeGenerator{}, Config{})
	ctx := context.Background()

	// 250 conversational turns; the window must keep the newest 200.
	for i := 1; i <= 250; i++ {
		role := turn.RoleUser
		if i%2 == 0 {
			role = turn.RoleBot
		}
		if _, err := store.Append(ctx, &turn.Turn{
			SessionID: "s1",
			Role:      role,
			Content:   fmt.Sprintf("msg-%d", i),
		}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	history, err := s.buildContext(ctx, "s1", 200, 0)
	if err != nil {
		t.Fatalf("buildContext: %v", err)
	}
	if len(history) != 200 {
		t.Fatalf("len = %d, want 200", len(history))
	}
	if history[0].Text != "msg-51" {
		t.Errorf("first = %q, want msg-51", history[0].Text)
	}
	if history[199].Text != "msg-250" {
		t.Errorf("last = %q, want msg-250", history[199].Text)
	}
	if history[0].Role != gemini.RoleUser {
		t.Errorf("first role = %q, want %q", history[0].Role, gemini.RoleUser)
	}
	if history[1].Role != gemini.RoleModel {
		t.Errorf("second role = %q, want %q", history[1].Role, gemini.RoleModel)
	}
}

func TestBuildContextDropsSystemTurns(t *testing.T) {
	store := testutil.NewMemStore()
	s := newTestService(t, store, &testutil.FakeGenerator{}, Config{})
	ctx := context.Background()

	seed := []turn.Turn{
		{SessionID: "s1", Role: turn.RoleUser, Content: "plan a trip"},
		{SessionID: "s1", Role: turn.RoleSystem, Content: turn.TitlePrefix + "Trip Planning"},
		{SessionID: "s1", Role: turn.RoleBot, Content: "sure, where to?"},
	}
	for i := range seed {
		if _, err := store.Append(ctx, &seed[i]); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	history, err := s.buildContext(ctx, "s1", 200, 0)
	if err != nil {
		t.Fatalf("buildContext: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len = %d, want 2 (marker dropped)", len(history))
	}
	for _, m := range history {
		if m.Role != gemini.RoleUser && m.Role != gemini.RoleModel {
			t.Errorf("unexpected role %q", m.Role)
		}
	}
}

func TestBuildContextExcludesTurnsAtOrAfterBound(t *testing.T) {
	store := testutil.NewMemStore()
	s := newTestService(t, store, &testutil.FakeGenerator{}, Config{})
	ctx := context.Background()

	_, _ = store.Append(ctx, &turn.Turn{SessionID: "s1", Role: turn.RoleUser, Content: "first"})
	_, _ = store.Append(ctx, &turn.Turn{SessionID: "s1", Role: turn.RoleBot, Content: "second"})
	lastID, _ := store.Append(ctx, &turn.Turn{SessionID: "s1", Role: turn.RoleUser, Content: "the new message"})

	history, err := s.buildContext(ctx, "s1", 200, lastID)
	if err != nil {
		t.Fatalf("buildContext: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("len = %d, want 2", len(history))
	}
	for _, m := range history {
		if m.Text == "the new message" {
			t.Error("triggering message leaked into the window")
		}
	}
}

func TestBuildContextMapsUnknownRolesToModel(t *testing.T) {
	store := testutil.NewMemStore()
	s := newTestService(t, store, &testutil.FakeGenerator{}, Config{})
	ctx := context.Background()

	_, _ = store.Append(ctx, &turn.Turn{SessionID: "s1", Role: turn.Role("assistant"), Content: "legacy row"})

	history, err := s.buildContext(ctx, "s1", 200, 0)
	if err != nil {
		t.Fatalf("buildContext: %v", err)
	}
	if len(history) != 1 || history[0].Role != gemini.RoleModel {
		t.Fatalf("got %+v, want one model-role entry", history)
	}
}
