package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/voyago/voyago/internal/log"
	"github.com/voyago/voyago/internal/persona"
	"github.com/voyago/voyago/internal/testutil"
	"github.com/voyago/voyago/internal/turn"
)

var fixedTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestService wires a Service over the fakes with a deterministic
// clock that advances one second per reading.
func newTestService(t *testing.T, store TurnStore, gen Generator, cfg Config) *Service {
	t.Helper()
	s := NewService(store, gen, persona.NewRegistry(), cfg, log.NewNop())
	var tick int64
	s.now = func() time.Time {
		tick++
		return fixedTime.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func TestHandleChatConversationFlow(t *testing.T) {
	store := testutil.NewMemStore()
	gen := &testutil.FakeGenerator{Reply: "sounds great", Title: "Goa Trip Budget"}
	s := newTestService(t, store, gen, Config{})
	ctx := context.Background()

	// Greeting: answered, but no title.
	res, err := s.HandleChat(ctx, "s1", "Hi", "", "client-1")
	if err != nil {
		t.Fatalf("chat 1: %v", err)
	}
	if res.Reply != "sounds great" {
		t.Errorf("reply = %q", res.Reply)
	}
	if res.TitleGenerated {
		t.Error("greeting must not produce a title")
	}

	// Second message: substantive, but U == 2 is not a trigger.
	res, err = s.HandleChat(ctx, "s1", "Plan me a 3-day Goa trip", "", "client-1")
	if err != nil {
		t.Fatalf("chat 2: %v", err)
	}
	if res.TitleGenerated {
		t.Error("second user message must not trigger a title")
	}

	// Third message: U == 3 always regenerates.
	res, err = s.HandleChat(ctx, "s1", "Budget is 15000 rupees", "", "client-1")
	if err != nil {
		t.Fatalf("chat 3: %v", err)
	}
	if !res.TitleGenerated {
		t.Error("third user message must generate a title")
	}

	markers := findMarkers(store)
	if len(markers) != 1 {
		t.Fatalf("markers = %d, want 1", len(markers))
	}
	if got := markers[0].Title(); got != "Goa Trip Budget" {
		t.Errorf("title = %q", got)
	}

	// The model saw the prior conversation but not the new message or
	// the title marker.
	last := gen.LastGenerate()
	if last == nil {
		t.Fatal("no generate call recorded")
	}
	if last.Message != "Budget is 15000 rupees" {
		t.Errorf("message = %q", last.Message)
	}
	if len(last.History) != 4 {
		t.Fatalf("history len = %d, want 4 (2 user + 2 bot)", len(last.History))
	}
	for _, m := range last.History {
		if m.Text == last.Message {
			t.Error("new message duplicated into the history window")
		}
		if strings.HasPrefix(m.Text, turn.TitlePrefix) {
			t.Error("title marker leaked into the history window")
		}
	}
}

func TestHandleChatValidation(t *testing.T) {
	store := testutil.NewMemStore()
	s := newTestService(t, store, &testutil.FakeGenerator{}, Config{})
	ctx := context.Background()

	tests := []struct {
		name                         string
		sessionID, message, personaK string
	}{
		{"missing session", "", "hello world", ""},
		{"empty message", "s1", "   ", ""},
		{"oversized message", "s1", strings.Repeat("a", MaxMessageLen+1), ""},
		{"unknown persona", "s1", "plan a trip", "astronaut"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.HandleChat(ctx, tt.sessionID, tt.message, tt.personaK, "c")
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("got %v, want *ValidationError", err)
			}
		})
	}

	// Validation happens before persistence.
	if n, _ := store.Count(ctx, ""); n != 0 {
		t.Errorf("store has %d turns, want 0", n)
	}
}

func TestHandleChatRateLimited(t *testing.T) {
	store := testutil.NewMemStore()
	s := newTestService(t, store, &testutil.FakeGenerator{}, Config{RateLimit: 2, RateWindow: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := s.HandleChat(ctx, "s1", "plan a trip", "", "client-1"); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}

	_, err := s.HandleChat(ctx, "s1", "plan another trip", "", "client-1")
	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("got %v, want *RateLimitError", err)
	}

	// A rejected request leaves no trace in the log.
	before, _ := store.Count(ctx, "s1")
	if _, err := s.HandleChat(ctx, "s1", "third try", "", "client-1"); err == nil {
		t.Fatal("expected rejection")
	}
	after, _ := store.Count(ctx, "s1")
	if before != after {
		t.Errorf("turn count changed across a rejected request: %d -> %d", before, after)
	}

	// A different client is unaffected.
	if _, err := s.HandleChat(ctx, "s1", "plan a trip", "", "client-2"); err != nil {
		t.Fatalf("other client: %v", err)
	}
}

func TestHandleChatModelFailureKeepsUserTurn(t *testing.T) {
	store := testutil.NewMemStore()
	genErr := errors.New("upstream exploded")
	s := newTestService(t, store, &testutil.FakeGenerator{GenerateErr: genErr}, Config{})
	ctx := context.Background()

	_, err := s.HandleChat(ctx, "s1", "plan a trip to Goa", "", "c")
	if !errors.Is(err, genErr) {
		t.Fatalf("got %v, want wrapped %v", err, genErr)
	}

	turns := store.Turns()
	var users, bots int
	for _, tr := range turns {
		switch tr.Role {
		case turn.RoleUser:
			users++
		case turn.RoleBot:
			bots++
		}
	}
	if users != 1 {
		t.Errorf("user turns = %d, want 1 (kept for retry)", users)
	}
	if bots != 0 {
		t.Errorf("bot turns = %d, want 0", bots)
	}
}

func TestHandleChatStampsPersona(t *testing.T) {
	store := testutil.NewMemStore()
	gen := &testutil.FakeGenerator{}
	s := newTestService(t, store, gen, Config{})
	ctx := context.Background()

	if _, err := s.HandleChat(ctx, "s1", "best street food in Delhi?", "foodie", "c"); err != nil {
		t.Fatalf("chat: %v", err)
	}

	for _, tr := range store.Turns() {
		if tr.Role != turn.RoleSystem && tr.Persona != "foodie" {
			t.Errorf("turn %d persona = %q, want foodie", tr.ID, tr.Persona)
		}
	}

	want := persona.NewRegistry().Resolve("foodie").Prompt
	if got := gen.LastGenerate().SystemPrompt; got != want {
		t.Errorf("system prompt = %q, want the foodie prompt", got)
	}
}

func TestHistory(t *testing.T) {
	store := testutil.NewMemStore()
	s := newTestService(t, store, &testutil.FakeGenerator{Title: "Trip"}, Config{})
	ctx := context.Background()

	if _, err := s.HandleChat(ctx, "s1", "plan a trip to Goa", "", "c"); err != nil {
		t.Fatalf("chat: %v", err)
	}

	turns, err := s.History(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("len = %d, want 2 (marker excluded)", len(turns))
	}
	if turns[0].Role != turn.RoleUser || turns[1].Role != turn.RoleBot {
		t.Errorf("roles = %s, %s", turns[0].Role, turns[1].Role)
	}

	if _, err := s.History(ctx, "", 0); err == nil {
		t.Error("empty session id must be rejected")
	}
}

func TestClearUnknownSessionIsNoop(t *testing.T) {
	s := newTestService(t, testutil.NewMemStore(), &testutil.FakeGenerator{}, Config{})

	n, err := s.Clear(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n != 0 {
		t.Errorf("deleted = %d, want 0", n)
	}
}

func TestCreateSession(t *testing.T) {
	store := testutil.NewMemStore()
	s := newTestService(t, store, &testutil.FakeGenerator{}, Config{})
	ctx := context.Background()

	id, err := s.CreateSession(ctx, strings.Repeat("t", 80), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("empty session id")
	}

	marker, err := store.TitleMarker(ctx, id)
	if err != nil {
		t.Fatalf("marker: %v", err)
	}
	if got := marker.Title(); got != strings.Repeat("t", 50) {
		t.Errorf("title = %q, want 50 runes", got)
	}

	if _, err := s.CreateSession(ctx, "", "astronaut"); err == nil {
		t.Error("unknown persona must be rejected")
	}

	id2, err := s.CreateSession(ctx, "", "")
	if err != nil {
		t.Fatalf("create untitled: %v", err)
	}
	if id2 == id {
		t.Error("session ids must be unique")
	}
	if n, _ := store.Count(ctx, id2); n != 0 {
		t.Error("untitled session must start with no turns")
	}
}

func TestRenameReplacesMarkerInPlace(t *testing.T) {
	store := testutil.NewMemStore()
	s := newTestService(t, store, &testutil.FakeGenerator{}, Config{})
	ctx := context.Background()

	id, err := s.CreateSession(ctx, "Old Title", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Rename(ctx, id, "New Title"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	markers := findMarkers(store)
	if len(markers) != 1 {
		t.Fatalf("markers = %d, want 1", len(markers))
	}
	if got := markers[0].Title(); got != "New Title" {
		t.Errorf("title = %q", got)
	}

	if err := s.Rename(ctx, id, "  "); err == nil {
		t.Error("blank title must be rejected")
	}
	if err := s.Rename(ctx, "", "x"); err == nil {
		t.Error("missing session id must be rejected")
	}
}

func TestListSessions(t *testing.T) {
	store := testutil.NewMemStore()
	gen := &testutil.FakeGenerator{Title: "Goa Trip"}
	s := newTestService(t, store, gen, Config{})
	ctx := context.Background()

	if _, err := s.HandleChat(ctx, "older", "plan me a long weekend in Goa", "", "c"); err != nil {
		t.Fatalf("older: %v", err)
	}
	if _, err := s.HandleChat(ctx, "newer", "street food crawl in Delhi", "foodie", "c"); err != nil {
		t.Fatalf("newer: %v", err)
	}
	// A titled session with no conversation yet.
	emptyID, err := s.CreateSession(ctx, "Someday Trip", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}

	if got[0].SessionID != "newer" || got[1].SessionID != "older" {
		t.Errorf("order = %s, %s; want newer, older", got[0].SessionID, got[1].SessionID)
	}
	if got[2].SessionID != emptyID {
		t.Errorf("session with no conversation must sort last, got %s", got[2].SessionID)
	}
	if !got[2].LastActivity.IsZero() {
		t.Errorf("empty session LastActivity = %s, want zero", got[2].LastActivity)
	}
	if got[2].Title != "Someday Trip" {
		t.Errorf("empty session title = %q", got[2].Title)
	}

	if got[0].Persona != "foodie" {
		t.Errorf("newer persona = %q, want foodie", got[0].Persona)
	}
	if got[1].Persona != persona.DefaultID {
		t.Errorf("older persona = %q, want default", got[1].Persona)
	}
	if got[0].Title != "Goa Trip" {
		t.Errorf("newer title = %q, want marker title", got[0].Title)
	}
	if got[1].Preview == "" || !strings.HasPrefix("plan me a long weekend in Goa", got[1].Preview) {
		t.Errorf("preview = %q", got[1].Preview)
	}
}

func TestStats(t *testing.T) {
	store := testutil.NewMemStore()
	s := newTestService(t, store, &testutil.FakeGenerator{}, Config{})
	ctx := context.Background()

	if _, err := s.HandleChat(ctx, "s1", "plan a trip", "", "c"); err != nil {
		t.Fatalf("chat: %v", err)
	}

	n, err := s.Stats(ctx, "s1")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	// user + bot + title marker
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}

	global, err := s.Stats(ctx, "")
	if err != nil {
		t.Fatalf("global stats: %v", err)
	}
	if global != n {
		t.Errorf("global = %d, want %d", global, n)
	}
}
