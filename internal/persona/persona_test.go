package persona

import "testing"

func TestResolve_KnownKey(t *testing.T) {
	r := NewRegistry()

	p := r.Resolve("foodie")
	if p.ID != "foodie" || p.Name != "Food Guide" {
		t.Errorf("Resolve(foodie) = %+v", p)
	}
}

func TestResolve_FallsBackToDefault(t *testing.T) {
	r := NewRegistry()

	for _, key := range []string{"", "astrology", "TRAVEL"} {
		p := r.Resolve(key)
		if p.ID != DefaultID {
			t.Errorf("Resolve(%q).ID = %q, want %q", key, p.ID, DefaultID)
		}
	}
}

func TestValid(t *testing.T) {
	r := NewRegistry()

	if !r.Valid("travel") {
		t.Error("Valid(travel) = false")
	}
	if r.Valid("") {
		t.Error("Valid(\"\") = true, empty key must be rejected at ingress")
	}
	if r.Valid("unknown") {
		t.Error("Valid(unknown) = true")
	}
}

func TestNewRegistry_Extras(t *testing.T) {
	r := NewRegistry(
		Persona{ID: "beach", Name: "Beach Bum", Marker: "🏖️", Prompt: "beaches only"},
		Persona{ID: "travel", Name: "Travel Buddy v2", Marker: "🧭", Prompt: "override"},
	)

	if !r.Valid("beach") {
		t.Fatal("extra persona not registered")
	}
	if got := r.Resolve("travel").Name; got != "Travel Buddy v2" {
		t.Errorf("override not applied, Name = %q", got)
	}

	// The default persona must always resolve, even after overrides.
	if r.Resolve("nope").ID != DefaultID {
		t.Error("default resolution broken after override")
	}
}

func TestList_OrderStable(t *testing.T) {
	r := NewRegistry()

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("len(List()) = %d, want 3", len(list))
	}
	if list[0].ID != "travel" {
		t.Errorf("first persona = %q, want travel", list[0].ID)
	}
}
