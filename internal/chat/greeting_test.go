package chat

import "testing"

func TestIsGreeting(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"Hi!", true},
		{"hello", true},
		{"HELLO", true},
		{"  hey  ", true},
		{"Good Morning!!", true},
		{"namaste", true},
		{"gm", true},
		{"a", true},          // too short to be substantive
		{"ok", true},         // ditto
		{"!?", true},         // punctuation only
		{"", true},           // empty after trimming
		{"yo.", true},
		{"hello there", false},
		{"hi, plan my trip", false},
		{"Where should I go in spring?", false},
		{"greetings", false}, // not in the set
		{"goa", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsGreeting(tt.input); got != tt.want {
				t.Errorf("IsGreeting(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
