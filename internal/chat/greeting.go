package chat

import (
	"strings"
	"unicode/utf8"
)

// greetings is the fixed set of trivial openers. Membership is exact
// after normalization: "hello there" is substantive input, not a
// greeting. No stemming or prefix matching.
var greetings = map[string]struct{}{
	"hi":           {},
	"hii":          {},
	"hiii":         {},
	"hello":        {},
	"hey":          {},
	"heyy":         {},
	"yo":           {},
	"sup":          {},
	"namaste":      {},
	"gm":           {},
	"gn":           {},
	"good morning": {},
	"good night":   {},
	"good evening": {},
}

// IsGreeting reports whether text is a trivial greeting rather than
// substantive input. Anything shorter than 3 characters after trimming
// counts as trivial too (stray characters, "k", "ok").
func IsGreeting(text string) bool {
	s := strings.TrimSpace(text)
	s = strings.TrimRight(s, "!.,?")
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) < 3 {
		return true
	}

	_, ok := greetings[strings.ToLower(s)]
	return ok
}
