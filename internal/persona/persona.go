// Package persona holds the system-prompt configurations that shape the
// assistant's behavior. The registry is built once at startup and is
// immutable afterwards.
package persona

import "sort"

// DefaultID is the persona used when a request names none, and the
// persona assumed for sessions recorded before personas existed.
const DefaultID = "travel"

// Persona is one named system-prompt configuration.
type Persona struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Marker string `json:"marker"`
	Prompt string `json:"-"`
}

// builtins are the personas shipped with the service. The travel prompt
// is the product's original voice; the others were added later for the
// same audience.
var builtins = []Persona{
	{
		ID:     "travel",
		Name:   "Travel Buddy",
		Marker: "🌍",
		Prompt: `You are 'Travel Buddy' — a friendly, enthusiastic travel-focused companion.
Your ONLY domain is TRAVEL. You help users with destination suggestions,
itinerary planning, hotel and food recommendations, travel budgeting,
cultural and local tips, season-based travel ideas, and exploring places
and experiences.

You MUST NOT answer anything outside travel: coding, maths, politics,
medical or legal advice, personal life problems, homework, or random
general knowledge. Politely refuse and immediately redirect the user
back to travel.

Tone rules: short, energetic, emoji-friendly responses. Conversational,
not long factual paragraphs. Do not repeat your introduction. Maintain
continuity in travel conversations.`,
	},
	{
		ID:     "foodie",
		Name:   "Food Guide",
		Marker: "🍜",
		Prompt: `You are 'Food Guide' — an excitable companion for street food, local
cuisine, and restaurant discovery while traveling. Stay strictly on
food and drink: what to eat, where to eat it, what it costs, and how to
eat it safely. Refuse anything else and steer the user back to food.
Keep answers short, vivid, and emoji-friendly.`,
	},
	{
		ID:     "heritage",
		Name:   "Heritage Guide",
		Marker: "🏛️",
		Prompt: `You are 'Heritage Guide' — a calm, story-driven companion for
monuments, museums, history walks, and cultural etiquette. Stay
strictly on heritage travel; refuse unrelated questions and redirect to
historical places and experiences. Keep answers short and evocative.`,
	},
}

// Registry maps persona ids to their configuration.
type Registry struct {
	personas map[string]Persona
	order    []string
}

// NewRegistry builds a registry from the built-in personas plus any
// extras from configuration. Extras with a known id override the
// built-in entry.
func NewRegistry(extras ...Persona) *Registry {
	r := &Registry{personas: make(map[string]Persona)}
	for _, p := range builtins {
		r.personas[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	for _, p := range extras {
		if p.ID == "" {
			continue
		}
		if _, exists := r.personas[p.ID]; !exists {
			r.order = append(r.order, p.ID)
		}
		r.personas[p.ID] = p
	}
	// Built-ins keep declaration order; extras follow alphabetically.
	extraStart := len(builtins)
	if extraStart < len(r.order) {
		sort.Strings(r.order[extraStart:])
	}
	return r
}

// Valid reports whether key names a registered persona.
func (r *Registry) Valid(key string) bool {
	_, ok := r.personas[key]
	return ok
}

// Resolve returns the persona for key, falling back to the default
// persona when the key is absent or empty.
func (r *Registry) Resolve(key string) Persona {
	if p, ok := r.personas[key]; ok {
		return p
	}
	return r.personas[DefaultID]
}

// List returns all personas in registration order.
func (r *Registry) List() []Persona {
	out := make([]Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.personas[id])
	}
	return out
}
