package types

// Entities maps a named slot to the values extracted for it, in the order the
// classifier reported them.
type Entities map[string][]string

// First returns the first value extracted for slot, or "" if the slot is absent.
// Handlers use this to degrade gracefully when an expected entity is missing.
func (e Entities) First(slot string) string {
	if vals, ok := e[slot]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Has reports whether at least one value was extracted for slot.
func (e Entities) Has(slot string) bool {
	vals, ok := e[slot]
	return ok && len(vals) > 0
}

// Classification is the result of one intent-classification call. It is
// produced once per turn by the external classifier and consumed exactly once
// by the dispatcher; it is never persisted.
type Classification struct {
	TopIntent string   `json:"top_intent"`
	Score     float64  `json:"score"` // 0.0-1.0
	Entities  Entities `json:"entities,omitempty"`
}
