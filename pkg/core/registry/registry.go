// Package registry maps intent names to command handlers.
//
// A registry is assembled once at session start from the active profile's
// command package and is immutable afterwards. Dispatch is an explicit table
// lookup; there is no name-based reflection anywhere in the pipeline.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/lyra-voice/lyra/pkg/core/types"
)

// ErrUnknownPackage is returned when a package name does not resolve to a
// known manifest.
var ErrUnknownPackage = errors.New("unknown command package")

// Handler executes one command. It receives the entity map extracted for the
// intent; entity validation is the handler's job, and a missing slot must
// produce a clarifying response, not an error.
type Handler func(ctx context.Context, entities types.Entities) (string, error)

// Tier partitions the classifier vocabulary: high-tier intents are concrete
// commands expected to match with high confidence, low-tier intents are the
// generic catch-alls routed to the generative responder.
type Tier string

const (
	TierHigh Tier = "high"
	TierLow  Tier = "low"
)

// Entry is one wired intent.
type Entry struct {
	Intent  string
	Tier    Tier
	Handler Handler
}

// Registry is the per-session intent table.
type Registry struct {
	pkg     string
	entries map[string]Entry
}

// Load resolves packageName against the known manifests and binds every listed
// high-tier intent to a handler from table. A high-tier intent with no handler
// fails loudly here rather than becoming a silently unhandled intent at
// dispatch time. Low-tier intents are vocabulary-only catch-alls routed to the
// generative responder; they need no handler.
func Load(packageName string, table map[string]Handler) (*Registry, error) {
	m, err := manifestFor(packageName)
	if err != nil {
		return nil, err
	}
	r := &Registry{
		pkg:     m.Name,
		entries: make(map[string]Entry, len(m.HighIntents)+len(m.LowIntents)),
	}
	if err := r.bind(m.HighIntents, TierHigh, table); err != nil {
		return nil, err
	}
	if err := r.bind(m.LowIntents, TierLow, table); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) bind(intents []string, tier Tier, table map[string]Handler) error {
	for _, intent := range intents {
		if _, dup := r.entries[intent]; dup {
			return fmt.Errorf("package %q lists intent %q twice", r.pkg, intent)
		}
		h, ok := table[intent]
		if !ok && tier == TierHigh {
			return fmt.Errorf("package %q names intent %q but no handler is registered for it", r.pkg, intent)
		}
		r.entries[intent] = Entry{Intent: intent, Tier: tier, Handler: h}
	}
	return nil
}

// Package returns the name of the loaded command package.
func (r *Registry) Package() string { return r.pkg }

// Len returns the number of wired intents.
func (r *Registry) Len() int { return len(r.entries) }

// Lookup returns the handler for intent. A supported low-tier intent yields a
// nil handler.
func (r *Registry) Lookup(intent string) (Handler, bool) {
	e, ok := r.entries[intent]
	if !ok {
		return nil, false
	}
	return e.Handler, true
}

// Entry returns the full registry entry for intent.
func (r *Registry) Entry(intent string) (Entry, bool) {
	e, ok := r.entries[intent]
	return e, ok
}

// SupportedIntents returns the set of intent names this registry can dispatch.
func (r *Registry) SupportedIntents() map[string]struct{} {
	out := make(map[string]struct{}, len(r.entries))
	for name := range r.entries {
		out[name] = struct{}{}
	}
	return out
}

// Intents returns the sorted intent names of one tier, for handing the
// classifier its expected vocabulary.
func (r *Registry) Intents(tier Tier) []string {
	var out []string
	for _, e := range r.entries {
		if e.Tier == tier {
			out = append(out, e.Intent)
		}
	}
	sort.Strings(out)
	return out
}
