// Package fallback produces free-form responses for utterances no command
// handler claims.
package fallback

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lyra-voice/lyra/pkg/core/types"
)

// RespTechnicalDifficulties is returned whenever the generative collaborator
// cannot produce a usable completion.
const RespTechnicalDifficulties = "Sorry, I am currently experiencing technical difficulties. Please try again later."

// defaultHistoryTurns is how many prior turns seed the prompt context.
const defaultHistoryTurns = 6

// Completer requests one completion from the generative-model collaborator.
type Completer interface {
	Complete(ctx context.Context, model, system string, turns []types.Turn, utterance string) (string, error)
}

// ProfileSource yields the active profile when the prompt is built.
type ProfileSource interface {
	Profile() types.Profile
}

// HistorySource supplies recent conversation turns for prompt context.
type HistorySource interface {
	Recent(n int) []types.Turn
}

// Responder builds a persona prompt and asks the generative collaborator for a
// completion. Respond never fails; every upstream problem degrades to the
// fixed technical-difficulties line.
type Responder struct {
	completer Completer
	profiles  ProfileSource
	history   HistorySource
	maxTurns  int
	logger    zerolog.Logger
}

// Option configures a Responder.
type Option func(*Responder)

// WithHistory attaches a conversation-history source.
func WithHistory(h HistorySource) Option {
	return func(r *Responder) { r.history = h }
}

// WithMaxHistoryTurns bounds the prompt context window.
func WithMaxHistoryTurns(n int) Option {
	return func(r *Responder) { r.maxTurns = n }
}

// WithLogger sets the responder's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Responder) { r.logger = logger }
}

// New creates a Responder.
func New(completer Completer, profiles ProfileSource, opts ...Option) *Responder {
	r := &Responder{
		completer: completer,
		profiles:  profiles,
		maxTurns:  defaultHistoryTurns,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Respond produces text for an utterance no command matched.
func (r *Responder) Respond(ctx context.Context, utterance string) string {
	profile := r.profiles.Profile()

	var turns []types.Turn
	if r.history != nil {
		turns = r.history.Recent(r.maxTurns)
	}

	text, err := r.completer.Complete(ctx, profile.Model, systemPrompt(profile), turns, utterance)
	if err != nil {
		r.logger.Error().Err(err).Msg("generative completion failed")
		return RespTechnicalDifficulties
	}
	text = trimNameEcho(strings.TrimSpace(text), profile.Name)
	if text == "" {
		return RespTechnicalDifficulties
	}
	return text
}

// systemPrompt folds the persona into one system message. An explicit
// system_prompt on the profile wins; otherwise one is assembled from the
// persona fields.
func systemPrompt(p types.Profile) string {
	if p.SystemPrompt != "" {
		return p.SystemPrompt
	}
	var b strings.Builder
	name := p.Name
	if name == "" {
		name = "Assistant"
	}
	fmt.Fprintf(&b, "You are %s", name)
	if p.Role != "" {
		fmt.Fprintf(&b, ", a %s", p.Role)
	}
	b.WriteString(".")
	if p.Personality != "" {
		fmt.Fprintf(&b, " Your personality is %s.", p.Personality)
	}
	if p.Description != "" {
		fmt.Fprintf(&b, " %s.", strings.TrimSuffix(strings.TrimSpace(p.Description), "."))
	}
	if p.Language != "" && p.Language != types.BaseLanguage {
		fmt.Fprintf(&b, " Answer in the language with code %q.", p.Language)
	}
	b.WriteString(" Keep answers short enough to speak aloud.")
	return b.String()
}

// trimNameEcho removes the bot's own name echoed back as a prefix, a known
// quirk of the upstream model ("Lyra: sure, ...").
func trimNameEcho(text, name string) string {
	if name == "" {
		return text
	}
	lower := strings.ToLower(text)
	for _, sep := range []string{": ", ":", " - "} {
		prefix := strings.ToLower(name) + sep
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(text[len(prefix):])
		}
	}
	return text
}
