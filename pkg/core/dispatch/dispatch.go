// Package dispatch routes one classified utterance to a command handler or the
// generative fallback responder, and post-processes the result.
package dispatch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lyra-voice/lyra/pkg/core/registry"
	"github.com/lyra-voice/lyra/pkg/core/types"
)

// ConfidenceThreshold is the score below which the classifier's guess is
// ignored and the utterance goes to the generative responder instead. The
// assistant's variants historically used anything between 0.70 and 0.92; 0.90
// is the fixed value here because a mis-fired deterministic command reads far
// worse than a generic generated answer.
const ConfidenceThreshold = 0.90

// Canned response lines.
const (
	RespUnknownCommand = "I don't understand that command."
	RespHandlerFailed  = "Sorry, something went wrong while doing that. Please try again."
)

// Responder produces free-form text when no command matches. It never fails;
// on upstream trouble it returns its own apology line.
type Responder interface {
	Respond(ctx context.Context, utterance string) string
}

// Translator converts deterministic responses from the base language into the
// profile's active language. On failure it returns a human-readable apology
// embedding the original text, never an error.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) string
}

// ProfileSource yields the active profile at dispatch time.
type ProfileSource interface {
	Profile() types.Profile
}

// Dispatcher implements the confidence gate.
type Dispatcher struct {
	registry        *registry.Registry
	responder       Responder
	translator      Translator
	profiles        ProfileSource
	translateIntent string
	logger          zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithTranslateIntent names the intent that itself performs translation, so
// its already-translated response is not translated a second time.
func WithTranslateIntent(intent string) Option {
	return func(d *Dispatcher) { d.translateIntent = intent }
}

// New creates a Dispatcher.
func New(reg *registry.Registry, responder Responder, translator Translator, profiles ProfileSource, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:   reg,
		responder:  responder,
		translator: translator,
		profiles:   profiles,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch turns a classification into response text. The second return value
// reports whether the generative responder produced the response.
//
// Low-confidence classifications always go to the responder, whatever the top
// intent claims to be. High-confidence intents the registry does not support
// get the fixed unknown-command line; the classifier knowing a name the
// session's package never wired is a configuration gap, not a reason to
// hallucinate an answer.
func (d *Dispatcher) Dispatch(ctx context.Context, utterance string, cls types.Classification) (string, bool) {
	if cls.Score < ConfidenceThreshold {
		d.logger.Debug().
			Str("intent", cls.TopIntent).
			Float64("score", cls.Score).
			Msg("below confidence threshold, using fallback responder")
		return d.responder.Respond(ctx, utterance), true
	}

	entry, ok := d.registry.Entry(cls.TopIntent)
	if !ok {
		d.logger.Info().Str("intent", cls.TopIntent).Msg("classified intent has no handler")
		return d.postProcess(ctx, cls.TopIntent, RespUnknownCommand), false
	}
	if entry.Tier == registry.TierLow || entry.Handler == nil {
		// Catch-all vocabulary intents (Ask_GPT) are generative by definition,
		// however confidently they were matched.
		return d.responder.Respond(ctx, utterance), true
	}

	response, err := d.invoke(ctx, cls.TopIntent, entry.Handler, cls.Entities)
	if err != nil {
		d.logger.Error().Err(err).Str("intent", cls.TopIntent).Msg("command handler failed")
		response = RespHandlerFailed
	}
	return d.postProcess(ctx, cls.TopIntent, response), false
}

// invoke runs one handler, converting a panic into an error so a single
// misbehaving command cannot take down the turn loop.
func (d *Dispatcher) invoke(ctx context.Context, intent string, h registry.Handler, entities types.Entities) (response string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler %s panicked: %v", intent, r)
		}
	}()
	return h(ctx, entities)
}

// postProcess translates deterministic responses into the profile's active
// language. Fallback responses never come through here: the generative
// responder answers in the target language directly and must not be
// double-translated.
func (d *Dispatcher) postProcess(ctx context.Context, intent, response string) string {
	profile := d.profiles.Profile()
	if profile.SpeaksBaseLanguage() {
		return response
	}
	if d.translateIntent != "" && intent == d.translateIntent {
		return response
	}
	return d.translator.Translate(ctx, response, types.BaseLanguage, profile.Language)
}
