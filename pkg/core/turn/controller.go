// Package turn drives the listen, classify, dispatch, verbalize cycle and
// owns the session-state checkpoints.
//
// The flag protocol has one non-obvious ordering rule: the verbalizer is
// rebuilt BEFORE the response is spoken, and the one-shot language override is
// reverted AFTER. A temporary translation must be heard in the temporary
// language exactly once before the profile snaps back.
package turn

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lyra-voice/lyra/pkg/core/fallback"
	"github.com/lyra-voice/lyra/pkg/core/session"
	"github.com/lyra-voice/lyra/pkg/core/types"
)

// ErrInactivityTimeout reports that nothing was recognized for the whole
// inactivity window. It terminates the session on purpose; it is not a crash.
var ErrInactivityTimeout = errors.New("no speech recognized within the inactivity window")

// DefaultInactivityTimeout bounds how long the controller listens across
// repeated recognition attempts before giving up.
const DefaultInactivityTimeout = 300 * time.Second

// Recognizer is the speech-to-text collaborator.
type Recognizer interface {
	Listen(ctx context.Context) (string, error)
	Reconfigure(language string)
}

// Verbalizer is the text-to-speech collaborator.
type Verbalizer interface {
	Speak(ctx context.Context, text string) error
	UpdateVoice(voiceID string)
	Reconfigure(language string)
}

// Classifier is the intent-classification collaborator.
type Classifier interface {
	Classify(ctx context.Context, utterance, language string) (types.Classification, error)
}

// Dispatcher routes a classified utterance to a handler or the fallback.
type Dispatcher interface {
	Dispatch(ctx context.Context, utterance string, cls types.Classification) (string, bool)
}

// Translator converts the utterance into the base language before
// classification when the profile speaks something else.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) string
}

// History records finished turns. Append failures are logged, never fatal.
type History interface {
	Append(turn types.Turn) error
}

// Controller runs the dialogue loop for one session.
type Controller struct {
	session    *session.Store
	recognizer Recognizer
	verbalizer Verbalizer
	classifier Classifier
	dispatcher Dispatcher
	translator Translator
	history    History

	announcements chan string
	timeout       time.Duration
	retryDelay    time.Duration
	logger        zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithInactivityTimeout overrides how long the controller waits for speech.
func WithInactivityTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithHistory attaches a conversation log.
func WithHistory(h History) Option {
	return func(c *Controller) { c.history = h }
}

// WithLogger sets the controller's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// New creates a Controller.
func New(store *session.Store, rec Recognizer, verb Verbalizer, cls Classifier, disp Dispatcher, tr Translator, opts ...Option) *Controller {
	c := &Controller{
		session:       store,
		recognizer:    rec,
		verbalizer:    verb,
		classifier:    cls,
		dispatcher:    disp,
		translator:    tr,
		announcements: make(chan string, 8),
		timeout:       DefaultInactivityTimeout,
		retryDelay:    time.Second,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Announce queues a message produced outside the turn loop (a fired alarm or
// reminder). It is spoken before the next listening phase. Announce never
// blocks; if the queue is full the message is dropped with a log line.
func (c *Controller) Announce(text string) {
	select {
	case c.announcements <- text:
	default:
		c.logger.Warn().Str("text", text).Msg("announcement queue full, dropping")
	}
}

// Run loops turns until the exit flag terminates the session (nil) or the
// inactivity timeout fires (ErrInactivityTimeout). Context cancellation is
// passed through.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info().Str("profile", c.session.Profile().Name).Msg("session started")
	for {
		terminated, err := c.turn(ctx)
		if err != nil {
			return err
		}
		if terminated {
			c.logger.Info().Msg("session terminated by exit command")
			return nil
		}
	}
}

func (c *Controller) turn(ctx context.Context) (bool, error) {
	c.drainAnnouncements(ctx)

	// Listening.
	if c.session.ReconfigureRecognizer() {
		c.recognizer.Reconfigure(c.session.Profile().Language)
		c.session.SetReconfigureRecognizer(false)
	}
	utterance, err := c.listen(ctx)
	if err != nil {
		return false, err
	}
	started := time.Now()
	c.logger.Debug().Str("utterance", utterance).Msg("utterance recognized")

	// Classifying. The classifier vocabulary is in the base language, so the
	// utterance is translated first when the profile speaks something else.
	profile := c.session.Profile()
	classifiable := utterance
	if !profile.SpeaksBaseLanguage() {
		classifiable = c.translator.Translate(ctx, utterance, profile.Language, types.BaseLanguage)
	}
	cls, err := c.classifier.Classify(ctx, classifiable, types.BaseLanguage)
	if err != nil {
		// Classifier outages abort the turn with the generic line and no
		// session-state changes; the loop carries on.
		c.logger.Error().Err(err).Msg("classification failed, aborting turn")
		c.speakDirect(ctx, fallback.RespTechnicalDifficulties)
		return false, nil
	}

	// Dispatching.
	response, usedFallback := c.dispatcher.Dispatch(ctx, utterance, cls)

	// Verbalizing.
	terminated := c.verbalize(ctx, response)

	c.record(types.Turn{
		ID:         uuid.NewString(),
		Utterance:  utterance,
		Response:   response,
		Fallback:   usedFallback,
		StartedAt:  started,
		FinishedAt: time.Now(),
	})
	return terminated, nil
}

// listen blocks until an utterance is recognized. Empty recognitions and
// transient recognizer failures are retried until the inactivity window
// elapses.
func (c *Controller) listen(ctx context.Context) (string, error) {
	deadline := time.Now().Add(c.timeout)
	lctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	for {
		utterance, err := c.recognizer.Listen(lctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return "", ErrInactivityTimeout
			}
			c.logger.Warn().Err(err).Msg("recognition attempt failed")
			select {
			case <-lctx.Done():
				return "", ErrInactivityTimeout
			case <-time.After(c.retryDelay):
			}
			continue
		}
		if strings.TrimSpace(utterance) != "" {
			return strings.TrimSpace(utterance), nil
		}
		if time.Now().After(deadline) {
			return "", ErrInactivityTimeout
		}
		// Silence. Fired alarms still get through while we wait for speech.
		c.drainAnnouncements(ctx)
	}
}

// verbalize runs the speaking phase and its flag checkpoints, and reports
// whether the session terminates.
func (c *Controller) verbalize(ctx context.Context, response string) bool {
	muted := c.session.Mute()

	if c.session.ReconfigureVerbalizer() {
		profile := c.session.Profile()
		c.verbalizer.UpdateVoice(profile.VoiceID)
		c.verbalizer.Reconfigure(profile.Language)
		c.session.SetReconfigureVerbalizer(false)
	}

	if muted {
		c.logger.Info().Str("response", response).Msg("muted, response not spoken")
	} else if err := c.verbalizer.Speak(ctx, response); err != nil {
		c.logger.Error().Err(err).Msg("verbalization failed")
	}

	// The one-shot override reverts only after the response was spoken (or
	// deliberately skipped); the next turn rebuilds the verbalizer with the
	// restored language.
	if c.session.ResetLanguage() {
		restored := c.session.EndLanguageOverride()
		c.session.SetReconfigureVerbalizer(true)
		c.logger.Info().Str("language", restored).Msg("one-shot language override reverted")
	}

	if c.session.Exit() {
		c.session.SetExit(false)
		return true
	}
	return false
}

// speakDirect says one line outside the normal verbalize checkpoints. Used for
// turn-abort messages and announcements, which must not consume flags.
func (c *Controller) speakDirect(ctx context.Context, text string) {
	if c.session.Mute() {
		c.logger.Info().Str("response", text).Msg("muted, message not spoken")
		return
	}
	if err := c.verbalizer.Speak(ctx, text); err != nil {
		c.logger.Error().Err(err).Msg("verbalization failed")
	}
}

func (c *Controller) drainAnnouncements(ctx context.Context) {
	for {
		select {
		case text := <-c.announcements:
			c.speakDirect(ctx, text)
		default:
			return
		}
	}
}

func (c *Controller) record(turn types.Turn) {
	if c.history == nil {
		return
	}
	if err := c.history.Append(turn); err != nil {
		c.logger.Warn().Err(err).Msg("failed to record turn")
	}
}
