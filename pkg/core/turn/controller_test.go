package turn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyra-voice/lyra/pkg/core/fallback"
	"github.com/lyra-voice/lyra/pkg/core/session"
	"github.com/lyra-voice/lyra/pkg/core/types"
)

// eventLog records cross-component calls in order, which is what most of these
// tests assert on: the flag protocol is all about ordering.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type scriptedRecognizer struct {
	log    *eventLog
	mu     sync.Mutex
	script []string
}

func (r *scriptedRecognizer) Listen(ctx context.Context) (string, error) {
	r.mu.Lock()
	if len(r.script) == 0 {
		r.mu.Unlock()
		<-ctx.Done()
		return "", ctx.Err()
	}
	utterance := r.script[0]
	r.script = r.script[1:]
	r.mu.Unlock()
	r.log.add("listen:%s", utterance)
	return utterance, nil
}

func (r *scriptedRecognizer) Reconfigure(language string) {
	r.log.add("recognizer-reconfigure:%s", language)
}

type recordingVerbalizer struct {
	log      *eventLog
	speakErr error
}

func (v *recordingVerbalizer) Speak(_ context.Context, text string) error {
	v.log.add("speak:%s", text)
	return v.speakErr
}

func (v *recordingVerbalizer) UpdateVoice(voiceID string) {
	v.log.add("update-voice:%s", voiceID)
}

func (v *recordingVerbalizer) Reconfigure(language string) {
	v.log.add("verbalizer-reconfigure:%s", language)
}

type stubClassifier struct {
	log *eventLog
	err error
}

func (c *stubClassifier) Classify(_ context.Context, utterance, language string) (types.Classification, error) {
	c.log.add("classify:%s:%s", utterance, language)
	if c.err != nil {
		return types.Classification{}, c.err
	}
	return types.Classification{TopIntent: "Ask_GPT", Score: 0.5}, nil
}

// fnDispatcher lets a test play command handler: it can mutate session state
// the way a real handler would.
type fnDispatcher struct {
	fn func(ctx context.Context, utterance string) (string, bool)
}

func (d *fnDispatcher) Dispatch(ctx context.Context, utterance string, _ types.Classification) (string, bool) {
	return d.fn(ctx, utterance)
}

type passthroughTranslator struct {
	log *eventLog
}

func (t *passthroughTranslator) Translate(_ context.Context, text, from, to string) string {
	t.log.add("translate:%s:%s>%s", text, from, to)
	return "[" + to + "] " + text
}

type memoryHistory struct {
	mu    sync.Mutex
	turns []types.Turn
	err   error
}

func (h *memoryHistory) Append(turn types.Turn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
	return h.err
}

func (h *memoryHistory) all() []types.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]types.Turn(nil), h.turns...)
}

type fixture struct {
	log        *eventLog
	store      *session.Store
	recognizer *scriptedRecognizer
	verbalizer *recordingVerbalizer
	classifier *stubClassifier
	translator *passthroughTranslator
	history    *memoryHistory
}

func newFixture(script ...string) *fixture {
	log := &eventLog{}
	return &fixture{
		log:        log,
		store:      session.NewStore(types.Profile{Name: "Lyra", Language: types.BaseLanguage, VoiceID: "aria"}),
		recognizer: &scriptedRecognizer{log: log, script: script},
		verbalizer: &recordingVerbalizer{log: log},
		classifier: &stubClassifier{log: log},
		translator: &passthroughTranslator{log: log},
		history:    &memoryHistory{},
	}
}

func (f *fixture) controller(dispatch func(ctx context.Context, utterance string) (string, bool)) *Controller {
	return New(f.store, f.recognizer, f.verbalizer, f.classifier, &fnDispatcher{fn: dispatch}, f.translator,
		WithHistory(f.history),
		WithInactivityTimeout(100*time.Millisecond))
}

func TestRunSpeaksResponseAndRecordsTurn(t *testing.T) {
	f := newFixture("what time is it")
	c := f.controller(func(_ context.Context, _ string) (string, bool) {
		return "It is noon.", false
	})

	err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrInactivityTimeout)

	assert.Equal(t, []string{
		"listen:what time is it",
		"classify:what time is it:en",
		"speak:It is noon.",
	}, f.log.all())

	turns := f.history.all()
	require.Len(t, turns, 1)
	assert.Equal(t, "what time is it", turns[0].Utterance)
	assert.Equal(t, "It is noon.", turns[0].Response)
	assert.False(t, turns[0].Fallback)
	assert.NotEmpty(t, turns[0].ID)
}

func TestRunExitTerminates(t *testing.T) {
	f := newFixture("stop", "never heard")
	c := f.controller(func(_ context.Context, _ string) (string, bool) {
		f.store.SetExit(true)
		return "Goodbye.", false
	})

	err := c.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, f.store.Exit(), "exit flag is consumed")
	assert.Equal(t, []string{
		"listen:stop",
		"classify:stop:en",
		"speak:Goodbye.",
	}, f.log.all(), "the second scripted utterance is never reached")
}

// The mute flag is consulted at verbalize time, so the mute command's own
// confirmation is already swallowed.
func TestMutedResponseNotSpoken(t *testing.T) {
	f := newFixture("mute yourself", "stop")
	c := f.controller(func(_ context.Context, utterance string) (string, bool) {
		if utterance == "stop" {
			f.store.SetExit(true)
			return "Goodbye.", false
		}
		f.store.SetMute(true)
		return "Muted.", false
	})

	require.NoError(t, c.Run(context.Background()))

	for _, ev := range f.log.all() {
		assert.NotContains(t, ev, "speak:", "nothing is spoken while muted")
	}
	assert.Len(t, f.history.all(), 2, "muted turns are still recorded")
}

// One-shot language override: verbalizer switches to the temporary language
// before the response is spoken, reverts after, and the next turn rebuilds
// with the restored language before speaking again.
func TestOneShotLanguageOverrideOrdering(t *testing.T) {
	f := newFixture("say good morning in german", "stop")
	c := f.controller(func(_ context.Context, utterance string) (string, bool) {
		if utterance == "stop" {
			f.store.SetExit(true)
			return "Goodbye.", false
		}
		f.store.BeginLanguageOverride("de")
		f.store.SetReconfigureVerbalizer(true)
		return "Guten Morgen", false
	})

	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, []string{
		"listen:say good morning in german",
		"classify:say good morning in german:en",
		"update-voice:aria",
		"verbalizer-reconfigure:de",
		"speak:Guten Morgen",
		"listen:stop",
		// Profile already reverted to en, so no pre-classification translation.
		"classify:stop:en",
		"update-voice:aria",
		"verbalizer-reconfigure:en",
		"speak:Goodbye.",
	}, f.log.all())

	assert.Equal(t, "en", f.store.Profile().Language)
	assert.False(t, f.store.ResetLanguage())
}

// A persistent language change flags both engines; the recognizer is rebuilt
// at the start of the next turn and foreign utterances are translated to the
// base language before classification.
func TestPersistentLanguageChange(t *testing.T) {
	f := newFixture("switch to german", "wie spät ist es")
	c := f.controller(func(_ context.Context, utterance string) (string, bool) {
		if utterance == "switch to german" {
			_ = f.store.SetProfileProperty(session.PropLanguage, "de")
			f.store.SetReconfigureRecognizer(true)
			f.store.SetReconfigureVerbalizer(true)
			return "From now on I will speak German.", false
		}
		f.store.SetExit(true)
		return "[de] Es ist Mittag.", false
	})

	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, []string{
		"listen:switch to german",
		"classify:switch to german:en",
		"update-voice:aria",
		"verbalizer-reconfigure:de",
		"speak:From now on I will speak German.",
		"recognizer-reconfigure:de",
		"listen:wie spät ist es",
		"translate:wie spät ist es:de>en",
		"classify:[en] wie spät ist es:en",
		"speak:[de] Es ist Mittag.",
	}, f.log.all())
}

func TestClassifierFailureAbortsTurnOnly(t *testing.T) {
	f := newFixture("garbled", "stop")
	dispatched := 0
	c := f.controller(func(_ context.Context, utterance string) (string, bool) {
		dispatched++
		f.store.SetExit(true)
		return "Goodbye.", false
	})
	// Only the first turn sees the error.
	firstTurn := true
	c.classifier = classifierFunc(func(ctx context.Context, utterance, language string) (types.Classification, error) {
		f.log.add("classify:%s:%s", utterance, language)
		if firstTurn {
			firstTurn = false
			return types.Classification{}, errors.New("classifier 503")
		}
		return types.Classification{TopIntent: "Stop", Score: 0.99}, nil
	})

	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, []string{
		"listen:garbled",
		"classify:garbled:en",
		"speak:" + fallback.RespTechnicalDifficulties,
		"listen:stop",
		"classify:stop:en",
		"speak:Goodbye.",
	}, f.log.all())
	assert.Equal(t, 1, dispatched, "aborted turn never reaches dispatch")
	assert.Len(t, f.history.all(), 1, "aborted turn is not recorded")
}

type classifierFunc func(ctx context.Context, utterance, language string) (types.Classification, error)

func (f classifierFunc) Classify(ctx context.Context, utterance, language string) (types.Classification, error) {
	return f(ctx, utterance, language)
}

func TestInactivityTimeout(t *testing.T) {
	f := newFixture() // nothing to hear
	c := f.controller(func(context.Context, string) (string, bool) { return "", false })

	start := time.Now()
	err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrInactivityTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestEmptyRecognitionsAreRetried(t *testing.T) {
	f := newFixture("", "", "hello there")
	c := f.controller(func(_ context.Context, _ string) (string, bool) {
		f.store.SetExit(true)
		return "Hi.", false
	})

	require.NoError(t, c.Run(context.Background()))
	assert.Contains(t, f.log.all(), "listen:hello there")
	assert.Len(t, f.history.all(), 1)
}

func TestContextCancellationStopsRun(t *testing.T) {
	f := newFixture()
	c := f.controller(func(context.Context, string) (string, bool) { return "", false })
	c.timeout = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := c.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestAnnouncementsSpokenBeforeListening(t *testing.T) {
	f := newFixture("stop")
	c := f.controller(func(_ context.Context, _ string) (string, bool) {
		f.store.SetExit(true)
		return "Goodbye.", false
	})
	c.Announce("Your timer is done.")

	require.NoError(t, c.Run(context.Background()))

	events := f.log.all()
	require.NotEmpty(t, events)
	assert.Equal(t, "speak:Your timer is done.", events[0])
}

func TestAnnouncementsRespectMute(t *testing.T) {
	f := newFixture("stop")
	f.store.SetMute(true)
	c := f.controller(func(_ context.Context, _ string) (string, bool) {
		f.store.SetExit(true)
		return "Goodbye.", false
	})
	c.Announce("Your alarm is going off.")

	require.NoError(t, c.Run(context.Background()))
	for _, ev := range f.log.all() {
		assert.NotContains(t, ev, "speak:")
	}
}

func TestSpeakFailureDoesNotBreakTheLoop(t *testing.T) {
	f := newFixture("hello", "stop")
	f.verbalizer.speakErr = errors.New("audio device busy")
	c := f.controller(func(_ context.Context, utterance string) (string, bool) {
		if utterance == "stop" {
			f.store.SetExit(true)
			return "Goodbye.", false
		}
		return "Hi.", false
	})

	require.NoError(t, c.Run(context.Background()))
	assert.Len(t, f.history.all(), 2)
}

func TestFallbackFlagRecorded(t *testing.T) {
	f := newFixture("tell me about otters")
	c := f.controller(func(_ context.Context, _ string) (string, bool) {
		f.store.SetExit(true)
		return "They hold hands.", true
	})

	require.NoError(t, c.Run(context.Background()))
	turns := f.history.all()
	require.Len(t, turns, 1)
	assert.True(t, turns[0].Fallback)
}
