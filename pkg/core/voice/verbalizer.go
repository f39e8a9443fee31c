package voice

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lyra-voice/lyra/pkg/core/voice/tts"
)

// Playback plays one rendered clip to completion.
type Playback interface {
	Play(ctx context.Context, synth *tts.Synthesis) error
}

// Verbalizer speaks responses with the profile's current voice and language.
type Verbalizer struct {
	provider tts.Provider
	playback Playback
	logger   zerolog.Logger

	mu       sync.Mutex
	voice    string
	language string
}

// VerbalizerOption configures a Verbalizer.
type VerbalizerOption func(*Verbalizer)

// WithVerbalizerLogger sets the verbalizer's logger.
func WithVerbalizerLogger(logger zerolog.Logger) VerbalizerOption {
	return func(v *Verbalizer) { v.logger = logger }
}

// NewVerbalizer creates a Verbalizer.
func NewVerbalizer(provider tts.Provider, playback Playback, voice, language string, opts ...VerbalizerOption) *Verbalizer {
	v := &Verbalizer{
		provider: provider,
		playback: playback,
		voice:    voice,
		language: language,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// UpdateVoice switches the voice used for subsequent Speak calls.
func (v *Verbalizer) UpdateVoice(voiceID string) {
	v.mu.Lock()
	v.voice = voiceID
	v.mu.Unlock()
	v.logger.Info().Str("voice", voiceID).Msg("verbalizer voice updated")
}

// Reconfigure switches the synthesis language.
func (v *Verbalizer) Reconfigure(language string) {
	v.mu.Lock()
	v.language = language
	v.mu.Unlock()
	v.logger.Info().Str("language", language).Msg("verbalizer reconfigured")
}

// Speak renders text and plays it to completion.
func (v *Verbalizer) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	v.mu.Lock()
	opts := tts.Options{Voice: v.voice, Language: v.language}
	v.mu.Unlock()

	synth, err := v.provider.Synthesize(ctx, text, opts)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if synth == nil || len(synth.Audio) == 0 {
		return nil
	}
	if err := v.playback.Play(ctx, synth); err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	return nil
}
