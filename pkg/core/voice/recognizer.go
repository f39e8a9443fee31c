// Package voice binds the speech providers to the dialogue pipeline: a
// Recognizer that turns microphone audio into one utterance, and a Verbalizer
// that speaks one response.
package voice

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lyra-voice/lyra/pkg/core/voice/stt"
)

// SourceFactory opens the audio input (e.g. a microphone capture process) for
// one listening session. Frames are raw PCM in the recognizer's configured
// encoding and sample rate.
type SourceFactory func() (io.ReadCloser, error)

// frameSize is how much PCM is read from the source per websocket message,
// roughly 128ms at 16kHz 16-bit mono.
const frameSize = 4096

// Recognizer listens for one utterance at a time.
type Recognizer struct {
	provider   stt.Provider
	openSource SourceFactory
	logger     zerolog.Logger

	mu         sync.Mutex
	language   string
	sampleRate int
}

// RecognizerOption configures a Recognizer.
type RecognizerOption func(*Recognizer)

// WithRecognizerLogger sets the recognizer's logger.
func WithRecognizerLogger(logger zerolog.Logger) RecognizerOption {
	return func(r *Recognizer) { r.logger = logger }
}

// WithSampleRate overrides the capture sample rate.
func WithSampleRate(hz int) RecognizerOption {
	return func(r *Recognizer) { r.sampleRate = hz }
}

// NewRecognizer creates a Recognizer for the given language.
func NewRecognizer(provider stt.Provider, source SourceFactory, language string, opts ...RecognizerOption) *Recognizer {
	r := &Recognizer{
		provider:   provider,
		openSource: source,
		language:   language,
		sampleRate: 16000,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconfigure switches the recognition language. The next Listen call opens
// its session with the new language; an in-flight session is unaffected.
func (r *Recognizer) Reconfigure(language string) {
	r.mu.Lock()
	r.language = language
	r.mu.Unlock()
	r.logger.Info().Str("language", language).Msg("recognizer reconfigured")
}

// Language returns the current recognition language.
func (r *Recognizer) Language() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.language
}

// Listen blocks until one utterance is recognized or ctx is done. It returns
// the final transcript, which may be empty when the provider endpoints on
// silence without hearing speech.
func (r *Recognizer) Listen(ctx context.Context) (string, error) {
	r.mu.Lock()
	opts := stt.Options{Language: r.language, SampleRate: r.sampleRate}
	r.mu.Unlock()

	stream, err := r.provider.OpenStream(ctx, opts)
	if err != nil {
		return "", fmt.Errorf("open stt stream: %w", err)
	}
	defer stream.Close()

	source, err := r.openSource()
	if err != nil {
		return "", fmt.Errorf("open audio source: %w", err)
	}
	defer source.Close()

	// Pump audio until the session ends or the caller gives up.
	go func() {
		buf := make([]byte, frameSize)
		for {
			select {
			case <-ctx.Done():
				return
			case <-stream.Done():
				return
			default:
			}
			n, err := source.Read(buf)
			if n > 0 {
				if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					r.logger.Debug().Err(err).Msg("audio source read ended")
				}
				_ = stream.Finalize()
				return
			}
		}
	}()

	var parts []string
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case delta, ok := <-stream.Deltas():
			if !ok {
				return strings.TrimSpace(strings.Join(parts, " ")), nil
			}
			if delta.Final {
				if t := strings.TrimSpace(delta.Text); t != "" {
					parts = append(parts, t)
				}
				return strings.TrimSpace(strings.Join(parts, " ")), nil
			}
		}
	}
}
