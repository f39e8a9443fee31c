// Package stt provides speech-to-text for the recognizer.
package stt

import (
	"context"
	"io"
)

// Provider is the interface for speech-to-text services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Transcribe converts a complete audio recording to text.
	Transcribe(ctx context.Context, audio io.Reader, opts Options) (*Transcript, error)

	// OpenStream starts a live transcription session. Audio frames are sent
	// incrementally and transcript deltas come back as they are recognized.
	OpenStream(ctx context.Context, opts Options) (*Stream, error)
}

// Options configures recognition. Language is the one field the session state
// machine changes at runtime: a reconfigure_recognizer flag rebuilds the
// stream with the profile's current language.
type Options struct {
	Model      string // provider-specific model identifier
	Language   string // ISO language code
	Format     string // audio encoding (default pcm_s16le)
	SampleRate int    // sample rate in Hz
}

// Transcript is the result of a one-shot transcription.
type Transcript struct {
	Text     string
	Language string
	Duration float64 // seconds
}

// Delta is a live transcript update. Final marks the end of an utterance.
type Delta struct {
	Text  string
	Final bool
}

// Stream is a live transcription session.
type Stream struct {
	deltas chan Delta
	done   chan struct{}

	// Implementations fill these in.
	SendFunc     func(audio []byte) error
	FinalizeFunc func() error
	CloseFunc    func() error
}

// NewStream creates the shared stream shell used by implementations.
func NewStream() *Stream {
	return &Stream{
		deltas: make(chan Delta, 64),
		done:   make(chan struct{}),
	}
}

// SendAudio feeds one audio frame into the session.
func (s *Stream) SendAudio(audio []byte) error {
	if s.SendFunc != nil {
		return s.SendFunc(audio)
	}
	return nil
}

// Finalize asks the provider to flush any pending transcript.
func (s *Stream) Finalize() error {
	if s.FinalizeFunc != nil {
		return s.FinalizeFunc()
	}
	return nil
}

// Deltas returns the channel of transcript updates. It is closed when the
// session ends.
func (s *Stream) Deltas() <-chan Delta { return s.deltas }

// Done is closed when the session ends.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Emit hands a delta to the consumer. For implementation use.
func (s *Stream) Emit(d Delta) bool {
	select {
	case s.deltas <- d:
		return true
	case <-s.done:
		return false
	}
}

// Finish closes the delta channel. For implementation use.
func (s *Stream) Finish() {
	close(s.deltas)
	close(s.done)
}

// Close tears the session down.
func (s *Stream) Close() error {
	if s.CloseFunc != nil {
		return s.CloseFunc()
	}
	return nil
}
