// Package tts provides text-to-speech for the verbalizer.
package tts

import "context"

// Provider is the interface for text-to-speech services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Synthesize converts text to audio.
	Synthesize(ctx context.Context, text string, opts Options) (*Synthesis, error)
}

// Options configures synthesis. Voice and Language are the fields the session
// state machine changes at runtime: a reconfigure_verbalizer flag rebuilds the
// verbalizer with the profile's current voice and language before speaking.
type Options struct {
	Voice      string  // voice identifier
	Language   string  // ISO language code
	Speed      float64 // speed multiplier (provider range, 0 = default)
	Format     string  // "wav", "mp3" or "pcm"
	SampleRate int     // sample rate in Hz
}

// Synthesis is rendered audio.
type Synthesis struct {
	Audio      []byte
	Format     string
	SampleRate int
}
