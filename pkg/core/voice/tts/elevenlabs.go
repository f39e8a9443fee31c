package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const elevenLabsBaseURL = "https://api.elevenlabs.io"

// ElevenLabs implements Provider using the ElevenLabs TTS API. It is the
// alternative engine a profile can select via tts_engine.
type ElevenLabs struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabs creates an ElevenLabs TTS provider.
func NewElevenLabs(apiKey string) *ElevenLabs {
	return &ElevenLabs{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    elevenLabsBaseURL,
		httpClient: &http.Client{},
	}
}

// NewElevenLabsWithClient creates an ElevenLabs provider with a custom HTTP client.
func NewElevenLabsWithClient(apiKey string, client *http.Client) *ElevenLabs {
	if client == nil {
		client = &http.Client{}
	}
	return &ElevenLabs{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    elevenLabsBaseURL,
		httpClient: client,
	}
}

// WithBaseURL overrides the API endpoint. Used by tests.
func (e *ElevenLabs) WithBaseURL(base string) *ElevenLabs {
	if base != "" {
		e.baseURL = base
	}
	return e
}

// Name returns the provider identifier.
func (e *ElevenLabs) Name() string { return "elevenlabs" }

type elevenLabsRequest struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id"`
	VoiceSettings *elevenLabsTuning  `json:"voice_settings,omitempty"`
}

type elevenLabsTuning struct {
	Speed float64 `json:"speed,omitempty"`
}

// Synthesize renders text to audio.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string, opts Options) (*Synthesis, error) {
	if opts.Voice == "" {
		return nil, fmt.Errorf("elevenlabs synthesize: voice id is required")
	}

	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: "eleven_multilingual_v2",
	}
	if opts.Speed != 0 {
		reqBody.VoiceSettings = &elevenLabsTuning{Speed: opts.Speed}
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", e.baseURL, opts.Voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("elevenlabs error %d: %s", resp.StatusCode, string(msg))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return &Synthesis{Audio: audio, Format: "mp3", SampleRate: opts.SampleRate}, nil
}
