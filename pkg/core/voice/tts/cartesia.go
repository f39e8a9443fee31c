package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	cartesiaBaseURL  = "https://api.cartesia.ai"
	cartesiaVersion  = "2025-04-16"
	cartesiaTTSModel = "sonic-3"

	defaultSampleRate = 24000
)

// Cartesia implements Provider using Cartesia's TTS API.
type Cartesia struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewCartesia creates a Cartesia TTS provider.
func NewCartesia(apiKey string) *Cartesia {
	return &Cartesia{
		apiKey:     apiKey,
		baseURL:    cartesiaBaseURL,
		httpClient: &http.Client{},
	}
}

// NewCartesiaWithClient creates a Cartesia TTS provider with a custom HTTP
// client. Used by tests with httptest servers.
func NewCartesiaWithClient(apiKey string, client *http.Client) *Cartesia {
	if client == nil {
		client = &http.Client{}
	}
	return &Cartesia{
		apiKey:     apiKey,
		baseURL:    cartesiaBaseURL,
		httpClient: client,
	}
}

// WithBaseURL overrides the API endpoint. Used by tests.
func (c *Cartesia) WithBaseURL(base string) *Cartesia {
	if base != "" {
		c.baseURL = base
	}
	return c
}

// Name returns the provider identifier.
func (c *Cartesia) Name() string { return "cartesia" }

type cartesiaTTSRequest struct {
	ModelID      string             `json:"model_id"`
	Transcript   string             `json:"transcript"`
	Voice        cartesiaVoiceSpec  `json:"voice"`
	OutputFormat cartesiaFormatSpec `json:"output_format"`
	Language     *string            `json:"language,omitempty"`
	Generation   *cartesiaGenConfig `json:"generation_config,omitempty"`
}

type cartesiaVoiceSpec struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaFormatSpec struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate"`
}

type cartesiaGenConfig struct {
	Speed float64 `json:"speed,omitempty"`
}

// Synthesize renders text to audio.
func (c *Cartesia) Synthesize(ctx context.Context, text string, opts Options) (*Synthesis, error) {
	if opts.Voice == "" {
		return nil, fmt.Errorf("cartesia synthesize: voice id is required")
	}

	format := opts.Format
	if format == "" {
		format = "wav"
	}
	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}

	reqBody := cartesiaTTSRequest{
		ModelID:    cartesiaTTSModel,
		Transcript: text,
		Voice:      cartesiaVoiceSpec{Mode: "id", ID: opts.Voice},
		OutputFormat: cartesiaFormatSpec{
			Container:  format,
			SampleRate: sampleRate,
		},
	}
	if format == "pcm" {
		reqBody.OutputFormat.Container = "raw"
		reqBody.OutputFormat.Encoding = "pcm_s16le"
	}
	if opts.Language != "" {
		reqBody.Language = &opts.Language
	}
	if opts.Speed != 0 {
		reqBody.Generation = &cartesiaGenConfig{Speed: opts.Speed}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cartesia request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return &Synthesis{Audio: []byte{}, Format: format, SampleRate: sampleRate}, nil
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("cartesia error %d: %s", resp.StatusCode, string(msg))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return &Synthesis{Audio: audio, Format: format, SampleRate: sampleRate}, nil
}
