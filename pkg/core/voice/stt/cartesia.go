package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	cartesiaBaseURL   = "https://api.cartesia.ai"
	cartesiaWSSTTURL  = "wss://api.cartesia.ai/stt/websocket"
	cartesiaVersion   = "2025-04-16"
	cartesiaSTTModel  = "ink-whisper"
	defaultSampleRate = 16000
)

// cartesiaEndpointSilence is how long Cartesia waits on silence before
// finalizing an utterance. The recognizer relies on this endpointing to decide
// when the user has stopped talking.
const cartesiaEndpointSilence = 1.2

// Cartesia implements Provider using Cartesia's STT API.
type Cartesia struct {
	apiKey     string
	httpClient *http.Client
	wsURL      string
}

// NewCartesia creates a Cartesia STT provider.
func NewCartesia(apiKey string) *Cartesia {
	return &Cartesia{
		apiKey:     apiKey,
		httpClient: &http.Client{},
		wsURL:      cartesiaWSSTTURL,
	}
}

// NewCartesiaWithClient creates a Cartesia STT provider with a custom HTTP client.
func NewCartesiaWithClient(apiKey string, client *http.Client) *Cartesia {
	if client == nil {
		client = &http.Client{}
	}
	return &Cartesia{
		apiKey:     apiKey,
		httpClient: client,
		wsURL:      cartesiaWSSTTURL,
	}
}

// WithWSURL overrides the websocket endpoint. Used by tests.
func (c *Cartesia) WithWSURL(u string) *Cartesia {
	if u != "" {
		c.wsURL = u
	}
	return c
}

// Name returns the provider identifier.
func (c *Cartesia) Name() string { return "cartesia" }

// Transcribe converts a complete recording to text via the batch endpoint.
func (c *Cartesia) Transcribe(ctx context.Context, audio io.Reader, opts Options) (*Transcript, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return nil, fmt.Errorf("copy audio: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = cartesiaSTTModel
	}
	if err := mw.WriteField("model", model); err != nil {
		return nil, fmt.Errorf("write model field: %w", err)
	}
	if opts.Language != "" {
		if err := mw.WriteField("language", opts.Language); err != nil {
			return nil, fmt.Errorf("write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cartesiaBaseURL+"/stt", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Cartesia-Version", cartesiaVersion)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cartesia request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("cartesia error %d: %s", resp.StatusCode, string(body))
	}

	var out struct {
		Text     string   `json:"text"`
		Language *string  `json:"language,omitempty"`
		Duration *float64 `json:"duration,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	t := &Transcript{Text: out.Text}
	if out.Language != nil {
		t.Language = *out.Language
	}
	if out.Duration != nil {
		t.Duration = *out.Duration
	}
	return t, nil
}

// OpenStream starts a live transcription session over a websocket. Cartesia
// endpoints utterances on silence and marks the closing delta as final.
func (c *Cartesia) OpenStream(ctx context.Context, opts Options) (*Stream, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("parse websocket URL: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = cartesiaSTTModel
	}
	language := opts.Language
	if language == "" {
		language = "en"
	}
	encoding := opts.Format
	if encoding == "" {
		encoding = "pcm_s16le"
	}
	sampleRate := opts.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}

	q := u.Query()
	q.Set("model", model)
	q.Set("language", language)
	q.Set("encoding", encoding)
	q.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	q.Set("max_silence_duration_secs", fmt.Sprintf("%.1f", cartesiaEndpointSilence))
	q.Set("min_volume", "0.01")
	u.RawQuery = q.Encode()

	headers := http.Header{}
	headers.Set("X-API-Key", c.apiKey)
	headers.Set("Cartesia-Version", cartesiaVersion)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), headers)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			if len(body) > 0 {
				return nil, fmt.Errorf("websocket connect (status %d): %s", resp.StatusCode, string(body))
			}
		}
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	stream := NewStream()
	var closed atomic.Bool
	var writeMu sync.Mutex

	stream.SendFunc = func(audio []byte) error {
		if closed.Load() {
			return fmt.Errorf("stt session closed")
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(websocket.BinaryMessage, audio)
	}
	stream.FinalizeFunc = func() error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteMessage(websocket.TextMessage, []byte("finalize"))
	}
	stream.CloseFunc = func() error {
		closed.Store(true)
		return conn.Close()
	}

	go func() {
		defer stream.Finish()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg cartesiaSTTMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			switch msg.Type {
			case "transcript":
				if !stream.Emit(Delta{Text: msg.Text, Final: msg.IsFinal}) {
					return
				}
			case "flush_done":
				continue
			case "done", "error":
				return
			}
		}
	}()

	return stream, nil
}

type cartesiaSTTMessage struct {
	Type    string `json:"type"` // transcript, flush_done, done, error
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
	Error   string `json:"error"`
}
