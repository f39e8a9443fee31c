// Package translate wraps the external translation collaborator.
//
// Translation is cosmetic for the pipeline: a failed translation must never
// break a turn, so Translate degrades to an apology string embedding the
// original text instead of returning an error.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Translator converts text between languages.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) string
	Supported(language string) bool
}

// supportedLanguages is the fixed set the pipeline will translate into. A
// request outside it is refused by the change-language handlers before any
// state is mutated.
var supportedLanguages = map[string]string{
	"en": "English",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
	"it": "Italian",
	"pt": "Portuguese",
	"nl": "Dutch",
	"pl": "Polish",
	"ru": "Russian",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
	"hi": "Hindi",
	"ar": "Arabic",
	"tr": "Turkish",
}

// LanguageName returns the display name for a supported language code.
func LanguageName(code string) (string, bool) {
	name, ok := supportedLanguages[code]
	return name, ok
}

// LanguageCode resolves a spoken language reference ("French", "fr") to its
// code. The match is case-insensitive.
func LanguageCode(ref string) (string, bool) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if _, ok := supportedLanguages[ref]; ok {
		return ref, true
	}
	for code, name := range supportedLanguages {
		if strings.ToLower(name) == ref {
			return code, true
		}
	}
	return "", false
}

// Client is an HTTP translator client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a translator client against baseURL.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Supported reports whether the pipeline can translate into language.
func (c *Client) Supported(language string) bool {
	_, ok := supportedLanguages[language]
	return ok
}

type translateRequest struct {
	Text string `json:"text"`
	From string `json:"from"`
	To   string `json:"to"`
}

type translateResponse struct {
	Text string `json:"text"`
}

// Translate converts text from one language to another. Any failure returns
// the apology line with the original text embedded.
func (c *Client) Translate(ctx context.Context, text, from, to string) string {
	if from == to || text == "" {
		return text
	}
	translated, err := c.translate(ctx, text, from, to)
	if err != nil {
		c.logger.Warn().Err(err).Str("from", from).Str("to", to).Msg("translation failed")
		return apology(text)
	}
	return translated
}

func (c *Client) translate(ctx context.Context, text, from, to string) (string, error) {
	body, err := json.Marshal(translateRequest{Text: text, From: from, To: to})
	if err != nil {
		return "", fmt.Errorf("marshal translate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create translate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("translator request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translator error %d", resp.StatusCode)
	}
	var out translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}
	if out.Text == "" {
		return "", fmt.Errorf("translator returned empty text")
	}
	return out.Text, nil
}

func apology(original string) string {
	return "Sorry, I could not translate that. The original message was: " + original
}
