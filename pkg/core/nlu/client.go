// Package nlu wraps the external intent-classification collaborator.
//
// Unlike command handlers, classifier failures are not swallowed: a turn
// cannot be dispatched without a classification, so the error propagates and
// the turn controller aborts the turn.
package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/lyra-voice/lyra/pkg/core"
	"github.com/lyra-voice/lyra/pkg/core/types"
)

// Classifier turns an utterance into an intent classification.
type Classifier interface {
	Classify(ctx context.Context, utterance, language string) (types.Classification, error)
}

// Client is an HTTP classifier client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retries    uint64
	backoff    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetries sets the number of retries for transient (429/5xx) failures.
func WithRetries(n uint64) Option {
	return func(c *Client) { c.retries = n }
}

// NewClient creates a classifier client against baseURL.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retries:    2,
		backoff:    200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type classifyRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type classifyResponse struct {
	TopIntent  string  `json:"topIntent"`
	Confidence float64 `json:"confidence"`
	Entities   []struct {
		Category string `json:"category"`
		Text     string `json:"text"`
	} `json:"entities"`
}

// Classify sends the utterance to the classifier and returns the top intent,
// its confidence and the extracted entity map. Transient upstream failures are
// retried with exponential backoff before the error is surfaced.
func (c *Client) Classify(ctx context.Context, utterance, language string) (types.Classification, error) {
	body, err := json.Marshal(classifyRequest{Text: utterance, Language: language})
	if err != nil {
		return types.Classification{}, fmt.Errorf("marshal classify request: %w", err)
	}

	var out classifyResponse
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create classify request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("classifier request: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			apiErr := core.NewCollaboratorError("classifier", resp.StatusCode, string(msg))
			if apiErr.Retryable() {
				return retry.RetryableError(apiErr)
			}
			return apiErr
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("decode classify response: %w", err)
		}
		return nil
	})
	if err != nil {
		var apiErr *core.Error
		if errors.As(err, &apiErr) {
			return types.Classification{}, apiErr
		}
		return types.Classification{}, err
	}

	cls := types.Classification{
		TopIntent: out.TopIntent,
		Score:     out.Confidence,
		Entities:  make(types.Entities),
	}
	for _, e := range out.Entities {
		cls.Entities[e.Category] = append(cls.Entities[e.Category], e.Text)
	}
	return cls, nil
}
