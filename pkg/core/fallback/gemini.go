package fallback

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/lyra-voice/lyra/pkg/core/types"
)

const (
	defaultModel     = "gemini-2.0-flash"
	defaultMaxTokens = 256
)

// GeminiCompleter implements Completer on the Gemini API.
type GeminiCompleter struct {
	client    *genai.Client
	maxTokens int32
}

// GeminiOption configures a GeminiCompleter.
type GeminiOption func(*GeminiCompleter)

// WithMaxTokens bounds the completion length. Responses are spoken aloud, so
// the default is deliberately small.
func WithMaxTokens(n int32) GeminiOption {
	return func(g *GeminiCompleter) { g.maxTokens = n }
}

// NewGeminiCompleter creates a completer backed by the Gemini API.
func NewGeminiCompleter(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g := &GeminiCompleter{client: client, maxTokens: defaultMaxTokens}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Complete requests one completion, feeding prior turns as alternating
// user/model messages.
func (g *GeminiCompleter) Complete(ctx context.Context, model, system string, turns []types.Turn, utterance string) (string, error) {
	if model == "" {
		model = defaultModel
	}

	contents := make([]*genai.Content, 0, 2*len(turns)+1)
	for _, turn := range turns {
		if turn.Utterance != "" {
			contents = append(contents, genai.NewContentFromText(turn.Utterance, genai.RoleUser))
		}
		if turn.Response != "" {
			contents = append(contents, genai.NewContentFromText(turn.Response, genai.RoleModel))
		}
	}
	contents = append(contents, genai.NewContentFromText(utterance, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: g.maxTokens,
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini completion: empty response")
	}
	return text, nil
}
