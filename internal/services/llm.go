package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pictune/internal/shared"
	"github.com/sashabaranov/go-openai"
)

// Supported model providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const (
	defaultOllamaURL = "http://localhost:11434/v1"
	llmTimeout       = 2 * time.Minute
)

var (
	//go:embed prompts/describe_photo.txt
	describePrompt string

	//go:embed prompts/music_params.txt
	paramsPrompt string

	jsonObject = regexp.MustCompile(`(?s)\{.*\}`)
)

// LLMSettings selects a provider and model for one of the model calls.
type LLMSettings struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// llmClient talks to OpenAI, or to Ollama through its OpenAI-compatible endpoint.
type llmClient struct {
	client   *openai.Client
	provider string
	model    string
	logger   *log.Logger
}

func newLLMClient(s LLMSettings, defaultOpenAI, defaultOllama string, logger *log.Logger) (*llmClient, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	var cfg openai.ClientConfig
	model := s.Model
	switch strings.ToLower(s.Provider) {
	case ProviderOpenAI:
		if s.APIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is required for the openai provider", shared.ErrConfiguration)
		}
		cfg = openai.DefaultConfig(s.APIKey)
		if s.BaseURL != "" {
			cfg.BaseURL = s.BaseURL
		}
		if model == "" {
			model = defaultOpenAI
		}
	case ProviderOllama, "":
		cfg = openai.DefaultConfig("ollama")
		cfg.BaseURL = defaultOllamaURL
		if s.BaseURL != "" {
			cfg.BaseURL = s.BaseURL
		}
		if model == "" {
			model = defaultOllama
		}
	default:
		return nil, fmt.Errorf("%w: unknown provider %q, expected openai or ollama", shared.ErrConfiguration, s.Provider)
	}

	rc := shared.NewRetryClient(logger, 2)
	rc.HTTPClient.Timeout = llmTimeout
	cfg.HTTPClient = rc.StandardClient()

	provider := strings.ToLower(s.Provider)
	if provider == "" {
		provider = ProviderOllama
	}
	return &llmClient{
		client:   openai.NewClientWithConfig(cfg),
		provider: provider,
		model:    model,
		logger:   logger,
	}, nil
}

// completeJSON sends one user message and returns the JSON object found in the reply.
func (c *llmClient) completeJSON(ctx context.Context, msg openai.ChatCompletionMessage) ([]byte, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: []openai.ChatCompletionMessage{msg},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, mapLLMError(c.provider, err)
	}
	c.logger.Debug("model call", "provider", c.provider, "model", c.model, "elapsed", time.Since(start))

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", c.provider)
	}
	return extractJSON(resp.Choices[0].Message.Content)
}

// extractJSON pulls the outermost JSON object out of model output that may carry prose or code fences.
func extractJSON(content string) ([]byte, error) {
	match := jsonObject.FindString(strings.TrimSpace(content))
	if match == "" {
		return nil, fmt.Errorf("%w: model reply contained no JSON object", shared.ErrValidation)
	}
	if !json.Valid([]byte(match)) {
		return nil, fmt.Errorf("%w: model reply contained malformed JSON", shared.ErrValidation)
	}
	return []byte(match), nil
}

func mapLLMError(provider string, err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s: %w", shared.ErrRateLimited, provider, err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s: %w", shared.ErrInvalidCredentials, provider, err)
	case status >= 400 && status < 500:
		return fmt.Errorf("%s request rejected: %w", provider, err)
	default:
		return fmt.Errorf("%w: %s: %w", shared.ErrProviderUnavailable, provider, err)
	}
}
