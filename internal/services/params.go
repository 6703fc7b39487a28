package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pictune/internal/models"
	"github.com/sashabaranov/go-openai"
)

// ParamsService implements [Converter] with a text chat model.
type ParamsService struct {
	llm *llmClient
}

// NewParamsService creates a converter. Default models are gpt-4o-mini for openai and llama3.2 for ollama.
func NewParamsService(s LLMSettings, logger *log.Logger) (*ParamsService, error) {
	llm, err := newLLMClient(s, "gpt-4o-mini", "llama3.2", logger)
	if err != nil {
		return nil, err
	}
	return &ParamsService{llm: llm}, nil
}

// Model returns provider/model.
func (p *ParamsService) Model() string {
	return p.llm.provider + "/" + p.llm.model
}

// Convert asks the model for search and scoring parameters matching scene.
func (p *ParamsService) Convert(ctx context.Context, scene models.SceneDescription) (models.MusicParams, error) {
	vibe, err := json.MarshalIndent(scene, "", "  ")
	if err != nil {
		return models.MusicParams{}, fmt.Errorf("failed to encode description: %w", err)
	}

	msg := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: paramsPrompt + "\n\n" + string(vibe),
	}

	raw, err := p.llm.completeJSON(ctx, msg)
	if err != nil {
		return models.MusicParams{}, fmt.Errorf("failed to convert description: %w", err)
	}

	var params models.MusicParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return models.MusicParams{}, fmt.Errorf("failed to decode params: %w", err)
	}
	return params.WithDefaults(), nil
}
