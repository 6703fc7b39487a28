package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pictune/internal/models"
	"github.com/desertthunder/pictune/internal/shared"
	"github.com/sashabaranov/go-openai"
)

// maxImageBytes bounds uploads to what the hosted vision endpoints accept.
const maxImageBytes = 20 << 20

// VisionService implements [Describer] with a multimodal chat model.
type VisionService struct {
	llm *llmClient
}

// NewVisionService creates a describer. Default models are gpt-4o for openai and llava:7b for ollama.
func NewVisionService(s LLMSettings, logger *log.Logger) (*VisionService, error) {
	llm, err := newLLMClient(s, "gpt-4o", "llava:7b", logger)
	if err != nil {
		return nil, err
	}
	return &VisionService{llm: llm}, nil
}

// Model returns provider/model.
func (v *VisionService) Model() string {
	return v.llm.provider + "/" + v.llm.model
}

// Describe sends the photo at imagePath to the model and returns its JSON description.
func (v *VisionService) Describe(ctx context.Context, imagePath string) (models.SceneDescription, error) {
	dataURL, err := imageDataURL(imagePath)
	if err != nil {
		return models.SceneDescription{}, err
	}

	msg := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: describePrompt},
			{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto},
			},
		},
	}

	raw, err := v.llm.completeJSON(ctx, msg)
	if err != nil {
		return models.SceneDescription{}, fmt.Errorf("failed to describe image: %w", err)
	}
	return models.SceneDescription{Raw: raw}, nil
}

// imageDataURL reads an image and encodes it as a base64 data URL.
func imageDataURL(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrValidation, err)
	}
	if info.Size() > maxImageBytes {
		return "", fmt.Errorf("%w: image is %d bytes, limit is %d", shared.ErrValidation, info.Size(), maxImageBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%w: %s is %s, not an image", shared.ErrValidation, path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
