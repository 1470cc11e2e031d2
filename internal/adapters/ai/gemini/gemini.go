// Package gemini implements the scene provider on top of the official
// google.golang.org/genai SDK: Imagen for scene generation and a Gemini
// text model with a JSON response schema for scene analysis.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"google.golang.org/genai"

	"github.com/l4yercom/picknbrain/internal/core/domain"
	"github.com/l4yercom/picknbrain/internal/core/ports"
)

type Config struct {
	// APIKey is the Google AI credential. It stays server-side; nothing
	// derived from it is ever returned to game clients.
	APIKey string

	// ImageModel renders scenes (e.g. "imagen-3.0-generate-002").
	ImageModel string

	// TextModel analyzes scenes (e.g. "gemini-2.5-flash").
	TextModel string
}

type Provider struct {
	client *genai.Client
	config Config
}

var _ ports.SceneProvider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "imagen-3.0-generate-002"
	}
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Provider{client: client, config: cfg}, nil
}

// GenerateScene renders one image for the prompt and returns it as base64
// PNG data. Provider failures surface as domain.ErrUpstreamFailure; the
// caller decides whether to retry.
func (p *Provider) GenerateScene(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Models.GenerateImages(ctx, p.config.ImageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return "", fmt.Errorf("%w: image generation: %v", domain.ErrUpstreamFailure, err)
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil || len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return "", fmt.Errorf("%w: no image generated", domain.ErrUpstreamFailure)
	}

	return base64.StdEncoding.EncodeToString(resp.GeneratedImages[0].Image.ImageBytes), nil
}

// analysisResult mirrors the JSON schema forced on the text model.
type analysisResult struct {
	Challenge string `json:"challenge"`
	Solution  string `json:"solution"`
}

// AnalyzeScene asks the text model for a question about the image. The
// response schema pins the output to {challenge, solution}, so a parse
// failure means the provider misbehaved, not the caller.
func (p *Provider) AnalyzeScene(ctx context.Context, sceneData string) (domain.SceneReading, error) {
	imageBytes, err := base64.StdEncoding.DecodeString(sceneData)
	if err != nil {
		return domain.SceneReading{}, fmt.Errorf("%w: scene data is not valid base64", domain.ErrInvalidInput)
	}

	category := questionCategories[rand.IntN(len(questionCategories))]
	prompt := fmt.Sprintf("Observa esta imagen. Genera un objeto JSON con el siguiente esquema. "+
		"La 'challenge' debe ser una pregunta simple sobre %s en la imagen. "+
		"La 'solution' debe ser la respuesta corta y directa a esa pregunta. "+
		"El texto debe estar en español.", category)

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{Text: prompt},
			{InlineData: &genai.Blob{MIMEType: "image/png", Data: imageBytes}},
		},
	}}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"challenge": {Type: genai.TypeString},
				"solution":  {Type: genai.TypeString},
			},
			Required: []string{"challenge", "solution"},
		},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.config.TextModel, contents, config)
	if err != nil {
		return domain.SceneReading{}, fmt.Errorf("%w: scene analysis: %v", domain.ErrUpstreamFailure, err)
	}

	text := responseText(resp)
	if text == "" {
		return domain.SceneReading{}, fmt.Errorf("%w: no content generated", domain.ErrUpstreamFailure)
	}

	var result analysisResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return domain.SceneReading{}, fmt.Errorf("%w: malformed analysis response: %v", domain.ErrUpstreamFailure, err)
	}
	if result.Challenge == "" || result.Solution == "" {
		return domain.SceneReading{}, fmt.Errorf("%w: incomplete analysis response", domain.ErrUpstreamFailure)
	}

	return domain.SceneReading{Question: result.Challenge, Solution: result.Solution}, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			text += part.Text
		}
	}
	return text
}
