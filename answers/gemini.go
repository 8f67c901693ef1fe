package answers

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// GeminiGenerator answers application questions with a Gemini model
type GeminiGenerator struct {
	client llms.Model
	logger *logrus.Logger
}

// NewGeminiGenerator initializes the Gemini client
func NewGeminiGenerator(ctx context.Context, apiKey, model string, logger *logrus.Logger) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiGenerator{client: llm, logger: logger}, nil
}

// Generate sends the rendered prompt to the model and returns its answer
func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	prompt, err := RenderPrompt(req)
	if err != nil {
		return Response{}, err
	}

	answer, err := llms.GenerateFromSinglePrompt(ctx, g.client, prompt)
	if err != nil {
		return Response{}, fmt.Errorf("gemini generation failed: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"question": req.Question,
		"length":   len(answer),
	}).Debug("Generated answer")

	return Response{Text: answer}, nil
}
