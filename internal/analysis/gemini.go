package analysis

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiAnalyzer summarizes reports with a Gemini model.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
}

// NewGeminiAnalyzer creates an analyzer for model.
func NewGeminiAnalyzer(ctx context.Context, apiKey, model string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client, model: model}, nil
}

// Name implements Analyzer.
func (a *GeminiAnalyzer) Name() string { return "gemini" }

// Analyze implements Analyzer.
func (a *GeminiAnalyzer) Analyze(ctx context.Context, symbol, text string) (Summary, error) {
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(float32(0.3)),
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, []*genai.Content{
		genai.NewContentFromText(userPrompt(symbol, text), genai.RoleUser),
	}, config)
	if err != nil {
		return Summary{}, fmt.Errorf("gemini generation failed (model: %s): %w", a.model, err)
	}

	reply := resp.Text()
	if reply == "" {
		return Summary{}, fmt.Errorf("no response from gemini")
	}
	return ParseSummary(reply)
}
