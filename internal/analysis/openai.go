package analysis

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIAnalyzer summarizes reports with an OpenAI chat model.
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnalyzer creates an analyzer for model.
func NewOpenAIAnalyzer(apiKey, model string) *OpenAIAnalyzer {
	return &OpenAIAnalyzer{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// NewOpenAIAnalyzerWithConfig allows a custom endpoint, e.g. an
// OpenAI-compatible proxy.
func NewOpenAIAnalyzerWithConfig(cfg openai.ClientConfig, model string) *OpenAIAnalyzer {
	return &OpenAIAnalyzer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Name implements Analyzer.
func (a *OpenAIAnalyzer) Name() string { return "openai" }

// Analyze implements Analyzer.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, symbol, text string) (Summary, error) {
	reply, err := a.completeWithSystem(ctx, systemPrompt, userPrompt(symbol, text))
	if err != nil {
		return Summary{}, err
	}
	return ParseSummary(reply)
}

func (a *OpenAIAnalyzer) completeWithSystem(ctx context.Context, system, user string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}
	return resp.Choices[0].Message.Content, nil
}
