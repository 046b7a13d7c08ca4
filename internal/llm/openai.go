package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// openAIProvider serves any OpenAI-compatible chat completion API. Groq
// exposes the same wire format, so both providers share this client with a
// different base URL and model.
type openAIProvider struct {
	name  string
	api   *openai.Client
	model string
}

// NewOpenAIProvider creates a provider against the official OpenAI API.
func NewOpenAIProvider(apiKey string) Provider {
	return newOpenAICompatible("openai", "", apiKey, openai.GPT4oMini)
}

// NewGroqProvider creates a provider against Groq's OpenAI-compatible API.
func NewGroqProvider(baseURL, apiKey string) Provider {
	return newOpenAICompatible("groq", baseURL, apiKey, "llama-3.3-70b-versatile")
}

func newOpenAICompatible(name, baseURL, apiKey, model string) Provider {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &openAIProvider{
		name:  name,
		api:   openai.NewClientWithConfig(config),
		model: model,
	}
}

func (p *openAIProvider) Name() string { return p.name }

func (p *openAIProvider) Complete(ctx context.Context, systemMessage, prompt string) (string, error) {
	resp, err := p.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemMessage},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", p.name)
	}
	return resp.Choices[0].Message.Content, nil
}
