package llm

import (
	openai "github.com/sashabaranov/go-openai"
)

// DefaultSystemPrompt frames every generation request.
const DefaultSystemPrompt = "Eres un asistente experto en documentación técnica."

// ChatParams holds parameters for chat completion requests.
type ChatParams struct {
	// MaxTokens specifies the maximum number of tokens to generate.
	// If 0, no limit is applied.
	MaxTokens int

	// Temperature controls the randomness of the output.
	Temperature float32
}

// DefaultChatParams returns conservative generation settings for grounded answers.
func DefaultChatParams() ChatParams {
	return ChatParams{
		MaxTokens:   800,
		Temperature: 0.2,
	}
}

// newOpenAIClient builds a go-openai client, overriding the base URL when set.
func newOpenAIClient(baseURL, apiKey string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}
