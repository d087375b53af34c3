package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"docqa-ai/internal/contextutil"
)

// Client generates text through an OpenAI-compatible chat completions API.
type Client struct {
	Model        string
	SystemPrompt string
	Params       ChatParams
	client       *openai.Client
}

// NewClient creates a new LLM client. An empty baseURL targets the public OpenAI API.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		Model:        model,
		SystemPrompt: DefaultSystemPrompt,
		Params:       DefaultChatParams(),
		client:       newOpenAIClient(baseURL, apiKey),
	}
}

// Generate sends prompt as the user turn and returns the assistant reply.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if c.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: c.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.Model,
		Messages:    messages,
		MaxTokens:   c.Params.MaxTokens,
		Temperature: c.Params.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llm chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	logger.DebugContext(ctx, "llm generation completed",
		"model", c.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Ping verifies the API is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("llm service unreachable: %w", err)
	}
	return nil
}
