package inference

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Answer synthesis wants mostly deterministic output.
const chatTemperature = 0.2

// Chat runs single-shot completions against the inference endpoint.
type Chat struct {
	client  openai.Client
	modelID string
}

// NewChat builds a Chat client against baseURL.
func NewChat(baseURL, apiKey, modelID string) *Chat {
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)
	return &Chat{client: client, modelID: modelID}
}

// ModelID reports the configured chat model.
func (c *Chat) ModelID() string { return c.modelID }

// Complete sends one system + user exchange and returns the first choice.
func (c *Chat) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       c.modelID,
		Temperature: openai.Opt(chatTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("inference: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("inference: chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
