package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

// ChatClient talks to any OpenAI-compatible chat completion API.
type ChatClient struct {
	cli   *openai.Client
	model string
}

// NewGroq creates a client for Groq. An empty baseURL uses GroqBaseURL.
func NewGroq(apiKey, model, baseURL string) *ChatClient {
	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = GroqBaseURL
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return &ChatClient{cli: openai.NewClientWithConfig(clientConfig), model: model}
}

func (c *ChatClient) request(prompt string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.2,
	}
}

// Generate implements Generator.
func (c *ChatClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.cli.CreateChatCompletion(ctx, c.request(prompt))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", wrapFatalError(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GenerateWithSystem implements SystemGenerator.
func (c *ChatClient) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := c.request(userPrompt)
	req.Messages = append([]openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
	}, req.Messages...)

	resp, err := c.cli.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", wrapFatalError(err))
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Stream implements Generator.
func (c *ChatClient) Stream(ctx context.Context, prompt string, onToken func(string) error) (string, error) {
	req := c.request(prompt)
	req.Stream = true

	stream, err := c.cli.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion stream: %w", wrapFatalError(err))
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("receive stream: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		chunk := resp.Choices[0].Delta.Content
		if chunk == "" {
			continue
		}
		full.WriteString(chunk)
		if err := onToken(chunk); err != nil {
			return "", err
		}
	}
	return strings.TrimSpace(full.String()), nil
}

// Model returns the model name.
func (c *ChatClient) Model() string {
	return c.model
}
