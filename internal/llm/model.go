package llm

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/raphaelgruber/videorag-go/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Generator is a single answer-generation backend.
type Generator interface {
	// Generate returns the full answer for prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// Stream calls onToken for each chunk as it arrives and returns the full answer.
	Stream(ctx context.Context, prompt string, onToken func(string) error) (string, error)
}

// SystemGenerator is a Generator that takes instructions as a separate system
// message.
type SystemGenerator interface {
	Generator
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// defaultModels is used when no model is configured for a provider.
var defaultModels = map[string]string{
	config.ProviderGemini:    "gemini-1.5-flash",
	config.ProviderOpenAI:    "gpt-4o-mini",
	config.ProviderGroq:      "llama-3.1-8b-instant",
	config.ProviderAnthropic: "claude-3-5-haiku-latest",
	config.ProviderOllama:    "llama3.2",
	config.ProviderBedrock:   "anthropic.claude-3-haiku-20240307-v1:0",
}

// ModelName returns the configured model for provider or its default.
func ModelName(cfg config.Config, provider string) string {
	if cfg.LLMModel != "" && cfg.LLMProvider == provider {
		return cfg.LLMModel
	}
	return defaultModels[provider]
}

// Model wraps a langchaingo LLM for text generation.
type Model struct {
	llm       llms.Model
	modelName string
}

// NewModel wraps an existing langchaingo model.
func NewModel(llm llms.Model, modelName string) *Model {
	return &Model{llm: llm, modelName: modelName}
}

// NewGenerator creates the backend for provider. Providers that need credentials
// return ErrNotConfigured when none are set.
func NewGenerator(ctx context.Context, cfg config.Config, provider string) (Generator, error) {
	modelName := ModelName(cfg, provider)

	var model llms.Model
	var err error

	switch provider {
	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: gemini API key", ErrNotConfigured)
		}
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(cfg.GeminiAPIKey),
			googleai.WithDefaultModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create gemini model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OpenAI API key", ErrNotConfigured)
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("%w: Groq API key", ErrNotConfigured)
		}
		return NewGroq(cfg.GroqAPIKey, modelName, ""), nil

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: Anthropic API key", ErrNotConfigured)
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(modelName),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderBedrock:
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if awsErr != nil {
			return nil, fmt.Errorf("%w: load AWS config: %v", ErrNotConfigured, awsErr)
		}
		model, err = bedrock.New(
			bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
			bedrock.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	case config.ProviderNone, "":
		return nil, fmt.Errorf("%w: AI is off", ErrNotConfigured)

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	return NewModel(model, modelName), nil
}

// Generate generates text based on a prompt.
func (m *Model) Generate(ctx context.Context, prompt string) (string, error) {
	response, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", wrapFatalError(err))
	}
	return strings.TrimSpace(response), nil
}

// GenerateWithSystem generates text with a system prompt.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := m.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate with system: %w", wrapFatalError(err))
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}

// Stream generates text, forwarding chunks to onToken as they arrive.
func (m *Model) Stream(ctx context.Context, prompt string, onToken func(string) error) (string, error) {
	var full strings.Builder
	_, err := llms.GenerateFromSinglePrompt(ctx, m.llm, prompt,
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			full.Write(chunk)
			return onToken(string(chunk))
		}),
	)
	if err != nil {
		return "", fmt.Errorf("stream: %w", wrapFatalError(err))
	}
	return strings.TrimSpace(full.String()), nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}
