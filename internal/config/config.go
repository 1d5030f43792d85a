package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names for answer generation and embeddings.
const (
	ProviderNone      = "none"
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderGroq      = "groq"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderBedrock   = "bedrock"
)

// Storage backends.
const (
	StorageSurrealDB = "surrealdb"
	StorageMemory    = "memory"
)

// Config holds all configuration values.
type Config struct {
	// Storage selects where videos and segments live: "surrealdb", or "memory"
	// for a process-local library that is lost on exit.
	Storage string `yaml:"storage" validate:"oneof=surrealdb memory"`

	// SurrealDB connection
	SurrealDBURL       string `yaml:"surrealdb_url" validate:"required"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace" validate:"required"`
	SurrealDBDatabase  string `yaml:"surrealdb_database" validate:"required"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"surrealdb_pass"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level" validate:"oneof=root database"`

	// Answer generation
	LLMProvider     string `yaml:"llm_provider" validate:"oneof=none gemini openai groq anthropic ollama bedrock"`
	LLMModel        string `yaml:"llm_model"`
	GeminiAPIKey    string `yaml:"-"`
	OpenAIAPIKey    string `yaml:"-"`
	GroqAPIKey      string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
	OllamaHost      string `yaml:"ollama_host" validate:"omitempty,url"`
	AWSRegion       string `yaml:"aws_region"`

	// Embeddings. An empty provider falls back to full-text search.
	EmbedProvider  string `yaml:"embed_provider" validate:"omitempty,oneof=ollama openai"`
	EmbedModel     string `yaml:"embed_model"`
	EmbedDimension int    `yaml:"embed_dimension" validate:"min=1"`

	// Retrieval
	Collection             string        `yaml:"collection" validate:"required"`
	TopK                   int           `yaml:"top_k" validate:"min=1,max=10"`
	ScoreScale             float64       `yaml:"score_scale" validate:"gt=0"`
	PreviewChars           int           `yaml:"preview_chars" validate:"min=1"`
	TranscriptPreviewChars int           `yaml:"transcript_preview_chars" validate:"min=1"`
	IndexTimeout           time.Duration `yaml:"index_timeout" validate:"gt=0"`
	ProviderTimeout        time.Duration `yaml:"provider_timeout" validate:"gt=0"`
	ReelConcurrency        int           `yaml:"reel_concurrency" validate:"min=1"`

	// Stream stitching. Empty disables stitched reels.
	StitchURL     string        `yaml:"stitch_url" validate:"omitempty,url"`
	StitchTimeout time.Duration `yaml:"stitch_timeout" validate:"gt=0"`

	// Sessions. Empty RedisAddr keeps sessions in memory.
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"-"`
	RedisDB       int           `yaml:"redis_db" validate:"min=0"`
	SessionTTL    time.Duration `yaml:"session_ttl" validate:"gt=0"`

	// Server
	ServerPort string `yaml:"server_port" validate:"required,numeric"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`

	// Strict makes contract violations in merged timelines fail instead of being dropped.
	Strict bool `yaml:"strict"`
}

// fileConfig carries YAML-only fields that need parsing.
type fileConfig struct {
	LogLevel string `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Storage: StorageSurrealDB,

		SurrealDBURL:       "ws://localhost:8000/rpc",
		SurrealDBNamespace: "videorag",
		SurrealDBDatabase:  "library",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",
		SurrealDBAuthLevel: "root",

		LLMProvider: ProviderNone,
		OllamaHost:  "http://localhost:11434",
		AWSRegion:   "us-east-1",

		EmbedDimension: 384,

		Collection:             "educational_videos",
		TopK:                   5,
		ScoreScale:             100,
		PreviewChars:           220,
		TranscriptPreviewChars: 5000,
		IndexTimeout:           5 * time.Second,
		ProviderTimeout:        20 * time.Second,
		ReelConcurrency:        4,

		StitchTimeout: 30 * time.Second,

		SessionTTL: 24 * time.Hour,

		ServerPort: "8080",

		LogFile:  "/tmp/videorag.log",
		LogLevel: slog.LevelInfo,
	}
}

// Load reads configuration from a .env file (if present) and environment variables.
func Load() Config {
	loadDotEnv()
	cfg := Defaults()
	applyEnv(&cfg)
	return cfg
}

// LoadFile overlays a YAML file on the defaults. Environment variables still win.
func LoadFile(path string) (Config, error) {
	loadDotEnv()
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	var extra fileConfig
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	if extra.LogLevel != "" {
		cfg.LogLevel = parseLogLevel(extra.LogLevel)
	}

	applyEnv(&cfg)
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and provider credentials.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.EmbedProvider != "" && c.EmbedModel == "" {
		return fmt.Errorf("invalid config: embed model required for provider %s", c.EmbedProvider)
	}
	return nil
}

// APIKey returns the credential configured for a provider, if it needs one.
func (c Config) APIKey(provider string) string {
	switch provider {
	case ProviderGemini:
		return c.GeminiAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderGroq:
		return c.GroqAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	default:
		return ""
	}
}

func loadDotEnv() {
	// A missing .env is normal; only report files that exist but fail to parse.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}
}

func applyEnv(cfg *Config) {
	cfg.Storage = strings.ToLower(getEnv("VIDEORAG_STORAGE", cfg.Storage))

	// SurrealDB
	cfg.SurrealDBURL = getEnv("SURREALDB_URL", cfg.SurrealDBURL)
	cfg.SurrealDBNamespace = getEnv("SURREALDB_NAMESPACE", cfg.SurrealDBNamespace)
	cfg.SurrealDBDatabase = getEnv("SURREALDB_DATABASE", cfg.SurrealDBDatabase)
	cfg.SurrealDBUser = getEnv("SURREALDB_USER", cfg.SurrealDBUser)
	cfg.SurrealDBPass = getEnv("SURREALDB_PASS", cfg.SurrealDBPass)
	cfg.SurrealDBAuthLevel = getEnv("SURREALDB_AUTH_LEVEL", cfg.SurrealDBAuthLevel)

	// Providers
	cfg.LLMProvider = strings.ToLower(getEnv("VIDEORAG_LLM_PROVIDER", cfg.LLMProvider))
	cfg.LLMModel = getEnv("VIDEORAG_LLM_MODEL", cfg.LLMModel)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.GroqAPIKey = getEnv("GROQ_API_KEY", cfg.GroqAPIKey)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)
	cfg.AWSRegion = getEnv("AWS_REGION", cfg.AWSRegion)

	// Embeddings
	cfg.EmbedProvider = strings.ToLower(getEnv("VIDEORAG_EMBED_PROVIDER", cfg.EmbedProvider))
	cfg.EmbedModel = getEnv("VIDEORAG_EMBED_MODEL", cfg.EmbedModel)
	cfg.EmbedDimension = getEnvInt("VIDEORAG_EMBED_DIMENSION", cfg.EmbedDimension)

	// Retrieval
	cfg.Collection = getEnv("VIDEORAG_COLLECTION", cfg.Collection)
	cfg.TopK = getEnvInt("VIDEORAG_TOP_K", cfg.TopK)
	cfg.ScoreScale = getEnvFloat("VIDEORAG_SCORE_SCALE", cfg.ScoreScale)
	cfg.PreviewChars = getEnvInt("VIDEORAG_PREVIEW_CHARS", cfg.PreviewChars)
	cfg.TranscriptPreviewChars = getEnvInt("VIDEORAG_TRANSCRIPT_PREVIEW_CHARS", cfg.TranscriptPreviewChars)
	cfg.IndexTimeout = getEnvDuration("VIDEORAG_INDEX_TIMEOUT", cfg.IndexTimeout)
	cfg.ProviderTimeout = getEnvDuration("VIDEORAG_PROVIDER_TIMEOUT", cfg.ProviderTimeout)
	cfg.ReelConcurrency = getEnvInt("VIDEORAG_REEL_CONCURRENCY", cfg.ReelConcurrency)

	// Stitching
	cfg.StitchURL = getEnv("VIDEORAG_STITCH_URL", cfg.StitchURL)
	cfg.StitchTimeout = getEnvDuration("VIDEORAG_STITCH_TIMEOUT", cfg.StitchTimeout)

	// Sessions
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvInt("REDIS_DB", cfg.RedisDB)
	cfg.SessionTTL = getEnvDuration("VIDEORAG_SESSION_TTL", cfg.SessionTTL)

	// Server
	cfg.ServerPort = getEnv("VIDEORAG_SERVER_PORT", cfg.ServerPort)

	// Logging
	cfg.LogFile = getEnv("VIDEORAG_LOG_FILE", cfg.LogFile)
	if lvl := os.Getenv("VIDEORAG_LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = parseLogLevel(lvl)
	}

	cfg.Strict = getEnv("VIDEORAG_STRICT", strconv.FormatBool(cfg.Strict)) == "true"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
		slog.Warn("ignoring invalid integer", "key", key, "value", val)
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		slog.Warn("ignoring invalid number", "key", key, "value", val)
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		slog.Warn("ignoring invalid duration", "key", key, "value", val)
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
