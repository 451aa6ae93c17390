package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries process-level settings sourced from the environment.
// Pipeline scoring policy (weights, thresholds, heuristics) lives in a
// separate YAML file so editors can tune it without a rebuild; see policy.go.
type Config struct {
	// External service credentials
	PlacesAPIKey string
	OpenAIAPIKey string

	// Model selection
	OpenAIModel       string
	EmbeddingModel    string
	OpenAITemperature float64
	OpenAIMaxTokens   int

	// HTTP surface
	Port string

	// Engine sizing
	WorkerCount int
	QueueSize   int

	// Per-stage retry policy
	MappingMaxRetries   int
	InferenceMaxRetries int
	RetryBackoff        time.Duration

	// Per-stage timeout ceilings
	MappingTimeout   time.Duration
	InferenceTimeout time.Duration
	EmbeddingTimeout time.Duration

	// Dedup
	DuplicateThreshold float64
	DuplicateTopK      int

	// Rate limits for external calls
	ProviderRPS   int
	ProviderBurst int
	ModelRPS      int
	ModelBurst    int

	// Scoring policy file; empty = built-in defaults
	PolicyFile string

	// Persistence collaborator; empty = keep terminal runs in memory only
	DatabaseURL string

	// Logging
	LogLevel  string
	LogFormat string // "json" or "text"
}

// Load reads configuration from the environment with sensible defaults.
func Load() *Config {
	workerCount, _ := strconv.Atoi(getEnv("WORKER_COUNT", "8"))
	queueSize, _ := strconv.Atoi(getEnv("QUEUE_SIZE", "500"))

	mappingRetries, _ := strconv.Atoi(getEnv("MAPPING_MAX_RETRIES", "2"))
	inferenceRetries, _ := strconv.Atoi(getEnv("INFERENCE_MAX_RETRIES", "2"))
	retryBackoff, _ := time.ParseDuration(getEnv("RETRY_BACKOFF", "2s"))

	mappingTO, _ := time.ParseDuration(getEnv("MAPPING_TIMEOUT", "15s"))
	inferenceTO, _ := time.ParseDuration(getEnv("INFERENCE_TIMEOUT", "45s"))
	embeddingTO, _ := time.ParseDuration(getEnv("EMBEDDING_TIMEOUT", "10s"))

	dupThreshold, _ := strconv.ParseFloat(getEnv("DUPLICATE_THRESHOLD", "0.92"), 64)
	dupTopK, _ := strconv.Atoi(getEnv("DUPLICATE_TOP_K", "5"))

	providerRPS, _ := strconv.Atoi(getEnv("PROVIDER_RPS", "15"))
	providerBurst, _ := strconv.Atoi(getEnv("PROVIDER_BURST", "30"))
	modelRPS, _ := strconv.Atoi(getEnv("MODEL_RPS", "8"))
	modelBurst, _ := strconv.Atoi(getEnv("MODEL_BURST", "15"))

	temp, _ := strconv.ParseFloat(getEnv("OPENAI_TEMPERATURE", "0.1"), 64)
	maxTokens, _ := strconv.Atoi(getEnv("OPENAI_MAX_TOKENS", "400"))

	return &Config{
		PlacesAPIKey: getEnv("PLACES_API_KEY", ""),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),

		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		OpenAITemperature: temp,
		OpenAIMaxTokens:   maxTokens,

		Port: getEnv("PORT", "8080"),

		WorkerCount: workerCount,
		QueueSize:   queueSize,

		MappingMaxRetries:   mappingRetries,
		InferenceMaxRetries: inferenceRetries,
		RetryBackoff:        retryBackoff,

		MappingTimeout:   mappingTO,
		InferenceTimeout: inferenceTO,
		EmbeddingTimeout: embeddingTO,

		DuplicateThreshold: dupThreshold,
		DuplicateTopK:      dupTopK,

		ProviderRPS:   providerRPS,
		ProviderBurst: providerBurst,
		ModelRPS:      modelRPS,
		ModelBurst:    modelBurst,

		PolicyFile:  getEnv("SCORING_POLICY_FILE", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
