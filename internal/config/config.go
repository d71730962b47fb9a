package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the MoneyEZ AI service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Backend   BackendConfig   `yaml:"backend"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Agent     AgentConfig     `yaml:"agent"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds the shared secret expected in X-External-Secret.
type AuthConfig struct {
	ExternalSecret string `yaml:"external_secret"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	IdleTimeoutSec  int `yaml:"idle_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// GeminiConfig holds Google Gemini model settings.
type GeminiConfig struct {
	APIKey          string  `yaml:"api_key"`
	ChatModel       string  `yaml:"chat_model"`
	ClassifierModel string  `yaml:"classifier_model"`
	EmbeddingModel  string  `yaml:"embedding_model"`
	Temperature     float32 `yaml:"temperature"`
	MaxRetries      int     `yaml:"max_retries"`
	RateLimitRPS    float64 `yaml:"rate_limit_rps"` // 0 = unlimited
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
}

// EmbeddingConfig selects the embedding provider and cache.
type EmbeddingConfig struct {
	Provider   string       `yaml:"provider"` // gemini (default), openai
	Dimensions int          `yaml:"dimensions"`
	Cache      CacheConfig  `yaml:"cache"`
	OpenAI     OpenAIConfig `yaml:"openai"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Driver      string   `yaml:"driver"` // memory (default), redis
	Addrs       []string `yaml:"addrs"`
	Password    string   `yaml:"password"`
	TTLSec      int      `yaml:"ttl_sec"` // 0 = no expiry
	KeyPrefix   string   `yaml:"key_prefix"`
	MaxMemoryMB int      `yaml:"max_memory_mb"` // memory driver only
}

// OpenAIConfig holds settings for the alternative OpenAI embedding provider.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// StoreConfig holds embedded vector store settings.
type StoreConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	APIKey     string `yaml:"api_key"` // reserved for a remote vector backend
	GCSchedule string `yaml:"gc_schedule"`
}

// BackendConfig holds MoneyEZ backend (external-services API) settings.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	ExternalSecret string `yaml:"external_secret"`
	TimeoutSec     int    `yaml:"timeout_sec"`
}

// RetrievalConfig holds knowledge-base retrieval settings.
type RetrievalConfig struct {
	TopK         int `yaml:"top_k"`
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// AgentConfig holds agent loop settings.
type AgentConfig struct {
	MaxToolRounds int    `yaml:"max_tool_rounds"`
	SystemPrompt  string `yaml:"system_prompt"` // empty = built-in default
}

// Load reads configuration from a YAML file by environment name (local, dev, production).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8888
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	// Model calls can take minutes when tools round-trip through the backend.
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.IdleTimeoutSec <= 0 {
		c.HTTP.IdleTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 30
	}
	if c.Gemini.ChatModel == "" {
		c.Gemini.ChatModel = "gemini-2.0-flash"
	}
	if c.Gemini.ClassifierModel == "" {
		c.Gemini.ClassifierModel = "gemini-1.5-flash"
	}
	if c.Gemini.EmbeddingModel == "" {
		c.Gemini.EmbeddingModel = "text-embedding-004"
	}
	if c.Gemini.MaxRetries <= 0 {
		c.Gemini.MaxRetries = 3
	}
	if c.Gemini.RateLimitBurst <= 0 {
		c.Gemini.RateLimitBurst = 1
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "gemini"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 768
	}
	if c.Embedding.Cache.Driver == "" {
		c.Embedding.Cache.Driver = "memory"
	}
	if c.Embedding.Cache.KeyPrefix == "" {
		c.Embedding.Cache.KeyPrefix = "moneyez:emb:"
	}
	if c.Embedding.Cache.MaxMemoryMB <= 0 {
		c.Embedding.Cache.MaxMemoryMB = 256
	}
	if c.Embedding.OpenAI.Model == "" {
		c.Embedding.OpenAI.Model = "text-embedding-3-small"
	}
	if c.Store.Path == "" {
		c.Store.Path = os.Getenv("QDRANT_PATH")
	}
	if c.Store.Path == "" {
		c.Store.Path = "./qdrant_data"
	}
	if c.Store.Collection == "" {
		c.Store.Collection = "knowledge_base"
	}
	if c.Store.GCSchedule == "" {
		c.Store.GCSchedule = "0 3 * * *"
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "https://easymoney.anttravel.online/api/v1"
	}
	if c.Backend.ExternalSecret == "" {
		c.Backend.ExternalSecret = c.Auth.ExternalSecret
	}
	if c.Backend.TimeoutSec <= 0 {
		c.Backend.TimeoutSec = 30
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 3
	}
	if c.Retrieval.ChunkSize <= 0 {
		c.Retrieval.ChunkSize = 1000
	}
	if c.Retrieval.ChunkOverlap <= 0 {
		c.Retrieval.ChunkOverlap = 100
	}
	if c.Agent.MaxToolRounds <= 0 {
		c.Agent.MaxToolRounds = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Auth.ExternalSecret == "" {
		return fmt.Errorf("auth.external_secret is required")
	}
	switch c.Embedding.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("embedding.provider must be \"gemini\" or \"openai\", got %q", c.Embedding.Provider)
	}
	switch c.Embedding.Cache.Driver {
	case "memory":
	case "redis":
		if len(c.Embedding.Cache.Addrs) == 0 {
			return fmt.Errorf("embedding.cache.addrs is required for the redis driver")
		}
	default:
		return fmt.Errorf("embedding.cache.driver must be \"memory\" or \"redis\", got %q", c.Embedding.Cache.Driver)
	}
	if c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return fmt.Errorf(
			"retrieval.chunk_overlap must be smaller than retrieval.chunk_size, got %d >= %d",
			c.Retrieval.ChunkOverlap, c.Retrieval.ChunkSize,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
