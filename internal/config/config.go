package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"ragchat/internal/domain"
)

const (
	EmbedderTFIDF  = "tfidf"
	EmbedderOpenAI = "openai"

	GeneratorExtractive = "extractive"
	GeneratorOpenAI     = "openai"
	GeneratorAnthropic  = "anthropic"

	BackendFlat    = "flat"
	BackendChromem = "chromem"

	QueryVerbatim = "verbatim"
	QueryCondense = "condense"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	MaxRetries        int     `yaml:"max_retries"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type        string                `yaml:"type"`
	OpenAI      *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Concurrency int                   `yaml:"concurrency"`
	Cache       bool                  `yaml:"cache"`
}

// LLMConfig points at a hosted chat model. The key itself is read from APIKeyEnv.
type LLMConfig struct {
	BaseURL   string `yaml:"base_url,omitempty"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	Type         string     `yaml:"type"`
	OpenAI       *LLMConfig `yaml:"openai,omitempty"`
	Anthropic    *LLMConfig `yaml:"anthropic,omitempty"`
	MaxTokens    int        `yaml:"max_tokens"`
	Temperature  float32    `yaml:"temperature"`
	MaxSentences int        `yaml:"max_sentences"`
}

// ChunkerConfig sizes chunks in characters.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type MemoryConfig struct {
	Window int `yaml:"window"`
}

type RetrievalConfig struct {
	K           int    `yaml:"k"`
	QueryPolicy string `yaml:"query_policy"`
}

// IndexConfig selects the search backend and the default persisted index path.
type IndexConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Chunker             ChunkerConfig   `yaml:"chunker"`
	Memory              MemoryConfig    `yaml:"memory"`
	Retrieval           RetrievalConfig `yaml:"retrieval"`
	Index               IndexConfig     `yaml:"index"`
	Embedder            EmbedderConfig  `yaml:"embedder"`
	Generator           GeneratorConfig `yaml:"generator"`
	ProviderTimeoutSecs int             `yaml:"provider_timeout_secs"`
	Log                 LogConfig       `yaml:"log"`
}

// ProviderTimeout bounds every embedding and generation call.
func (c *AppConfig) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSecs) * time.Second
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, domain.Configf("parsing %s: %v", path, err)
	}
	overlapSet, err := chunkerOverlapSet(data)
	if err != nil {
		return nil, domain.Configf("parsing %s: %v", path, err)
	}
	applyConfigDefaults(&cfg, overlapSet)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./ragchat.yaml first, then ~/.config/ragchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "ragchat.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports the first invalid setting as an ErrConfiguration.
func (c *AppConfig) Validate() error {
	switch {
	case c.Chunker.Size <= 0:
		return domain.Configf("chunker.size must be positive, got %d", c.Chunker.Size)
	case c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size:
		return domain.Configf("chunker.overlap must be in [0, %d), got %d", c.Chunker.Size, c.Chunker.Overlap)
	case c.Memory.Window <= 0:
		return domain.Configf("memory.window must be positive, got %d", c.Memory.Window)
	case c.Retrieval.K < 1:
		return domain.Configf("retrieval.k must be at least 1, got %d", c.Retrieval.K)
	case c.Embedder.Concurrency < 1:
		return domain.Configf("embedder.concurrency must be at least 1, got %d", c.Embedder.Concurrency)
	case c.ProviderTimeoutSecs <= 0:
		return domain.Configf("provider_timeout_secs must be positive, got %d", c.ProviderTimeoutSecs)
	}

	switch c.Retrieval.QueryPolicy {
	case QueryVerbatim, QueryCondense:
	default:
		return domain.Configf("unknown retrieval.query_policy %q", c.Retrieval.QueryPolicy)
	}
	switch c.Index.Backend {
	case BackendFlat, BackendChromem:
	default:
		return domain.Configf("unknown index.backend %q", c.Index.Backend)
	}
	switch c.Embedder.Type {
	case EmbedderTFIDF, EmbedderOpenAI:
	default:
		return domain.Configf("unknown embedder %q", c.Embedder.Type)
	}
	switch c.Generator.Type {
	case GeneratorExtractive, GeneratorOpenAI, GeneratorAnthropic:
	default:
		return domain.Configf("unknown generator %q", c.Generator.Type)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragchat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg, false)
	return cfg
}

// chunkerOverlapSet reports whether chunker.overlap is present in the file, so
// an explicit 0 is not mistaken for a missing value.
func chunkerOverlapSet(data []byte) (bool, error) {
	var keys struct {
		Chunker struct {
			Overlap *int `yaml:"overlap"`
		} `yaml:"chunker"`
	}
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return false, err
	}
	return keys.Chunker.Overlap != nil, nil
}

// applyConfigDefaults fills unset fields. The default overlap only applies when
// both the chunk size and the overlap are unset.
func applyConfigDefaults(cfg *AppConfig, overlapSet bool) {
	if cfg.Chunker.Size == 0 {
		cfg.Chunker.Size = 1000
		if !overlapSet {
			cfg.Chunker.Overlap = 100
		}
	}
	if cfg.Memory.Window == 0 {
		cfg.Memory.Window = 5
	}
	if cfg.Retrieval.K == 0 {
		cfg.Retrieval.K = 5
	}
	if cfg.Retrieval.QueryPolicy == "" {
		cfg.Retrieval.QueryPolicy = QueryVerbatim
	}
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = BackendFlat
	}
	if cfg.ProviderTimeoutSecs == 0 {
		cfg.ProviderTimeoutSecs = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = EmbedderTFIDF
	}
	if cfg.Embedder.Concurrency == 0 {
		cfg.Embedder.Concurrency = 4
	}
	if cfg.Embedder.Type == EmbedderOpenAI {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}

	if cfg.Generator.Type == "" {
		cfg.Generator.Type = GeneratorExtractive
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 1024
	}
	if cfg.Generator.MaxSentences == 0 {
		cfg.Generator.MaxSentences = 3
	}
	switch cfg.Generator.Type {
	case GeneratorOpenAI:
		if cfg.Generator.OpenAI == nil {
			cfg.Generator.OpenAI = &LLMConfig{}
		}
		if cfg.Generator.OpenAI.APIKeyEnv == "" {
			cfg.Generator.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Generator.OpenAI.Model == "" {
			cfg.Generator.OpenAI.Model = "gpt-4o-mini"
		}
	case GeneratorAnthropic:
		if cfg.Generator.Anthropic == nil {
			cfg.Generator.Anthropic = &LLMConfig{}
		}
		if cfg.Generator.Anthropic.APIKeyEnv == "" {
			cfg.Generator.Anthropic.APIKeyEnv = "ANTHROPIC_API_KEY"
		}
		if cfg.Generator.Anthropic.Model == "" {
			cfg.Generator.Anthropic.Model = "claude-3-5-haiku-latest"
		}
	}
}
