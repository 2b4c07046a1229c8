package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Index     IndexConfig     `mapstructure:"index"`
	Embedder  EmbedderConfig  `mapstructure:"embedder"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Auxiliary AuxiliaryConfig `mapstructure:"auxiliary"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// InitWait is how long a request may wait for a pending index load
	// before it is rejected as not initialized.
	InitWait time.Duration `mapstructure:"init_wait"`
}

type IndexConfig struct {
	Dir       string `mapstructure:"dir"`
	DocsDir   string `mapstructure:"docs_dir"`
	Extension string `mapstructure:"extension"`
}

type EmbedderConfig struct {
	Provider    string `mapstructure:"provider"`
	Model       string `mapstructure:"model"`
	APIKey      string `mapstructure:"api_key"`
	BaseURL     string `mapstructure:"base_url"`
	Concurrency int    `mapstructure:"concurrency"`
	Dimension   int    `mapstructure:"dimension"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type AuxiliaryConfig struct {
	URL         string        `mapstructure:"url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxFailures uint32        `mapstructure:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.init_wait", 0)

	v.SetDefault("index.dir", "data")
	v.SetDefault("index.docs_dir", "rags")
	v.SetDefault("index.extension", ".txt")

	v.SetDefault("embedder.provider", "openai")
	v.SetDefault("embedder.model", "text-embedding-3-small")
	v.SetDefault("embedder.api_key", "")
	v.SetDefault("embedder.base_url", "")
	v.SetDefault("embedder.concurrency", 4)
	v.SetDefault("embedder.dimension", 256)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1024)

	v.SetDefault("auxiliary.url", "https://api.example.com/context")
	v.SetDefault("auxiliary.timeout", 5*time.Second)
	v.SetDefault("auxiliary.max_failures", 3)
	v.SetDefault("auxiliary.open_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")
}

// Load reads configuration from an optional YAML file and the environment.
// With an empty path, config.yaml is looked up in ./config and the working
// directory; a missing file is not an error. Environment variables use the
// RAG_ prefix (RAG_LLM_MODEL, RAG_SERVER_PORT, ...). API keys also fall
// back to OPENAI_API_KEY and ANTHROPIC_API_KEY.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("RAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	applyProviderKeys(&cfg, v)
	return &cfg, nil
}

// applyProviderKeys fills empty API keys from the providers' conventional
// environment variables.
func applyProviderKeys(cfg *Config, v *viper.Viper) {
	_ = v.BindEnv("openai_api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("anthropic_api_key", "ANTHROPIC_API_KEY")

	keyFor := func(provider string) string {
		switch provider {
		case "openai":
			return v.GetString("openai_api_key")
		case "anthropic":
			return v.GetString("anthropic_api_key")
		}
		return ""
	}

	if cfg.Embedder.APIKey == "" {
		cfg.Embedder.APIKey = keyFor(cfg.Embedder.Provider)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = keyFor(cfg.LLM.Provider)
	}
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	warnings := c.ValidateEmbedder()

	if c.LLM.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but no API key is set", c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("LLM temperature %.2f is outside recommended range [0.0, 2.0]", c.LLM.Temperature))
	}
	if c.LLM.MaxTokens < 0 {
		warnings = append(warnings, fmt.Sprintf("LLM max_tokens %d is negative", c.LLM.MaxTokens))
	}
	if c.Auxiliary.Timeout <= 0 {
		warnings = append(warnings, "auxiliary timeout is not positive, the context fetch is unbounded")
	}

	return warnings
}

// ValidateEmbedder covers only the settings the indexer uses.
func (c *Config) ValidateEmbedder() []string {
	var warnings []string

	if c.Embedder.Provider == "openai" && c.Embedder.APIKey == "" {
		warnings = append(warnings, "embedder provider 'openai' is configured but no API key is set")
	}
	if c.Embedder.Concurrency < 1 {
		warnings = append(warnings, fmt.Sprintf("embedder concurrency %d is below 1, using 1", c.Embedder.Concurrency))
	}

	return warnings
}
