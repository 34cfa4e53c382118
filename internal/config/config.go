package config

import (
	"time"

	"github.com/longkey1/bddgen/internal/deepseek"
	"github.com/longkey1/bddgen/internal/gemini"
	"github.com/longkey1/bddgen/internal/llm"
	"github.com/longkey1/bddgen/internal/openai"
	"github.com/longkey1/bddgen/internal/retry"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds the configuration for bddgen
type Config struct {
	Model             string        `toml:"model" mapstructure:"model"` // Format: "provider:model" (e.g., "openai:gpt-4o")
	OpenAIBaseURL     string        `toml:"openai_base_url" mapstructure:"openai_base_url"`
	OpenAIToken       string        `toml:"openai_token" mapstructure:"openai_token"`
	DeepSeekBaseURL   string        `toml:"deepseek_base_url" mapstructure:"deepseek_base_url"`
	DeepSeekToken     string        `toml:"deepseek_token" mapstructure:"deepseek_token"`
	GeminiBaseURL     string        `toml:"gemini_base_url" mapstructure:"gemini_base_url"`
	GeminiToken       string        `toml:"gemini_token" mapstructure:"gemini_token"`
	OutputDir         string        `toml:"output_dir" mapstructure:"output_dir"`
	Temperature       *float64      `toml:"temperature,omitempty" mapstructure:"temperature"` // unset = vendor default
	RequestTimeout    time.Duration `toml:"request_timeout" mapstructure:"request_timeout"`
	RequestsPerMinute int           `toml:"requests_per_minute" mapstructure:"requests_per_minute"` // 0 = unlimited
	BatchConcurrency  int           `toml:"batch_concurrency" mapstructure:"batch_concurrency"`
	AllowAnyModel     bool          `toml:"allow_any_model" mapstructure:"allow_any_model"`
	Retry             retry.Policy  `toml:"retry" mapstructure:"retry"`
	Profiles          []Profile     `toml:"profiles" mapstructure:"profiles"`
}

// Profile is a named generation setup run by the batch command
type Profile struct {
	Name        string   `toml:"name" mapstructure:"name"`
	Model       string   `toml:"model" mapstructure:"model"`
	Layout      string   `toml:"layout,omitempty" mapstructure:"layout"`
	OutputFile  string   `toml:"output_file,omitempty" mapstructure:"output_file"`
	StripFence  *bool    `toml:"strip_fence,omitempty" mapstructure:"strip_fence"`
	Temperature *float64 `toml:"temperature,omitempty" mapstructure:"temperature"`
	Seed        *int     `toml:"seed,omitempty" mapstructure:"seed"`
	MaxTokens   int      `toml:"max_tokens,omitempty" mapstructure:"max_tokens"`
}

// GetProvider extracts provider name from the model string
func (c *Config) GetProvider() (string, error) {
	provider, _, err := llm.ParseModelString(c.Model)
	return provider, err
}

// GetModelName extracts model name from the model string
func (c *Config) GetModelName() (string, error) {
	_, model, err := llm.ParseModelString(c.Model)
	return model, err
}

// GetRequestTimeout returns the per-request HTTP timeout
func (c *Config) GetRequestTimeout() time.Duration {
	return c.RequestTimeout
}

// NewDefaultConfig returns a new Config with default values
func NewDefaultConfig() *Config {
	return &Config{
		Model:             llm.FormatModelString(openai.ProviderName, openai.DefaultModel),
		OpenAIBaseURL:     openai.DefaultBaseURL,
		OpenAIToken:       "$OPENAI_API_KEY", // Default to env var
		DeepSeekBaseURL:   deepseek.DefaultBaseURL,
		DeepSeekToken:     "$DEEPSEEK_API_KEY",
		GeminiBaseURL:     gemini.DefaultBaseURL,
		GeminiToken:       "$GEMINI_API_KEY",
		OutputDir:         "", // empty = next to the user story
		RequestTimeout:    120 * time.Second,
		RequestsPerMinute: 0,
		BatchConcurrency:  4,
		Retry:             retry.DefaultPolicy(),
		Profiles:          []Profile{},
	}
}

// SetDefaults registers the default values with viper
func SetDefaults(defaults *Config) {
	viper.SetDefault("model", defaults.Model)
	viper.SetDefault("openai_base_url", defaults.OpenAIBaseURL)
	viper.SetDefault("openai_token", defaults.OpenAIToken)
	viper.SetDefault("deepseek_base_url", defaults.DeepSeekBaseURL)
	viper.SetDefault("deepseek_token", defaults.DeepSeekToken)
	viper.SetDefault("gemini_base_url", defaults.GeminiBaseURL)
	viper.SetDefault("gemini_token", defaults.GeminiToken)
	viper.SetDefault("output_dir", defaults.OutputDir)
	viper.SetDefault("request_timeout", defaults.RequestTimeout)
	viper.SetDefault("requests_per_minute", defaults.RequestsPerMinute)
	viper.SetDefault("batch_concurrency", defaults.BatchConcurrency)
	viper.SetDefault("allow_any_model", defaults.AllowAnyModel)
	viper.SetDefault("retry.max_attempts", defaults.Retry.MaxAttempts)
	viper.SetDefault("retry.initial_delay", defaults.Retry.InitialDelay)
	viper.SetDefault("retry.max_delay", defaults.Retry.MaxDelay)
	viper.SetDefault("retry.multiplier", defaults.Retry.Multiplier)
	viper.SetDefault("retry.jitter", defaults.Retry.Jitter)
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling config")
	}

	// Expand $VAR references in credentials and endpoints
	for _, field := range []*string{
		&config.OpenAIBaseURL, &config.OpenAIToken,
		&config.DeepSeekBaseURL, &config.DeepSeekToken,
		&config.GeminiBaseURL, &config.GeminiToken,
	} {
		expanded, err := expandEnvVar(*field)
		if err != nil {
			return nil, err
		}
		*field = expanded
	}

	if config.OutputDir != "" {
		absPath, err := ResolvePath(config.OutputDir)
		if err != nil {
			return nil, errors.Wrapf(err, "error resolving output directory path '%s'", config.OutputDir)
		}
		config.OutputDir = absPath
	}

	return config, nil
}
