package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/longkey1/bddgen/internal/deepseek"
	"github.com/longkey1/bddgen/internal/gemini"
	"github.com/longkey1/bddgen/internal/openai"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// expandEnvVar expands environment variable references in the given value
// Supports both $VAR and ${VAR} syntax
// If the environment variable is not set, returns empty string.
func expandEnvVar(value string) (string, error) {
	if !strings.HasPrefix(value, "$") {
		return value, nil
	}

	var envVarName string
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVarName = value[2 : len(value)-1]
	} else {
		envVarName = strings.TrimPrefix(value, "$")
	}
	if envVarName == "" {
		return "", errors.Errorf("invalid environment variable reference: %q", value)
	}

	return os.Getenv(envVarName), nil
}

// GetBaseURL returns the base URL for the specified provider
// Environment variables are already expanded during LoadConfig()
func (c *Config) GetBaseURL(provider string) (string, error) {
	var baseURLValue string
	switch provider {
	case openai.ProviderName:
		baseURLValue = c.OpenAIBaseURL
	case deepseek.ProviderName:
		baseURLValue = c.DeepSeekBaseURL
	case gemini.ProviderName:
		baseURLValue = c.GeminiBaseURL
	default:
		return "", errors.Errorf("unsupported provider: %s", provider)
	}

	if baseURLValue == "" {
		return "", errors.Errorf("%s base URL is not configured. Set it in config file (%s_base_url) or environment variable (BDDGEN_%s_BASE_URL)", provider, provider, strings.ToUpper(provider))
	}

	return baseURLValue, nil
}

// GetToken returns the token for the specified provider
// Environment variables are already expanded during LoadConfig()
func (c *Config) GetToken(provider string) (string, error) {
	var tokenValue string
	switch provider {
	case openai.ProviderName:
		tokenValue = c.OpenAIToken
	case deepseek.ProviderName:
		tokenValue = c.DeepSeekToken
	case gemini.ProviderName:
		tokenValue = c.GeminiToken
	default:
		return "", errors.Errorf("unsupported provider: %s", provider)
	}

	if tokenValue == "" {
		return "", errors.Errorf("%s token is not configured. Set it in config file (%s_token), environment variable (BDDGEN_%s_TOKEN) or --api-key", provider, provider, strings.ToUpper(provider))
	}

	return tokenValue, nil
}

// SetToken overrides the token for the specified provider
func (c *Config) SetToken(provider, token string) error {
	switch provider {
	case openai.ProviderName:
		c.OpenAIToken = token
	case deepseek.ProviderName:
		c.DeepSeekToken = token
	case gemini.ProviderName:
		c.GeminiToken = token
	default:
		return errors.Errorf("unsupported provider: %s", provider)
	}
	return nil
}

// ResolvePath converts a relative path to absolute path if needed
func ResolvePath(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}

	// Relative paths are anchored at the config file directory
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "error getting current working directory")
		}
		return filepath.Join(cwd, path), nil
	}

	configDir := filepath.Dir(configFile)
	if !filepath.IsAbs(configDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "error getting current working directory")
		}
		configDir = filepath.Join(cwd, configDir)
	}

	return filepath.Join(configDir, path), nil
}
