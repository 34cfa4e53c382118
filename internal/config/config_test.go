package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/longkey1/bddgen/internal/retry"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFromTOML(t *testing.T, content string) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	SetDefaults(NewDefaultConfig())
	viper.SetConfigType("toml")
	require.NoError(t, viper.ReadConfig(strings.NewReader(content)))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	return cfg
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := loadFromTOML(t, "")

	assert.Equal(t, "openai:gpt-4o", cfg.Model)
	assert.Empty(t, cfg.OutputDir)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 4, cfg.BatchConcurrency)
	assert.Equal(t, retry.DefaultPolicy(), cfg.Retry)
	assert.Nil(t, cfg.Temperature)
	assert.Empty(t, cfg.Profiles)
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("BDDGEN_TEST_DEEPSEEK", "ds-secret")

	cfg := loadFromTOML(t, `
model = "deepseek:deepseek-chat"
deepseek_token = "${BDDGEN_TEST_DEEPSEEK}"
gemini_token = "literal-key"
temperature = 0.7
request_timeout = "30s"
output_dir = "/srv/features"
requests_per_minute = 20

[retry]
max_attempts = 0
initial_delay = "30s"
multiplier = 1

[[profiles]]
name = "gpt"
model = "openai:gpt-4o"
seed = 42

[[profiles]]
name = "gemini"
model = "gemini:gemini-2.0-flash"
layout = "combined"
strip_fence = true
temperature = 1.2
`)

	assert.Equal(t, "deepseek:deepseek-chat", cfg.Model)
	assert.Equal(t, "ds-secret", cfg.DeepSeekToken)
	assert.Equal(t, "literal-key", cfg.GeminiToken)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.7, *cfg.Temperature, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "/srv/features", cfg.OutputDir)
	assert.Equal(t, 20, cfg.RequestsPerMinute)
	assert.Equal(t, 0, cfg.Retry.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Retry.InitialDelay)

	require.Len(t, cfg.Profiles, 2)
	assert.Equal(t, "gpt", cfg.Profiles[0].Name)
	require.NotNil(t, cfg.Profiles[0].Seed)
	assert.Equal(t, 42, *cfg.Profiles[0].Seed)
	assert.Equal(t, "combined", cfg.Profiles[1].Layout)
	require.NotNil(t, cfg.Profiles[1].StripFence)
	assert.True(t, *cfg.Profiles[1].StripFence)

	provider, err := cfg.GetProvider()
	require.NoError(t, err)
	assert.Equal(t, "deepseek", provider)
	model, err := cfg.GetModelName()
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", model)
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("BDDGEN_TEST_TOKEN", "abc")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "literal", input: "sk-123", want: "sk-123"},
		{name: "dollar form", input: "$BDDGEN_TEST_TOKEN", want: "abc"},
		{name: "brace form", input: "${BDDGEN_TEST_TOKEN}", want: "abc"},
		{name: "unset variable", input: "$BDDGEN_TEST_UNSET", want: ""},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandEnvVar(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := expandEnvVar("${}")
	assert.Error(t, err)
}

func TestGetTokenAndBaseURL(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.OpenAIToken = "sk-openai"
	cfg.DeepSeekToken = ""

	token, err := cfg.GetToken("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-openai", token)

	_, err = cfg.GetToken("deepseek")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BDDGEN_DEEPSEEK_TOKEN")

	_, err = cfg.GetToken("anthropic")
	assert.Error(t, err)

	url, err := cfg.GetBaseURL("deepseek")
	require.NoError(t, err)
	assert.Equal(t, "https://api.deepseek.com/v1", url)

	cfg.GeminiBaseURL = ""
	_, err = cfg.GetBaseURL("gemini")
	assert.Error(t, err)
}

func TestSetToken(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.SetToken("gemini", "override"))

	token, err := cfg.GetToken("gemini")
	require.NoError(t, err)
	assert.Equal(t, "override", token)

	assert.Error(t, cfg.SetToken("unknown", "x"))
}

func TestValidate(t *testing.T) {
	temp := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "bad model", mutate: func(c *Config) { c.Model = "gpt-4o" }, wantErr: "model"},
		{name: "temperature too high", mutate: func(c *Config) { c.Temperature = temp(2.5) }, wantErr: "out of range"},
		{name: "temperature bounds", mutate: func(c *Config) { c.Temperature = temp(2) }},
		{name: "negative rpm", mutate: func(c *Config) { c.RequestsPerMinute = -1 }, wantErr: "requests_per_minute"},
		{name: "bad retry", mutate: func(c *Config) { c.Retry.Jitter = 2 }, wantErr: "retry"},
		{
			name:    "empty profile name",
			mutate:  func(c *Config) { c.Profiles = []Profile{{Model: "openai:gpt-4o"}} },
			wantErr: "name must not be empty",
		},
		{
			name:    "profile name escapes output dir",
			mutate:  func(c *Config) { c.Profiles = []Profile{{Name: "../../etc"}} },
			wantErr: "single path element",
		},
		{
			name:    "profile name with separator",
			mutate:  func(c *Config) { c.Profiles = []Profile{{Name: "team/gpt"}} },
			wantErr: "single path element",
		},
		{
			name:    "profile name dot dot",
			mutate:  func(c *Config) { c.Profiles = []Profile{{Name: ".."}} },
			wantErr: "single path element",
		},
		{
			name:   "profile name with dots",
			mutate: func(c *Config) { c.Profiles = []Profile{{Name: "gpt-4.1"}} },
		},
		{
			name: "duplicate profile",
			mutate: func(c *Config) {
				c.Profiles = []Profile{{Name: "a"}, {Name: "a"}}
			},
			wantErr: "duplicate",
		},
		{
			name: "profile model",
			mutate: func(c *Config) {
				c.Profiles = []Profile{{Name: "a", Model: "nope"}}
			},
			wantErr: "profile 'a' model",
		},
		{
			name: "profile temperature",
			mutate: func(c *Config) {
				c.Profiles = []Profile{{Name: "a", Temperature: temp(-0.1)}}
			},
			wantErr: "profile 'a'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolvePath(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	abs, err := ResolvePath("/var/out")
	require.NoError(t, err)
	assert.Equal(t, "/var/out", abs)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	rel, err := ResolvePath("out")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "out"), rel)

	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configFile, []byte(""), 0644))
	viper.SetConfigFile(configFile)
	require.NoError(t, viper.ReadInConfig())

	rel, err = ResolvePath("out")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out"), rel)
}
