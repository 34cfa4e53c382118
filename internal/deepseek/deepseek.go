// Package deepseek wires DeepSeek's OpenAI-compatible chat endpoint.
package deepseek

import (
	"slices"

	"github.com/longkey1/bddgen/internal/openai"
	"github.com/pkg/errors"
)

const (
	ProviderName   = "deepseek"
	DefaultBaseURL = "https://api.deepseek.com/v1"
	DefaultModel   = "deepseek-chat"
	// DefaultMaxTokens bounds the reply length when nothing else is set.
	DefaultMaxTokens = 4096
)

// SupportedModels lists the chat models the endpoint accepts.
var SupportedModels = []string{"deepseek-chat", "deepseek-coder"}

// NewProvider creates a DeepSeek provider on the OpenAI-compatible client.
func NewProvider(config openai.Config) (*openai.Provider, error) {
	p, err := openai.NewCompatibleProvider(ProviderName, config)
	if err != nil {
		return nil, err
	}
	return p.WithDefaultModel(DefaultModel), nil
}

// ValidateModel rejects models outside SupportedModels.
func ValidateModel(model string) error {
	if slices.Contains(SupportedModels, model) {
		return nil
	}
	return errors.Errorf("unsupported DeepSeek model '%s' (supported: %v)", model, SupportedModels)
}
