// Package llm provides the core abstractions for chat-completion providers.
// This package defines the Provider interface that all vendor implementations
// (openai, deepseek, gemini) must implement.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Role defines the role of a message author. The set is open; roles are
// interpreted by the remote API and never validated locally.
type Role string

const (
	// RoleSystem specifies that the message is from the system itself.
	RoleSystem Role = "system"
	// RoleAssistant specifies that the message is from the assistant / LLM.
	RoleAssistant Role = "assistant"
	// RoleUser specifies that the message is from an end-user.
	RoleUser Role = "user"
)

// Message is a single entry of a chat transcript.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// ChatRequest is a vendor-neutral chat-completion request.
type ChatRequest struct {
	Model    string
	Messages []Message
	// Temperature and Seed are omitted from the vendor request when nil.
	Temperature *float32
	Seed        *int
	// MaxTokens of zero leaves the vendor default in place.
	MaxTokens int
}

// Usage holds token accounting reported by the vendor, when available.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" yaml:"completion_tokens"`
	TotalTokens      int `json:"total_tokens" yaml:"total_tokens"`
}

// Choice is one candidate completion.
type Choice struct {
	Index        int
	Message      Message
	FinishReason string
}

// ChatResponse is the raw result of a successful call.
type ChatResponse struct {
	ID      string
	Model   string
	Choices []Choice
	Usage   Usage
}

// Provider defines the interface for chat-completion vendors.
//
// Example usage:
//
//	provider := openai.NewProvider(cfg)
//	res, err := provider.Chat(ctx, &llm.ChatRequest{Model: "gpt-4o", Messages: msgs})
type Provider interface {
	// Name returns the provider name used in "provider:model" strings.
	Name() string

	// Chat sends the full transcript and returns the vendor's choices.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// ModelInfo represents information about an available model from a provider.
type ModelInfo struct {
	ID          string // Model identifier (e.g., "gpt-4o", "deepseek-chat")
	Description string // Human-readable description of the model
	IsDefault   bool   // Whether this is the default model for the provider
}

// ModelLister is implemented by providers that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ParseModelString parses a model string in "provider:model" format.
// Returns (provider, model, error).
//
// Example:
//
//	provider, model, err := ParseModelString("openai:gpt-4o")
//	// provider = "openai", model = "gpt-4o"
func ParseModelString(modelStr string) (string, string, error) {
	parts := strings.SplitN(modelStr, ":", 2)
	if len(parts) != 2 {
		return "", "", errors.Errorf("invalid model format: %s (expected format: provider:model, e.g., openai:gpt-4o)", modelStr)
	}

	provider := strings.TrimSpace(parts[0])
	model := strings.TrimSpace(parts[1])

	if provider == "" || model == "" {
		return "", "", errors.New("provider and model cannot be empty")
	}

	return provider, model, nil
}

// FormatModelString formats provider and model into "provider:model" format.
func FormatModelString(provider, model string) string {
	return fmt.Sprintf("%s:%s", provider, model)
}
