package openai

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/longkey1/bddgen/internal/llm"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

const (
	ProviderName   = "openai"
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o"
)

var _ llm.Provider = (*Provider)(nil)

// Config defines the configuration interface for OpenAI-compatible providers
type Config interface {
	GetBaseURL(provider string) (string, error)
	GetToken(provider string) (string, error)
	GetRequestTimeout() time.Duration
}

// Provider implements llm.Provider on top of the chat completions API.
// OpenAI-compatible vendors reuse it under their own name.
type Provider struct {
	name         string
	defaultModel string
	client       *go_openai.Client
}

// NewProvider creates a new OpenAI provider instance
func NewProvider(config Config) (*Provider, error) {
	p, err := NewCompatibleProvider(ProviderName, config)
	if err != nil {
		return nil, err
	}
	return p.WithDefaultModel(DefaultModel), nil
}

// NewCompatibleProvider creates a provider for any vendor that speaks the
// OpenAI chat completions protocol. The token and base URL are looked up
// under the given provider name and injected into the client.
func NewCompatibleProvider(name string, config Config) (*Provider, error) {
	token, err := config.GetToken(name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get token")
	}
	baseURL, err := config.GetBaseURL(name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get base URL")
	}

	clientConfig := go_openai.DefaultConfig(token)
	clientConfig.BaseURL = baseURL
	clientConfig.HTTPClient = &http.Client{Timeout: config.GetRequestTimeout()}

	return &Provider{
		name:   name,
		client: go_openai.NewClientWithConfig(clientConfig),
	}, nil
}

// WithDefaultModel marks model as the default in ListModels
func (p *Provider) WithDefaultModel(model string) *Provider {
	p.defaultModel = model
	return p
}

// ListModels returns the models the endpoint reports
func (p *Provider) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	list, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, p.convertError(err)
	}

	models := make([]llm.ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, llm.ModelInfo{
			ID:          m.ID,
			Description: "owned by " + m.OwnedBy,
			IsDefault:   m.ID == p.defaultModel,
		})
	}
	return models, nil
}

// Name implements llm.Provider.
func (p *Provider) Name() string {
	return p.name
}

// Chat implements llm.Provider.
func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	messages := make([]go_openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = go_openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
	}

	request := go_openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		request.Temperature = *req.Temperature
		// The client drops a zero temperature through omitempty.
		if request.Temperature == 0 {
			request.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if req.Seed != nil {
		seed := *req.Seed
		request.Seed = &seed
	}

	log.Debug().
		Str("provider", p.name).
		Str("model", req.Model).
		Msg("Creating chat completion")

	resp, err := p.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, p.convertError(err)
	}

	choices := make([]llm.Choice, len(resp.Choices))
	for i, c := range resp.Choices {
		choices[i] = llm.Choice{
			Index: c.Index,
			Message: llm.Message{
				Role:    llm.Role(c.Message.Role),
				Content: c.Message.Content,
			},
			FinishReason: string(c.FinishReason),
		}
	}

	return &llm.ChatResponse{
		ID:      resp.ID,
		Model:   resp.Model,
		Choices: choices,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// convertError maps client errors onto llm.APIError so that callers can
// tell rate limits from authentication failures.
func (p *Provider) convertError(err error) error {
	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		return &llm.APIError{
			Provider:   p.name,
			StatusCode: apiErr.HTTPStatusCode,
			Body:       apiErr.Message,
		}
	}
	var reqErr *go_openai.RequestError
	if errors.As(err, &reqErr) {
		return &llm.APIError{
			Provider:   p.name,
			StatusCode: reqErr.HTTPStatusCode,
			Body:       reqErr.Error(),
		}
	}
	return errors.Wrap(err, "error sending request")
}
