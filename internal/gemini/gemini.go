package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/longkey1/bddgen/internal/llm"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	ProviderName   = "gemini"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
)

var _ llm.Provider = (*Provider)(nil)

// GeminiRequest represents the request body for Gemini's generate content API
type GeminiRequest struct {
	Contents          []GeminiContent          `json:"contents"`
	SystemInstruction *GeminiSystemInstruction `json:"system_instruction,omitempty"`
	GenerationConfig  *GeminiGenerationConfig  `json:"generationConfig,omitempty"`
}

// GeminiSystemInstruction represents system instruction for Gemini
type GeminiSystemInstruction struct {
	Parts []GeminiPart `json:"parts"`
}

// GeminiContent represents a content item in the Gemini request format
type GeminiContent struct {
	Role  string       `json:"role,omitempty"` // "user" or "model"
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart represents a part of the content in the Gemini request format
type GeminiPart struct {
	Text string `json:"text"`
}

// GeminiGenerationConfig holds sampling parameters
type GeminiGenerationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	Seed            *int     `json:"seed,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// GeminiResponse represents the full response from Gemini API
type GeminiResponse struct {
	Candidates    []GeminiCandidate    `json:"candidates"`
	UsageMetadata *GeminiUsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string               `json:"modelVersion,omitempty"`
	ResponseID    string               `json:"responseId,omitempty"`
}

// GeminiCandidate represents a candidate response
type GeminiCandidate struct {
	Content      GeminiResponseContent `json:"content"`
	FinishReason string                `json:"finishReason,omitempty"`
	Index        int                   `json:"index"`
}

// GeminiResponseContent represents the content of a response
type GeminiResponseContent struct {
	Role  string               `json:"role,omitempty"`
	Parts []GeminiResponsePart `json:"parts"`
}

// GeminiResponsePart represents a part of the response content
type GeminiResponsePart struct {
	Text string `json:"text"`
}

// GeminiUsageMetadata holds token accounting
type GeminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Config defines the configuration interface for Gemini provider
type Config interface {
	GetBaseURL(provider string) (string, error)
	GetToken(provider string) (string, error)
	GetRequestTimeout() time.Duration
}

// Provider implements the llm.Provider interface for Gemini
type Provider struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewProvider creates a new Gemini provider instance
func NewProvider(config Config) (*Provider, error) {
	token, err := config.GetToken(ProviderName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get token")
	}
	baseURL, err := config.GetBaseURL(ProviderName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get base URL")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Provider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: config.GetRequestTimeout()},
	}, nil
}

// Name implements llm.Provider.
func (p *Provider) Name() string {
	return ProviderName
}

// buildRequest converts a transcript into Gemini's format. System messages
// are folded into the system instruction in transcript order.
func buildRequest(req *llm.ChatRequest) *GeminiRequest {
	var system []GeminiPart
	contents := make([]GeminiContent, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, GeminiPart{Text: msg.Content})
			continue
		case llm.RoleAssistant:
			// Gemini uses "model" instead of "assistant"
			contents = append(contents, GeminiContent{Role: "model", Parts: []GeminiPart{{Text: msg.Content}}})
		default:
			contents = append(contents, GeminiContent{Role: string(msg.Role), Parts: []GeminiPart{{Text: msg.Content}}})
		}
	}

	reqBody := &GeminiRequest{Contents: contents}
	if len(system) > 0 {
		reqBody.SystemInstruction = &GeminiSystemInstruction{Parts: system}
	}
	if req.Temperature != nil || req.Seed != nil || req.MaxTokens > 0 {
		reqBody.GenerationConfig = &GeminiGenerationConfig{
			Temperature:     req.Temperature,
			Seed:            req.Seed,
			MaxOutputTokens: req.MaxTokens,
		}
	}
	return reqBody
}

// Chat sends the transcript to Gemini's API and returns the candidates
func (p *Provider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	jsonData, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, errors.Wrap(err, "error marshaling request")
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, url.PathEscape(req.Model), url.QueryEscape(p.token))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, errors.Wrap(err, "error creating request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		// The URL carries the key; keep it out of the message.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, errors.Wrap(err, "error sending request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "error reading response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &llm.APIError{Provider: ProviderName, StatusCode: resp.StatusCode, Body: string(body)}
	}

	log.Debug().Str("provider", ProviderName).Bytes("response", body).Msg("Raw API response")

	var result GeminiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.Wrap(err, "error parsing response")
	}

	choices := make([]llm.Choice, 0, len(result.Candidates))
	for i, candidate := range result.Candidates {
		var text strings.Builder
		for _, part := range candidate.Content.Parts {
			text.WriteString(part.Text)
		}
		choices = append(choices, llm.Choice{
			Index: i,
			// Replies are always attributed to the assistant.
			Message:      llm.Message{Role: llm.RoleAssistant, Content: text.String()},
			FinishReason: candidate.FinishReason,
		})
	}

	res := &llm.ChatResponse{
		ID:      result.ResponseID,
		Model:   result.ModelVersion,
		Choices: choices,
	}
	if result.UsageMetadata != nil {
		res.Usage = llm.Usage{
			PromptTokens:     result.UsageMetadata.PromptTokenCount,
			CompletionTokens: result.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      result.UsageMetadata.TotalTokenCount,
		}
	}
	return res, nil
}

// ModelsAPIResponse represents the response from Gemini's models API
type ModelsAPIResponse struct {
	Models []GeminiModelData `json:"models"`
}

// GeminiModelData represents a single model in the API response
type GeminiModelData struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	Description                string   `json:"description"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// ListModels returns the models that support generateContent
func (p *Provider) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	endpoint := fmt.Sprintf("%s/models?key=%s", p.baseURL, url.QueryEscape(p.token))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "error creating request")
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, errors.Wrap(err, "error sending request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "error reading response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &llm.APIError{Provider: ProviderName, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result ModelsAPIResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errors.Wrap(err, "error parsing response")
	}

	models := make([]llm.ModelInfo, 0, len(result.Models))
	for _, model := range result.Models {
		if !slices.Contains(model.SupportedGenerationMethods, "generateContent") {
			continue
		}
		id := strings.TrimPrefix(model.Name, "models/")
		description := model.Description
		if description == "" {
			description = model.DisplayName
		}
		models = append(models, llm.ModelInfo{
			ID:          id,
			Description: description,
			IsDefault:   id == DefaultModel,
		})
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].ID > models[j].ID
	})
	return models, nil
}
