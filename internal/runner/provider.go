package runner

import (
	"context"
	"time"

	"github.com/longkey1/bddgen/internal/config"
	"github.com/longkey1/bddgen/internal/deepseek"
	"github.com/longkey1/bddgen/internal/gemini"
	"github.com/longkey1/bddgen/internal/llm"
	"github.com/longkey1/bddgen/internal/openai"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ProviderFactory builds the provider for a vendor name
type ProviderFactory func(provider string) (llm.Provider, error)

// NewProviderFactory returns a factory that builds vendor adapters from cfg
func NewProviderFactory(cfg *config.Config) ProviderFactory {
	return func(provider string) (llm.Provider, error) {
		return NewProvider(cfg, provider)
	}
}

// NewProvider creates a provider for the given vendor name
func NewProvider(cfg *config.Config, provider string) (llm.Provider, error) {
	switch provider {
	case openai.ProviderName:
		return openai.NewProvider(cfg)
	case deepseek.ProviderName:
		return deepseek.NewProvider(cfg)
	case gemini.ProviderName:
		return gemini.NewProvider(cfg)
	default:
		return nil, errors.Errorf("unsupported provider: %s", provider)
	}
}

// NewLimiter returns a limiter allowing requestsPerMinute vendor requests
// per minute, or nil when requestsPerMinute is not positive.
func NewLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
}

// rateLimitedProvider waits on a shared limiter before every request
type rateLimitedProvider struct {
	llm.Provider
	limiter *rate.Limiter
}

// WithLimiter wraps p so each Chat call first waits on limiter. A nil
// limiter returns p unchanged.
func WithLimiter(p llm.Provider, limiter *rate.Limiter) llm.Provider {
	if limiter == nil {
		return p
	}
	return &rateLimitedProvider{Provider: p, limiter: limiter}
}

func (p *rateLimitedProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return p.Provider.Chat(ctx, req)
}
