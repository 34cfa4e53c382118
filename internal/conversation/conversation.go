// Package conversation accumulates a chat transcript and runs it against a
// chat-completion provider.
package conversation

import (
	"context"

	"github.com/longkey1/bddgen/internal/llm"
	"github.com/longkey1/bddgen/internal/retry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Conversation is an ordered list of messages sent verbatim to a provider.
// It is not safe for concurrent use.
type Conversation struct {
	provider  llm.Provider
	retrier   *retry.Retrier
	trimFiles bool

	messages     []llm.Message
	lastResponse *llm.ChatResponse
	last         *llm.Message
	attempts     int
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithRetrier replaces the default retry behavior.
func WithRetrier(r *retry.Retrier) Option {
	return func(c *Conversation) {
		c.retrier = r
	}
}

// WithTrimFileContent strips surrounding whitespace from file contents
// loaded by PrependFromFile and AppendFromFile.
func WithTrimFileContent() Option {
	return func(c *Conversation) {
		c.trimFiles = true
	}
}

// New creates an empty conversation bound to a provider.
func New(provider llm.Provider, opts ...Option) *Conversation {
	c := &Conversation{
		provider: provider,
		retrier:  retry.New(retry.DefaultPolicy(), llm.IsRetryable),
		messages: []llm.Message{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prepend inserts a message at the start of the transcript.
func (c *Conversation) Prepend(role llm.Role, content string) {
	c.messages = append([]llm.Message{{Role: role, Content: content}}, c.messages...)
}

// Append adds a message at the end of the transcript.
func (c *Conversation) Append(role llm.Role, content string) {
	c.messages = append(c.messages, llm.Message{Role: role, Content: content})
}

// PrependFromFile prepends the contents of a file. On a *FileAccessError the
// transcript is left unchanged.
func (c *Conversation) PrependFromFile(role llm.Role, path string) error {
	content, err := c.readFile(path)
	if err != nil {
		return err
	}
	c.Prepend(role, content)
	return nil
}

// AppendFromFile appends the contents of a file. On a *FileAccessError the
// transcript is left unchanged.
func (c *Conversation) AppendFromFile(role llm.Role, path string) error {
	content, err := c.readFile(path)
	if err != nil {
		return err
	}
	c.Append(role, content)
	return nil
}

func (c *Conversation) readFile(path string) (string, error) {
	if c.trimFiles {
		return ReadFileTrimmed(path)
	}
	return ReadFile(path)
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []llm.Message {
	out := make([]llm.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages in the transcript.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Last returns the assistant message of the most recent successful Run.
func (c *Conversation) Last() (llm.Message, bool) {
	if c.last == nil {
		return llm.Message{}, false
	}
	return *c.last, true
}

// LastResponse returns the raw response of the most recent successful Run.
func (c *Conversation) LastResponse() *llm.ChatResponse {
	return c.lastResponse
}

// LastAttempts returns how many attempts the most recent successful Run took.
func (c *Conversation) LastAttempts() int {
	return c.attempts
}

type runSettings struct {
	saveHistory bool
	temperature *float32
	seed        *int
	maxTokens   int
}

// RunOption configures a single Run.
type RunOption func(*runSettings)

// WithoutHistory keeps the assistant reply out of the transcript.
func WithoutHistory() RunOption {
	return func(s *runSettings) {
		s.saveHistory = false
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) RunOption {
	return func(s *runSettings) {
		s.temperature = &t
	}
}

// WithSeed sets the sampling seed.
func WithSeed(seed int) RunOption {
	return func(s *runSettings) {
		s.seed = &seed
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) RunOption {
	return func(s *runSettings) {
		s.maxTokens = n
	}
}

// Run sends the whole transcript to the provider, retrying according to the
// conversation's retrier. On success the first choice becomes the last
// response and, unless WithoutHistory is given, is appended to the
// transcript. On failure nothing is changed.
func (c *Conversation) Run(ctx context.Context, model string, opts ...RunOption) error {
	settings := runSettings{saveHistory: true}
	for _, opt := range opts {
		opt(&settings)
	}

	req := &llm.ChatRequest{
		Model:       model,
		Messages:    c.Messages(),
		Temperature: settings.temperature,
		Seed:        settings.seed,
		MaxTokens:   settings.maxTokens,
	}

	log.Debug().
		Str("provider", c.provider.Name()).
		Str("model", model).
		Int("messages", len(req.Messages)).
		Msg("Sending conversation")

	var res *llm.ChatResponse
	attempts, err := c.retrier.Do(ctx, func(ctx context.Context) error {
		r, err := c.provider.Chat(ctx, req)
		if err != nil {
			return err
		}
		if len(r.Choices) == 0 {
			return llm.ErrNoChoices
		}
		res = r
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "%s chat completion", c.provider.Name())
	}

	msg := res.Choices[0].Message
	if msg.Role == "" {
		msg.Role = llm.RoleAssistant
	}
	c.lastResponse = res
	c.last = &msg
	c.attempts = attempts

	if settings.saveHistory {
		c.Append(msg.Role, msg.Content)
	}
	return nil
}
