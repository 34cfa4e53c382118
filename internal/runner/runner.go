// Package runner turns an instruction and a user story into generated
// feature files, once, repeatedly or for every configured profile.
package runner

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/longkey1/bddgen/internal/conversation"
	"github.com/longkey1/bddgen/internal/deepseek"
	"github.com/longkey1/bddgen/internal/llm"
	"github.com/longkey1/bddgen/internal/output"
	"github.com/longkey1/bddgen/internal/prompt"
	"github.com/longkey1/bddgen/internal/retry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Job describes one generation request
type Job struct {
	Profile     string
	Provider    string
	Model       string
	Layout      Layout
	Temperature *float32
	Seed        *int
	// RandomSeed draws a fresh seed for every run
	RandomSeed bool
	MaxTokens  int
	OutputDir  string
	OutputFile string
	// StripFence defaults to DefaultStripFence(Layout) when nil
	StripFence *bool
	Transcript bool
	// Times is the number of independent runs
	Times int
}

// Normalize fills unset fields with the provider defaults and validates the job
func (j *Job) Normalize() error {
	if j.Provider == "" || j.Model == "" {
		return errors.New("provider and model cannot be empty")
	}
	if j.Times < 1 {
		return errors.Errorf("times must be at least 1 (got %d)", j.Times)
	}
	if j.Seed != nil && j.RandomSeed {
		return errors.New("a fixed seed and a random seed cannot be combined")
	}
	if j.OutputDir == "" {
		return errors.New("output directory is not set")
	}
	if j.Layout == "" {
		j.Layout = DefaultLayout(j.Provider)
	} else if _, err := ParseLayout(string(j.Layout)); err != nil {
		return err
	}
	if j.OutputFile == "" {
		j.OutputFile = DefaultOutputFile(j.Provider)
	}
	if j.StripFence == nil {
		strip := DefaultStripFence(j.Layout)
		j.StripFence = &strip
	}
	if j.MaxTokens == 0 && j.Provider == deepseek.ProviderName {
		j.MaxTokens = deepseek.DefaultMaxTokens
	}
	return nil
}

// RunDir returns the directory of the i-th run (1-based)
func (j *Job) RunDir(i int) string {
	if j.Times <= 1 {
		return j.OutputDir
	}
	return filepath.Join(j.OutputDir, fmt.Sprintf("run-%03d", i))
}

// Result is the outcome of one run
type Result struct {
	Record *output.Record
	Text   string
}

// Runner executes jobs against vendor providers
type Runner struct {
	providers     ProviderFactory
	policy        retry.Policy
	limiter       *rate.Limiter
	allowAnyModel bool
	sleep         func(ctx context.Context, d time.Duration) error
	randomSeed    func() int
	now           func() time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithRetryPolicy sets the retry policy of every conversation
func WithRetryPolicy(p retry.Policy) Option {
	return func(r *Runner) {
		r.policy = p
	}
}

// WithRateLimiter paces every vendor request through l
func WithRateLimiter(l *rate.Limiter) Option {
	return func(r *Runner) {
		r.limiter = l
	}
}

// WithAllowAnyModel skips vendor model allow-lists
func WithAllowAnyModel(allow bool) Option {
	return func(r *Runner) {
		r.allowAnyModel = allow
	}
}

// WithSleep replaces the pause between retries
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Runner) {
		r.sleep = sleep
	}
}

// WithRandomSeed replaces the seed source used for RandomSeed jobs
func WithRandomSeed(fn func() int) Option {
	return func(r *Runner) {
		r.randomSeed = fn
	}
}

// New creates a Runner that obtains providers from factory
func New(factory ProviderFactory, opts ...Option) *Runner {
	r := &Runner{
		providers:  factory,
		policy:     retry.DefaultPolicy(),
		randomSeed: func() int { return rand.Intn(math.MaxInt32) },
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes job.Times independent runs. Each run starts from a fresh
// conversation. It stops at the first failing run and returns the results
// gathered so far.
func (r *Runner) Run(ctx context.Context, job Job, in *prompt.Resolved) ([]*Result, error) {
	if err := job.Normalize(); err != nil {
		return nil, err
	}
	if job.Provider == deepseek.ProviderName && !r.allowAnyModel {
		if err := deepseek.ValidateModel(job.Model); err != nil {
			return nil, err
		}
	}

	provider, err := r.providers(job.Provider)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s provider", job.Provider)
	}
	provider = WithLimiter(provider, r.limiter)

	results := make([]*Result, 0, job.Times)
	for i := 1; i <= job.Times; i++ {
		res, err := r.runOnce(ctx, provider, &job, in, job.RunDir(i))
		if err != nil {
			return results, errors.Wrapf(err, "run %d/%d", i, job.Times)
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) runOnce(ctx context.Context, provider llm.Provider, job *Job, in *prompt.Resolved, dir string) (*Result, error) {
	retrier := retry.New(r.policy, llm.IsRetryable)
	if r.sleep != nil {
		retrier.Sleep = r.sleep
	}
	conv := conversation.New(provider, conversation.WithRetrier(retrier))
	if err := job.Layout.Build(conv, in); err != nil {
		return nil, err
	}

	rec := &output.Record{
		RunID:       uuid.NewString(),
		Profile:     job.Profile,
		Provider:    job.Provider,
		Model:       job.Model,
		Layout:      string(job.Layout),
		Temperature: job.Temperature,
		Seed:        job.Seed,
		StartedAt:   r.now(),
	}
	if job.RandomSeed {
		seed := r.randomSeed()
		rec.Seed = &seed
	}

	var opts []conversation.RunOption
	if rec.Temperature != nil {
		opts = append(opts, conversation.WithTemperature(*rec.Temperature))
	}
	if rec.Seed != nil {
		opts = append(opts, conversation.WithSeed(*rec.Seed))
	}
	if job.MaxTokens > 0 {
		opts = append(opts, conversation.WithMaxTokens(job.MaxTokens))
	}

	logger := log.With().Str("run_id", rec.RunID).Str("provider", job.Provider).Str("model", job.Model).Logger()
	if tokens, err := EstimateTokens(job.Model, conv.Messages()); err == nil {
		logger.Debug().Int("prompt_tokens", tokens).Str("layout", rec.Layout).Msg("Estimated prompt size")
	}
	for i, msg := range conv.Messages() {
		logger.Debug().Int("index", i).Str("role", string(msg.Role)).Str("content", msg.Content).Msg("Prompt message")
	}

	err := conv.Run(ctx, job.Model, opts...)
	rec.Duration = r.now().Sub(rec.StartedAt)
	if err != nil {
		var retryErr *retry.Error
		if errors.As(err, &retryErr) {
			rec.Attempts = retryErr.Attempts
		}
		rec.Error = err.Error()
		if _, werr := output.WriteRecord(dir, rec); werr != nil {
			logger.Warn().Err(werr).Msg("Failed to write run record")
		}
		return nil, err
	}

	res := conv.LastResponse()
	rec.Attempts = conv.LastAttempts()
	rec.Usage = res.Usage

	text := res.Choices[0].Message.Content
	if *job.StripFence {
		text = output.StripGherkinFence(text)
	}

	path, err := output.WriteResult(dir, job.OutputFile, text)
	if err != nil {
		return nil, err
	}
	rec.OutputPath = path

	if job.Transcript {
		paths, err := output.WriteTranscript(dir, conv.Messages())
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			rec.Transcript = append(rec.Transcript, filepath.Base(p))
		}
	}

	if _, err := output.WriteRecord(dir, rec); err != nil {
		return nil, err
	}

	logger.Info().
		Str("output", path).
		Int("attempts", rec.Attempts).
		Int("total_tokens", rec.Usage.TotalTokens).
		Dur("duration", rec.Duration).
		Msg("Generated feature file")

	return &Result{Record: rec, Text: text}, nil
}
