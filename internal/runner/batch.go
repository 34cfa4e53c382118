package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/longkey1/bddgen/internal/config"
	"github.com/longkey1/bddgen/internal/llm"
	"github.com/longkey1/bddgen/internal/prompt"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ProfileResult is the outcome of one batch profile
type ProfileResult struct {
	Profile string
	Results []*Result
	Err     error
}

// BatchError lists every failed profile of a batch
type BatchError struct {
	Failed []ProfileResult
}

func (e *BatchError) Error() string {
	lines := []string{fmt.Sprintf("%d profile(s) failed:", len(e.Failed))}
	for _, f := range e.Failed {
		lines = append(lines, fmt.Sprintf("- %s: %v", f.Profile, f.Err))
	}
	return strings.Join(lines, "\n")
}

// JobFromProfile builds the job for a profile. Fields the profile leaves
// unset come from cfg and base; the output directory is base.OutputDir
// joined with the profile name.
func JobFromProfile(cfg *config.Config, p config.Profile, base Job) (Job, error) {
	if err := config.ValidateProfileName(p.Name); err != nil {
		return Job{}, errors.Wrap(err, "profile")
	}

	model := p.Model
	if model == "" {
		model = cfg.Model
	}
	provider, name, err := llm.ParseModelString(model)
	if err != nil {
		return Job{}, errors.Wrapf(err, "profile '%s'", p.Name)
	}

	job := base
	job.Profile = p.Name
	job.Provider = provider
	job.Model = name
	job.Layout = Layout(p.Layout)
	job.OutputFile = p.OutputFile
	job.StripFence = p.StripFence
	job.MaxTokens = p.MaxTokens
	job.OutputDir = filepath.Join(base.OutputDir, p.Name)

	temperature := p.Temperature
	if temperature == nil {
		temperature = cfg.Temperature
	}
	if temperature != nil {
		t := float32(*temperature)
		job.Temperature = &t
	}
	if p.Seed != nil {
		seed := *p.Seed
		job.Seed = &seed
		job.RandomSeed = false
	}

	if err := job.Normalize(); err != nil {
		return Job{}, errors.Wrapf(err, "profile '%s'", p.Name)
	}
	return job, nil
}

// Batch runs every job concurrently, at most concurrency at a time (0 means
// no limit). A failing job never cancels the others; all failures are
// reported together in a *BatchError.
func (r *Runner) Batch(ctx context.Context, jobs []Job, in *prompt.Resolved, concurrency int) ([]ProfileResult, error) {
	results := make([]ProfileResult, len(jobs))

	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			log.Info().Str("profile", job.Profile).Str("provider", job.Provider).Str("model", job.Model).Msg("Starting profile")
			res, err := r.Run(ctx, job, in)
			if err != nil {
				log.Error().Err(err).Str("profile", job.Profile).Msg("Profile failed")
			}
			results[i] = ProfileResult{Profile: job.Profile, Results: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	var failed []ProfileResult
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	if len(failed) > 0 {
		return results, &BatchError{Failed: failed}
	}
	return results, nil
}
