package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/longkey1/bddgen/internal/config"
	"github.com/longkey1/bddgen/internal/llm"
	"github.com/longkey1/bddgen/internal/runner"
	"github.com/rs/zerolog/log"
)

// loadConfig loads the configuration, failing when an explicit --config
// file could not be read
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		return nil, configErr
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// loadValidConfig loads the configuration and checks it before use
func loadValidConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newRunner creates a runner wired to the vendor adapters configured in cfg
func newRunner(cfg *config.Config) *runner.Runner {
	return runner.New(
		runner.NewProviderFactory(cfg),
		runner.WithRetryPolicy(cfg.Retry),
		runner.WithRateLimiter(runner.NewLimiter(cfg.RequestsPerMinute)),
		runner.WithAllowAnyModel(cfg.AllowAnyModel),
	)
}

// resolveModel picks the model string: flag, then BDDGEN_MODEL, then the
// instruction template, then the config file. A flag without a provider
// prefix keeps the configured provider.
func resolveModel(cfg *config.Config, flagModel string, templateModel *string) (string, string, error) {
	modelStr := cfg.Model
	switch {
	case flagModel != "":
		modelStr = flagModel
		if !strings.Contains(flagModel, ":") {
			provider, err := cfg.GetProvider()
			if err != nil {
				return "", "", err
			}
			modelStr = llm.FormatModelString(provider, flagModel)
		}
	case os.Getenv("BDDGEN_MODEL") != "":
		modelStr = os.Getenv("BDDGEN_MODEL")
	case templateModel != nil:
		modelStr = *templateModel
		log.Info().Str("model", modelStr).Msg("Using model from instruction template")
	}
	return llm.ParseModelString(modelStr)
}

// resolveOutputDir picks the output directory: flag, then config, then the
// directory holding the user story.
func resolveOutputDir(cfg *config.Config, flagDir, storyPath string) (string, error) {
	dir := flagDir
	if dir == "" {
		dir = cfg.OutputDir
	}
	if dir == "" {
		dir = filepath.Dir(storyPath)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("error resolving output directory '%s': %v", dir, err)
	}
	return abs, nil
}
