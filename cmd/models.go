/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/longkey1/bddgen/internal/config"
	"github.com/longkey1/bddgen/internal/deepseek"
	"github.com/longkey1/bddgen/internal/gemini"
	"github.com/longkey1/bddgen/internal/llm"
	"github.com/longkey1/bddgen/internal/openai"
	"github.com/longkey1/bddgen/internal/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var supportedProviders = []string{openai.ProviderName, deepseek.ProviderName, gemini.ProviderName}

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "List available models for the specified provider(s)",
	Long: `List all available models for the specified provider.
Fetches the latest model information directly from the provider's API.

Supported providers: openai, deepseek, gemini

If no provider is specified, lists models from all providers.

Example:
  bddgen models           # List models from all providers
  bddgen models deepseek  # List DeepSeek models`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadValidConfig()
		if err != nil {
			return err
		}

		providers := supportedProviders
		if len(args) > 0 {
			if !slices.Contains(supportedProviders, args[0]) {
				return fmt.Errorf("unsupported provider '%s'\nSupported providers: %s", args[0], strings.Join(supportedProviders, ", "))
			}
			providers = []string{args[0]}
		}

		out := cmd.OutOrStdout()
		listed := 0
		for _, name := range providers {
			models, err := listModels(cmd.Context(), cfg, name)
			if err != nil {
				log.Warn().Err(err).Str("provider", name).Msg("Skipping provider")
				continue
			}
			if listed > 0 {
				fmt.Fprintln(out)
			}
			listed++
			printModels(out, name, models)
		}
		if listed == 0 {
			return fmt.Errorf("no provider returned any models")
		}
		return nil
	},
}

func listModels(ctx context.Context, cfg *config.Config, name string) ([]llm.ModelInfo, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	provider, err := runner.NewProvider(cfg, name)
	if err != nil {
		return nil, err
	}
	lister, ok := provider.(llm.ModelLister)
	if !ok {
		return nil, fmt.Errorf("%s cannot list models", name)
	}
	models, err := lister.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no models returned from API")
	}
	return models, nil
}

func printModels(out io.Writer, provider string, models []llm.ModelInfo) {
	fmt.Fprintf(out, "Available models for %s:\n\n", provider)

	width := 15
	for _, model := range models {
		width = max(width, len(llm.FormatModelString(provider, model.ID)))
	}

	fmt.Fprintf(out, "%-*s  %-7s  %s\n", width, "MODEL", "DEFAULT", "DESCRIPTION")
	fmt.Fprintf(out, "%s  %s  %s\n", strings.Repeat("-", width), strings.Repeat("-", 7), strings.Repeat("-", 40))
	for _, model := range models {
		defaultMark := ""
		if model.IsDefault {
			defaultMark = "Yes"
		}
		fmt.Fprintf(out, "%-*s  %-7s  %s\n", width, llm.FormatModelString(provider, model.ID), defaultMark, model.Description)
	}

	fmt.Fprintf(out, "\nUse a model with: bddgen generate --model <model> <instruction> <user-story>\n")
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
