package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/longkey1/bddgen/internal/config"
	"github.com/longkey1/bddgen/internal/prompt"
	"github.com/longkey1/bddgen/internal/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	apiKey      string
	outputDir   string
	outputFile  string
	model       string
	layout      string
	temperature float64
	seed        int
	randomSeed  bool
	stripFence  bool
	transcript  bool
	times       int
	argFlags    []string
)

// generateCmd represents the generate command
var generateCmd = &cobra.Command{
	Use:   "generate <instruction> <user-story>",
	Short: "Generate a Gherkin feature file from a user story",
	Long: `Send an instruction and a user story to the LLM and write the
generated feature file.

The instruction is either a plain text file, sent verbatim, or a TOML
template with the following structure:
system = "System prompt with optional {{placeholders}}"
user = "User prompt with {{input}} replaced by the user story"
model = "optional provider:model"  # Optional: overrides the configured model

The message layout follows the provider unless --layout is given:
  openai    prepend      story first, then the instruction, both as user messages
  deepseek  system-user  instruction as system message, story as user message
  gemini    combined     one user message: instruction, blank line, story

Output goes to --output-dir, the configured output_dir, or the directory of
the user story. With --times N > 1 every run writes into run-001, run-002, ...`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		instructionPath, storyPath := args[0], args[1]

		cfg, err := loadValidConfig()
		if err != nil {
			return err
		}

		in, err := prompt.Resolve(instructionPath, storyPath, argFlags)
		if err != nil {
			return err
		}

		provider, modelName, err := resolveModel(cfg, model, in.Model)
		if err != nil {
			return err
		}
		if apiKey != "" {
			if err := cfg.SetToken(provider, apiKey); err != nil {
				return err
			}
		}

		dir, err := resolveOutputDir(cfg, outputDir, storyPath)
		if err != nil {
			return err
		}

		job := runner.Job{
			Provider:   provider,
			Model:      modelName,
			Layout:     runner.Layout(layout),
			RandomSeed: randomSeed,
			OutputDir:  dir,
			OutputFile: outputFile,
			Transcript: transcript,
			Times:      times,
		}
		if err := applySampling(cmd, cfg, &job); err != nil {
			return err
		}
		if cmd.Flags().Changed("strip-fence") {
			job.StripFence = &stripFence
		}

		log.Debug().
			Str("instruction", instructionPath).
			Str("story", storyPath).
			Str("provider", provider).
			Str("model", modelName).
			Str("output_dir", dir).
			Int("times", times).
			Msg("Settings")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		results, err := newRunner(cfg).Run(ctx, job, in)
		for _, res := range results {
			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
		}
		return err
	},
}

// applySampling copies temperature and seed flags onto job, falling back to
// the configured temperature.
func applySampling(cmd *cobra.Command, cfg *config.Config, job *runner.Job) error {
	if cmd.Flags().Changed("temperature") {
		if err := config.ValidateTemperature(temperature); err != nil {
			return err
		}
		t := float32(temperature)
		job.Temperature = &t
	} else if cfg.Temperature != nil {
		t := float32(*cfg.Temperature)
		job.Temperature = &t
	}

	if cmd.Flags().Changed("seed") {
		if randomSeed {
			return fmt.Errorf("cannot specify both --seed and --random-seed")
		}
		s := seed
		job.Seed = &s
	}
	return nil
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVar(&apiKey, "api-key", "", "API key for the selected provider (overrides the configured token)")
	generateCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory to write results to")
	generateCmd.Flags().StringVar(&outputFile, "output-file", "", "Result file name (default depends on the provider)")
	generateCmd.Flags().StringVarP(&model, "model", "m", "", "Model to use (provider:model, or a model of the configured provider)")
	generateCmd.Flags().StringVar(&layout, "layout", "", "Message layout: prepend, system-user or combined (default depends on the provider)")
	generateCmd.Flags().Float64VarP(&temperature, "temperature", "t", 0, "Sampling temperature between 0 and 2")
	generateCmd.Flags().IntVar(&seed, "seed", 0, "Fixed sampling seed")
	generateCmd.Flags().BoolVar(&randomSeed, "random-seed", false, "Draw a new random seed for every run")
	generateCmd.Flags().BoolVar(&stripFence, "strip-fence", false, "Strip a leading ```gherkin fence from the response (default on for the prepend layout)")
	generateCmd.Flags().BoolVar(&transcript, "transcript", false, "Write every conversation message to msg<N>.txt")
	generateCmd.Flags().IntVarP(&times, "times", "n", 1, "Number of independent runs")
	generateCmd.Flags().StringArrayVarP(&argFlags, "arg", "a", []string{}, "Template arguments in key:value format")
	generateCmd.MarkFlagsMutuallyExclusive("seed", "random-seed")
}
