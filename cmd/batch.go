package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"

	"github.com/longkey1/bddgen/internal/config"
	"github.com/longkey1/bddgen/internal/prompt"
	"github.com/longkey1/bddgen/internal/runner"
	"github.com/spf13/cobra"
)

var (
	batchOutputDir  string
	batchTimes      int
	batchRandomSeed bool
	batchTranscript bool
	batchProfiles   []string
	batchArgs       []string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <instruction> <user-story>",
	Short: "Run every configured profile against the same user story",
	Long: `Run each [[profiles]] entry of the configuration concurrently and write
its results into <output-dir>/<profile name>/.

Example profile:
  [[profiles]]
  name = "deepseek-coder"
  model = "deepseek:deepseek-coder"
  temperature = 0.2
  seed = 42

At most batch_concurrency profiles run at once and requests_per_minute
paces every vendor request across all of them. A failing profile does not
stop the others; failures are reported together at the end.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		instructionPath, storyPath := args[0], args[1]

		cfg, err := loadValidConfig()
		if err != nil {
			return err
		}

		profiles, err := selectProfiles(cfg.Profiles, batchProfiles)
		if err != nil {
			return err
		}

		in, err := prompt.Resolve(instructionPath, storyPath, batchArgs)
		if err != nil {
			return err
		}

		dir, err := resolveOutputDir(cfg, batchOutputDir, storyPath)
		if err != nil {
			return err
		}

		base := runner.Job{
			OutputDir:  dir,
			Times:      batchTimes,
			RandomSeed: batchRandomSeed,
			Transcript: batchTranscript,
		}
		jobs := make([]runner.Job, 0, len(profiles))
		for _, p := range profiles {
			job, err := runner.JobFromProfile(cfg, p, base)
			if err != nil {
				return err
			}
			jobs = append(jobs, job)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		results, err := newRunner(cfg).Batch(ctx, jobs, in, cfg.BatchConcurrency)
		for _, res := range results {
			status := "ok"
			if res.Err != nil {
				status = "failed"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d run(s))\n", res.Profile, status, len(res.Results))
		}
		return err
	},
}

// selectProfiles filters profiles by name, keeping config order
func selectProfiles(profiles []config.Profile, names []string) ([]config.Profile, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no [[profiles]] configured")
	}
	if len(names) == 0 {
		return profiles, nil
	}

	var selected []config.Profile
	for _, p := range profiles {
		if slices.Contains(names, p.Name) {
			selected = append(selected, p)
		}
	}
	for _, name := range names {
		if !slices.ContainsFunc(selected, func(p config.Profile) bool { return p.Name == name }) {
			return nil, fmt.Errorf("unknown profile: %s", name)
		}
	}
	return selected, nil
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchOutputDir, "output-dir", "o", "", "Base directory for profile results")
	batchCmd.Flags().IntVarP(&batchTimes, "times", "n", 1, "Number of independent runs per profile")
	batchCmd.Flags().BoolVar(&batchRandomSeed, "random-seed", false, "Draw a new random seed for every run of profiles without a fixed seed")
	batchCmd.Flags().BoolVar(&batchTranscript, "transcript", false, "Write every conversation message to msg<N>.txt")
	batchCmd.Flags().StringSliceVarP(&batchProfiles, "profile", "p", nil, "Run only the named profiles")
	batchCmd.Flags().StringArrayVarP(&batchArgs, "arg", "a", []string{}, "Template arguments in key:value format")
}
