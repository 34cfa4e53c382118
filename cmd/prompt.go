/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/longkey1/bddgen/internal/llm"
	"github.com/longkey1/bddgen/internal/prompt"
	"github.com/longkey1/bddgen/internal/runner"
	"github.com/spf13/cobra"
)

var (
	previewModel  string
	previewLayout string
	previewArgs   []string
)

// promptCmd represents the prompt command
var promptCmd = &cobra.Command{
	Use:   "prompt <instruction> <user-story>",
	Short: "Show the messages that would be sent, without calling the API",
	Long: `Resolve the instruction and user story, lay them out for the selected
provider and print every message in the order it would be sent, together
with an estimated prompt token count.

The instruction file is either plain text or a TOML template:
system = "System prompt with optional {{placeholders}}"
user = "User prompt with {{input}} replaced by the user story"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadValidConfig()
		if err != nil {
			return err
		}

		in, err := prompt.Resolve(args[0], args[1], previewArgs)
		if err != nil {
			return err
		}

		provider, modelName, err := resolveModel(cfg, previewModel, in.Model)
		if err != nil {
			return err
		}

		l := runner.DefaultLayout(provider)
		if previewLayout != "" {
			if l, err = runner.ParseLayout(previewLayout); err != nil {
				return err
			}
		}

		messages, err := l.Messages(in)
		if err != nil {
			return err
		}

		tokens, err := runner.EstimateTokens(modelName, messages)
		if err != nil {
			return err
		}

		printPreview(cmd.OutOrStdout(), llm.FormatModelString(provider, modelName), l, messages, tokens)
		return nil
	},
}

func printPreview(out io.Writer, model string, l runner.Layout, messages []llm.Message, tokens int) {
	fmt.Fprintf(out, "Model: %s\nLayout: %s\nEstimated prompt tokens: %d\n", model, l, tokens)
	for i, msg := range messages {
		fmt.Fprintf(out, "\n--- message %d (%s) ---\n%s\n", i, msg.Role, msg.Content)
	}
}

func init() {
	rootCmd.AddCommand(promptCmd)

	promptCmd.Flags().StringVarP(&previewModel, "model", "m", "", "Model to use (provider:model, or a model of the configured provider)")
	promptCmd.Flags().StringVar(&previewLayout, "layout", "", "Message layout: prepend, system-user or combined")
	promptCmd.Flags().StringArrayVarP(&previewArgs, "arg", "a", []string{}, "Template arguments in key:value format")
}
