package cmd

import (
	"fmt"
	"strings"

	"github.com/longkey1/bddgen/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configFields = []string{
	"configfile", "model",
	"openai_base_url", "openai_token",
	"deepseek_base_url", "deepseek_token",
	"gemini_base_url", "gemini_token",
	"output_dir", "temperature", "request_timeout", "requests_per_minute",
	"batch_concurrency", "allow_any_model", "retry", "profiles",
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config [field]",
	Short: "Display current configuration",
	Long: `Display the current configuration values.
This command shows all configuration values loaded from the config file and environment variables.

If a field name is specified, only that field's value is displayed.
Available fields: ` + strings.Join(configFields, ", ") + `

Examples:
  bddgen config                  # Show all configuration
  bddgen config model            # Show only model
  bddgen config deepseek_token   # Show only DeepSeek token (masked)
  bddgen config profiles         # Show only profile names`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		values := configValues(cfg)
		out := cmd.OutOrStdout()

		if len(args) > 0 {
			field := strings.ToLower(args[0])
			value, ok := values[field]
			if !ok {
				return fmt.Errorf("unknown field: %s (available fields: %s)", args[0], strings.Join(configFields, ", "))
			}
			fmt.Fprintln(out, value)
			return nil
		}

		for _, field := range configFields {
			fmt.Fprintf(out, "%s: %s\n", field, values[field])
		}
		return nil
	},
}

// configValues renders every displayable field, tokens masked
func configValues(cfg *config.Config) map[string]string {
	temperature := "(provider default)"
	if cfg.Temperature != nil {
		temperature = fmt.Sprintf("%v", *cfg.Temperature)
	}
	names := make([]string, 0, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		names = append(names, p.Name)
	}

	return map[string]string{
		"configfile":          viper.ConfigFileUsed(),
		"model":               cfg.Model,
		"openai_base_url":     cfg.OpenAIBaseURL,
		"openai_token":        maskToken(cfg.OpenAIToken),
		"deepseek_base_url":   cfg.DeepSeekBaseURL,
		"deepseek_token":      maskToken(cfg.DeepSeekToken),
		"gemini_base_url":     cfg.GeminiBaseURL,
		"gemini_token":        maskToken(cfg.GeminiToken),
		"output_dir":          cfg.OutputDir,
		"temperature":         temperature,
		"request_timeout":     cfg.RequestTimeout.String(),
		"requests_per_minute": fmt.Sprintf("%d", cfg.RequestsPerMinute),
		"batch_concurrency":   fmt.Sprintf("%d", cfg.BatchConcurrency),
		"allow_any_model":     fmt.Sprintf("%v", cfg.AllowAnyModel),
		"retry": fmt.Sprintf("max_attempts=%d initial_delay=%s max_delay=%s multiplier=%g jitter=%g",
			cfg.Retry.MaxAttempts, cfg.Retry.InitialDelay, cfg.Retry.MaxDelay, cfg.Retry.Multiplier, cfg.Retry.Jitter),
		"profiles": strings.Join(names, ","),
	}
}

// maskToken returns a masked version of the token for security
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "********"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func init() {
	rootCmd.AddCommand(configCmd)
}
