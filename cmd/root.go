/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/longkey1/bddgen/internal/config"
	"github.com/longkey1/bddgen/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	debug     bool

	// configErr is set when the file named by --config cannot be read
	configErr error
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bddgen",
	Short: "Generate Gherkin feature files from user stories with LLMs",
	Long: `bddgen sends an instruction and a user story to an LLM provider
(OpenAI, DeepSeek or Gemini) and writes the generated Gherkin feature file.
You can configure the tool using a TOML configuration file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/bddgen/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print prompt and settings (same as --log-level debug)")
}

// userConfigDir returns $HOME/.config/bddgen
func userConfigDir() string {
	home, err := os.UserHomeDir()
	cobra.CheckErr(err)
	return filepath.Join(home, ".config", "bddgen")
}

// initConfig sets up logging, then reads in config file and ENV variables if set.
func initConfig() {
	level := logLevel
	if debug {
		level = "debug"
	}
	cobra.CheckErr(logging.Init(logging.Config{Level: level, Format: logFormat}, os.Stderr))

	viper.SetEnvPrefix("BDDGEN")
	viper.AutomaticEnv()

	config.SetDefaults(config.NewDefaultConfig())

	// Bind environment variables
	for _, key := range []string{
		"model",
		"openai_base_url", "openai_token",
		"deepseek_base_url", "deepseek_token",
		"gemini_base_url", "gemini_token",
		"output_dir", "request_timeout", "requests_per_minute", "batch_concurrency",
	} {
		viper.BindEnv(key)
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
		configErr = nil
		if err := viper.ReadInConfig(); err != nil {
			configErr = fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		return
	}

	// Load system-wide config first (lower priority)
	for _, path := range []string{"/etc/bddgen", "/usr/local/etc/bddgen"} {
		viper.AddConfigPath(path)
	}
	viper.SetConfigType("toml")
	viper.SetConfigName("config")

	systemConfigLoaded := false
	if err := viper.ReadInConfig(); err == nil {
		systemConfigLoaded = true
		log.Debug().Str("config", viper.ConfigFileUsed()).Msg("Loaded system-wide config")
	}

	// Load user config (higher priority) - merge with system config
	viper.AddConfigPath(userConfigDir())
	if systemConfigLoaded {
		if err := viper.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				log.Error().Err(err).Msg("Error merging user config file")
			}
		} else {
			log.Debug().Str("config", viper.ConfigFileUsed()).Msg("Merged user config")
		}
		return
	}
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Error().Err(err).Msg("Error reading config file")
		}
	}
}
