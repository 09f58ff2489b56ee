// Package handlers wires the generation pipeline, the story store and
// the reflective chat session into the CLI command tree.
package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"lore/internal/config"
	"lore/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lore",
		Short: "Lore turns browsing history into themed stories with knowledge cards",
		Long: `Lore groups your browsing history into themed stories, expands each
story into five knowledge cards via a remote language model, attaches
images, and lets you reflect on a story in an interactive chat.`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.lore.yaml)")

	rootCmd.AddCommand(NewGenerateCmd())
	rootCmd.AddCommand(NewStoriesCmd())
	rootCmd.AddCommand(NewChatCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig records the --config override so config.Load picks it up.
func initConfig() {
	if cfgFile != "" {
		viper.Set("config_file", cfgFile)
	}
}

// loadConfig loads configuration and applies the configured log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.App.Debug {
		logger.SetLevel("debug")
	} else if cfg.App.LogLevel != "" {
		logger.SetLevel(cfg.App.LogLevel)
	}

	return cfg, nil
}
