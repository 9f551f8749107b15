// Package main implements ragchat, a conversational question answering tool
// over a local document collection.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ragchat/internal/config"
	"ragchat/internal/logging"
)

var (
	cfgPath  string
	logLevel string
	version  = "dev"
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ragchat",
	Short: "Ask questions about your documents",
	Long: `ragchat indexes text, markdown and PDF files and answers questions about
them, keeping a short conversation history between questions.

Examples:
  # Build an index once and reuse it
  ragchat index docs/ --out docs.index.json
  ragchat ask "What does chapter 2 cover?" --index docs.index.json --sources

  # Chat interactively over a folder
  ragchat chat docs/`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (defaults to ./ragchat.yaml or ~/.config/ragchat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
}

// loadConfig resolves the config file and builds the logger it describes.
func loadConfig() (*config.AppConfig, *zap.Logger, error) {
	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
