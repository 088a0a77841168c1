// Package main is the Tansaku CLI entry point.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/config"
	"github.com/hyperjump/tansaku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/tansaku/config.yaml"

var (
	cfgFile   string
	debugFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "tansaku",
	Short: "Hybrid retrieval with knowledge-graph context",
	Long: `Tansaku assembles evidence for market-research questions. It fuses vector
and keyword search over indexed documents, reranks the head with a
cross-encoder and augments the result with typed nodes from a property graph.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is normal outside development.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "warning: .env not loaded: %v\n", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", defaultConfigPath, "config file path")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("%w (run \"tansaku init --config %s\" to create one)", err, path)
		}
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads the config and builds a logger honouring --debug.
func setup() (*config.Config, string, *zap.Logger, error) {
	cfg, path, err := loadConfig(cfgFile)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, path, logger, nil
}

// joinArgs joins positional args so multi-word queries work with or without quotes.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
