// Package cli provides the command-line interface for the document classifier.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"DocumentClassifier/internal/app"
	"DocumentClassifier/internal/config"
	"DocumentClassifier/internal/logging"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	configPath string
	verbose    bool

	cfg         config.Config
	application *app.Application
	logCloser   io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "documentclassifier",
	Short: "Document ingestion and classification pipeline",
	Long: `Documentclassifier extracts text from uploaded documents, scans and archives,
classifies them with a generative model, decides who should see them and
notifies the matching department members.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		if configPath != "" {
			if err := os.Setenv(config.PathEnv, configPath); err != nil {
				return fmt.Errorf("set config path: %w", err)
			}
		}
		cfg = config.Load()
		if verbose {
			cfg.Logging.Level = "debug"
		}

		logger, closer, err := logging.NewWithFile(cfg.Logging.Level, cfg.Logging.File)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logCloser = closer

		application, err = app.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("build application: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if application != nil {
			if err := application.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
			}
		}
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config (overrides "+config.PathEnv+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(directoryCmd)
}
