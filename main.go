package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	cfg     *Config
	logger  *slog.Logger
	logDst  io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "wikirag",
	Short: "Retrieval-augmented answering over user documents and Wikipedia dumps",
	Long: `wikirag ingests user documents and Wikipedia XML dumps into a vector
store, then answers questions grounded in the retrieved chunks.

Example usage:
  wikirag ingest             # Ingest user docs and dump files
  wikirag ingest --watch     # Ingest, then re-ingest user docs on change
  wikirag serve              # Serve the HTTP query API
  wikirag mcp                # Expose corpus search as an MCP tool`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A .env next to the binary, if present, feeds the overrides.
		_ = godotenv.Load()

		var err error
		cfg, err = readConfig(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger, err = newLogger(cfg)
		if err != nil {
			return err
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logDst != nil {
			logDst.Close()
		}
	},
}

func newLogger(cfg *Config) (*slog.Logger, error) {
	if cfg.LogFile == "" {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil)), nil
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logDst = logFile
	return slog.New(slog.NewJSONHandler(logFile, nil)), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "wikirag.yaml", "configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
