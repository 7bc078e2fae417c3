// Package cli provides the biotica command-line interface.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alexshd/biotica/internal/config"
	"github.com/alexshd/biotica/internal/logging"
	"github.com/alexshd/biotica/internal/store"
)

// Version is set at build time.
var Version = "dev"

var (
	cfg        config.Config
	logger     *slog.Logger
	database   *store.DB
	configPath string
	dbPath     string
	logLevel   string
	outputText bool // --text flag for human-readable output (default is JSON)
)

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "biotica",
		Short: "Index of Biotic Resilience scoring and early-warning detection",
		Long: `biotica - Index of Biotic Resilience

Score ecosystem plots from nine ecological parameters, classify them into
resilience tiers and watch IBR time series for critical slowing down.

Quick Start:
  biotica compute --input plot.json        # Score one plot
  biotica batch --input plots.json         # Score many plots concurrently
  biotica detect --input series.json       # Tipping-point analysis
  biotica ews --input series.json          # Rolling early-warning indicators
  biotica biome show tropical_rainforest   # Biome reference profile
  biotica serve                            # HTTP API`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Store.Path = dbPath
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			logger, err = logging.New(cfg.Log)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if database != nil {
				database.Close()
				database = nil
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Result archive path (overrides config and BIOTICA_DB)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&outputText, "text", false, "Human-readable text output (default is JSON)")

	rootCmd.AddCommand(
		newVersionCommand(),
		newComputeCommand(),
		newBatchCommand(),
		newScenarioCommand(),
		newSensitivityCommand(),
		newDetectCommand(),
		newEWSCommand(),
		newBiomeCommand(),
		newResultsCommand(),
		newExportCommand(),
		newServeCommand(),
	)
	return rootCmd
}

// Execute runs the CLI
func Execute() error {
	cmd := NewRootCommand()
	err := cmd.Execute()
	if err != nil {
		outputError(cmd.ErrOrStderr(), err)
	}
	return err
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "biotica version %s\n", Version)
		},
	}
}

// openStore opens the archive once per invocation.
func openStore() (*store.DB, error) {
	if database != nil {
		return database, nil
	}
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	database = db
	return db, nil
}

// textFormatter is implemented by values with a human-readable rendering.
type textFormatter interface {
	text(w io.Writer)
}

// outputResult outputs the result in the appropriate format
// Default is JSON, use --text for human-readable
func outputResult(w io.Writer, result interface{}) error {
	if outputText {
		if tf, ok := result.(textFormatter); ok {
			tf.text(w)
			return nil
		}
		_, err := fmt.Fprintf(w, "%+v\n", result)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError outputs an error in the appropriate format
func outputError(w io.Writer, err error) {
	if outputText {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "error",
		"error":  err.Error(),
	})
}

// readInputJSON reads JSON from a file, or from stdin when input is "-".
func readInputJSON(cmd *cobra.Command, input string, v interface{}) error {
	var (
		data []byte
		err  error
	)
	if input == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		if len(data) == 0 {
			return fmt.Errorf("no input provided on stdin")
		}
	} else {
		data, err = os.ReadFile(input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}
