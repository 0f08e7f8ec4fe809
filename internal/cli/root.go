// Package cli implements the cobra-based CLI commands for ims2tif.
//
// Each subcommand (convert, batch, info) is defined in its own file within
// this package. This file defines the root command that serves as the
// parent for all subcommands and handles global flags.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ims2tif/pkg/config"
)

// Global flag variables shared across all subcommands, bound to cobra
// persistent flags on the root command.
var (
	// verbose enables debug-level logging on stderr.
	verbose bool

	// configPath points at an optional YAML configuration file supplying
	// defaults for flags the user did not pass.
	configPath string
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ims2tif",
		Short: "Convert Imaris IMS microscopy files to TIF",
		Long: `ims2tif converts Imaris IMS containers (HDF5-based microscopy files) into
TIF stacks, with per-slice, OME-annotated and compressed export variants,
optional removal of empty Z-planes, and batch conversion of whole
directory trees.`,

		// We format errors ourselves for cleaner output.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: Version,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML configuration file")

	rootCmd.AddCommand(NewConvertCommand())
	rootCmd.AddCommand(NewBatchCommand())
	rootCmd.AddCommand(NewInfoCommand())

	return rootCmd
}

// Execute runs the root command and translates errors into exit codes.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the console logger used by every subcommand.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// loadConfig resolves the configuration file, falling back to defaults when
// no --config flag was given.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", configPath, err)
	}
	return cfg, nil
}
