// Package cmd implements the schemac command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"
)

// Flag names.
const (
	FlagConfig    = "config"
	FlagEnvFile   = "env-file"
	FlagRoot      = "root"
	FlagOutput    = "output"
	FlagLanguage  = "language"
	FlagLayout    = "layout"
	FlagWorkers   = "workers"
	FlagLogLevel  = "log-level"
	FlagLogFormat = "log-format"
)

type configKey struct{}

// New returns the root command.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemac [sub-command]",
		Short: "Compile a JSON Schema corpus into typed code",
		Long: `schemac reads a directory of JSON Schema documents, resolves references
between them, and generates type definitions for Go, Rust, TypeScript,
Python and GraphQL.

Settings are read from schemac.yaml, then from SCHEMAC_* environment
variables (a .env file is loaded first), then from flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: preRun,
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	flags := cmd.PersistentFlags()
	flags.String(FlagConfig, DefaultConfigFile, "config file")
	flags.String(FlagEnvFile, ".env", "dotenv file loaded before reading SCHEMAC_* variables")
	flags.String(FlagRoot, "", "corpus root directory")
	flags.String(FlagLogLevel, "", "log level: debug, info, warn or error")
	flags.String(FlagLogFormat, "", "log format: text or json")

	cmd.AddCommand(newGenerate())
	cmd.AddCommand(newCheck())
	cmd.AddCommand(newGraph())
	cmd.AddCommand(newExport())
	cmd.AddCommand(newWatch())
	return cmd
}

// preRun resolves the configuration and attaches it and the logger to the
// command context.
func preRun(cmd *cobra.Command, _ []string) error {
	envFile, _ := cmd.Flags().GetString(FlagEnvFile)
	if err := godotenv.Load(envFile); err != nil && (cmd.Flags().Changed(FlagEnvFile) || !errors.Is(err, fs.ErrNotExist)) {
		return fmt.Errorf("env file: %w", err)
	}
	path, _ := cmd.Flags().GetString(FlagConfig)
	cfg, err := LoadConfig(path, cmd.Flags().Changed(FlagConfig))
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}
	ctx := slogcontext.NewCtx(cmd.Context(), logger)
	cmd.SetContext(context.WithValue(ctx, configKey{}, cfg))
	return nil
}

// configFrom returns the configuration resolved by preRun.
func configFrom(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey{}).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}

func newLogger(w io.Writer, c LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if c.Level != "" {
		if err := level.UnmarshalText([]byte(c.Level)); err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: use text or json", c.Format)
	}
}
