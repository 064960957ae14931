package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pointer/internal/config"
	"github.com/jmylchreest/pointer/internal/dbus"
	"github.com/jmylchreest/pointer/internal/output"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		output     string
		template   string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pointer",
	Short: "Control the pointer overlay daemon",
	Long: `pointer talks to a running pointerd over the session bus.

It can show and hide the overlay, read the context the overlay was opened
with, edit the settings the worker receives, start and inspect the worker,
and send queries on the overlay's behalf.

Bind 'pointer overlay show' to a hotkey to open the overlay at the cursor.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if globalOpts.output == "" {
			globalOpts.output = cfg.Output.Format
		}
		if !slices.Contains(config.OutputFormats, globalOpts.output) {
			return fmt.Errorf("invalid output format %q, must be one of: %v", globalOpts.output, config.OutputFormats)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/pointer/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&globalOpts.output, "output", "o", "",
		"Output format: text, json, yaml (default from config)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.template, "template", "",
		"Go template applied to the result in text output")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// connect opens a bus client using the configured call timeout.
func connect() (*dbus.Client, error) {
	client, err := dbus.Connect(cfg.Bus.Timeout.Duration())
	if err != nil {
		return nil, err
	}
	logger.Debug("connected to session bus", "timeout", cfg.Bus.Timeout.Duration())
	return client, nil
}

// withClient runs fn with a connected client and closes it afterwards.
func withClient(fn func(*dbus.Client) error) error {
	client, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	if err := fn(client); err != nil {
		if errors.Is(err, dbus.ErrNotRunning) {
			return fmt.Errorf("%w (start it with 'pointerd')", err)
		}
		return err
	}
	return nil
}

// printResult writes v to stdout in the selected output format.
func printResult(v any) error {
	f := output.NewFormatter(output.FormatType(globalOpts.output), output.FormatterOptions{
		Template: globalOpts.template,
	})
	return f.Format(os.Stdout, v)
}
