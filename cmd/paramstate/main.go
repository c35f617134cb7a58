package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/paramstate/internal/config"
	"github.com/vango-dev/paramstate/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dir string

	rootCmd := &cobra.Command{
		Use:   "paramstate",
		Short: "Serve and maintain shared parameter state",
		Long: `paramstate keeps named parameters in durable storage or in the URL,
migrates them between versions, and serves them to clients.

Parameters, migrations and the storage backend are declared in
paramstate.json; PARAMSTATE_* environment variables override it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&dir, "dir", "C", ".", "Directory to search for paramstate.json")

	rootCmd.AddCommand(
		initCmd(),
		serveCmd(&dir),
		storeCmd(&dir),
		migrateCmd(&dir),
		versionCmd(),
	)
	return rootCmd
}

// loadConfig finds paramstate.json at or above dir, applies environment
// overrides, and validates the result.
func loadConfig(dir string) (*config.Config, error) {
	root, err := config.FindRoot(dir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the slog logger described by cfg.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// argsError reports a usage problem as a coded error.
func argsError(cmd *cobra.Command, detail string) error {
	return errors.New("E600").
		WithDetail(detail).
		WithExample(cmd.UseLine())
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
