package main

import (
	"encoding/json"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/paramstate/internal/config"
	"github.com/vango-dev/paramstate/internal/errors"
	"github.com/vango-dev/paramstate/pkg/param/exprmigrate"
)

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create paramstate.json",
		Long: `Create a paramstate.json with default settings and example parameters.

Examples:
  paramstate init
  paramstate init ./service --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing paramstate.json")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	if config.Exists(dir) && !force {
		return errors.Newf(errors.CategoryCLI, "%s already exists in %s", config.ConfigFileName, dir).
			WithSuggestion("Pass --force to overwrite it")
	}

	cfg := config.New()
	cfg.Params = []config.ParamConfig{
		{Name: "theme", Kind: config.KindLocal, Encoder: config.EncoderString, Default: json.RawMessage(`"light"`)},
		{Name: "page", Kind: config.KindQuery, Encoder: config.EncoderNumber, Mode: "push", Default: json.RawMessage(`1`)},
		{Name: "filters", Kind: config.KindQuery, Encoder: config.EncoderSparse, Base64: true, Default: json.RawMessage(`{"open":true,"owner":""}`)},
	}
	cfg.Migrations = []exprmigrate.Rule{
		{Param: "theme", When: "value == 'default'", Update: "'light'"},
	}

	path := filepath.Join(dir, config.ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		return err
	}
	success(cmd.OutOrStdout(), "Created %s", path)
	return nil
}
