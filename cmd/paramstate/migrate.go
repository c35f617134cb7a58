package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vango-dev/paramstate/internal/backend"
	"github.com/vango-dev/paramstate/internal/config"
	"github.com/vango-dev/paramstate/internal/errors"
	"github.com/vango-dev/paramstate/internal/paramset"
	"github.com/vango-dev/paramstate/pkg/diag"
	"github.com/vango-dev/paramstate/pkg/history"
)

func migrateCmd(dir *string) *cobra.Command {
	var (
		session  string
		location string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply migrations to stored values",
		Long: `Run the migrations declared in paramstate.json over stored values.

This is the same pass the server runs when a session starts. Rules whose
condition does not hold leave values untouched, so running it twice is safe
when every rule checks the version it migrates from.

Examples:
  paramstate migrate
  paramstate migrate --session=6f1c2a4e-8a8b-4c3d-9e2f-0a1b2c3d4e5f`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*dir)
			if err != nil {
				return err
			}
			return runMigrate(cmd, cfg, session, location)
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "Scope keys to a server session id")
	cmd.Flags().StringVar(&location, "location", "/", "Location query parameters are read from")

	return cmd
}

func runMigrate(cmd *cobra.Command, cfg *config.Config, session, location string) error {
	out := cmd.OutOrStdout()

	set, err := paramset.FromConfig(cfg)
	if err != nil {
		return errors.New("E400").Wrap(err)
	}
	if len(set.Migrations()) == 0 {
		info(out, "No migrations declared")
		return nil
	}

	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	store, err := backend.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	report := &migrateReport{w: out}
	h := history.NewMemory(location)
	page := set.Mount(sessionScope(store, cfg, session), h, diag.Multi(diag.NewLogger(logger), report))
	defer page.Close()
	page.Render()

	if h.Location().String() != history.ParseLocation(location).String() {
		info(out, "Location is now %s", h.Location())
	}
	if report.failed > 0 {
		return errors.New("E402").WithDetail(fmt.Sprintf("%d operations failed", report.failed))
	}
	if report.applied == 0 {
		info(out, "Nothing to migrate")
		return nil
	}
	success(out, "Migrated %d parameters", report.applied)
	return nil
}

// migrateReport prints diagnostics as they arrive.
type migrateReport struct {
	w       io.Writer
	applied int
	failed  int
}

func (r *migrateReport) UnregisteredParameter(name string) {
	warn(r.w, "%s is not registered", name)
}

func (r *migrateReport) MigrationApplied(name string, count int, from, to any) {
	r.applied++
	success(r.w, "%s: %d rules, %s → %s", name, count, show(from), show(to))
}

func (r *migrateReport) BindingError(kind, key string, err error) {
	r.failed++
	warn(r.w, "%s %s: %v", kind, key, err)
}

func show(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
