package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/paramstate/internal/backend"
	"github.com/vango-dev/paramstate/internal/config"
	"github.com/vango-dev/paramstate/pkg/storage"
)

func storeCmd(dir *string) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Read and write stored values",
		Long: `Read and write values in the configured storage backend.

Values are the serialized text bindings store, e.g. "abc" for a string
parameter or {"open":false} for a JSON one. With --session, keys are scoped
to that live session as the server scopes them.

Examples:
  paramstate store get theme
  paramstate store set theme dark --session=6f1c2a4e-8a8b-4c3d-9e2f-0a1b2c3d4e5f
  paramstate store rm theme`,
	}
	cmd.PersistentFlags().StringVar(&session, "session", "", "Scope keys to a server session id")

	open := func(cmd *cobra.Command) (backend.Store, storage.Storage, error) {
		cfg, err := loadConfig(*dir)
		if err != nil {
			return nil, nil, err
		}
		store, err := backend.Open(cmd.Context(), cfg, newLogger(config.LogConfig{Level: "warn"}, cmd.ErrOrStderr()))
		if err != nil {
			return nil, nil, err
		}
		return store, sessionScope(store, cfg, session), nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print the value stored under key",
			RunE: func(cmd *cobra.Command, args []string) error {
				if len(args) != 1 {
					return argsError(cmd, "get takes exactly one key")
				}
				store, s, err := open(cmd)
				if err != nil {
					return err
				}
				defer store.Close()

				v, err := backend.Get(s, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Store value under key",
			RunE: func(cmd *cobra.Command, args []string) error {
				if len(args) != 2 {
					return argsError(cmd, "set takes a key and a value")
				}
				store, s, err := open(cmd)
				if err != nil {
					return err
				}
				defer store.Close()

				if err := backend.Set(s, args[0], args[1]); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "Stored %s", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:     "rm <key>",
			Aliases: []string{"remove", "delete"},
			Short:   "Remove key",
			RunE: func(cmd *cobra.Command, args []string) error {
				if len(args) != 1 {
					return argsError(cmd, "rm takes exactly one key")
				}
				store, s, err := open(cmd)
				if err != nil {
					return err
				}
				defer store.Close()

				if err := backend.Remove(s, args[0]); err != nil {
					return err
				}
				success(cmd.OutOrStdout(), "Removed %s", args[0])
				return nil
			},
		},
	)

	return cmd
}

// sessionScope returns s scoped to session the way the server scopes it,
// or s itself when session is empty.
func sessionScope(s storage.Storage, cfg *config.Config, session string) storage.Storage {
	if session == "" {
		return s
	}
	return storage.WithPrefix(s, cfg.Server.SessionPrefix+session+":")
}
