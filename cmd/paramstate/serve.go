package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/paramstate/internal/backend"
	"github.com/vango-dev/paramstate/internal/paramset"
	"github.com/vango-dev/paramstate/internal/server"
)

func serveCmd(dir *string) *cobra.Command {
	var (
		port    int
		host    string
		backEnd string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve parameters over HTTP and WebSocket",
		Long: `Serve the parameters declared in paramstate.json.

Routes:
  GET  /params          current values for a session and location
  POST /params/{name}   set one value
  GET  /live            live WebSocket session
  GET  /metrics         Prometheus metrics

Examples:
  paramstate serve
  paramstate serve --port=8080 --backend=sqlite`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*dir)
			if err != nil {
				return err
			}

			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if backEnd != "" {
				cfg.Storage.Backend = backEnd
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(cfg.Log, cmd.ErrOrStderr())

			set, err := paramset.FromConfig(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := backend.Open(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := server.New(server.Options{
				Config: cfg,
				Store:  store,
				Params: set,
				Logger: logger,
			})
			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from paramstate.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from paramstate.json)")
	cmd.Flags().StringVar(&backEnd, "backend", "", "Storage backend: memory, sqlite, s3 or nats")

	return cmd
}
