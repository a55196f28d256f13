package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ChamsBouzaiene/phoenix/internal/httpapi"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tutor over HTTP",
		Long: `Serve the tutor over HTTP. Endpoints:
  POST /api/query                 {"query": "...", "code": "..."}
  GET  /api/session               active session
  GET  /api/report                recent interactions
  GET  /api/stats                 agent usage
  GET  /api/agents                registered agents
  GET  /api/interactions/search   ?q=terms&limit=n
  GET  /api/interactions/{id}     one stored interaction
  GET  /health`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(false); err != nil {
				return err
			}
			if addr == "" {
				addr = a.settings.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tutor, err := a.buildTutor(ctx)
			if err != nil {
				return err
			}
			defer tutor.Close()

			handler := httpapi.NewHandler(tutor.Orchestrator, tutor.History, tutor.Search, a.logger.Named("http"))
			srv := httpapi.NewServer(addr, handler.Router())

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return httpapi.Serve(gctx, srv, a.logger) })
			g.Go(func() error { return tutor.WatchPersonas(gctx) })
			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default $PHOENIX_ADDR or :8080)")
	return cmd
}
