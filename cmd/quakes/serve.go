package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/quake-data-etl/internal/adapter/http"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API and poll the feed on POLL_INTERVAL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, logger, err := loadApp(ctx, os.Stdout)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := httpadapter.NewServer(a.Config.HTTPAddr, a, a.Query, a.Pipeline, a.Metrics, logger)

			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", "error", err)
					stop()
				}
			}()

			if a.Config.PollInterval > 0 {
				go func() {
					if err := a.Pipeline.Run(ctx, a.Config.PollInterval); err != nil {
						logger.Error("scheduler error", "error", err)
					}
				}()
			} else {
				logger.Info("scheduler disabled; ingest via POST /api/ingest")
			}

			<-ctx.Done()
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
			logger.Info("shutdown complete")
			return nil
		},
	}
}
