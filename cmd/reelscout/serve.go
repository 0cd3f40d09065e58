package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpDelivery "github.com/reelscout/backend/internal/delivery/http"
	"github.com/reelscout/backend/internal/infrastructure/jobs"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(runCtx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			dispatcher := jobs.NewDispatcher(jobs.Config{
				MaxAttempts: cfg.Ingest.MaxAttempts,
				Backoff:     cfg.Ingest.Backoff,
				Retention:   cfg.Ingest.JobRetention,
			}, a.logger)
			dispatcher.Register(jobs.KindIngest, func(jobCtx context.Context) (any, error) {
				return a.ingest.Ingest(jobCtx)
			})
			dispatcher.Start(runCtx)

			handler := httpDelivery.NewHandler(a.inventory, a.store, dispatcher, a.logger)
			router := httpDelivery.SetupRouter(cfg, handler)

			server := &http.Server{
				Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
				Handler: router,
			}

			serveErr := make(chan error, 1)
			go func() {
				a.logger.Info("server listening",
					"addr", server.Addr,
					"environment", cfg.Server.Environment,
					"version", httpDelivery.Version,
				)
				serveErr <- server.ListenAndServe()
			}()

			select {
			case err := <-serveErr:
				stop()
				dispatcher.Wait()
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("failed to start server: %w", err)
			case <-runCtx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			dispatcher.Wait()
			return nil
		},
	}
}
