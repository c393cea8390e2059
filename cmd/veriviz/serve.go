// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/veriviz/internal/server"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline over HTTP",
	Long: `Serve starts an HTTP API around a single pipeline. POST /api/research
starts a run and supersedes any run in flight; GET /api/events streams
state changes as server-sent events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := newStages(ctx, cfg, logger)
		if err != nil {
			return err
		}
		orch := st.orchestrator(cfg, logger)
		srv := server.New(orch, server.WithLogger(logger), server.WithRunContext(ctx))

		httpServer := &http.Server{
			Addr:              cfg.Serve.Addr,
			Handler:           srv.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.WithField("addr", cfg.Serve.Addr).Info("listening")
			errCh <- httpServer.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		srv.Wait()
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, :8080)")
	bindFlag(serveCmd, "addr", "serve.addr")

	rootCmd.AddCommand(serveCmd)
}
