package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lecture-qa/internal/handlers"
	"lecture-qa/internal/http"
	"lecture-qa/internal/watcher"
)

var serveNoWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Runs the HTTP API. When INBOX_DIR is set, audio files dropped into it are
ingested as well.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "do not watch INBOX_DIR")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = a.Close()
	}()

	if a.cfg.InboxDir != "" && !serveNoWatch {
		w, err := watcher.New(a.cfg.InboxDir, a.pipeline)
		if err != nil {
			return fmt.Errorf("failed to create inbox watcher: %w", err)
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				slog.Error("Inbox watcher failed", "error", err)
			}
		}()
	}

	router := http.NewRouter(&http.Deps{
		QAService: a.svc,
		Health: []handlers.HealthCheck{
			{Name: "database", Check: a.db.PingContext},
			{Name: "vector_index", Check: a.store.CheckIndex},
		},
	})
	srv := &nethttp.Server{
		Addr:              ":" + a.cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("API server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
