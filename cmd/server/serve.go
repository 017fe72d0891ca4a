package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raffaelramalhorosa/folio-api/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := loadApp(os.Stdout)
	if err != nil {
		return err
	}
	logger := a.logger

	srv := api.New(api.Deps{
		Journal:          a.journal,
		Entries:          a.entries,
		Writing:          a.writing,
		Playback:         a.playback,
		Probes:           a.probes,
		NotionToken:      a.cfg.Notion.Token,
		NotionDatabaseID: a.cfg.Notion.DatabaseID,
	}, logger)

	// --- Background probes ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.monitor.Start(ctx)

	// --- HTTP server ---
	httpServer := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      srv,
		ReadTimeout:  a.cfg.ReadTimeout(),
		WriteTimeout: a.cfg.WriteTimeout(),
		IdleTimeout:  a.cfg.IdleTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started",
			"port", a.cfg.Server.Port,
			"notion", a.cfg.NotionConfigured(),
			"writing_feed", a.cfg.Writing.FeedURL != "",
			"spotify", a.cfg.Spotify.RefreshToken != "",
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// --- Graceful shutdown ---
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("server stopped")
	return nil
}
