package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/citectx/internal/config"
	"github.com/dgallion1/citectx/internal/grobid"
	"github.com/dgallion1/citectx/internal/pipeline"
	"github.com/dgallion1/citectx/internal/store"
)

// Run starts the pipeline and serves the API until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer db.Close()

	gc := grobid.NewClient(cfg.GrobidURL, cfg.GrobidTimeout, grobid.WithRateLimit(cfg.GrobidRateLimit))
	defer gc.Close()
	if err := gc.IsAlive(ctx); err != nil {
		log.Warn("grobid not reachable, pdf uploads will fail", "url", cfg.GrobidURL, "error", err)
	}

	orch := pipeline.NewOrchestrator(cfg, gc, db, log)
	orch.Start(ctx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      NewServer(orch, gc, log, cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.GrobidTimeout + 60*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting citectx", "port", cfg.Port, "db", cfg.DBPath)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		orch.Stop()
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	err = httpServer.Shutdown(shutdownCtx)
	orch.Stop()
	return err
}
