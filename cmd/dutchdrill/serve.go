package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/conorfennell/dutchdrill/internal/content"
	"github.com/conorfennell/dutchdrill/internal/scheduler"
	"github.com/conorfennell/dutchdrill/internal/sync"
	"github.com/conorfennell/dutchdrill/internal/web"
)

const (
	sessionTTL      = 2 * time.Hour
	expireInterval  = 10 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	db, err := a.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	lib, err := a.loadLibrary(db)
	if err != nil {
		return err
	}
	manager := a.newManager(db, lib)
	reload := func() (*content.Library, error) { return a.loadLibrary(db) }
	server := web.NewServer(manager, web.Options{
		DB:             db,
		ReposDir:       a.cfg.Content.ReposDir,
		DefaultLearner: a.cfg.Learner,
		Reload:         reload,
	})

	jobs := scheduler.New(slog.Default())
	if err := jobs.Every("flush-progress", a.cfg.Schedule.Flush, manager.Flush); err != nil {
		return err
	}
	if err := jobs.Every("sync-sources", a.cfg.Schedule.Sync, func(ctx context.Context) error {
		if _, err := sync.RunSync(ctx, db, a.cfg.Content.ReposDir, nil); err != nil {
			return err
		}
		fresh, err := reload()
		if err != nil {
			return err
		}
		manager.SetLibrary(fresh)
		return nil
	}); err != nil {
		return err
	}
	if err := jobs.Every("expire-sessions", expireInterval, func(ctx context.Context) error {
		if n := manager.Expire(ctx, sessionTTL); n > 0 {
			slog.Info("Expired idle sessions", "count", n)
		}
		return nil
	}); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Starting server", "addr", a.cfg.Server.Addr)
		if err := server.Start(a.cfg.Server.Addr); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		jobs.Start()
		<-gctx.Done()
		slog.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		jobs.Stop()
		if flushErr := manager.Flush(shutdownCtx); flushErr != nil {
			slog.Error("Failed to flush progress on shutdown", "error", flushErr)
		}
		return err
	})
	return g.Wait()
}
