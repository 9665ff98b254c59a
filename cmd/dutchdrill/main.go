package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conorfennell/dutchdrill/internal/config"
	"github.com/conorfennell/dutchdrill/internal/content"
	"github.com/conorfennell/dutchdrill/internal/queue"
	"github.com/conorfennell/dutchdrill/internal/session"
	"github.com/conorfennell/dutchdrill/internal/storage"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "dutchdrill",
		Short:        "Dutch vocabulary and grammar drills with a smart review queue",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
			return nil
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCmd(a),
		newDrillCmd(a),
		newSourcesCmd(a),
		newSyncCmd(a),
		newImportCmd(a),
		newStatsCmd(a),
	)
	return root
}

func (a *app) openDB() (*storage.DB, error) {
	db, err := storage.Open(a.cfg.DB.Driver, a.cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	slog.Debug("Database opened", "driver", a.cfg.DB.Driver)
	return db, nil
}

// loadLibrary merges the embedded content, items synced into db and the
// configured local deck directories, later sources replacing earlier ones.
func (a *app) loadLibrary(db *storage.DB) (*content.Library, error) {
	lib, err := content.Embedded()
	if err != nil {
		return nil, err
	}

	if a.cfg.Content.Exercises != "" {
		exercises, err := content.LoadExercisesFile(a.cfg.Content.Exercises)
		if err != nil {
			return nil, err
		}
		lib.Exercises = exercises
	}

	if db != nil {
		synced, err := db.AllItems()
		if err != nil {
			return nil, err
		}
		lib.Add(synced...)
	}

	for _, dir := range a.cfg.Content.Dirs {
		added, errs := lib.LoadDir(dir)
		for _, e := range errs {
			slog.Warn("Deck problem", "dir", dir, "error", e)
		}
		slog.Info("Loaded deck directory", "dir", dir, "items", added)
	}
	return lib, nil
}

func (a *app) newManager(db *storage.DB, lib *content.Library) *session.Manager {
	var store session.Store
	if db != nil {
		store = db
	}
	return session.NewManager(lib, store, session.Options{Queue: queueOptions(a.cfg.Queue)})
}

// queueOptions maps the queue config onto session options. A configured
// bias of 0 turns the incorrect-item preference off.
func queueOptions(q config.QueueConfig) session.QueueOptions {
	bias := q.Bias
	if bias == 0 {
		bias = queue.NoBias
	}
	return session.QueueOptions{
		Window:      q.Window,
		GroupWindow: q.GroupWindow,
		Lookahead:   q.Lookahead,
		Bias:        bias,
		Recent:      q.Recent,
	}
}

func printf(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

