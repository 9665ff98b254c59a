package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conorfennell/dutchdrill/internal/sync"
)

func newSourcesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage deck sources",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <path/or/url.git>",
			Short: "Add a local directory or git repository of decks",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := a.openDB()
				if err != nil {
					return err
				}
				defer db.Close()

				id, err := sync.AddSource(db, args[0])
				if err != nil {
					return err
				}
				printf(cmd, "Source %d: %s (%s)\n", id, args[0], sync.InferSourceType(args[0]))
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List deck sources",
			RunE: func(cmd *cobra.Command, args []string) error {
				db, err := a.openDB()
				if err != nil {
					return err
				}
				defer db.Close()

				sources, err := db.GetAllSources()
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTYPE\tPATH\tLAST SCANNED")
				for _, s := range sources {
					scanned := "never"
					if s.LastScanned.Valid {
						scanned = s.LastScanned.Time.Local().Format("2006-01-02 15:04")
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.ID, s.Type, s.Path, scanned)
				}
				return w.Flush()
			},
		},
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove a source and its synced items",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid source ID %q", args[0])
				}
				db, err := a.openDB()
				if err != nil {
					return err
				}
				defer db.Close()
				return db.DeleteSource(id)
			},
		},
	)
	return cmd
}

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Clone or pull every source and reconcile its decks",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			reports, err := sync.RunSync(cmd.Context(), db, a.cfg.Content.ReposDir, os.Stderr)
			if err != nil {
				return err
			}
			for _, r := range reports {
				printf(cmd, "%s: %d parsed, %d new, %d updated, %d removed, %d errors\n",
					r.Path, r.Parsed, r.Inserted, r.Updated, r.Orphaned, len(r.Errors))
				for _, e := range r.Errors {
					printf(cmd, "  - %s\n", e)
				}
			}
			return nil
		},
	}
}
