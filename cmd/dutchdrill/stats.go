package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conorfennell/dutchdrill/internal/content"
	"github.com/conorfennell/dutchdrill/internal/domain"
)

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the stored progress of the learner",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			lib, err := a.loadLibrary(db)
			if err != nil {
				return err
			}
			stats, err := db.LearnerStats(cmd.Context(), a.cfg.Learner)
			if err != nil {
				return err
			}

			printf(cmd, "Learner: %s\n", a.cfg.Learner)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tITEMS\tCOMPLETED\tINCORRECT")
			for _, s := range stats {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", s.Kind, poolSize(lib, s.Kind), s.Completed, s.Incorrect)
			}
			return w.Flush()
		},
	}
}

func poolSize(lib *content.Library, kind string) int {
	if domain.Kind(kind) == domain.KindTestExercise {
		return len(lib.ExerciseItems())
	}
	return len(lib.Items(domain.Kind(kind)))
}
