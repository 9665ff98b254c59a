package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conorfennell/dutchdrill/internal/domain"
	"github.com/conorfennell/dutchdrill/internal/session"
)

func newDrillCmd(a *app) *cobra.Command {
	var kindName, category string
	cmd := &cobra.Command{
		Use:   "drill",
		Short: "Practise one drill in the terminal",
		Long: "Practise one drill in the terminal. Type the answer and press enter;\n" +
			"\":q\" stops, \":review\" starts final-test review mode.",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(kindName)
			if err != nil {
				return err
			}

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
			sess, err := manager.Open(cmd.Context(), a.cfg.Learner)
			if err != nil {
				return err
			}
			if category != "" {
				if err := sess.SwitchCategory(category); err != nil {
					return err
				}
			}

			runErr := runDrill(cmd.Context(), sess, kind, cmd.InOrStdin(), cmd.OutOrStdout())
			if err := manager.Close(context.Background(), sess.ID); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&kindName, "kind", string(domain.KindVocabulary), "Drill kind")
	cmd.Flags().StringVar(&category, "category", "", "Final-test category")
	return cmd
}

// runDrill asks questions until the drill is done, the input ends or the
// learner quits.
func runDrill(ctx context.Context, sess *session.Session, kind domain.Kind, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	readLine := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}

	var answered, correct int
	defer func() {
		fmt.Fprintf(out, "\n%d answered, %d correct\n", answered, correct)
	}()

	for ctx.Err() == nil {
		card, ok, err := sess.Card(kind)
		if err != nil {
			return err
		}
		if !ok {
			if kind == domain.KindFinalTest && sess.Overview().ReviewAvailable {
				fmt.Fprint(out, "First pass done. Review the items you missed? [y/N] ")
				line, more := readLine()
				if more && strings.EqualFold(line, "y") && sess.StartReview() {
					continue
				}
			}
			fmt.Fprintln(out, "Done!")
			return nil
		}

		label := card.Category
		if card.Review {
			label = "review"
		}
		if card.Direction == session.DirectionReverse {
			label += ", in het Nederlands"
		}
		fmt.Fprintf(out, "[%d/%d] %s (%s)\n> ", card.Progress.Current, card.Progress.Total, card.Prompt, label)

		line, more := readLine()
		if !more || line == ":q" {
			return nil
		}
		if line == ":review" {
			if !sess.StartReview() {
				fmt.Fprintln(out, "Nothing to review.")
			}
			continue
		}

		res, err := sess.Submit(kind, card.ItemID, line)
		if err != nil {
			return err
		}
		if !res.Accepted {
			continue
		}
		answered++
		if res.Correct {
			correct++
			fmt.Fprintln(out, "Goed!")
		} else {
			fmt.Fprintf(out, "Fout. Expected: %s\n", res.Expected)
		}
	}
	return ctx.Err()
}
