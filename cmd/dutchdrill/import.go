package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conorfennell/dutchdrill/internal/domain"
	"github.com/conorfennell/dutchdrill/internal/importer"
)

func newImportCmd(a *app) *cobra.Command {
	var out, kindName, sheet, category string
	var startRow int
	cmd := &cobra.Command{
		Use:   "import <file.xlsx|file.csv>",
		Short: "Convert a spreadsheet word list into a deck",
		Long: "Convert a spreadsheet word list into a deck. Columns: A word, B translation,\n" +
			"C category, D group, E note. A row with only column A set starts a new category.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(kindName)
			if err != nil {
				return err
			}
			res, err := importer.Import(importer.Config{
				FilePath:  args[0],
				SheetName: sheet,
				Kind:      kind,
				StartRow:  startRow,
				Category:  category,
			})
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("%s.md", kind)
			}
			if err := importer.WriteDeckFile(out, kind, res.Items); err != nil {
				return err
			}

			printf(cmd, "Wrote %d items to %s (%d rows processed, %d skipped)\n",
				len(res.Items), out, res.TotalProcessed, res.Skipped)
			for _, e := range res.Errors {
				printf(cmd, "  - %s\n", e)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Deck file to write (default <kind>.md)")
	cmd.Flags().StringVar(&kindName, "kind", string(domain.KindVocabulary), "Kind of the imported items")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Sheet to read (default the first sheet)")
	cmd.Flags().StringVar(&category, "category", "", "Category for rows without one")
	cmd.Flags().IntVar(&startRow, "start-row", 2, "First row to import (1-based)")
	return cmd
}
