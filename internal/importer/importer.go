// Package importer turns spreadsheet word lists into markdown decks.
package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/dutchdrill/internal/domain"
	"github.com/conorfennell/dutchdrill/internal/knol"
)

// Column layout of an import sheet: A word, B translation, C category,
// D group, E note.
const (
	colWord = iota
	colTranslation
	colCategory
	colGroup
	colNote
)

const defaultCategory = "algemeen"

// Config defines the import configuration.
type Config struct {
	FilePath string
	// SheetName defaults to the first sheet of the workbook.
	SheetName string
	Kind      domain.Kind
	// StartRow is the 1-based row to start importing from; 0 skips one header row.
	StartRow int
	// Category is used for rows without one until a topic row sets another.
	Category string
}

// Result holds the outcome of an import.
type Result struct {
	TotalProcessed int
	Skipped        int
	Items          []domain.Item
	Errors         []string
}

// Import reads the Excel or CSV file named in cfg.
func Import(cfg Config) (*Result, error) {
	if cfg.Kind == "" {
		cfg.Kind = domain.KindVocabulary
	}
	if cfg.StartRow <= 0 {
		cfg.StartRow = 2
	}
	if cfg.Category == "" {
		cfg.Category = defaultCategory
	}

	var rows [][]string
	var err error
	if strings.ToLower(filepath.Ext(cfg.FilePath)) == ".csv" {
		rows, err = readCSV(cfg.FilePath)
	} else {
		rows, err = readExcel(cfg.FilePath, cfg.SheetName)
	}
	if err != nil {
		return nil, err
	}
	return convert(rows, cfg), nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows of sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.Join(strings.Fields(row[i]), " ")
}

func convert(rows [][]string, cfg Config) *Result {
	result := &Result{}
	category := cfg.Category
	seen := make(map[string]bool)

	for i, row := range rows {
		rowNum := i + 1
		if rowNum < cfg.StartRow {
			continue
		}
		word, translation := cell(row, colWord), cell(row, colTranslation)
		if word == "" && translation == "" {
			continue
		}

		// A row with only a word in column A names the topic of the rows below it.
		if word != "" && translation == "" && cell(row, colCategory) == "" {
			category = strings.Trim(word, "\"")
			continue
		}

		result.TotalProcessed++
		if word == "" || translation == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: word and translation are required", rowNum))
			continue
		}

		item := domain.Item{
			Kind:     cfg.Kind,
			Prompt:   word,
			Answer:   translation,
			Category: category,
			Group:    cell(row, colGroup),
			Note:     cell(row, colNote),
		}
		if c := cell(row, colCategory); c != "" {
			item.Category = c
		}
		item.ID = knol.ID(item)
		if seen[item.ID] {
			result.Skipped++
			continue
		}
		seen[item.ID] = true
		result.Items = append(result.Items, item)
	}
	return result
}

// WriteDeck renders items in the deck format read by the parser.
func WriteDeck(w io.Writer, kind domain.Kind, items []domain.Item) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# kind: %s\n\n", kind)
	for i, item := range items {
		if i > 0 {
			bw.WriteString("---\n")
		}
		field := func(prefix, value string) {
			if value != "" {
				fmt.Fprintf(bw, "%s %s\n", prefix, value)
			}
		}
		field("ID:", item.ID)
		field("Q:", item.Prompt)
		field("A:", item.Answer)
		field("C:", item.Category)
		field("G:", item.Group)
		field("N:", item.Note)
	}
	return bw.Flush()
}

// WriteDeckFile writes items to path, creating parent directories.
func WriteDeckFile(path string, kind domain.Kind, items []domain.Item) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create deck directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create deck %s: %w", path, err)
	}
	if err := WriteDeck(f, kind, items); err != nil {
		f.Close()
		return fmt.Errorf("failed to write deck %s: %w", path, err)
	}
	return f.Close()
}
