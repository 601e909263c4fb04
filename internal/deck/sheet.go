package deck

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SheetOptions selects where cards live in a spreadsheet.
type SheetOptions struct {
	Sheet              string // empty means the first sheet
	FrontColumn        string
	BackColumn         string
	PartOfSpeechColumn string
	StartRow           int // 1-based; rows before it are headers
}

// DefaultSheetOptions reads fronts from A, backs from B and parts of
// speech from C, skipping one header row.
func DefaultSheetOptions() SheetOptions {
	return SheetOptions{
		FrontColumn:        "A",
		BackColumn:         "B",
		PartOfSpeechColumn: "C",
		StartRow:           2,
	}
}

type columns struct {
	front, back, partOfSpeech int // 0-based; -1 when unused
}

func (o SheetOptions) columns() (columns, error) {
	idx := func(name string) (int, error) {
		if name == "" {
			return -1, nil
		}
		n, err := excelize.ColumnNameToNumber(name)
		if err != nil {
			return 0, fmt.Errorf("invalid column %q: %w", name, err)
		}
		return n - 1, nil
	}
	var c columns
	var err error
	if c.front, err = idx(o.FrontColumn); err != nil {
		return columns{}, err
	}
	if c.back, err = idx(o.BackColumn); err != nil {
		return columns{}, err
	}
	if c.partOfSpeech, err = idx(o.PartOfSpeechColumn); err != nil {
		return columns{}, err
	}
	if c.front < 0 || c.back < 0 {
		return columns{}, errors.New("front and back columns are required")
	}
	return c, nil
}

// ParseSpreadsheet reads cards from an .xlsx workbook.
func ParseSpreadsheet(path string, opts SheetOptions) ([]Card, []Problem, error) {
	cols, err := opts.columns()
	if err != nil {
		return nil, nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("spreadsheet %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
	}
	cards, problems := rowsToCards(rows, cols, opts.StartRow)
	return cards, problems, nil
}

// ParseCSV reads cards from comma-separated rows laid out like a
// spreadsheet.
func ParseCSV(r io.Reader, opts SheetOptions) ([]Card, []Problem, error) {
	cols, err := opts.columns()
	if err != nil {
		return nil, nil, err
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	cards, problems := rowsToCards(rows, cols, opts.StartRow)
	return cards, problems, nil
}

// ParseCSVFile is ParseCSV for a file on disk.
func ParseCSVFile(path string, opts SheetOptions) ([]Card, []Problem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()
	return ParseCSV(file, opts)
}

func rowsToCards(rows [][]string, cols columns, startRow int) ([]Card, []Problem) {
	cell := func(row []string, i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var cards []Card
	var problems []Problem
	for i, row := range rows {
		rowNo := i + 1
		if rowNo < startRow {
			continue
		}
		c := Card{
			Front:        cell(row, cols.front),
			Back:         cell(row, cols.back),
			PartOfSpeech: cell(row, cols.partOfSpeech),
			Line:         rowNo,
		}
		switch {
		case c.Front == "" && c.Back == "":
			// blank rows separate groups of words
			continue
		case c.Front == "":
			problems = append(problems, Problem{Line: rowNo, Reason: "row has no front"})
		case c.Back == "":
			problems = append(problems, Problem{Line: rowNo, Reason: "row has no back"})
		default:
			cards = append(cards, c)
		}
	}
	return cards, problems
}
