package deck

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name             string
		input            string
		expectedCards    int
		expectedFront    string
		expectedBack     string
		expectedPOS      string
		expectedProblems int
	}{
		{
			name:          "Simple front and back",
			input:         "F: el libro\nB: the book",
			expectedCards: 1,
			expectedFront: "el libro",
			expectedBack:  "the book",
		},
		{
			name:          "With part of speech",
			input:         "F: correr\nB: to run\nP: verb",
			expectedCards: 1,
			expectedFront: "correr",
			expectedBack:  "to run",
			expectedPOS:   "verb",
		},
		{
			name: "Multiline back",
			input: `
F: los colores primarios
B: rojo
azul
amarillo
`,
			expectedCards: 1,
			expectedFront: "los colores primarios",
			expectedBack:  "rojo\nazul\namarillo",
		},
		{
			name: "New front starts a new card",
			input: `
F: uno
B: one

F: dos
B: two
`,
			expectedCards: 2,
			expectedFront: "uno",
			expectedBack:  "one",
		},
		{
			name:          "Separator",
			input:         "F: sí\nB: yes\n---\nF: no\nB: no",
			expectedCards: 2,
			expectedFront: "sí",
			expectedBack:  "yes",
		},
		{
			name:          "Prefixes with no space",
			input:         "F:gato\nB:cat",
			expectedCards: 1,
			expectedFront: "gato",
			expectedBack:  "cat",
		},
		{
			name:          "CRLF line endings",
			input:         "F: perro\r\nB: dog\r\n",
			expectedCards: 1,
			expectedFront: "perro",
			expectedBack:  "dog",
		},
		{
			name:          "No cards, just text",
			input:         "This is a deck with no cards yet.",
			expectedCards: 0,
		},
		{
			name:             "Card without back is reported",
			input:            "F: solo\n---\nF: agua\nB: water",
			expectedCards:    1,
			expectedFront:    "agua",
			expectedBack:     "water",
			expectedProblems: 1,
		},
		{
			name:             "Card without front is reported",
			input:            "B: orphan\nP: noun",
			expectedCards:    0,
			expectedProblems: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, problems, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}
			if len(cards) != tc.expectedCards {
				t.Fatalf("Expected %d cards, but got %d", tc.expectedCards, len(cards))
			}
			if len(problems) != tc.expectedProblems {
				t.Errorf("Expected %d problems, but got %d: %v", tc.expectedProblems, len(problems), problems)
			}
			if tc.expectedCards == 0 {
				return
			}
			card := cards[0]
			if card.Front != tc.expectedFront {
				t.Errorf("Expected front '%s', but got '%s'", tc.expectedFront, card.Front)
			}
			if card.Back != tc.expectedBack {
				t.Errorf("Expected back '%s', but got '%s'", tc.expectedBack, card.Back)
			}
			if card.PartOfSpeech != tc.expectedPOS {
				t.Errorf("Expected part of speech '%s', but got '%s'", tc.expectedPOS, card.PartOfSpeech)
			}
		})
	}
}

func TestParseLineNumbers(t *testing.T) {
	input := "# Food\n\nF: pan\nB: bread\n---\nF: leche\n\nF: queso\nB: cheese\n"
	cards, problems, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() returned an unexpected error: %v", err)
	}
	if len(cards) != 2 || cards[0].Line != 3 || cards[1].Line != 8 {
		t.Errorf("Unexpected cards: %+v", cards)
	}
	if len(problems) != 1 || problems[0].Line != 6 {
		t.Errorf("Expected a problem on line 6, but got %v", problems)
	}
	if got := problems[0].String(); got != "line 6: card has no back" {
		t.Errorf("Unexpected problem text '%s'", got)
	}
}

func TestParseSpreadsheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.xlsx")
	f := excelize.NewFile()
	rows := [][]any{
		{"Front", "Back", "Part of speech"},
		{"la mesa", "table", "noun"},
		{"", "", ""},
		{"comer", "to eat", ""},
		{"", "missing front", ""},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow() returned an unexpected error: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs() returned an unexpected error: %v", err)
	}
	f.Close()

	cards, problems, err := ParseSpreadsheet(path, DefaultSheetOptions())
	if err != nil {
		t.Fatalf("ParseSpreadsheet() returned an unexpected error: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("Expected 2 cards, but got %d", len(cards))
	}
	if cards[0].Front != "la mesa" || cards[0].Back != "table" || cards[0].PartOfSpeech != "noun" || cards[0].Line != 2 {
		t.Errorf("Unexpected first card: %+v", cards[0])
	}
	if cards[1].Front != "comer" || cards[1].PartOfSpeech != "" {
		t.Errorf("Unexpected second card: %+v", cards[1])
	}
	if len(problems) != 1 || problems[0].Line != 5 {
		t.Errorf("Expected a problem on row 5, but got %v", problems)
	}
}

func TestParseSpreadsheetErrors(t *testing.T) {
	if _, _, err := ParseSpreadsheet(filepath.Join(t.TempDir(), "missing.xlsx"), DefaultSheetOptions()); err == nil {
		t.Error("Expected an error for a missing file")
	}
	opts := DefaultSheetOptions()
	opts.FrontColumn = "1A"
	if _, _, err := ParseSpreadsheet("unused.xlsx", opts); err == nil {
		t.Error("Expected an error for an invalid column name")
	}
}

func TestParseCSV(t *testing.T) {
	input := "front,back,pos\nhola,hello,interjection\n\"buenos días\",good morning,\n"
	cards, problems, err := ParseCSV(strings.NewReader(input), DefaultSheetOptions())
	if err != nil {
		t.Fatalf("ParseCSV() returned an unexpected error: %v", err)
	}
	if len(problems) != 0 {
		t.Errorf("Expected no problems, but got %v", problems)
	}
	if len(cards) != 2 || cards[1].Front != "buenos días" || cards[1].Back != "good morning" {
		t.Errorf("Unexpected cards: %+v", cards)
	}
}
