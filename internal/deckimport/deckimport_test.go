package deckimport

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/lexibox/internal/leitner"
	"github.com/conorfennell/lexibox/internal/storage"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestImporter(t *testing.T) (*Importer, *storage.DB) {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.DriverSQLite, filepath.Join(t.TempDir(), "import.db"))
	if err != nil {
		t.Fatalf("storage.Open() returned an unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	im := NewImporter(db, t.TempDir(),
		WithClock(func() time.Time { return t0 }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return im, db
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestImportDirectory(t *testing.T) {
	ctx := context.Background()
	im, db := newTestImporter(t)
	user := uuid.New()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "food.md"), "F: el pan\nB: bread\nP: noun\n---\nF: la leche\n---\nF: EL  PAN\nB: bread\n")
	writeFile(t, filepath.Join(dir, "verbs", "verbs.md"), "F: comer\nB: to eat\n")
	writeFile(t, filepath.Join(dir, ".git", "ignored.md"), "F: hidden\nB: hidden\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "F: not a deck\nB: skipped\n")

	sheet := excelize.NewFile()
	sheet.SetCellValue("Sheet1", "A1", "Front")
	sheet.SetCellValue("Sheet1", "B1", "Back")
	sheet.SetCellValue("Sheet1", "A2", "beber")
	sheet.SetCellValue("Sheet1", "B2", "to drink")
	if err := sheet.SaveAs(filepath.Join(dir, "verbs", "more.xlsx")); err != nil {
		t.Fatalf("SaveAs() returned an unexpected error: %v", err)
	}
	sheet.Close()

	res, err := im.Import(ctx, user, dir)
	if err != nil {
		t.Fatalf("Import() returned an unexpected error: %v", err)
	}
	if res.Parsed != 4 || res.Imported != 3 || res.Skipped != 1 {
		t.Errorf("Expected 4 parsed, 3 imported, 1 skipped, but got %+v", res)
	}
	if len(res.Errors) != 1 {
		t.Errorf("Expected 1 error for the card without a back, but got %v", res.Errors)
	}

	due, err := db.DueFlashcards(ctx, user, t0, 10)
	if err != nil {
		t.Fatalf("DueFlashcards() returned an unexpected error: %v", err)
	}
	if len(due) != 3 {
		t.Fatalf("Expected 3 cards due immediately, but got %d", len(due))
	}
	for _, c := range due {
		if c.LeitnerBox != leitner.Box1 || !c.ReviewDueAt.Equal(t0) || c.AIGenerated {
			t.Errorf("Expected an imported card in box 1 due now, got %+v", c)
		}
	}

	again, err := im.Import(ctx, user, dir)
	if err != nil {
		t.Fatalf("second Import() returned an unexpected error: %v", err)
	}
	if again.Imported != 0 || again.Skipped != 4 {
		t.Errorf("Expected a re-import to skip everything, but got %+v", again)
	}
}

func TestImportSingleFile(t *testing.T) {
	im, _ := newTestImporter(t)
	path := filepath.Join(t.TempDir(), "deck.csv")
	writeFile(t, path, "front,back\ngato,cat\nperro,dog\n")

	res, err := im.Import(context.Background(), uuid.New(), path)
	if err != nil {
		t.Fatalf("Import() returned an unexpected error: %v", err)
	}
	if res.Imported != 2 {
		t.Errorf("Expected 2 imported cards, but got %+v", res)
	}
}

func TestImportErrors(t *testing.T) {
	im, _ := newTestImporter(t)
	user := uuid.New()

	if _, err := im.Import(context.Background(), user, filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected an error for a missing source")
	}

	txt := filepath.Join(t.TempDir(), "notes.txt")
	writeFile(t, txt, "hello")
	if _, err := im.Import(context.Background(), user, txt); err == nil {
		t.Error("Expected an error for an unsupported file")
	}

	if _, err := im.Import(context.Background(), user, "https://example.com/"); err == nil {
		t.Error("Expected an error for a git URL without a repository path")
	}
}
