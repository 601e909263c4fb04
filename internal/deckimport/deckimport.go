// Package deckimport loads decks from files, directories and git
// repositories into a user's flashcards.
package deckimport

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/lexibox/internal/cardhash"
	"github.com/conorfennell/lexibox/internal/deck"
	"github.com/conorfennell/lexibox/internal/domain"
	"github.com/conorfennell/lexibox/internal/gitsource"
)

// Store is the persistence an import needs.
type Store interface {
	EnsureProfile(ctx context.Context, userID uuid.UUID, now time.Time) (domain.Profile, error)
	Fingerprints(ctx context.Context, userID uuid.UUID) (map[string]struct{}, error)
	InsertFlashcards(ctx context.Context, cards []domain.Flashcard) error
}

// Result summarises one import.
type Result struct {
	Parsed   int
	Imported int
	Skipped  int // already owned by the user, or repeated within the source
	Errors   []string
}

// Importer turns deck files into flashcards.
type Importer struct {
	store    Store
	reposDir string
	sheet    deck.SheetOptions
	now      func() time.Time
	logger   *slog.Logger
}

type Option func(*Importer)

func WithClock(now func() time.Time) Option {
	return func(im *Importer) { im.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(im *Importer) { im.logger = l }
}

func WithSheetOptions(o deck.SheetOptions) Option {
	return func(im *Importer) { im.sheet = o }
}

// NewImporter creates an Importer that clones git sources under reposDir.
func NewImporter(store Store, reposDir string, opts ...Option) *Importer {
	im := &Importer{
		store:    store,
		reposDir: reposDir,
		sheet:    deck.DefaultSheetOptions(),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import reads every deck in source and stores the new cards for userID.
// source is a deck file, a directory of decks or a git URL. Cards whose
// fingerprint the user already has are skipped, so importing the same
// source twice adds nothing.
func (im *Importer) Import(ctx context.Context, userID uuid.UUID, source string) (Result, error) {
	path := source
	if gitsource.IsURL(source) {
		local, err := gitsource.LocalPath(im.reposDir, source)
		if err != nil {
			return Result{}, err
		}
		if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
			return Result{}, fmt.Errorf("failed to create repos directory: %w", err)
		}
		if err := gitsource.Sync(ctx, source, local); err != nil {
			return Result{}, err
		}
		path = local
	}

	im.logger.Info("Starting import", "user_id", userID, "source", source)
	now := im.now()
	if _, err := im.store.EnsureProfile(ctx, userID, now); err != nil {
		return Result{}, err
	}
	known, err := im.store.Fingerprints(ctx, userID)
	if err != nil {
		return Result{}, err
	}

	var res Result
	var cards []domain.Flashcard
	err = walkDecks(path, func(file string) {
		parsed, problems, err := im.parse(file)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", file, err))
			return
		}
		for _, p := range problems {
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", file, p))
		}
		for _, c := range parsed {
			res.Parsed++
			fp := cardhash.Fingerprint(c.Front, c.Back)
			if _, dup := known[fp]; dup {
				res.Skipped++
				continue
			}
			known[fp] = struct{}{}
			cards = append(cards, domain.NewFlashcard(userID, c.Front, c.Back, &c.PartOfSpeech, false, now))
		}
	})
	if err != nil {
		return Result{}, err
	}

	if len(cards) > 0 {
		if err := im.store.InsertFlashcards(ctx, cards); err != nil {
			return Result{}, err
		}
	}
	res.Imported = len(cards)

	im.logger.Info("Import complete",
		"user_id", userID,
		"source", source,
		"parsed_cards", res.Parsed,
		"imported", res.Imported,
		"skipped", res.Skipped,
		"errors", len(res.Errors),
	)
	return res, nil
}

func (im *Importer) parse(file string) ([]deck.Card, []deck.Problem, error) {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".xlsx":
		return deck.ParseSpreadsheet(file, im.sheet)
	case ".csv":
		return deck.ParseCSVFile(file, im.sheet)
	default:
		return deck.ParseFile(file)
	}
}

func isDeck(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".xlsx", ".csv":
		return true
	}
	return false
}

// walkDecks calls fn for path itself if it is a file, or for every deck
// file below it, skipping hidden directories such as .git.
func walkDecks(path string, fn func(file string)) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to read source %s: %w", path, err)
	}
	if !info.IsDir() {
		if !isDeck(path) {
			return fmt.Errorf("unsupported deck file %s", path)
		}
		fn(path)
		return nil
	}

	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isDeck(d.Name()) {
			fn(p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error walking directory %s: %w", path, err)
	}
	return nil
}
