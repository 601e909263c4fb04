package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/conorfennell/lexibox/internal/cardhash"
	"github.com/conorfennell/lexibox/internal/domain"
	"github.com/conorfennell/lexibox/internal/leitner"
)

const flashcardColumns = `id, user_id, front, back, part_of_speech, ai_generated, fingerprint,
	leitner_box, review_due_at, created_at, updated_at`

// flashcardRow is the stored form of a flashcard.
type flashcardRow struct {
	ID           uuid.UUID `db:"id"`
	UserID       uuid.UUID `db:"user_id"`
	Front        string    `db:"front"`
	Back         string    `db:"back"`
	PartOfSpeech *string   `db:"part_of_speech"`
	AIGenerated  bool      `db:"ai_generated"`
	Fingerprint  string    `db:"fingerprint"`
	LeitnerBox   int       `db:"leitner_box"`
	ReviewDueAt  int64     `db:"review_due_at"`
	CreatedAt    int64     `db:"created_at"`
	UpdatedAt    int64     `db:"updated_at"`
}

func newFlashcardRow(c domain.Flashcard) flashcardRow {
	return flashcardRow{
		ID:           c.ID,
		UserID:       c.UserID,
		Front:        c.Front,
		Back:         c.Back,
		PartOfSpeech: c.PartOfSpeech,
		AIGenerated:  c.AIGenerated,
		Fingerprint:  cardhash.Fingerprint(c.Front, c.Back),
		LeitnerBox:   int(c.LeitnerBox),
		ReviewDueAt:  toMillis(c.ReviewDueAt),
		CreatedAt:    toMillis(c.CreatedAt),
		UpdatedAt:    toMillis(c.UpdatedAt),
	}
}

func (r flashcardRow) toDomain() domain.Flashcard {
	return domain.Flashcard{
		ID:           r.ID,
		UserID:       r.UserID,
		Front:        r.Front,
		Back:         r.Back,
		PartOfSpeech: r.PartOfSpeech,
		AIGenerated:  r.AIGenerated,
		LeitnerBox:   leitner.Box(r.LeitnerBox),
		ReviewDueAt:  fromMillis(r.ReviewDueAt),
		CreatedAt:    fromMillis(r.CreatedAt),
		UpdatedAt:    fromMillis(r.UpdatedAt),
	}
}

func rowsToDomain(rows []flashcardRow) []domain.Flashcard {
	cards := make([]domain.Flashcard, len(rows))
	for i, r := range rows {
		cards[i] = r.toDomain()
	}
	return cards
}

const insertFlashcard = `
	INSERT INTO flashcards (id, user_id, front, back, part_of_speech, ai_generated, fingerprint,
		leitner_box, review_due_at, created_at, updated_at)
	VALUES (:id, :user_id, :front, :back, :part_of_speech, :ai_generated, :fingerprint,
		:leitner_box, :review_due_at, :created_at, :updated_at)`

// InsertFlashcard stores a new card.
func (db *DB) InsertFlashcard(ctx context.Context, card domain.Flashcard) error {
	if _, err := db.conn.NamedExecContext(ctx, insertFlashcard, newFlashcardRow(card)); err != nil {
		return fmt.Errorf("failed to insert flashcard %s: %w", card.ID, err)
	}
	return nil
}

// InsertFlashcards stores cards in a single transaction; either all of
// them are stored or none are.
func (db *DB) InsertFlashcards(ctx context.Context, cards []domain.Flashcard) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, card := range cards {
		if _, err := tx.NamedExecContext(ctx, insertFlashcard, newFlashcardRow(card)); err != nil {
			return fmt.Errorf("failed to insert flashcard %s: %w", card.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flashcards: %w", err)
	}
	return nil
}

// GetFlashcard retrieves a card owned by userID. Cards owned by someone
// else are reported as ErrNotFound.
func (db *DB) GetFlashcard(ctx context.Context, userID, id uuid.UUID) (domain.Flashcard, error) {
	return db.getFlashcard(ctx, db.conn, userID, id, "")
}

// getFlashcard reads a card through q, appending lock (such as FOR UPDATE)
// to the query.
func (db *DB) getFlashcard(ctx context.Context, q sqlx.QueryerContext, userID, id uuid.UUID, lock string) (domain.Flashcard, error) {
	var row flashcardRow
	err := sqlx.GetContext(ctx, q, &row, db.rebind(`
		SELECT `+flashcardColumns+`
		FROM flashcards WHERE id = ? AND user_id = ?`+lock), id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Flashcard{}, ErrNotFound
		}
		return domain.Flashcard{}, fmt.Errorf("failed to find flashcard %s: %w", id, err)
	}
	return row.toDomain(), nil
}

// Columns a flashcard list may be sorted by.
const (
	SortCreatedAt  = "created_at"
	SortFront      = "front"
	SortLeitnerBox = "leitner_box"
)

// ListOptions selects one page of a user's flashcards.
type ListOptions struct {
	Page     int
	PageSize int
	SortBy   string
	Order    string // "asc" or "desc"
}

// Page is one page of flashcards plus totals for pagination.
type Page struct {
	Items      []domain.Flashcard
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

var sortColumns = map[string]string{
	SortCreatedAt:  "created_at",
	SortFront:      "front",
	SortLeitnerBox: "leitner_box",
}

// ListFlashcards returns a page of the user's cards.
func (db *DB) ListFlashcards(ctx context.Context, userID uuid.UUID, opts ListOptions) (Page, error) {
	column, ok := sortColumns[opts.SortBy]
	if !ok {
		return Page{}, fmt.Errorf("unsupported sort column %q", opts.SortBy)
	}
	direction := "DESC"
	if strings.EqualFold(opts.Order, "asc") {
		direction = "ASC"
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}

	var total int
	if err := db.conn.GetContext(ctx, &total, db.rebind(`
		SELECT COUNT(*) FROM flashcards WHERE user_id = ?
	`), userID); err != nil {
		return Page{}, fmt.Errorf("failed to count flashcards: %w", err)
	}

	var rows []flashcardRow
	query := `SELECT ` + flashcardColumns + ` FROM flashcards WHERE user_id = ?
		ORDER BY ` + column + ` ` + direction + `, id ASC LIMIT ? OFFSET ?`
	offset := (opts.Page - 1) * opts.PageSize
	if err := db.conn.SelectContext(ctx, &rows, db.rebind(query), userID, opts.PageSize, offset); err != nil {
		return Page{}, fmt.Errorf("failed to list flashcards: %w", err)
	}

	return Page{
		Items:      rowsToDomain(rows),
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalItems: total,
		TotalPages: (total + opts.PageSize - 1) / opts.PageSize,
	}, nil
}

// FlashcardPatch holds the editable text of a card. Nil fields are left
// unchanged; an empty PartOfSpeech clears it.
type FlashcardPatch struct {
	Front        *string
	Back         *string
	PartOfSpeech *string
}

// UpdateFlashcard applies patch to a card owned by userID. The Leitner
// box and due date are never touched here. The read and the write share a
// transaction, so concurrent patches to different fields all survive.
func (db *DB) UpdateFlashcard(ctx context.Context, userID, id uuid.UUID, patch FlashcardPatch, now time.Time) (domain.Flashcard, error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Flashcard{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	card, err := db.getFlashcard(ctx, tx, userID, id, db.rowLock())
	if err != nil {
		return domain.Flashcard{}, err
	}
	if patch.Front != nil {
		card.Front = strings.TrimSpace(*patch.Front)
	}
	if patch.Back != nil {
		card.Back = strings.TrimSpace(*patch.Back)
	}
	if patch.PartOfSpeech != nil {
		if p := strings.TrimSpace(*patch.PartOfSpeech); p != "" {
			card.PartOfSpeech = &p
		} else {
			card.PartOfSpeech = nil
		}
	}
	card.UpdatedAt = now

	res, err := tx.ExecContext(ctx, db.rebind(`
		UPDATE flashcards
		SET front = ?, back = ?, part_of_speech = ?, fingerprint = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`),
		card.Front,
		card.Back,
		card.PartOfSpeech,
		cardhash.Fingerprint(card.Front, card.Back),
		toMillis(now),
		id,
		userID,
	)
	if err != nil {
		return domain.Flashcard{}, fmt.Errorf("failed to update flashcard %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Flashcard{}, ErrNotFound
	}
	updated, err := db.getFlashcard(ctx, tx, userID, id, "")
	if err != nil {
		return domain.Flashcard{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Flashcard{}, fmt.Errorf("failed to commit flashcard %s: %w", id, err)
	}
	return updated, nil
}

// DeleteFlashcard removes a card owned by userID.
func (db *DB) DeleteFlashcard(ctx context.Context, userID, id uuid.UUID) error {
	res, err := db.conn.ExecContext(ctx, db.rebind(`
		DELETE FROM flashcards WHERE id = ? AND user_id = ?
	`), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete flashcard %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete flashcard %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DueFlashcards returns up to limit cards due at now, least mastered and
// most overdue first.
func (db *DB) DueFlashcards(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]domain.Flashcard, error) {
	var rows []flashcardRow
	err := db.conn.SelectContext(ctx, &rows, db.rebind(`
		SELECT `+flashcardColumns+`
		FROM flashcards
		WHERE user_id = ? AND review_due_at <= ?
		ORDER BY leitner_box ASC, review_due_at ASC, id ASC
		LIMIT ?
	`), userID, toMillis(now), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get due flashcards: %w", err)
	}
	return rowsToDomain(rows), nil
}

// CountDue returns how many of the user's cards are due at now.
func (db *DB) CountDue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	var n int
	err := db.conn.GetContext(ctx, &n, db.rebind(`
		SELECT COUNT(*) FROM flashcards WHERE user_id = ? AND review_due_at <= ?
	`), userID, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("failed to count due flashcards: %w", err)
	}
	return n, nil
}

// Fingerprints returns the content fingerprints of all the user's cards.
func (db *DB) Fingerprints(ctx context.Context, userID uuid.UUID) (map[string]struct{}, error) {
	var prints []string
	err := db.conn.SelectContext(ctx, &prints, db.rebind(`
		SELECT fingerprint FROM flashcards WHERE user_id = ?
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fingerprints: %w", err)
	}
	set := make(map[string]struct{}, len(prints))
	for _, p := range prints {
		set[p] = struct{}{}
	}
	return set, nil
}
