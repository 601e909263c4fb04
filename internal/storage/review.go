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

	"github.com/conorfennell/lexibox/internal/domain"
	"github.com/conorfennell/lexibox/internal/leitner"
)

// ReviewUpdate is a review whose outcome was computed by the caller.
// FromBox and FromDueAt are the values the caller read; the write only
// succeeds if the card still holds them.
type ReviewUpdate struct {
	UserID      uuid.UUID
	FlashcardID uuid.UUID
	Correct     bool
	FromBox     leitner.Box
	FromDueAt   time.Time
	Next        leitner.Review
	ReviewedAt  time.Time
}

// SaveReview persists a computed review and logs it. It returns
// ErrConflict if the card changed since it was read and ErrNotFound if it
// does not exist or belongs to someone else.
func (db *DB) SaveReview(ctx context.Context, u ReviewUpdate) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, db.rebind(`
		UPDATE flashcards
		SET leitner_box = ?, review_due_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND leitner_box = ? AND review_due_at = ?
	`),
		int(u.Next.Box),
		toMillis(u.Next.DueAt),
		toMillis(u.ReviewedAt),
		u.FlashcardID,
		u.UserID,
		int(u.FromBox),
		toMillis(u.FromDueAt),
	)
	if err != nil {
		return fmt.Errorf("failed to update review state for %s: %w", u.FlashcardID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update review state for %s: %w", u.FlashcardID, err)
	}
	if n == 0 {
		var exists int
		err := tx.GetContext(ctx, &exists, db.rebind(`
			SELECT COUNT(*) FROM flashcards WHERE id = ? AND user_id = ?
		`), u.FlashcardID, u.UserID)
		if err != nil {
			return fmt.Errorf("failed to check flashcard %s: %w", u.FlashcardID, err)
		}
		if exists == 0 {
			return ErrNotFound
		}
		return ErrConflict
	}

	if err := db.insertReviewLog(ctx, tx, domain.ReviewLog{
		ID:          uuid.New(),
		FlashcardID: u.FlashcardID,
		UserID:      u.UserID,
		Correct:     u.Correct,
		FromBox:     u.FromBox,
		ToBox:       u.Next.Box,
		ReviewedAt:  u.ReviewedAt,
		DueAt:       u.Next.DueAt,
	}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit review for %s: %w", u.FlashcardID, err)
	}
	return nil
}

// transitionSQL renders the Leitner transition table as SQL CASE
// expressions over leitner_box. The table is taken from
// leitner.ComputeNextReview so both review paths share one source.
// Both expressions take the outcome as their single boolean parameter,
// cast explicitly so postgres can type it.
func transitionSQL() (boxExpr, offsetExpr string) {
	epoch := time.Unix(0, 0)
	var box, offset strings.Builder
	box.WriteString("CASE WHEN CAST(? AS BOOLEAN) THEN CASE leitner_box")
	offset.WriteString("CASE WHEN CAST(? AS BOOLEAN) THEN CASE leitner_box")
	for _, info := range leitner.Boxes() {
		next, _ := leitner.ComputeNextReview(int(info.Box), true, epoch)
		fmt.Fprintf(&box, " WHEN %d THEN %d", int(info.Box), int(next.Box))
		fmt.Fprintf(&offset, " WHEN %d THEN %d", int(info.Box), next.DueAt.Sub(epoch).Milliseconds())
	}
	box.WriteString(" END ELSE 1 END")
	offset.WriteString(" END ELSE 0 END")
	return box.String(), offset.String()
}

var applyReviewQuery = func() string {
	boxExpr, offsetExpr := transitionSQL()
	return `
		UPDATE flashcards
		SET leitner_box = ` + boxExpr + `,
			review_due_at = CAST(? AS BIGINT) + ` + offsetExpr + `,
			updated_at = ?
		WHERE id = ? AND user_id = ?
		RETURNING leitner_box, review_due_at`
}()

// ApplyReview computes and persists the review in the database with a
// single UPDATE. It is the database-side counterpart of
// leitner.ComputeNextReview and must produce the same result.
func (db *DB) ApplyReview(ctx context.Context, userID, id uuid.UUID, correct bool, now time.Time) (leitner.Review, error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return leitner.Review{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var fromBox int
	err = tx.GetContext(ctx, &fromBox, db.rebind(`
		SELECT leitner_box FROM flashcards WHERE id = ? AND user_id = ?`+db.rowLock()), id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return leitner.Review{}, ErrNotFound
		}
		return leitner.Review{}, fmt.Errorf("failed to find flashcard %s: %w", id, err)
	}
	if !leitner.Box(fromBox).Valid() {
		return leitner.Review{}, &leitner.InvalidBoxError{Box: fromBox}
	}

	var out struct {
		Box   int   `db:"leitner_box"`
		DueAt int64 `db:"review_due_at"`
	}
	err = tx.GetContext(ctx, &out, db.rebind(applyReviewQuery),
		correct, toMillis(now), correct, toMillis(now), id, userID)
	if err != nil {
		return leitner.Review{}, fmt.Errorf("failed to apply review to %s: %w", id, err)
	}
	next := leitner.Review{Box: leitner.Box(out.Box), DueAt: fromMillis(out.DueAt)}

	if err := db.insertReviewLog(ctx, tx, domain.ReviewLog{
		ID:          uuid.New(),
		FlashcardID: id,
		UserID:      userID,
		Correct:     correct,
		FromBox:     leitner.Box(fromBox),
		ToBox:       next.Box,
		ReviewedAt:  now,
		DueAt:       next.DueAt,
	}); err != nil {
		return leitner.Review{}, err
	}
	if err := tx.Commit(); err != nil {
		return leitner.Review{}, fmt.Errorf("failed to commit review for %s: %w", id, err)
	}
	return next, nil
}

type reviewLogRow struct {
	ID          uuid.UUID `db:"id"`
	FlashcardID uuid.UUID `db:"flashcard_id"`
	UserID      uuid.UUID `db:"user_id"`
	Correct     bool      `db:"correct"`
	FromBox     int       `db:"from_box"`
	ToBox       int       `db:"to_box"`
	ReviewedAt  int64     `db:"reviewed_at"`
	DueAt       int64     `db:"due_at"`
}

func (db *DB) insertReviewLog(ctx context.Context, tx *sqlx.Tx, l domain.ReviewLog) error {
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO review_logs (id, flashcard_id, user_id, correct, from_box, to_box, reviewed_at, due_at)
		VALUES (:id, :flashcard_id, :user_id, :correct, :from_box, :to_box, :reviewed_at, :due_at)
	`, reviewLogRow{
		ID:          l.ID,
		FlashcardID: l.FlashcardID,
		UserID:      l.UserID,
		Correct:     l.Correct,
		FromBox:     int(l.FromBox),
		ToBox:       int(l.ToBox),
		ReviewedAt:  toMillis(l.ReviewedAt),
		DueAt:       toMillis(l.DueAt),
	})
	if err != nil {
		return fmt.Errorf("failed to insert review log for %s: %w", l.FlashcardID, err)
	}
	return nil
}

// ReviewLogs returns the review history of a card, oldest first.
func (db *DB) ReviewLogs(ctx context.Context, userID, flashcardID uuid.UUID) ([]domain.ReviewLog, error) {
	var rows []reviewLogRow
	err := db.conn.SelectContext(ctx, &rows, db.rebind(`
		SELECT id, flashcard_id, user_id, correct, from_box, to_box, reviewed_at, due_at
		FROM review_logs WHERE flashcard_id = ? AND user_id = ?
		ORDER BY reviewed_at ASC
	`), flashcardID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review logs for %s: %w", flashcardID, err)
	}
	logs := make([]domain.ReviewLog, len(rows))
	for i, r := range rows {
		logs[i] = domain.ReviewLog{
			ID:          r.ID,
			FlashcardID: r.FlashcardID,
			UserID:      r.UserID,
			Correct:     r.Correct,
			FromBox:     leitner.Box(r.FromBox),
			ToBox:       leitner.Box(r.ToBox),
			ReviewedAt:  fromMillis(r.ReviewedAt),
			DueAt:       fromMillis(r.DueAt),
		}
	}
	return logs, nil
}
