package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/lexibox/internal/domain"
)

type profileRow struct {
	ID             uuid.UUID `db:"id"`
	DefaultAILevel string    `db:"default_ai_level"`
	TelegramChatID *int64    `db:"telegram_chat_id"`
	CreatedAt      int64     `db:"created_at"`
	UpdatedAt      int64     `db:"updated_at"`
}

func (r profileRow) toDomain() domain.Profile {
	return domain.Profile{
		ID:             r.ID,
		DefaultAILevel: r.DefaultAILevel,
		TelegramChatID: r.TelegramChatID,
		CreatedAt:      fromMillis(r.CreatedAt),
		UpdatedAt:      fromMillis(r.UpdatedAt),
	}
}

// EnsureProfile creates the user's profile on first sight and returns it.
func (db *DB) EnsureProfile(ctx context.Context, userID uuid.UUID, now time.Time) (domain.Profile, error) {
	_, err := db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO profiles (id, default_ai_level, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`), userID, domain.DefaultAILevel, toMillis(now), toMillis(now))
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to create profile %s: %w", userID, err)
	}
	return db.GetProfile(ctx, userID)
}

// GetProfile retrieves a profile by user ID.
func (db *DB) GetProfile(ctx context.Context, userID uuid.UUID) (domain.Profile, error) {
	var row profileRow
	err := db.conn.GetContext(ctx, &row, db.rebind(`
		SELECT id, default_ai_level, telegram_chat_id, created_at, updated_at
		FROM profiles WHERE id = ?
	`), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Profile{}, ErrNotFound
		}
		return domain.Profile{}, fmt.Errorf("failed to find profile %s: %w", userID, err)
	}
	return row.toDomain(), nil
}

// ProfilePatch holds profile settings to change. Nil fields are left as is.
type ProfilePatch struct {
	DefaultAILevel *string
	TelegramChatID *int64
}

// UpdateProfile applies patch to the user's profile.
func (db *DB) UpdateProfile(ctx context.Context, userID uuid.UUID, patch ProfilePatch, now time.Time) (domain.Profile, error) {
	p, err := db.GetProfile(ctx, userID)
	if err != nil {
		return domain.Profile{}, err
	}
	if patch.DefaultAILevel != nil {
		p.DefaultAILevel = *patch.DefaultAILevel
	}
	if patch.TelegramChatID != nil {
		p.TelegramChatID = patch.TelegramChatID
	}

	_, err = db.conn.ExecContext(ctx, db.rebind(`
		UPDATE profiles SET default_ai_level = ?, telegram_chat_id = ?, updated_at = ?
		WHERE id = ?
	`), p.DefaultAILevel, p.TelegramChatID, toMillis(now), userID)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to update profile %s: %w", userID, err)
	}
	return db.GetProfile(ctx, userID)
}

// ListProfiles retrieves all stored profiles.
func (db *DB) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	var rows []profileRow
	err := db.conn.SelectContext(ctx, &rows, `
		SELECT id, default_ai_level, telegram_chat_id, created_at, updated_at
		FROM profiles ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all profiles: %w", err)
	}
	profiles := make([]domain.Profile, len(rows))
	for i, r := range rows {
		profiles[i] = r.toDomain()
	}
	return profiles, nil
}
