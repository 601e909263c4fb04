package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultAILevel is the language level assigned to new profiles.
const DefaultAILevel = "b1"

// Profile holds per-user settings. Its ID is the user's ID.
type Profile struct {
	ID             uuid.UUID
	DefaultAILevel string
	TelegramChatID *int64 // nil when reminders go to the log only
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
