package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/lexibox/internal/leitner"
)

// Flashcard is a single vocabulary card owned by one user.
// LeitnerBox and ReviewDueAt are only ever changed by a review.
type Flashcard struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Front        string
	Back         string
	PartOfSpeech *string
	AIGenerated  bool
	LeitnerBox   leitner.Box
	ReviewDueAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewFlashcard builds a card in the first box, due immediately.
func NewFlashcard(userID uuid.UUID, front, back string, partOfSpeech *string, aiGenerated bool, now time.Time) Flashcard {
	var pos *string
	if partOfSpeech != nil {
		if p := strings.TrimSpace(*partOfSpeech); p != "" {
			pos = &p
		}
	}
	return Flashcard{
		ID:           uuid.New(),
		UserID:       userID,
		Front:        strings.TrimSpace(front),
		Back:         strings.TrimSpace(back),
		PartOfSpeech: pos,
		AIGenerated:  aiGenerated,
		LeitnerBox:   leitner.Box1,
		ReviewDueAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (f Flashcard) QueueBox() leitner.Box { return f.LeitnerBox }

func (f Flashcard) QueueDueAt() time.Time { return f.ReviewDueAt }

func (f Flashcard) QueueID() string { return f.ID.String() }

// ReviewLog records a single review event for a card.
type ReviewLog struct {
	ID          uuid.UUID
	FlashcardID uuid.UUID
	UserID      uuid.UUID
	Correct     bool
	FromBox     leitner.Box
	ToBox       leitner.Box
	ReviewedAt  time.Time
	DueAt       time.Time
}
