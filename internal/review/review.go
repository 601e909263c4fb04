// Package review submits answers to the Leitner scheduler and assembles
// review sessions from a user's due cards.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/conorfennell/lexibox/internal/domain"
	"github.com/conorfennell/lexibox/internal/leitner"
	"github.com/conorfennell/lexibox/internal/storage"
)

// Modes select where the next box and due date are computed.
const (
	ModeClient   = "client"
	ModeDatabase = "database"
)

const (
	MinSessionLimit = 1
	MaxSessionLimit = 100
)

// ErrInvalidOutcome is returned when an answer is neither correct nor
// incorrect.
var ErrInvalidOutcome = errors.New("review: invalid outcome")

// Store is the persistence the service needs.
type Store interface {
	GetFlashcard(ctx context.Context, userID, id uuid.UUID) (domain.Flashcard, error)
	SaveReview(ctx context.Context, u storage.ReviewUpdate) error
	ApplyReview(ctx context.Context, userID, id uuid.UUID, correct bool, now time.Time) (leitner.Review, error)
	DueFlashcards(ctx context.Context, userID uuid.UUID, now time.Time, limit int) ([]domain.Flashcard, error)
	CountDue(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
}

// Service runs reviews against a Store.
type Service struct {
	store  Store
	mode   string
	now    func() time.Time
	logger *slog.Logger
	counts singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now as the source of the current instant.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger used for failed reviews.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service in the given mode.
func NewService(store Store, mode string, opts ...Option) (*Service, error) {
	if mode != ModeClient && mode != ModeDatabase {
		return nil, fmt.Errorf("unknown review mode %q", mode)
	}
	s := &Service{
		store:  store,
		mode:   mode,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Mode returns the configured review mode.
func (s *Service) Mode() string {
	return s.mode
}

// ParseOutcome converts the API's "correct"/"incorrect" result.
func ParseOutcome(result string) (bool, error) {
	switch result {
	case "correct":
		return true, nil
	case "incorrect":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidOutcome, result)
	}
}

// Submit records an answer for a card and returns the card's new state.
func (s *Service) Submit(ctx context.Context, userID, flashcardID uuid.UUID, correct bool) (leitner.Review, error) {
	now := s.now()

	var (
		next leitner.Review
		err  error
	)
	if s.mode == ModeDatabase {
		next, err = s.store.ApplyReview(ctx, userID, flashcardID, correct, now)
	} else {
		next, err = s.submitClient(ctx, userID, flashcardID, correct, now)
	}
	if err != nil {
		if errors.Is(err, leitner.ErrInvalidBox) {
			s.logger.Error("Card holds an invalid Leitner box",
				"flashcard_id", flashcardID,
				"user_id", userID,
				"error", err,
			)
		}
		return leitner.Review{}, err
	}

	s.logger.Debug("Review recorded",
		"flashcard_id", flashcardID,
		"correct", correct,
		"box", int(next.Box),
		"due_at", next.DueAt,
	)
	return next, nil
}

func (s *Service) submitClient(ctx context.Context, userID, flashcardID uuid.UUID, correct bool, now time.Time) (leitner.Review, error) {
	card, err := s.store.GetFlashcard(ctx, userID, flashcardID)
	if err != nil {
		return leitner.Review{}, err
	}
	next, err := leitner.ComputeNextReview(int(card.LeitnerBox), correct, now)
	if err != nil {
		return leitner.Review{}, err
	}
	err = s.store.SaveReview(ctx, storage.ReviewUpdate{
		UserID:      userID,
		FlashcardID: flashcardID,
		Correct:     correct,
		FromBox:     card.LeitnerBox,
		FromDueAt:   card.ReviewDueAt,
		Next:        next,
		ReviewedAt:  now,
	})
	if err != nil {
		return leitner.Review{}, err
	}
	return next, nil
}

// Session returns up to limit due cards in review order. limit is clamped
// to [MinSessionLimit, MaxSessionLimit].
func (s *Service) Session(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Flashcard, error) {
	limit = max(MinSessionLimit, min(limit, MaxSessionLimit))
	now := s.now()

	cards, err := s.store.DueFlashcards(ctx, userID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load review session: %w", err)
	}
	cards = leitner.FilterDue(cards, now)
	leitner.SortQueue(cards)
	return cards, nil
}

// DueCount returns how many cards the user has due now. Concurrent calls
// for the same user share one query. The shared query is detached from
// any single caller's cancellation; each caller still stops waiting when
// its own ctx is done.
func (s *Service) DueCount(ctx context.Context, userID uuid.UUID) (int, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.counts.DoChan(userID.String(), func() (any, error) {
		return s.store.CountDue(shared, userID, s.now())
	})
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("failed to count due cards: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return 0, fmt.Errorf("failed to count due cards: %w", res.Err)
		}
		return res.Val.(int), nil
	}
}
