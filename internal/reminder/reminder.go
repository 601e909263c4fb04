// Package reminder periodically tells users how many cards are waiting
// for review.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/conorfennell/lexibox/internal/domain"
)

// Profiles lists the users to remind.
type Profiles interface {
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
}

// DueCounter counts a user's due cards.
type DueCounter interface {
	DueCount(ctx context.Context, userID uuid.UUID) (int, error)
}

// Notifier delivers a reminder to one user.
type Notifier interface {
	Notify(ctx context.Context, profile domain.Profile, due int) error
}

// Reminder runs reminder passes on a fixed interval.
type Reminder struct {
	profiles  Profiles
	counter   DueCounter
	notifier  Notifier
	interval  time.Duration
	logger    *slog.Logger
	scheduler *gocron.Scheduler
}

// New creates a Reminder. It does nothing until Start is called.
func New(profiles Profiles, counter DueCounter, notifier Notifier, interval time.Duration, logger *slog.Logger) *Reminder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reminder{
		profiles: profiles,
		counter:  counter,
		notifier: notifier,
		interval: interval,
		logger:   logger,
	}
}

// Start schedules a pass every interval, the first one immediately.
// Passes never overlap. ctx bounds every pass.
func (r *Reminder) Start(ctx context.Context) error {
	if r.scheduler != nil {
		return errors.New("reminder already started")
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	_, err := s.Every(r.interval).Do(func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("Reminder pass failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders: %w", err)
	}
	s.StartAsync()
	r.scheduler = s
	r.logger.Info("Reminders scheduled", "interval", r.interval)
	return nil
}

// Stop halts the schedule. A running pass is allowed to finish.
func (r *Reminder) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
		r.scheduler = nil
	}
}

// RunOnce notifies every user with at least one due card and returns how
// many were notified. A failure for one user does not stop the pass.
func (r *Reminder) RunOnce(ctx context.Context) (int, error) {
	profiles, err := r.profiles.ListProfiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list profiles: %w", err)
	}

	sent := 0
	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		due, err := r.counter.DueCount(ctx, p.ID)
		if err != nil {
			r.logger.Warn("Failed to count due cards", "user_id", p.ID, "error", err)
			continue
		}
		if due == 0 {
			continue
		}
		if err := r.notifier.Notify(ctx, p, due); err != nil {
			r.logger.Warn("Failed to send reminder", "user_id", p.ID, "error", err)
			continue
		}
		sent++
	}
	r.logger.Info("Reminder pass complete", "profiles", len(profiles), "notified", sent)
	return sent, nil
}

// Message is the reminder text for due cards.
func Message(due int) string {
	if due == 1 {
		return "You have 1 flashcard waiting for review."
	}
	return fmt.Sprintf("You have %d flashcards waiting for review.", due)
}
