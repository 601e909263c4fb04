// Package leitner implements the five-box Leitner spaced-repetition
// schedule. Every function takes the current instant as an argument and
// never reads the clock.
package leitner

import "time"

// Review is the state a card moves to after being reviewed.
type Review struct {
	Box   Box
	DueAt time.Time
}

// ComputeNextReview returns the box and due time that follow a review of a
// card currently in box current. A wrong answer sends the card back to
// Box1 and makes it due at now. A right answer moves it one box up (Box5
// stays in Box5) and schedules it the box's interval after now.
func ComputeNextReview(current int, correct bool, now time.Time) (Review, error) {
	b := Box(current)
	if !b.Valid() {
		return Review{}, &InvalidBoxError{Box: current}
	}
	if !correct {
		return Review{Box: Box1, DueAt: now}, nil
	}
	s := ladder[b]
	return Review{Box: s.next, DueAt: now.Add(s.interval)}, nil
}

// IsDue reports whether a card due at dueAt should be reviewed at now.
// A card due exactly at now is due.
func IsDue(dueAt, now time.Time) bool {
	return !dueAt.After(now)
}
