package leitner

import (
	"slices"
	"strings"
	"time"
)

// QueueItem is anything that can be placed in a review queue.
type QueueItem interface {
	QueueBox() Box
	QueueDueAt() time.Time
	QueueID() string
}

// Compare orders review candidates: lowest box first, then the most
// overdue, then by ID so equal cards keep a stable order.
func Compare(a, b QueueItem) int {
	if a.QueueBox() != b.QueueBox() {
		if a.QueueBox() < b.QueueBox() {
			return -1
		}
		return 1
	}
	if c := a.QueueDueAt().Compare(b.QueueDueAt()); c != 0 {
		return c
	}
	return strings.Compare(a.QueueID(), b.QueueID())
}

// Less reports whether a is reviewed before b.
func Less(a, b QueueItem) bool {
	return Compare(a, b) < 0
}

// SortQueue sorts items into review order in place.
func SortQueue[T QueueItem](items []T) {
	slices.SortStableFunc(items, func(a, b T) int {
		return Compare(a, b)
	})
}

// FilterDue returns the items that are due at now, preserving order.
func FilterDue[T QueueItem](items []T, now time.Time) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if IsDue(it.QueueDueAt(), now) {
			out = append(out, it)
		}
	}
	return out
}
