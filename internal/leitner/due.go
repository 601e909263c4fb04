package leitner

import (
	"fmt"
	"time"
)

// DueKind buckets a due date relative to the present for display.
type DueKind int

const (
	DueNow      DueKind = iota + 1 // due or overdue
	DueToday                       // later today
	DueTomorrow                    // on the next calendar day
	DueLater                       // two or more calendar days ahead
)

var dueKindNames = [...]string{DueNow: "now", DueToday: "today", DueTomorrow: "tomorrow", DueLater: "later"}

func (k DueKind) String() string {
	if k >= DueNow && k <= DueLater {
		return dueKindNames[k]
	}
	return fmt.Sprintf("DueKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k DueKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// DueDescription is the human-oriented form of a due date. Days is the
// number of calendar days until the due date and is 0 for DueNow.
type DueDescription struct {
	Kind DueKind `json:"kind"`
	Days int     `json:"days"`
}

func (d DueDescription) String() string {
	switch d.Kind {
	case DueNow:
		return "Due now"
	case DueToday:
		return "Due today"
	case DueTomorrow:
		return "Due tomorrow"
	default:
		return fmt.Sprintf("Due in %d days", d.Days)
	}
}

// DescribeDueDate classifies dueAt relative to now. Calendar days are
// counted in now's location, so a card promoted from Box1 (due 24h later)
// is always described as due tomorrow.
func DescribeDueDate(dueAt, now time.Time) DueDescription {
	if IsDue(dueAt, now) {
		return DueDescription{Kind: DueNow}
	}
	days := calendarDays(now, dueAt)
	switch {
	case days <= 0:
		return DueDescription{Kind: DueToday}
	case days == 1:
		return DueDescription{Kind: DueTomorrow, Days: 1}
	default:
		return DueDescription{Kind: DueLater, Days: days}
	}
}

// calendarDays counts date boundaries between from and to. Dates are
// projected onto UTC midnights so DST shifts do not skew the count.
func calendarDays(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.In(from.Location()).Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / day)
}
