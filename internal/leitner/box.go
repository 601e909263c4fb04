package leitner

import (
	"fmt"
	"time"
)

// Box is a flashcard's Leitner box, from Box1 (new) to Box5 (mastered).
type Box int

const (
	Box1 Box = iota + 1
	Box2
	Box3
	Box4
	Box5
)

const (
	MinBox = Box1
	MaxBox = Box5
)

const day = 24 * time.Hour

// BoxInfo is the static display and scheduling metadata of a box.
type BoxInfo struct {
	Box      Box
	Interval time.Duration // added to the review instant on a correct answer
	Label    string
	Color    string
}

// step is one row of the transition table: where a correct answer moves
// the card and how long until it is due again.
type step struct {
	next     Box
	interval time.Duration
}

var (
	ladder = [...]step{
		Box1: {next: Box2, interval: 1 * day},
		Box2: {next: Box3, interval: 3 * day},
		Box3: {next: Box4, interval: 7 * day},
		Box4: {next: Box5, interval: 14 * day},
		Box5: {next: Box5, interval: 30 * day},
	}
	labels = [...]string{Box1: "New", Box2: "Learning", Box3: "Familiar", Box4: "Known", Box5: "Mastered"}
	colors = [...]string{Box1: "red", Box2: "yellow", Box3: "green", Box4: "blue", Box5: "purple"}
)

// Valid reports whether b is one of Box1..Box5.
func (b Box) Valid() bool {
	return b >= MinBox && b <= MaxBox
}

// String returns "Box n" for valid boxes and "Box(n)" otherwise.
func (b Box) String() string {
	if b.Valid() {
		return fmt.Sprintf("Box %d", int(b))
	}
	return fmt.Sprintf("Box(%d)", int(b))
}

// Info returns the metadata of box b.
func Info(b Box) (BoxInfo, error) {
	if !b.Valid() {
		return BoxInfo{}, &InvalidBoxError{Box: int(b)}
	}
	return BoxInfo{
		Box:      b,
		Interval: ladder[b].interval,
		Label:    labels[b],
		Color:    colors[b],
	}, nil
}

// Boxes returns the metadata of every box in ascending order.
func Boxes() []BoxInfo {
	out := make([]BoxInfo, 0, int(MaxBox))
	for b := MinBox; b <= MaxBox; b++ {
		info, _ := Info(b)
		out = append(out, info)
	}
	return out
}
