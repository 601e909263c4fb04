package leitner

import (
	"testing"
	"time"
)

type card struct {
	id    string
	box   Box
	dueAt time.Time
}

func (c card) QueueBox() Box         { return c.box }
func (c card) QueueDueAt() time.Time { return c.dueAt }
func (c card) QueueID() string       { return c.id }

func TestSortQueue(t *testing.T) {
	now := t0
	a := card{id: "A", box: Box1, dueAt: now.Add(-2 * day)}
	b := card{id: "B", box: Box2, dueAt: now.Add(-1 * day)}
	c := card{id: "C", box: Box1, dueAt: now.Add(-3 * day)}

	queue := []card{a, b, c}
	SortQueue(queue)

	want := []string{"C", "A", "B"}
	for i, id := range want {
		if queue[i].id != id {
			t.Fatalf("Expected order %v, but got %v", want, ids(queue))
		}
	}
}

func TestSortQueueTieBreaksByID(t *testing.T) {
	due := t0.Add(-time.Hour)
	queue := []card{
		{id: "z", box: Box3, dueAt: due},
		{id: "m", box: Box3, dueAt: due},
		{id: "a", box: Box3, dueAt: due},
	}
	SortQueue(queue)
	if got := ids(queue); got[0] != "a" || got[1] != "m" || got[2] != "z" {
		t.Errorf("Expected [a m z], but got %v", got)
	}
	if !Less(queue[0], queue[1]) || Less(queue[1], queue[0]) {
		t.Error("Less is inconsistent with the sorted order")
	}
}

func TestFilterDue(t *testing.T) {
	queue := []card{
		{id: "past", box: Box2, dueAt: t0.Add(-time.Minute)},
		{id: "now", box: Box1, dueAt: t0},
		{id: "future", box: Box1, dueAt: t0.Add(time.Minute)},
	}
	got := ids(FilterDue(queue, t0))
	if len(got) != 2 || got[0] != "past" || got[1] != "now" {
		t.Errorf("Expected [past now], but got %v", got)
	}
}

func ids(cards []card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.id
	}
	return out
}
