package leitner

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestComputeNextReviewIncorrectResets(t *testing.T) {
	for b := 1; b <= 5; b++ {
		got, err := ComputeNextReview(b, false, t0)
		if err != nil {
			t.Fatalf("box %d: unexpected error: %v", b, err)
		}
		if got.Box != Box1 {
			t.Errorf("box %d: expected Box1 after incorrect answer, but got %v", b, got.Box)
		}
		if !got.DueAt.Equal(t0) {
			t.Errorf("box %d: expected due at %v, but got %v", b, t0, got.DueAt)
		}
	}
}

func TestComputeNextReviewCorrect(t *testing.T) {
	testCases := []struct {
		current  int
		wantBox  Box
		interval time.Duration
	}{
		{1, Box2, 24 * time.Hour},
		{2, Box3, 3 * 24 * time.Hour},
		{3, Box4, 7 * 24 * time.Hour},
		{4, Box5, 14 * 24 * time.Hour},
		{5, Box5, 30 * 24 * time.Hour},
	}

	for _, tc := range testCases {
		t.Run(Box(tc.current).String(), func(t *testing.T) {
			got, err := ComputeNextReview(tc.current, true, t0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Box != tc.wantBox {
				t.Errorf("Expected box %v, but got %v", tc.wantBox, got.Box)
			}
			if want := t0.Add(tc.interval); !got.DueAt.Equal(want) {
				t.Errorf("Expected due at %v, but got %v", want, got.DueAt)
			}
		})
	}
}

func TestComputeNextReviewInvalidBox(t *testing.T) {
	for _, b := range []int{0, 6, -1, 100} {
		for _, correct := range []bool{true, false} {
			_, err := ComputeNextReview(b, correct, t0)
			if !errors.Is(err, ErrInvalidBox) {
				t.Errorf("box %d correct=%v: expected ErrInvalidBox, but got %v", b, correct, err)
			}
			var ibe *InvalidBoxError
			if !errors.As(err, &ibe) || ibe.Box != b {
				t.Errorf("box %d: expected *InvalidBoxError carrying the box, but got %v", b, err)
			}
		}
	}
}

func TestComputeNextReviewDeterministic(t *testing.T) {
	for b := 1; b <= 5; b++ {
		for _, correct := range []bool{true, false} {
			first, _ := ComputeNextReview(b, correct, t0)
			second, _ := ComputeNextReview(b, correct, t0)
			if first != second {
				t.Errorf("box %d correct=%v: results differ: %v vs %v", b, correct, first, second)
			}
		}
	}
}

func TestIsDue(t *testing.T) {
	testCases := []struct {
		name  string
		dueAt time.Time
		want  bool
	}{
		{"exactly now", t0, true},
		{"one millisecond ago", t0.Add(-time.Millisecond), true},
		{"one millisecond ahead", t0.Add(time.Millisecond), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsDue(tc.dueAt, t0); got != tc.want {
				t.Errorf("IsDue() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestScenarioCorrectCorrectIncorrect(t *testing.T) {
	now := t0
	r, err := ComputeNextReview(1, true, now)
	if err != nil || r.Box != Box2 || !r.DueAt.Equal(now.Add(24*time.Hour)) {
		t.Fatalf("first review: got %+v, %v", r, err)
	}

	now = r.DueAt
	r, err = ComputeNextReview(int(r.Box), true, now)
	if err != nil || r.Box != Box3 || !r.DueAt.Equal(now.Add(3*24*time.Hour)) {
		t.Fatalf("second review: got %+v, %v", r, err)
	}

	now = r.DueAt
	r, err = ComputeNextReview(int(r.Box), false, now)
	if err != nil || r.Box != Box1 || !r.DueAt.Equal(now) {
		t.Fatalf("third review: got %+v, %v", r, err)
	}
}

func TestScenarioBoxFiveSaturates(t *testing.T) {
	now := t0
	box := 5
	for i := 0; i < 3; i++ {
		r, err := ComputeNextReview(box, true, now)
		if err != nil {
			t.Fatalf("review %d: unexpected error: %v", i, err)
		}
		if r.Box != Box5 {
			t.Errorf("review %d: expected Box5, but got %v", i, r.Box)
		}
		if want := now.Add(30 * 24 * time.Hour); !r.DueAt.Equal(want) {
			t.Errorf("review %d: expected due %v, but got %v", i, want, r.DueAt)
		}
		box = int(r.Box)
		// review a few hours late; the next due date counts from the review instant
		now = r.DueAt.Add(5 * time.Hour)
	}
}

func TestBoxes(t *testing.T) {
	boxes := Boxes()
	if len(boxes) != 5 {
		t.Fatalf("Expected 5 boxes, but got %d", len(boxes))
	}
	for i, info := range boxes {
		if info.Box != Box(i+1) {
			t.Errorf("Expected box %d at index %d, but got %v", i+1, i, info.Box)
		}
		if info.Label == "" || info.Color == "" {
			t.Errorf("box %v is missing display metadata: %+v", info.Box, info)
		}
		r, _ := ComputeNextReview(int(info.Box), true, t0)
		if got := r.DueAt.Sub(t0); got != info.Interval {
			t.Errorf("box %v: Info interval %v does not match scheduled interval %v", info.Box, info.Interval, got)
		}
	}
	if _, err := Info(Box(6)); !errors.Is(err, ErrInvalidBox) {
		t.Errorf("Expected ErrInvalidBox for Box(6), but got %v", err)
	}
}

func TestBoxString(t *testing.T) {
	if got := Box3.String(); got != "Box 3" {
		t.Errorf("Expected 'Box 3', but got '%s'", got)
	}
	if got := Box(9).String(); got != "Box(9)" {
		t.Errorf("Expected 'Box(9)', but got '%s'", got)
	}
}
