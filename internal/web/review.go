package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/lexibox/internal/leitner"
	"github.com/conorfennell/lexibox/internal/review"
	"github.com/conorfennell/lexibox/internal/storage"
)

type sessionResponse struct {
	Flashcards []flashcardResponse `json:"flashcards"`
	Count      int                 `json:"count"`
}

type submitReviewRequest struct {
	Result string `json:"result" validate:"required,oneof=correct incorrect"`
}

type submitReviewResponse struct {
	Success     bool      `json:"success"`
	LeitnerBox  int       `json:"leitner_box"`
	ReviewDueAt time.Time `json:"review_due_at"`
	DueLabel    string    `json:"due_label"`
}

type updateReviewRequest struct {
	FlashcardID uuid.UUID `json:"flashcardId" validate:"required"`
	KnewIt      *bool     `json:"knewIt" validate:"required"`
}

// handleGetSession returns the caller's due cards in review order.
func (s *Server) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := s.sessionLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid limit")
				return
			}
			limit = min(n, s.sessionLimit)
		}

		cards, err := s.reviews.Session(r.Context(), userFrom(r), limit)
		if err != nil {
			s.logger.Error("Failed to load review session", "user_id", userFrom(r), "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch flashcards for review")
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{
			Flashcards: newFlashcardResponses(cards, s.now()),
			Count:      len(cards),
		})
	}
}

// handleGetDueCount returns how many cards are waiting for review.
func (s *Server) handleGetDueCount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := s.reviews.DueCount(r.Context(), userFrom(r))
		if err != nil {
			s.logger.Error("Failed to count due flashcards", "user_id", userFrom(r), "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to count due flashcards")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"count": n})
	}
}

// handlePostReview records a correct or incorrect answer for a card.
func (s *Server) handlePostReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req submitReviewRequest
		if !s.decode(w, r, &req) {
			return
		}
		correct, err := review.ParseOutcome(req.Result)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid review result")
			return
		}

		next, err := s.reviews.Submit(r.Context(), userFrom(r), id, correct)
		if err != nil {
			s.reviewError(w, r, id, err)
			return
		}
		writeJSON(w, http.StatusOK, submitReviewResponse{
			Success:     true,
			LeitnerBox:  int(next.Box),
			ReviewDueAt: next.DueAt,
			DueLabel:    leitner.DescribeDueDate(next.DueAt, s.now()).String(),
		})
	}
}

// handleUpdateReview is the knewIt/flashcardId form of handlePostReview.
func (s *Server) handleUpdateReview() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateReviewRequest
		if !s.decode(w, r, &req) {
			return
		}
		if _, err := s.reviews.Submit(r.Context(), userFrom(r), req.FlashcardID, *req.KnewIt); err != nil {
			s.reviewError(w, r, req.FlashcardID, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// reviewError maps a failed review to a response. Scheduler and storage
// details stay in the log.
func (s *Server) reviewError(w http.ResponseWriter, r *http.Request, id uuid.UUID, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Flashcard not found")
	case errors.Is(err, storage.ErrConflict):
		writeError(w, http.StatusConflict, "Flashcard was reviewed concurrently, reload and try again")
	default:
		// invalid boxes are already logged by the review service
		if !errors.Is(err, leitner.ErrInvalidBox) {
			s.logger.Error("Failed to update review status", "flashcard_id", id, "user_id", userFrom(r), "error", err)
		}
		writeError(w, http.StatusInternalServerError, "Failed to update review status")
	}
}

type boxResponse struct {
	Box          int    `json:"box"`
	Label        string `json:"label"`
	Color        string `json:"color"`
	IntervalDays int    `json:"interval_days"`
}

// handleGetBoxes describes the Leitner boxes for display.
func (s *Server) handleGetBoxes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		boxes := leitner.Boxes()
		out := make([]boxResponse, len(boxes))
		for i, b := range boxes {
			out[i] = boxResponse{
				Box:          int(b.Box),
				Label:        b.Label,
				Color:        b.Color,
				IntervalDays: int(b.Interval / (24 * time.Hour)),
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"boxes": out})
	}
}
