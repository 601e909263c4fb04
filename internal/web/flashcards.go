package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/lexibox/internal/domain"
	"github.com/conorfennell/lexibox/internal/leitner"
	"github.com/conorfennell/lexibox/internal/storage"
)

type flashcardResponse struct {
	ID           uuid.UUID `json:"id"`
	Front        string    `json:"front"`
	Back         string    `json:"back"`
	PartOfSpeech *string   `json:"part_of_speech"`
	AIGenerated  bool      `json:"ai_generated"`
	LeitnerBox   int       `json:"leitner_box"`
	ReviewDueAt  time.Time `json:"review_due_at"`
	DueLabel     string    `json:"due_label"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newFlashcardResponse(c domain.Flashcard, now time.Time) flashcardResponse {
	return flashcardResponse{
		ID:           c.ID,
		Front:        c.Front,
		Back:         c.Back,
		PartOfSpeech: c.PartOfSpeech,
		AIGenerated:  c.AIGenerated,
		LeitnerBox:   int(c.LeitnerBox),
		ReviewDueAt:  c.ReviewDueAt,
		DueLabel:     leitner.DescribeDueDate(c.ReviewDueAt, now).String(),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func newFlashcardResponses(cards []domain.Flashcard, now time.Time) []flashcardResponse {
	out := make([]flashcardResponse, len(cards))
	for i, c := range cards {
		out[i] = newFlashcardResponse(c, now)
	}
	return out
}

type pagination struct {
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
}

type listResponse struct {
	Data       []flashcardResponse `json:"data"`
	Pagination pagination          `json:"pagination"`
}

type listQuery struct {
	Page     int    `json:"page" validate:"min=1"`
	PageSize int    `json:"pageSize" validate:"min=1,max=100"`
	SortBy   string `json:"sortBy" validate:"oneof=created_at front leitner_box"`
	Order    string `json:"order" validate:"oneof=asc desc"`
}

type createFlashcardRequest struct {
	Front        string  `json:"front" validate:"required,min=1,max=255"`
	Back         string  `json:"back" validate:"required,min=1,max=255"`
	PartOfSpeech *string `json:"part_of_speech" validate:"omitnil,max=50"`
	AIGenerated  *bool   `json:"ai_generated"`
}

func (req *createFlashcardRequest) normalize() {
	req.Front = strings.TrimSpace(req.Front)
	req.Back = strings.TrimSpace(req.Back)
}

type importFlashcardsRequest struct {
	Flashcards []createFlashcardRequest `json:"flashcards" validate:"required,min=1,max=20,dive"`
}

func (req *importFlashcardsRequest) normalize() {
	for i := range req.Flashcards {
		req.Flashcards[i].normalize()
	}
}

type updateFlashcardRequest struct {
	Front        *string `json:"front" validate:"omitnil,min=1,max=249"`
	Back         *string `json:"back" validate:"omitnil,min=1,max=249"`
	PartOfSpeech *string `json:"part_of_speech" validate:"omitnil,max=249"`
}

func (req *updateFlashcardRequest) normalize() {
	for _, f := range []*string{req.Front, req.Back, req.PartOfSpeech} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

// handleListFlashcards returns one page of the caller's cards.
func (s *Server) handleListFlashcards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := listQuery{
			Page:     1,
			PageSize: 20,
			SortBy:   storage.SortCreatedAt,
			Order:    "desc",
		}
		var bad bool
		query.Page, bad = intParam(q.Get("page"), query.Page)
		if bad {
			writeError(w, http.StatusBadRequest, "Invalid page")
			return
		}
		query.PageSize, bad = intParam(q.Get("pageSize"), query.PageSize)
		if bad {
			writeError(w, http.StatusBadRequest, "Invalid pageSize")
			return
		}
		if v := q.Get("sortBy"); v != "" {
			query.SortBy = v
		}
		if v := q.Get("order"); v != "" {
			query.Order = strings.ToLower(v)
		}
		if !s.check(w, &query) {
			return
		}

		page, err := s.store.ListFlashcards(r.Context(), userFrom(r), storage.ListOptions{
			Page:     query.Page,
			PageSize: query.PageSize,
			SortBy:   query.SortBy,
			Order:    query.Order,
		})
		if err != nil {
			s.logger.Error("Failed to list flashcards", "user_id", userFrom(r), "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch flashcards")
			return
		}
		writeJSON(w, http.StatusOK, listResponse{
			Data: newFlashcardResponses(page.Items, s.now()),
			Pagination: pagination{
				CurrentPage: page.Page,
				PageSize:    page.PageSize,
				TotalItems:  page.TotalItems,
				TotalPages:  page.TotalPages,
			},
		})
	}
}

// intParam parses an optional integer query value. The second result
// reports a malformed value.
func intParam(raw string, def int) (int, bool) {
	if raw == "" {
		return def, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true
	}
	return n, false
}

// handleCreateFlashcard stores a single card in the first box.
func (s *Server) handleCreateFlashcard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createFlashcardRequest
		if !s.decode(w, r, &req) {
			return
		}
		now := s.now()
		aiGenerated := req.AIGenerated != nil && *req.AIGenerated
		card := domain.NewFlashcard(userFrom(r), req.Front, req.Back, req.PartOfSpeech, aiGenerated, now)
		if err := s.store.InsertFlashcard(r.Context(), card); err != nil {
			s.logger.Error("Failed to create flashcard", "user_id", card.UserID, "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to create flashcard")
			return
		}
		writeJSON(w, http.StatusCreated, newFlashcardResponse(card, now))
	}
}

// handleImportFlashcards stores a batch of generated cards at once.
func (s *Server) handleImportFlashcards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req importFlashcardsRequest
		if !s.decode(w, r, &req) {
			return
		}
		now := s.now()
		user := userFrom(r)
		cards := make([]domain.Flashcard, len(req.Flashcards))
		for i, f := range req.Flashcards {
			// imported batches come from the generator unless marked otherwise
			aiGenerated := f.AIGenerated == nil || *f.AIGenerated
			cards[i] = domain.NewFlashcard(user, f.Front, f.Back, f.PartOfSpeech, aiGenerated, now)
		}
		if err := s.store.InsertFlashcards(r.Context(), cards); err != nil {
			s.logger.Error("Failed to import flashcards", "user_id", user, "count", len(cards), "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to import flashcards")
			return
		}
		s.logger.Info("Imported flashcards", "user_id", user, "count", len(cards))
		writeJSON(w, http.StatusCreated, map[string]int{"importedCount": len(cards)})
	}
}

// handleGetFlashcard returns a single card.
func (s *Server) handleGetFlashcard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		card, err := s.store.GetFlashcard(r.Context(), userFrom(r), id)
		if err != nil {
			s.flashcardError(w, r, id, "Failed to fetch flashcard", err)
			return
		}
		writeJSON(w, http.StatusOK, newFlashcardResponse(card, s.now()))
	}
}

// handleUpdateFlashcard edits a card's text. Its review state is kept.
func (s *Server) handleUpdateFlashcard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req updateFlashcardRequest
		if !s.decode(w, r, &req) {
			return
		}
		now := s.now()
		card, err := s.store.UpdateFlashcard(r.Context(), userFrom(r), id, storage.FlashcardPatch{
			Front:        req.Front,
			Back:         req.Back,
			PartOfSpeech: req.PartOfSpeech,
		}, now)
		if err != nil {
			s.flashcardError(w, r, id, "Failed to update flashcard", err)
			return
		}
		writeJSON(w, http.StatusOK, newFlashcardResponse(card, now))
	}
}

// handleDeleteFlashcard removes a card.
func (s *Server) handleDeleteFlashcard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		if err := s.store.DeleteFlashcard(r.Context(), userFrom(r), id); err != nil {
			s.flashcardError(w, r, id, "Failed to delete flashcard", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type reviewLogResponse struct {
	Correct    bool      `json:"correct"`
	FromBox    int       `json:"from_box"`
	ToBox      int       `json:"to_box"`
	ReviewedAt time.Time `json:"reviewed_at"`
	DueAt      time.Time `json:"due_at"`
}

// handleGetReviewLogs returns a card's review history, oldest first.
func (s *Server) handleGetReviewLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		user := userFrom(r)
		if _, err := s.store.GetFlashcard(r.Context(), user, id); err != nil {
			s.flashcardError(w, r, id, "Failed to fetch review history", err)
			return
		}
		logs, err := s.store.ReviewLogs(r.Context(), user, id)
		if err != nil {
			s.flashcardError(w, r, id, "Failed to fetch review history", err)
			return
		}
		out := make([]reviewLogResponse, len(logs))
		for i, l := range logs {
			out[i] = reviewLogResponse{
				Correct:    l.Correct,
				FromBox:    int(l.FromBox),
				ToBox:      int(l.ToBox),
				ReviewedAt: l.ReviewedAt,
				DueAt:      l.DueAt,
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"reviews": out})
	}
}

// flashcardError maps a storage error for a single card to a response.
func (s *Server) flashcardError(w http.ResponseWriter, r *http.Request, id uuid.UUID, msg string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Flashcard not found")
		return
	}
	s.logger.Error(msg, "flashcard_id", id, "user_id", userFrom(r), "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}
