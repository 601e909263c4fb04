package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/conorfennell/lexibox/internal/domain"
	"github.com/conorfennell/lexibox/internal/review"
	"github.com/conorfennell/lexibox/internal/storage"
)

// UserHeader carries the caller's user id, set by the authenticating proxy
// in front of the API.
const UserHeader = "X-User-ID"

const maxBodyBytes = 1 << 20

// Store is the persistence the HTTP API needs.
type Store interface {
	EnsureProfile(ctx context.Context, userID uuid.UUID, now time.Time) (domain.Profile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, patch storage.ProfilePatch, now time.Time) (domain.Profile, error)
	InsertFlashcard(ctx context.Context, card domain.Flashcard) error
	InsertFlashcards(ctx context.Context, cards []domain.Flashcard) error
	GetFlashcard(ctx context.Context, userID, id uuid.UUID) (domain.Flashcard, error)
	ListFlashcards(ctx context.Context, userID uuid.UUID, opts storage.ListOptions) (storage.Page, error)
	UpdateFlashcard(ctx context.Context, userID, id uuid.UUID, patch storage.FlashcardPatch, now time.Time) (domain.Flashcard, error)
	DeleteFlashcard(ctx context.Context, userID, id uuid.UUID) error
	ReviewLogs(ctx context.Context, userID, flashcardID uuid.UUID) ([]domain.ReviewLog, error)
}

// Options tunes a Server. Zero values fall back to sensible defaults.
type Options struct {
	Logger       *slog.Logger
	Now          func() time.Time
	SessionLimit int
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	store        Store
	reviews      *review.Service
	router       *http.ServeMux
	validate     *validator.Validate
	logger       *slog.Logger
	now          func() time.Time
	sessionLimit int
}

// NewServer creates and configures a new server.
func NewServer(store Store, reviews *review.Service, opts Options) *Server {
	s := &Server{
		store:        store,
		reviews:      reviews,
		router:       http.NewServeMux(),
		validate:     newValidator(),
		logger:       opts.Logger,
		now:          opts.Now,
		sessionLimit: opts.SessionLimit,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sessionLimit <= 0 {
		s.sessionLimit = 50
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /healthz", s.handleHealth())

	s.router.Handle("GET /api/flashcards", s.withUser(s.handleListFlashcards()))
	s.router.Handle("POST /api/flashcards", s.withUser(s.handleCreateFlashcard()))
	s.router.Handle("POST /api/flashcards/import", s.withUser(s.handleImportFlashcards()))
	s.router.Handle("GET /api/flashcards/{id}", s.withUser(s.handleGetFlashcard()))
	s.router.Handle("PATCH /api/flashcards/{id}", s.withUser(s.handleUpdateFlashcard()))
	s.router.Handle("DELETE /api/flashcards/{id}", s.withUser(s.handleDeleteFlashcard()))
	s.router.Handle("GET /api/flashcards/{id}/reviews", s.withUser(s.handleGetReviewLogs()))

	s.router.Handle("GET /api/review", s.withUser(s.handleGetSession()))
	s.router.Handle("GET /api/review/count", s.withUser(s.handleGetDueCount()))
	s.router.Handle("POST /api/review/update", s.withUser(s.handleUpdateReview()))
	s.router.Handle("POST /api/review/{id}", s.withUser(s.handlePostReview()))

	s.router.HandleFunc("GET /api/boxes", s.handleGetBoxes())

	s.router.Handle("GET /api/profile", s.withUser(s.handleGetProfile()))
	s.router.Handle("PATCH /api/profile", s.withUser(s.handleUpdateProfile()))
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type userKey struct{}

// withUser resolves the caller from UserHeader and makes sure they have a
// profile before the wrapped handler runs.
func (s *Server) withUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(strings.TrimSpace(r.Header.Get(UserHeader)))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		profile, err := s.store.EnsureProfile(r.Context(), userID, s.now())
		if err != nil {
			s.logger.Error("Failed to load profile", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, profile)
		next(w, r.WithContext(ctx))
	})
}

func profileFrom(r *http.Request) domain.Profile {
	p, _ := r.Context().Value(userKey{}).(domain.Profile)
	return p
}

func userFrom(r *http.Request) uuid.UUID {
	return profileFrom(r).ID
}

// pathID parses the {id} path value. It writes a 400 and reports false
// when the value is not a UUID.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid flashcard ID")
		return uuid.Nil, false
	}
	return id, true
}

type errorResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if n, ok := dst.(interface{ normalize() }); ok {
		n.normalize()
	}
	return s.check(w, dst)
}

// check validates v and writes a 400 with per-field details on failure.
func (s *Server) check(w http.ResponseWriter, v any) bool {
	err := s.validate.Struct(v)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return false
	}
	details := make([]fieldError, len(verrs))
	for i, fe := range verrs {
		details[i] = fieldError{Field: fieldPath(fe), Message: fieldMessage(fe)}
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Validation failed", Details: details})
	return false
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	_, path, found := strings.Cut(fe.Namespace(), ".")
	if !found {
		return fe.Field()
	}
	return path
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + unit(fe)
	case "max":
		return "must be at most " + fe.Param() + unit(fe)
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

func unit(fe validator.FieldError) string {
	switch fe.Kind() {
	case reflect.String:
		return " characters"
	case reflect.Slice:
		return " items"
	default:
		return ""
	}
}
