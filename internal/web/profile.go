package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/conorfennell/lexibox/internal/domain"
	"github.com/conorfennell/lexibox/internal/storage"
)

type profileResponse struct {
	ID             uuid.UUID `json:"id"`
	DefaultAILevel string    `json:"default_ai_level"`
	TelegramChatID *int64    `json:"telegram_chat_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newProfileResponse(p domain.Profile) profileResponse {
	return profileResponse{
		ID:             p.ID,
		DefaultAILevel: p.DefaultAILevel,
		TelegramChatID: p.TelegramChatID,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

type updateProfileRequest struct {
	DefaultAILevel *string `json:"default_ai_level" validate:"omitnil,oneof=a1 a2 b1 b2 c1 c2"`
	TelegramChatID *int64  `json:"telegram_chat_id"`
}

func (s *Server) handleGetProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newProfileResponse(profileFrom(r)))
	}
}

func (s *Server) handleUpdateProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateProfileRequest
		if !s.decode(w, r, &req) {
			return
		}
		p, err := s.store.UpdateProfile(r.Context(), userFrom(r), storage.ProfilePatch{
			DefaultAILevel: req.DefaultAILevel,
			TelegramChatID: req.TelegramChatID,
		}, s.now())
		if err != nil {
			s.logger.Error("Failed to update profile", "user_id", userFrom(r), "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to update profile")
			return
		}
		writeJSON(w, http.StatusOK, newProfileResponse(p))
	}
}
