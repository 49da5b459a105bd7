package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/rosterhq/huddle/internal/service"
	"github.com/rosterhq/huddle/internal/transport/http/middleware"
)

type DMHandler struct {
	dmService *service.DMService
}

func NewDMHandler(dmService *service.DMService) *DMHandler {
	return &DMHandler{dmService: dmService}
}

// Resolve finds or creates the direct channel for the caller and one other
// user within a season.
func (h *DMHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var body struct {
		UserID   string `json:"user_id"`
		SeasonID string `json:"season_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	otherID, err := uuid.Parse(body.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}
	seasonID, err := uuid.Parse(body.SeasonID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid season ID")
		return
	}

	ch, err := h.dmService.FindOrCreate(r.Context(), userID, otherID, seasonID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ch)
}

func (h *DMHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var body struct {
		UserIDs  []string `json:"user_ids"`
		SeasonID string   `json:"season_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	seasonID, err := uuid.Parse(body.SeasonID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid season ID")
		return
	}
	memberIDs := make([]uuid.UUID, 0, len(body.UserIDs))
	for _, raw := range body.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
			return
		}
		memberIDs = append(memberIDs, id)
	}

	ch, err := h.dmService.CreateGroup(r.Context(), userID, memberIDs, seasonID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ch)
}
