package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rosterhq/huddle/internal/service"
	"github.com/rosterhq/huddle/internal/transport/http/middleware"
)

type TypingHandler struct {
	typingService *service.TypingService
}

func NewTypingHandler(typingService *service.TypingService) *TypingHandler {
	return &TypingHandler{typingService: typingService}
}

func (h *TypingHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid channel ID")
		return
	}

	if err := h.typingService.StartTyping(r.Context(), channelID, userID); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TypingHandler) Current(w http.ResponseWriter, r *http.Request) {
	channelID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid channel ID")
		return
	}

	users, err := h.typingService.CurrentlyTyping(r.Context(), channelID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"typing": users})
}

// Batch answers "who is typing" for every visible channel in one call:
// GET /typing?channels=id1,id2,...
func (h *TypingHandler) Batch(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("channels")
	if raw == "" {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}

	var channelIDs []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		id, err := uuid.Parse(part)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid channel ID in list")
			return
		}
		channelIDs = append(channelIDs, id)
	}

	typing, err := h.typingService.CurrentlyTypingBatch(r.Context(), channelIDs)
	if err != nil {
		respondError(w, err)
		return
	}

	out := make(map[string][]uuid.UUID, len(typing))
	for channelID, users := range typing {
		out[channelID.String()] = users
	}
	writeJSON(w, http.StatusOK, out)
}
