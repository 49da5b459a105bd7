package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rosterhq/huddle/internal/service"
	"github.com/rosterhq/huddle/internal/transport/http/middleware"
)

type UnreadHandler struct {
	unreadService *service.UnreadService
}

func NewUnreadHandler(unreadService *service.UnreadService) *UnreadHandler {
	return &UnreadHandler{unreadService: unreadService}
}

// Badge returns the combined global badge for the caller.
func (h *UnreadHandler) Badge(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	badge, err := h.unreadService.GlobalUnread(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, badge)
}

func (h *UnreadHandler) ChannelUnread(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid channel ID")
		return
	}

	count, err := h.unreadService.ChannelUnread(r.Context(), userID, channelID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (h *UnreadHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	channelID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid channel ID")
		return
	}

	if err := h.unreadService.MarkRead(r.Context(), userID, channelID); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
