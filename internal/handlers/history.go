package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	SenderRole string `json:"sender_role"`
	Body       string `json:"body"`
	Timestamp  int64  `json:"ts"`
}

// RoomHistoryResponse represents the transcript read response.
type RoomHistoryResponse struct {
	RoomID   string            `json:"room_id"`
	Status   string            `json:"status"`
	Messages []MessageResponse `json:"messages"`
	HasMore  bool              `json:"has_more"`
}

// RoomHistory handles fetching the message transcript of a room. A
// reconnecting client uses this to repaint the conversation; the live
// feed stays on the socket.
func (h *Handler) RoomHistory(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")

	if _, err := uuid.Parse(roomID); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return
	}

	room, err := h.rooms.GetRoom(r.Context(), roomID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if room == nil {
		h.Error(w, http.StatusNotFound, "room not found")
		return
	}

	// Parse query params
	limitStr := r.URL.Query().Get("limit")
	beforeStr := r.URL.Query().Get("before")

	limit := 50
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	if limit > 200 {
		limit = 200
	}

	var before int64 = 0
	if beforeStr != "" {
		if b, err := strconv.ParseInt(beforeStr, 10, 64); err == nil {
			before = b
		}
	}

	// Fetch messages from Redis (+1 for has_more check)
	messages, err := h.messages.ListRoomMessages(r.Context(), roomID, limit+1, before)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	// Check has_more
	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}

	// Build response
	msgResponses := make([]MessageResponse, len(messages))
	for i, msg := range messages {
		msgResponses[i] = MessageResponse{
			ID:         msg.ID,
			Sender:     msg.SenderName,
			SenderRole: msg.SenderRole,
			Body:       msg.Body,
			Timestamp:  msg.Timestamp,
		}
	}

	h.JSON(w, http.StatusOK, RoomHistoryResponse{
		RoomID:   room.ID,
		Status:   string(room.Status),
		Messages: msgResponses,
		HasMore:  hasMore,
	})
}
