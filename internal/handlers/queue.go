package handlers

import (
	"net/http"
	"time"
)

// QueueEntry represents a waiting room in the queue view.
type QueueEntry struct {
	RoomID       string `json:"room_id"`
	CustomerName string `json:"customer_name"`
	Organization string `json:"organization,omitempty"`
	Department   string `json:"department,omitempty"`
	RequestedAt  string `json:"requested_at"`
	WaitSeconds  int64  `json:"wait_seconds"`
}

// QueueResponse represents the queue view response.
type QueueResponse struct {
	Waiting []QueueEntry `json:"waiting"`
	Total   int          `json:"total"`
}

// Queue handles the read-only waiting list view. Dashboards poll this;
// staff clients get the same data pushed as queue snapshots over the
// socket.
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.ListWaiting(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	now := time.Now()
	waiting := make([]QueueEntry, len(rooms))
	for i, room := range rooms {
		waiting[i] = QueueEntry{
			RoomID:       room.ID,
			CustomerName: room.CustomerName,
			Organization: room.Organization,
			Department:   room.Department,
			RequestedAt:  room.CreatedAt.UTC().Format(time.RFC3339),
			WaitSeconds:  int64(now.Sub(room.CreatedAt).Seconds()),
		}
	}

	h.JSON(w, http.StatusOK, QueueResponse{
		Waiting: waiting,
		Total:   len(waiting),
	})
}
