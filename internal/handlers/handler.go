package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dylanprice1207/copilot-livechat-sub001/internal/engine"
	"github.com/dylanprice1207/copilot-livechat-sub001/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	rooms    store.RoomStore
	messages *store.RedisStore
	registry *engine.Registry
}

// NewHandler creates a new Handler with the given stores and registry.
func NewHandler(rooms store.RoomStore, messages *store.RedisStore, registry *engine.Registry) *Handler {
	return &Handler{rooms: rooms, messages: messages, registry: registry}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
