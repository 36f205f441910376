package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/dylanprice1207/copilot-livechat-sub001/internal/crypto"
	"github.com/dylanprice1207/copilot-livechat-sub001/internal/engine"
	"github.com/dylanprice1207/copilot-livechat-sub001/internal/models"
	"github.com/dylanprice1207/copilot-livechat-sub001/internal/store"
)

func newTestHandler(t *testing.T) (*Handler, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "livechat.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(s.Close)
	return NewHandler(s, nil, engine.NewRegistry()), s
}

func TestQueueEmpty(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Queue(rec, httptest.NewRequest(http.MethodGet, "/queue", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp QueueResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 0 || len(resp.Waiting) != 0 {
		t.Fatalf("resp = %+v, want empty queue", resp)
	}
}

func TestQueueListsWaitingRooms(t *testing.T) {
	h, s := newTestHandler(t)
	ctx := context.Background()

	room, err := s.CreateRoom(ctx, crypto.NewUUIDv7().String(), models.GuestInfo{Username: "alice", ConnectionID: "c1"}, "alice", "acme", "sales")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	accepted, err := s.CreateRoom(ctx, crypto.NewUUIDv7().String(), models.GuestInfo{Username: "dave", ConnectionID: "c2"}, "dave", "", "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := s.AssignAgentIfWaiting(ctx, accepted.ID, "bob-id"); err != nil {
		t.Fatalf("assign: %v", err)
	}

	rec := httptest.NewRecorder()
	h.Queue(rec, httptest.NewRequest(http.MethodGet, "/queue", nil))

	var resp QueueResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("total = %d, want 1", resp.Total)
	}
	entry := resp.Waiting[0]
	if entry.RoomID != room.ID || entry.CustomerName != "alice" || entry.Organization != "acme" {
		t.Fatalf("entry = %+v", entry)
	}
	if entry.WaitSeconds < 0 {
		t.Fatalf("negative wait: %d", entry.WaitSeconds)
	}
}

func historyRequest(h *Handler, roomID string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Get("/rooms/{id}/messages", h.RoomHistory)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/"+roomID+"/messages", nil))
	return rec
}

func TestRoomHistoryInvalidID(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := historyRequest(h, "not-a-uuid")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRoomHistoryUnknownRoom(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := historyRequest(h, "0191e4a1-0000-7000-8000-000000000000")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHealthDegradedWithoutRedis(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "degraded" {
		t.Fatalf("status = %q, want degraded", resp.Status)
	}
	if resp.Checks["rooms"].Status != "pass" {
		t.Fatalf("rooms check = %+v", resp.Checks["rooms"])
	}
	if resp.Checks["redis"].Status != "fail" {
		t.Fatalf("redis check = %+v", resp.Checks["redis"])
	}
}

func TestRoot(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.Root(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp RootResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "livechat" {
		t.Fatalf("name = %q", resp.Name)
	}
}
