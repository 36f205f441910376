package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/dylanprice1207/copilot-livechat-sub001/internal/models"
)

func newTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr(), zerolog.Nop())
	if err != nil {
		t.Fatalf("open redis store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addTestMessage(t *testing.T, s *RedisStore, roomID, sender, body string) *models.Message {
	t.Helper()
	msg := &models.Message{RoomID: roomID, SenderName: sender, SenderRole: "guest", Body: body}
	if err := s.AddMessage(context.Background(), msg); err != nil {
		t.Fatalf("add message: %v", err)
	}
	// Score resolution is milliseconds; keep successive messages apart.
	time.Sleep(2 * time.Millisecond)
	return msg
}

func TestAddMessageAssignsIDAndServerTimestamp(t *testing.T) {
	s := newTestRedis(t)

	msg := &models.Message{
		RoomID:     "room-1",
		SenderName: "alice",
		SenderRole: "guest",
		Body:       "hello",
		Timestamp:  12345, // client-supplied, must be ignored
	}
	before := time.Now().UnixMilli()
	if err := s.AddMessage(context.Background(), msg); err != nil {
		t.Fatalf("add message: %v", err)
	}

	if msg.ID == "" {
		t.Fatal("no id assigned")
	}
	if msg.Timestamp < before {
		t.Fatalf("timestamp not server-assigned: %d", msg.Timestamp)
	}
}

func TestAddMessageSetsTranscriptTTL(t *testing.T) {
	s := newTestRedis(t)

	addTestMessage(t, s, "room-1", "alice", "hello")

	ttl, err := s.Client().TTL(context.Background(), roomMessagesKey("room-1")).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > messageTTL {
		t.Fatalf("ttl = %v, want within (0, %v]", ttl, messageTTL)
	}
}

func TestListRoomMessages(t *testing.T) {
	s := newTestRedis(t)
	ctx := context.Background()

	first := addTestMessage(t, s, "room-1", "alice", "one")
	second := addTestMessage(t, s, "room-1", "bob", "two")
	third := addTestMessage(t, s, "room-1", "alice", "three")
	addTestMessage(t, s, "room-2", "dave", "other room")

	msgs, err := s.ListRoomMessages(ctx, "room-1", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	// Newest first.
	if msgs[0].ID != third.ID || msgs[1].ID != second.ID || msgs[2].ID != first.ID {
		t.Fatalf("wrong order: %v, %v, %v", msgs[0].Body, msgs[1].Body, msgs[2].Body)
	}

	// The before cursor is exclusive.
	msgs, err = s.ListRoomMessages(ctx, "room-1", 10, second.Timestamp)
	if err != nil {
		t.Fatalf("list before: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ID != first.ID {
		t.Fatalf("before cursor returned %d messages", len(msgs))
	}

	// Limit caps the page.
	msgs, err = s.ListRoomMessages(ctx, "room-1", 2, 0)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(msgs) != 2 || msgs[0].ID != third.ID {
		t.Fatalf("limited page = %d messages starting %v", len(msgs), msgs[0].Body)
	}
}

func TestListRoomMessagesEmptyRoom(t *testing.T) {
	s := newTestRedis(t)

	msgs, err := s.ListRoomMessages(context.Background(), "room-none", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("got %d messages from empty room", len(msgs))
	}
}
