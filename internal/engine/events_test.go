package engine

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    any
		wantErr string
	}{
		{
			name: "identify guest",
			raw:  `{"event":"identify","data":{"role":"guest","displayName":"alice"}}`,
			want: Identify{Role: RoleGuest, DisplayName: "alice"},
		},
		{
			name: "identify agent with id",
			raw:  `{"event":"identify","data":{"id":"bob-id","role":"agent","displayName":"bob"}}`,
			want: Identify{ID: "bob-id", Role: RoleAgent, DisplayName: "bob"},
		},
		{
			name:    "identify missing role",
			raw:     `{"event":"identify","data":{"displayName":"alice"}}`,
			wantErr: "role is required",
		},
		{
			name:    "identify unknown role",
			raw:     `{"event":"identify","data":{"role":"superuser"}}`,
			wantErr: "unknown role",
		},
		{
			name: "chat request",
			raw:  `{"event":"chat_request","data":{"displayName":"alice","organization":"acme","department":"sales"}}`,
			want: ChatRequest{DisplayName: "alice", Organization: "acme", Department: "sales"},
		},
		{
			name: "accept chat",
			raw:  `{"event":"accept_chat","data":{"roomId":"r1","agentId":"bob-id"}}`,
			want: AcceptChat{RoomID: "r1", AgentID: "bob-id"},
		},
		{
			name:    "accept chat missing room",
			raw:     `{"event":"accept_chat","data":{"agentId":"bob-id"}}`,
			wantErr: "roomId is required",
		},
		{
			name: "send message",
			raw:  `{"event":"send_message","data":{"roomId":"r1","text":"hi"}}`,
			want: SendMessage{RoomID: "r1", Text: "hi"},
		},
		{
			name:    "send message missing room",
			raw:     `{"event":"send_message","data":{"text":"hi"}}`,
			wantErr: "roomId is required",
		},
		{
			name:    "close chat missing room",
			raw:     `{"event":"close_chat"}`,
			wantErr: "roomId is required",
		},
		{
			name: "heartbeat without data",
			raw:  `{"event":"heartbeat"}`,
			want: Heartbeat{},
		},
		{
			name: "refresh queue",
			raw:  `{"event":"refresh_queue"}`,
			want: RefreshQueue{},
		},
		{
			name:    "not json",
			raw:     `hello`,
			wantErr: "malformed frame",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeInbound([]byte(tt.raw))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("want error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeInboundUnknownEvent(t *testing.T) {
	_, err := DecodeInbound([]byte(`{"event":"frobnicate"}`))
	if !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("want ErrUnknownEvent, got %v", err)
	}
}

func TestRoleStaff(t *testing.T) {
	if RoleGuest.Staff() {
		t.Fatal("guest counted as staff")
	}
	if !RoleAgent.Staff() || !RoleAdmin.Staff() {
		t.Fatal("agent/admin not counted as staff")
	}
}
