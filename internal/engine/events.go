package engine

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound event names, as sent by clients over the socket.
const (
	EventIdentify     = "identify"
	EventChatRequest  = "chat_request"
	EventAcceptChat   = "accept_chat"
	EventSendMessage  = "send_message"
	EventTyping       = "typing"
	EventStopTyping   = "stop_typing"
	EventCloseChat    = "close_chat"
	EventRefreshQueue = "refresh_queue"
	EventHeartbeat    = "heartbeat"
)

// Outbound event names.
const (
	EventRoomAssigned  = "room_assigned"
	EventAgentJoined   = "agent_joined"
	EventNewRequest    = "new_request"
	EventChatTaken     = "chat_taken"
	EventChatAccepted  = "chat_accepted"
	EventNewMessage    = "new_message"
	EventChatClosed    = "chat_closed"
	EventQueueSnapshot = "queue_snapshot"
	EventError         = "error"
)

// Role is the declared role of a connection.
type Role string

const (
	RoleGuest Role = "guest"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleGuest || r == RoleAgent || r == RoleAdmin
}

// Staff reports whether r belongs to the staff broadcast group.
func (r Role) Staff() bool {
	return r == RoleAgent || r == RoleAdmin
}

// Identity is the declared identity of a connection.
type Identity struct {
	ID          string `json:"id"`
	Role        Role   `json:"role"`
	DisplayName string `json:"displayName"`
}

// Inbound payloads. Each inbound frame is {"event": ..., "data": ...};
// DecodeInbound validates the frame and returns exactly one of these
// types, so handlers never touch loosely-typed maps.
type (
	Identify struct {
		ID          string `json:"id"`
		Role        Role   `json:"role"`
		DisplayName string `json:"displayName"`
	}

	ChatRequest struct {
		DisplayName  string `json:"displayName"`
		Organization string `json:"organization"`
		Department   string `json:"department"`
	}

	AcceptChat struct {
		RoomID  string `json:"roomId"`
		AgentID string `json:"agentId"`
	}

	SendMessage struct {
		RoomID string `json:"roomId"`
		Text   string `json:"text"`
	}

	Typing struct {
		RoomID string `json:"roomId"`
	}

	StopTyping struct {
		RoomID string `json:"roomId"`
	}

	CloseChat struct {
		RoomID string `json:"roomId"`
	}

	RefreshQueue struct{}

	Heartbeat struct{}
)

// Envelope is an outbound frame.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Outbound payloads.
type (
	RoomAssigned struct {
		RoomID string `json:"roomId"`
	}

	AgentJoined struct {
		AgentName string `json:"agentName"`
		RoomID    string `json:"roomId"`
	}

	NewRequest struct {
		RoomID      string `json:"roomId"`
		DisplayName string `json:"displayName"`
		IsGuest     bool   `json:"isGuest"`
		Timestamp   int64  `json:"timestamp"` // room created_at, unix ms
	}

	ChatTaken struct {
		RoomID string `json:"roomId"`
	}

	ChatAccepted struct {
		RoomID       string `json:"roomId"`
		CustomerName string `json:"customerName"`
	}

	NewMessage struct {
		ID         string `json:"id"`
		Sender     string `json:"sender"`
		SenderRole string `json:"senderRole"`
		Text       string `json:"text"`
		Timestamp  int64  `json:"timestamp"`
	}

	ChatClosed struct {
		RoomID string `json:"roomId"`
	}

	TypingRelay struct {
		RoomID string `json:"roomId"`
		From   string `json:"from"`
	}

	QueueSnapshot struct {
		Waiting []NewRequest `json:"waiting"`
		Active  []ActiveRoom `json:"active"`
	}

	ActiveRoom struct {
		RoomID       string `json:"roomId"`
		CustomerName string `json:"customerName"`
		Timestamp    int64  `json:"timestamp"`
	}

	ErrorPayload struct {
		Message string `json:"message"`
	}

	HeartbeatAck struct {
		Timestamp int64 `json:"timestamp"`
	}
)

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ErrUnknownEvent is returned for frames naming no known event.
var ErrUnknownEvent = errors.New("unknown event")

// DecodeInbound parses and validates a raw inbound frame. The returned
// value is one of the inbound payload types above.
func DecodeInbound(raw []byte) (any, error) {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	unmarshal := func(v any) error {
		if len(frame.Data) == 0 {
			return nil
		}
		return json.Unmarshal(frame.Data, v)
	}

	switch frame.Event {
	case EventIdentify:
		var ev Identify
		if err := unmarshal(&ev); err != nil {
			return nil, err
		}
		if ev.Role == "" {
			return nil, errors.New("identify: role is required")
		}
		if !ev.Role.Valid() {
			return nil, fmt.Errorf("identify: unknown role %q", ev.Role)
		}
		return ev, nil

	case EventChatRequest:
		var ev ChatRequest
		if err := unmarshal(&ev); err != nil {
			return nil, err
		}
		return ev, nil

	case EventAcceptChat:
		var ev AcceptChat
		if err := unmarshal(&ev); err != nil {
			return nil, err
		}
		if ev.RoomID == "" {
			return nil, errors.New("accept_chat: roomId is required")
		}
		return ev, nil

	case EventSendMessage:
		var ev SendMessage
		if err := unmarshal(&ev); err != nil {
			return nil, err
		}
		if ev.RoomID == "" {
			return nil, errors.New("send_message: roomId is required")
		}
		return ev, nil

	case EventTyping:
		var ev Typing
		if err := unmarshal(&ev); err != nil {
			return nil, err
		}
		return ev, nil

	case EventStopTyping:
		var ev StopTyping
		if err := unmarshal(&ev); err != nil {
			return nil, err
		}
		return ev, nil

	case EventCloseChat:
		var ev CloseChat
		if err := unmarshal(&ev); err != nil {
			return nil, err
		}
		if ev.RoomID == "" {
			return nil, errors.New("close_chat: roomId is required")
		}
		return ev, nil

	case EventRefreshQueue:
		return RefreshQueue{}, nil

	case EventHeartbeat:
		return Heartbeat{}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, frame.Event)
}
