// Package events defines the socket wire contract shared by the server and
// its clients. Every frame is a JSON Envelope naming the event and carrying
// its payload.
package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Client to server.
const (
	Join        = "join"
	Typing      = "typing"
	SendMessage = "sendMessage"
	MarkAsSeen  = "markAsSeen"
	React       = "reactMessage"
)

// Server to client. Typing is reused in this direction with TypingNotice.
const (
	OnlineUsers      = "onlineUsers"
	UserOnline       = "userOnline"
	UserOffline      = "userOffline"
	MessageReceived  = "messageReceived"
	MessageDelivered = "messageDelivered"
	MessagesSeen     = "messagesSeen"
	StatusUpdate     = "message:statusUpdate"
	MessageReaction  = "messageReaction"
	Error            = "error"
)

type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode marshals payload into a complete frame.
func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

// Decode parses a frame. The payload stays raw until Bind is called.
func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed frame: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("malformed frame: missing event name")
	}
	return env, nil
}

// Bind unmarshals the payload into v.
func (e Envelope) Bind(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s: missing payload", e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%s: malformed payload: %w", e.Event, err)
	}
	return nil
}

// JoinRequest accepts both the bare user id string and {"userId": "..."}.
type JoinRequest struct {
	UserID string `json:"userId"`
}

func (j *JoinRequest) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		j.UserID = strings.TrimSpace(id)
		return nil
	}
	type plain JoinRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	j.UserID = strings.TrimSpace(p.UserID)
	return nil
}

type TypingRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

type TypingNotice struct {
	SenderID string `json:"senderId"`
}

type SendMessageRequest struct {
	SenderID    string `json:"senderId"`
	ReceiverID  string `json:"receiverId"`
	TempID      string `json:"tempId"`
	Content     string `json:"content"`
	ContentType string `json:"contentType"`
	FileURL     string `json:"fileUrl,omitempty"`
	FileType    string `json:"fileType,omitempty"`
}

type MarkAsSeenRequest struct {
	UserID    string `json:"userId"`
	ContactID string `json:"contactId"`
}

// ReactRequest carries a nil Type to remove the reaction.
type ReactRequest struct {
	MessageID string  `json:"messageId"`
	Type      *string `json:"type"`
	UserID    string  `json:"userId"`
}

type Delivered struct {
	PersistedID string `json:"persistedId"`
	TempID      string `json:"tempId"`
	Status      string `json:"status"`
}

type Seen struct {
	By string `json:"by"`
}

type Reaction struct {
	MessageID string  `json:"messageId"`
	Type      *string `json:"type"`
	UserID    string  `json:"userId"`
}

// Failure reports a rejected inbound event. TempID echoes the client's
// optimistic id when the failed event was a send.
type Failure struct {
	Event   string `json:"event"`
	Message string `json:"message"`
	TempID  string `json:"tempId,omitempty"`
}
