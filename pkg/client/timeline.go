// Package client is a reference implementation of the client side of the
// chat protocol: an optimistic conversation timeline and a typing indicator.
package client

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"moodchat/internal/chat"
	"moodchat/internal/conversation"
	"moodchat/internal/events"
)

// Timeline is one user's local view of a conversation. Outgoing messages
// appear immediately under their temp id and are swapped for the stored
// record when the server acknowledges them.
type Timeline struct {
	self, peer     string
	conversationID string

	mu       sync.Mutex
	messages map[string]*chat.Message // by id; temp id while pending
	pending  map[string]bool          // temp ids awaiting acknowledgement
}

func NewTimeline(self, peer string) *Timeline {
	return &Timeline{
		self:           self,
		peer:           peer,
		conversationID: conversation.ID(self, peer),
		messages:       make(map[string]*chat.Message),
		pending:        make(map[string]bool),
	}
}

// Send records an optimistic message and returns the request to emit.
func (t *Timeline) Send(tempID string, content chat.Content, at time.Time) events.SendMessageRequest {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages[tempID] = &chat.Message{
		ID:             tempID,
		ConversationID: t.conversationID,
		SenderID:       t.self,
		ReceiverID:     t.peer,
		Content:        content,
		Status:         chat.StatusSending,
		CreatedAt:      at,
	}
	t.pending[tempID] = true

	req := events.SendMessageRequest{
		SenderID:    t.self,
		ReceiverID:  t.peer,
		TempID:      tempID,
		ContentType: string(content.Type()),
	}
	req.Content, req.FileURL, req.FileType = chat.Flatten(content)
	return req
}

// Fail marks a pending message as Error. Acknowledged messages are left alone.
func (t *Timeline) Fail(tempID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := t.messages[tempID]; ok && t.pending[tempID] {
		m.Status = chat.StatusError
	}
}

// Acknowledge replaces the optimistic entry with the stored identity. When
// the stored record already arrived by another path the optimistic entry is
// dropped instead.
func (t *Timeline) Acknowledge(ack events.Delivered) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.messages[ack.TempID]
	if !ok || !t.pending[ack.TempID] {
		return
	}
	delete(t.pending, ack.TempID)
	delete(t.messages, ack.TempID)

	if _, known := t.messages[ack.PersistedID]; known {
		return
	}
	m.ID = ack.PersistedID
	m.Status = chat.StatusSent
	if s := chat.Status(ack.Status); chat.StatusSent.CanAdvance(s) {
		m.Status = s
	}
	t.messages[m.ID] = m
}

// Merge upserts stored messages, typically a history fetch after reconnect.
func (t *Timeline) Merge(msgs ...*chat.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range msgs {
		t.upsert(m)
	}
}

func (t *Timeline) upsert(m *chat.Message) {
	if m.ConversationID != t.conversationID {
		return
	}
	cur, ok := t.messages[m.ID]
	if !ok {
		t.messages[m.ID] = m.Clone()
		return
	}
	status := cur.Status
	if status.CanAdvance(m.Status) || !status.Persisted() {
		status = m.Status
	}
	*cur = *m.Clone()
	cur.Status = status
}

// MarkSeenBy sets every message this user sent to viewer to Read.
func (t *Timeline) MarkSeenBy(viewer string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range t.messages {
		if m.SenderID == t.self && m.ReceiverID == viewer && m.Status.CanAdvance(chat.StatusRead) {
			m.Status = chat.StatusRead
		}
	}
}

// React applies a reaction change with the same toggle rule as the server.
func (t *Timeline) React(r events.Reaction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := t.messages[r.MessageID]; ok {
		m.Reactions = chat.ApplyReaction(m.Reactions, r.UserID, r.Type)
	}
}

// Apply feeds one server event into the timeline. Events that do not concern
// this conversation are ignored.
func (t *Timeline) Apply(env events.Envelope) error {
	switch env.Event {
	case events.MessageReceived, events.StatusUpdate:
		var m chat.Message
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return err
		}
		t.Merge(&m)
	case events.MessageDelivered:
		var ack events.Delivered
		if err := json.Unmarshal(env.Data, &ack); err != nil {
			return err
		}
		t.Acknowledge(ack)
	case events.MessagesSeen:
		var seen events.Seen
		if err := json.Unmarshal(env.Data, &seen); err != nil {
			return err
		}
		if seen.By == t.peer {
			t.MarkSeenBy(seen.By)
		}
	case events.MessageReaction:
		var r events.Reaction
		if err := json.Unmarshal(env.Data, &r); err != nil {
			return err
		}
		t.React(r)
	case events.Error:
		var f events.Failure
		if err := json.Unmarshal(env.Data, &f); err != nil {
			return err
		}
		if f.TempID != "" {
			t.Fail(f.TempID)
		}
	}
	return nil
}

// Messages returns a copy of the timeline ordered by creation time.
func (t *Timeline) Messages() []chat.Message {
	t.mu.Lock()
	out := make([]chat.Message, 0, len(t.messages))
	for _, m := range t.messages {
		out = append(out, *m.Clone())
	}
	t.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
