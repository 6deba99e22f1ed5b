package chat

import (
	"context"
	"sort"
	"sync"

	"moodchat/infrastructure"
	"moodchat/internal/conversation"
)

// MemoryRepository keeps messages in process memory. Returned messages are
// copies.
type MemoryRepository struct {
	mu       sync.RWMutex
	messages map[string]*Message
	byConv   map[string][]*Message
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		messages: make(map[string]*Message),
		byConv:   make(map[string][]*Message),
	}
}

func (r *MemoryRepository) CreateMessage(_ context.Context, message *Message) error {
	if message.ID == "" {
		return &infrastructure.ValidationError{Field: "id"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.messages[message.ID]; exists {
		return &infrastructure.ValidationError{Field: "id", Reason: "already exists"}
	}
	m := message.Clone()
	r.messages[m.ID] = m
	conv := r.byConv[m.ConversationID]
	i := sort.Search(len(conv), func(i int) bool { return conv[i].CreatedAt.After(m.CreatedAt) })
	conv = append(conv, nil)
	copy(conv[i+1:], conv[i:])
	conv[i] = m
	r.byConv[m.ConversationID] = conv
	return nil
}

func (r *MemoryRepository) GetMessage(_ context.Context, messageID string) (*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.messages[messageID]
	if !ok {
		return nil, infrastructure.ErrMessageNotFound
	}
	return m.Clone(), nil
}

func (r *MemoryRepository) AdvanceStatus(_ context.Context, messageID string, status Status) (*Message, bool, error) {
	if !status.Persisted() {
		return nil, false, &infrastructure.ValidationError{Field: "status", Reason: "is not storable"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return nil, false, infrastructure.ErrMessageNotFound
	}
	changed := m.Status.CanAdvance(status)
	if changed {
		m.Status = status
	}
	return m.Clone(), changed, nil
}

func (r *MemoryRepository) AdvanceInbound(_ context.Context, senderID, receiverID string, status Status) ([]*Message, error) {
	if !status.Persisted() {
		return nil, &infrastructure.ValidationError{Field: "status", Reason: "is not storable"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var updated []*Message
	for _, m := range r.byConv[conversation.ID(senderID, receiverID)] {
		if m.SenderID != senderID || m.ReceiverID != receiverID || !m.Status.CanAdvance(status) {
			continue
		}
		m.Status = status
		updated = append(updated, m.Clone())
	}
	return updated, nil
}

func (r *MemoryRepository) SetReaction(_ context.Context, messageID, userID string, reaction *string) (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return nil, infrastructure.ErrMessageNotFound
	}
	m.Reactions = ApplyReaction(m.Reactions, userID, reaction)
	return m.Clone(), nil
}

func (r *MemoryRepository) Conversation(_ context.Context, a, b string) ([]*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv := r.byConv[conversation.ID(a, b)]
	out := make([]*Message, 0, len(conv))
	for _, m := range conv {
		if m.Between(a, b) {
			out = append(out, m.Clone())
		}
	}
	return out, nil
}

func (r *MemoryRepository) RecentConversations(_ context.Context, userID string) ([]Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var summaries []Summary
	for _, conv := range r.byConv {
		if len(conv) == 0 || !conv[0].IsParticipant(userID) {
			continue
		}
		unread := 0
		for _, m := range conv {
			if m.ReceiverID == userID && m.Status != StatusRead {
				unread++
			}
		}
		summaries = append(summaries, newSummary(userID, conv[len(conv)-1].Clone(), unread))
	}
	sortSummaries(summaries)
	if summaries == nil {
		summaries = []Summary{}
	}
	return summaries, nil
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }
