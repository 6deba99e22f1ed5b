package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"moodchat/infrastructure"
	"moodchat/internal/conversation"
	"moodchat/internal/events"
	"moodchat/internal/metrics"
	"moodchat/internal/user"
)

// Presence is the part of the presence registry the pipeline needs.
type Presence interface {
	IsOnline(userID string) bool
	EmitTo(userID, event string, payload any) int
}

type Options struct {
	// DeliverOnFetch marks inbound Sent messages Delivered when their
	// receiver loads the conversation history.
	DeliverOnFetch bool
}

type ChatService struct {
	repo     Repository
	presence Presence
	profiles user.Directory
	logger   *slog.Logger
	opts     Options
	clock    *clock
}

func NewChatService(repo Repository, presence Presence, profiles user.Directory, logger *slog.Logger, opts Options) *ChatService {
	return &ChatService{
		repo:     repo,
		presence: presence,
		profiles: profiles,
		logger:   logger,
		opts:     opts,
		clock:    newClock(nil),
	}
}

// SendMessage persists a message as Sent, pushes it to the receiver's live
// connections and acknowledges the sender with the persisted id.
func (s *ChatService) SendMessage(ctx context.Context, req events.SendMessageRequest) (*Message, error) {
	if err := infrastructure.Required("senderId", req.SenderID, "receiverId", req.ReceiverID); err != nil {
		return nil, err
	}
	content, err := NewContent(req.ContentType, req.Content, req.FileURL, req.FileType)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversation.ID(req.SenderID, req.ReceiverID),
		SenderID:       req.SenderID,
		ReceiverID:     req.ReceiverID,
		Content:        content,
		Status:         StatusSent,
		Reactions:      []Reaction{},
		Mood:           s.moodOf(ctx, req.SenderID),
		CreatedAt:      s.clock.Now(),
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	metrics.MessagesPersisted.WithLabelValues(string(content.Type())).Inc()

	if s.presence.IsOnline(msg.ReceiverID) {
		live := msg.Clone()
		live.Status = StatusDelivered
		if s.presence.EmitTo(msg.ReceiverID, events.MessageReceived, live) > 0 {
			s.markDelivered(ctx, msg)
		}
	}

	s.presence.EmitTo(msg.SenderID, events.MessageDelivered, events.Delivered{
		PersistedID: msg.ID,
		TempID:      req.TempID,
		Status:      string(msg.Status),
	})
	return msg, nil
}

// markDelivered advances msg in place. The message is already stored, so a
// failure here only leaves it at Sent.
func (s *ChatService) markDelivered(ctx context.Context, msg *Message) {
	updated, changed, err := s.repo.AdvanceStatus(ctx, msg.ID, StatusDelivered)
	if err != nil {
		s.logger.Warn("failed to mark message delivered", "message", msg.ID, "error", err)
		return
	}
	if changed {
		metrics.StatusTransitions.WithLabelValues(string(StatusDelivered)).Inc()
	}
	msg.Status = updated.Status
}

func (s *ChatService) moodOf(ctx context.Context, userID string) user.Mood {
	p, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		if !errors.Is(err, infrastructure.ErrUserNotFound) {
			s.logger.Warn("profile lookup failed", "user", userID, "error", err)
		}
		return user.MoodDefault
	}
	return p.Mood
}

// Typing forwards a typing signal to the receiver's connections. Nothing is
// stored and offline receivers are skipped.
func (s *ChatService) Typing(_ context.Context, req events.TypingRequest) error {
	if err := infrastructure.Required("senderId", req.SenderID, "receiverId", req.ReceiverID); err != nil {
		return err
	}
	s.presence.EmitTo(req.ReceiverID, events.Typing, events.TypingNotice{SenderID: req.SenderID})
	return nil
}

// React sets or clears the caller's reaction and notifies both parties.
func (s *ChatService) React(ctx context.Context, req events.ReactRequest) (*Message, error) {
	if err := infrastructure.Required("messageId", req.MessageID, "userId", req.UserID); err != nil {
		return nil, err
	}
	reaction := req.Type
	if reaction != nil && strings.TrimSpace(*reaction) == "" {
		reaction = nil
	}

	current, err := s.repo.GetMessage(ctx, req.MessageID)
	if err != nil {
		return nil, err
	}
	if !current.IsParticipant(req.UserID) {
		return nil, infrastructure.ErrNotParticipant
	}

	msg, err := s.repo.SetReaction(ctx, req.MessageID, req.UserID, reaction)
	if err != nil {
		return nil, err
	}

	notice := events.Reaction{MessageID: msg.ID, Type: reaction, UserID: req.UserID}
	s.presence.EmitTo(msg.SenderID, events.MessageReaction, notice)
	s.presence.EmitTo(msg.ReceiverID, events.MessageReaction, notice)
	return msg, nil
}

// MarkSeen marks every message counterpartID sent to viewerID as Read. Each
// changed message is pushed to both parties and the counterpart gets one
// aggregate messagesSeen. Repeating the call changes nothing and emits nothing.
func (s *ChatService) MarkSeen(ctx context.Context, viewerID, counterpartID string) ([]*Message, error) {
	if err := infrastructure.Required("userId", viewerID, "contactId", counterpartID); err != nil {
		return nil, err
	}
	updated, err := s.repo.AdvanceInbound(ctx, counterpartID, viewerID, StatusRead)
	if err != nil {
		return nil, err
	}
	if len(updated) == 0 {
		return updated, nil
	}
	metrics.StatusTransitions.WithLabelValues(string(StatusRead)).Add(float64(len(updated)))
	s.emitStatusUpdates(updated)
	s.presence.EmitTo(counterpartID, events.MessagesSeen, events.Seen{By: viewerID})
	return updated, nil
}

// History returns the conversation between a and b oldest first. When the
// viewer is one of the parties and deliver-on-fetch is enabled, messages the
// viewer had not received yet become Delivered first.
func (s *ChatService) History(ctx context.Context, viewerID, a, b string) ([]*Message, error) {
	if err := infrastructure.Required("user1", a, "user2", b); err != nil {
		return nil, err
	}
	if s.opts.DeliverOnFetch && (viewerID == a || viewerID == b) {
		counterpart := a
		if viewerID == a {
			counterpart = b
		}
		delivered, err := s.repo.AdvanceInbound(ctx, counterpart, viewerID, StatusDelivered)
		if err != nil {
			return nil, err
		}
		if len(delivered) > 0 {
			metrics.StatusTransitions.WithLabelValues(string(StatusDelivered)).Add(float64(len(delivered)))
			s.emitStatusUpdates(delivered)
		}
	}
	return s.repo.Conversation(ctx, a, b)
}

// RecentConversations lists userID's conversations with counterpart profiles
// attached where the directory knows them.
func (s *ChatService) RecentConversations(ctx context.Context, userID string) ([]Summary, error) {
	if err := infrastructure.Required("userId", userID); err != nil {
		return nil, err
	}
	summaries, err := s.repo.RecentConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range summaries {
		p, err := s.profiles.Profile(ctx, summaries[i].CounterpartID)
		if err != nil {
			if !errors.Is(err, infrastructure.ErrUserNotFound) {
				s.logger.Warn("profile lookup failed", "user", summaries[i].CounterpartID, "error", err)
			}
			continue
		}
		summaries[i].Counterpart = p
	}
	return summaries, nil
}

// Ping checks the message store.
func (s *ChatService) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.repo.Ping(ctx)
}

func (s *ChatService) emitStatusUpdates(msgs []*Message) {
	for _, m := range msgs {
		s.presence.EmitTo(m.SenderID, events.StatusUpdate, m)
		s.presence.EmitTo(m.ReceiverID, events.StatusUpdate, m)
	}
}
