package chat

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"moodchat/infrastructure"
	"moodchat/internal/conversation"
	"moodchat/internal/user"
)

type Repository interface {
	CreateMessage(ctx context.Context, message *Message) error
	GetMessage(ctx context.Context, messageID string) (*Message, error)

	// AdvanceStatus moves one message to status when its current status is
	// lower. changed is false when the message was already there or beyond.
	AdvanceStatus(ctx context.Context, messageID string, status Status) (msg *Message, changed bool, err error)

	// AdvanceInbound moves every message from senderID to receiverID whose
	// status is lower than status, returning the updated messages oldest first.
	AdvanceInbound(ctx context.Context, senderID, receiverID string, status Status) ([]*Message, error)

	// SetReaction atomically replaces userID's reaction on a message; a nil
	// reaction removes it.
	SetReaction(ctx context.Context, messageID, userID string, reaction *string) (*Message, error)

	// Conversation returns all messages between a and b ordered by creation time.
	Conversation(ctx context.Context, a, b string) ([]*Message, error)

	// RecentConversations returns one summary per conversation userID takes
	// part in, most recently active first. Counterpart profiles are not filled.
	RecentConversations(ctx context.Context, userID string) ([]Summary, error)

	Ping(ctx context.Context) error
}

type reactionList []Reaction

func (l reactionList) Value() (driver.Value, error) {
	if l == nil {
		l = reactionList{}
	}
	b, err := json.Marshal([]Reaction(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *reactionList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported reactions column type %T", src)
	}
	var out []Reaction
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

type messageRecord struct {
	ID             string       `gorm:"primaryKey;type:varchar(36)"`
	ConversationID string       `gorm:"not null;index:idx_messages_conversation,priority:1"`
	SenderID       string       `gorm:"not null;index:idx_messages_inbound,priority:2"`
	ReceiverID     string       `gorm:"not null;index:idx_messages_inbound,priority:1"`
	Content        string       `gorm:"type:text"`
	ContentType    string       `gorm:"size:16;not null"`
	FileURL        string       `gorm:"type:text"`
	FileType       string       `gorm:"size:128"`
	Status         string       `gorm:"size:16;not null;index:idx_messages_inbound,priority:3"`
	Reactions      reactionList `gorm:"type:jsonb;not null;default:'[]'"`
	Mood           string       `gorm:"size:32"`
	CreatedAt      time.Time    `gorm:"not null;index:idx_messages_conversation,priority:2"`
}

func (messageRecord) TableName() string { return "messages" }

func toRecord(m *Message) messageRecord {
	rec := messageRecord{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Status:         string(m.Status),
		Reactions:      reactionList(m.Reactions),
		Mood:           string(m.Mood),
		CreatedAt:      m.CreatedAt,
	}
	if m.Content != nil {
		rec.ContentType = string(m.Content.Type())
		rec.Content, rec.FileURL, rec.FileType = m.Content.flat()
	}
	return rec
}

func (rec *messageRecord) toMessage() (*Message, error) {
	content, err := NewContent(rec.ContentType, rec.Content, rec.FileURL, rec.FileType)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", rec.ID, err)
	}
	return &Message{
		ID:             rec.ID,
		ConversationID: rec.ConversationID,
		SenderID:       rec.SenderID,
		ReceiverID:     rec.ReceiverID,
		Content:        content,
		Status:         Status(rec.Status),
		Reactions:      []Reaction(rec.Reactions),
		Mood:           user.Mood(rec.Mood),
		CreatedAt:      rec.CreatedAt.UTC(),
	}, nil
}

func toMessages(records []messageRecord) ([]*Message, error) {
	out := make([]*Message, 0, len(records))
	for i := range records {
		m, err := records[i].toMessage()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// GormRepository stores messages in the Postgres messages table.
type GormRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewGormRepository(db *gorm.DB, logger *slog.Logger) *GormRepository {
	return &GormRepository{db: db, logger: logger}
}

// Migrate creates or updates the messages table and its indexes.
func (r *GormRepository) Migrate() error {
	if err := r.db.AutoMigrate(&messageRecord{}); err != nil {
		return fmt.Errorf("failed to migrate messages: %w", err)
	}
	return nil
}

func (r *GormRepository) CreateMessage(ctx context.Context, message *Message) error {
	rec := toRecord(message)
	return infrastructure.TimeOperation(ctx, r.logger, "messages.create", func() error {
		return r.db.WithContext(ctx).Create(&rec).Error
	})
}

func (r *GormRepository) GetMessage(ctx context.Context, messageID string) (*Message, error) {
	var rec messageRecord
	err := r.db.WithContext(ctx).Where("id = ?", messageID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, infrastructure.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return rec.toMessage()
}

func (r *GormRepository) AdvanceStatus(ctx context.Context, messageID string, status Status) (*Message, bool, error) {
	if !status.Persisted() {
		return nil, false, &infrastructure.ValidationError{Field: "status", Reason: "is not storable"}
	}
	res := r.db.WithContext(ctx).
		Model(&messageRecord{}).
		Where("id = ? AND status IN ?", messageID, status.Below()).
		Update("status", string(status))
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to update message status: %w", res.Error)
	}
	msg, err := r.GetMessage(ctx, messageID)
	if err != nil {
		return nil, false, err
	}
	return msg, res.RowsAffected > 0, nil
}

func (r *GormRepository) AdvanceInbound(ctx context.Context, senderID, receiverID string, status Status) ([]*Message, error) {
	if !status.Persisted() {
		return nil, &infrastructure.ValidationError{Field: "status", Reason: "is not storable"}
	}
	var records []messageRecord
	err := infrastructure.TimeOperation(ctx, r.logger, "messages.advance_inbound", func() error {
		return r.db.WithContext(ctx).
			Model(&records).
			Clauses(clause.Returning{}).
			Where("sender_id = ? AND receiver_id = ? AND status IN ?", senderID, receiverID, status.Below()).
			Update("status", string(status)).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to advance inbound messages: %w", err)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return toMessages(records)
}

func (r *GormRepository) SetReaction(ctx context.Context, messageID, userID string, reaction *string) (*Message, error) {
	var rec messageRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", messageID).
			Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return infrastructure.ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		rec.Reactions = reactionList(ApplyReaction(rec.Reactions, userID, reaction))
		return tx.Model(&messageRecord{}).
			Where("id = ?", messageID).
			Update("reactions", rec.Reactions).Error
	})
	if errors.Is(err, infrastructure.ErrMessageNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set reaction: %w", err)
	}
	return rec.toMessage()
}

func (r *GormRepository) Conversation(ctx context.Context, a, b string) ([]*Message, error) {
	var records []messageRecord
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversation.ID(a, b)).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return toMessages(records)
}

func (r *GormRepository) RecentConversations(ctx context.Context, userID string) ([]Summary, error) {
	var latest []messageRecord
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ON (conversation_id) *
		FROM messages
		WHERE sender_id = ? OR receiver_id = ?
		ORDER BY conversation_id, created_at DESC, id DESC
	`, userID, userID).Scan(&latest).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load recent conversations: %w", err)
	}

	var unread []struct {
		ConversationID string
		Unread         int
	}
	err = r.db.WithContext(ctx).
		Model(&messageRecord{}).
		Select("conversation_id, COUNT(*) AS unread").
		Where("receiver_id = ? AND status <> ?", userID, string(StatusRead)).
		Group("conversation_id").
		Scan(&unread).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}
	counts := make(map[string]int, len(unread))
	for _, u := range unread {
		counts[u.ConversationID] = u.Unread
	}

	summaries := make([]Summary, 0, len(latest))
	for i := range latest {
		m, err := latest[i].toMessage()
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, newSummary(userID, m, counts[m.ConversationID]))
	}
	sortSummaries(summaries)
	return summaries, nil
}

func (r *GormRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func newSummary(userID string, last *Message, unread int) Summary {
	counterpart := last.ReceiverID
	if counterpart == userID {
		counterpart = last.SenderID
	}
	return Summary{
		ConversationID: last.ConversationID,
		CounterpartID:  counterpart,
		LastMessage:    last,
		UnreadCount:    unread,
	}
}

func sortSummaries(s []Summary) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].LastMessage.CreatedAt.After(s[j].LastMessage.CreatedAt)
	})
}
