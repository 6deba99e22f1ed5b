package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"moodchat/infrastructure"
	"moodchat/internal/user"
)

// Status is the delivery state of a message. Sending and Error only exist on
// clients; persisted messages move forward through Sent, Delivered and Read.
type Status string

const (
	StatusSending   Status = "sending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusError     Status = "error"
)

func (s Status) rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	}
	return 0
}

// Persisted reports whether s can be stored.
func (s Status) Persisted() bool {
	return s.rank() > 0
}

// CanAdvance reports whether moving from s to next goes strictly forward.
func (s Status) CanAdvance(next Status) bool {
	return s.Persisted() && next.Persisted() && s.rank() < next.rank()
}

// Below lists the persisted statuses that can advance to s.
func (s Status) Below() []string {
	var out []string
	for _, st := range []Status{StatusSent, StatusDelivered} {
		if st.CanAdvance(s) {
			out = append(out, string(st))
		}
	}
	return out
}

type ContentType string

const (
	ContentText  ContentType = "text"
	ContentEmoji ContentType = "emoji"
	ContentImage ContentType = "image"
	ContentFile  ContentType = "file"
	ContentVoice ContentType = "voice"
)

// DefaultVoiceFileType is assumed for recordings uploaded without a MIME type.
const DefaultVoiceFileType = "audio/webm"

// Content is one of TextContent, EmojiContent, ImageContent, FileContent or
// VoiceContent.
type Content interface {
	Type() ContentType
	// flat returns the stored body, file URL and file type.
	flat() (body, fileURL, fileType string)
}

type TextContent struct{ Text string }

type EmojiContent struct{ Emoji string }

type ImageContent struct {
	URL      string
	FileType string
	Caption  string
}

type FileContent struct {
	URL      string
	FileType string
	Name     string
}

type VoiceContent struct {
	URL      string
	FileType string
}

func (TextContent) Type() ContentType  { return ContentText }
func (EmojiContent) Type() ContentType { return ContentEmoji }
func (ImageContent) Type() ContentType { return ContentImage }
func (FileContent) Type() ContentType  { return ContentFile }
func (VoiceContent) Type() ContentType { return ContentVoice }

func (c TextContent) flat() (string, string, string)  { return c.Text, "", "" }
func (c EmojiContent) flat() (string, string, string) { return c.Emoji, "", "" }
func (c ImageContent) flat() (string, string, string) { return c.Caption, c.URL, c.FileType }
func (c FileContent) flat() (string, string, string)  { return c.Name, c.URL, c.FileType }
func (c VoiceContent) flat() (string, string, string) { return "", c.URL, c.FileType }

// Flatten returns the stored body, file URL and file type of c.
func Flatten(c Content) (body, fileURL, fileType string) {
	return c.flat()
}

// NewContent builds a content variant from its stored fields. An empty type
// means text.
func NewContent(contentType, body, fileURL, fileType string) (Content, error) {
	switch ContentType(strings.ToLower(strings.TrimSpace(contentType))) {
	case ContentText, "":
		if strings.TrimSpace(body) == "" {
			return nil, &infrastructure.ValidationError{Field: "content"}
		}
		return TextContent{Text: body}, nil
	case ContentEmoji:
		if strings.TrimSpace(body) == "" {
			return nil, &infrastructure.ValidationError{Field: "content"}
		}
		return EmojiContent{Emoji: body}, nil
	case ContentImage:
		if fileURL == "" {
			return nil, &infrastructure.ValidationError{Field: "fileUrl"}
		}
		return ImageContent{URL: fileURL, FileType: fileType, Caption: body}, nil
	case ContentFile:
		if fileURL == "" {
			return nil, &infrastructure.ValidationError{Field: "fileUrl"}
		}
		return FileContent{URL: fileURL, FileType: fileType, Name: body}, nil
	case ContentVoice:
		if fileURL == "" {
			return nil, &infrastructure.ValidationError{Field: "fileUrl"}
		}
		if fileType == "" {
			fileType = DefaultVoiceFileType
		}
		return VoiceContent{URL: fileURL, FileType: fileType}, nil
	default:
		return nil, &infrastructure.ValidationError{
			Field:  "contentType",
			Reason: fmt.Sprintf("%q is not supported", contentType),
		}
	}
}

type Reaction struct {
	UserID string `json:"userId"`
	Type   string `json:"type"`
}

// ApplyReaction returns a new list in which userID has reaction typ, or no
// reaction when typ is nil. Each user keeps at most one reaction.
func ApplyReaction(reactions []Reaction, userID string, typ *string) []Reaction {
	out := make([]Reaction, 0, len(reactions)+1)
	replaced := false
	for _, r := range reactions {
		if r.UserID != userID {
			out = append(out, r)
			continue
		}
		if typ != nil && !replaced {
			out = append(out, Reaction{UserID: userID, Type: *typ})
			replaced = true
		}
	}
	if typ != nil && !replaced {
		out = append(out, Reaction{UserID: userID, Type: *typ})
	}
	return out
}

type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	ReceiverID     string
	Content        Content
	Status         Status
	Reactions      []Reaction
	Mood           user.Mood
	CreatedAt      time.Time
}

// IsParticipant reports whether userID sent or received m.
func (m *Message) IsParticipant(userID string) bool {
	return userID != "" && (m.SenderID == userID || m.ReceiverID == userID)
}

// Between reports whether m was exchanged by a and b, in either direction.
func (m *Message) Between(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

func (m *Message) Clone() *Message {
	c := *m
	c.Reactions = append([]Reaction(nil), m.Reactions...)
	return &c
}

type wireMessage struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	SenderID       string      `json:"senderId"`
	ReceiverID     string      `json:"receiverId"`
	Content        string      `json:"content"`
	ContentType    ContentType `json:"contentType"`
	FileURL        string      `json:"fileUrl,omitempty"`
	FileType       string      `json:"fileType,omitempty"`
	Status         Status      `json:"status"`
	Reactions      []Reaction  `json:"reactions"`
	Mood           user.Mood   `json:"mood"`
	CreatedAt      time.Time   `json:"createdAt"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		Status:         m.Status,
		Reactions:      m.Reactions,
		Mood:           m.Mood,
		CreatedAt:      m.CreatedAt,
	}
	if w.Reactions == nil {
		w.Reactions = []Reaction{}
	}
	if m.Content != nil {
		w.ContentType = m.Content.Type()
		w.Content, w.FileURL, w.FileType = m.Content.flat()
	}
	return json.Marshal(w)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	content, err := NewContent(string(w.ContentType), w.Content, w.FileURL, w.FileType)
	if err != nil {
		return err
	}
	*m = Message{
		ID:             w.ID,
		ConversationID: w.ConversationID,
		SenderID:       w.SenderID,
		ReceiverID:     w.ReceiverID,
		Content:        content,
		Status:         w.Status,
		Reactions:      w.Reactions,
		Mood:           w.Mood,
		CreatedAt:      w.CreatedAt,
	}
	return nil
}

// Summary is one row of a user's recent conversation list.
type Summary struct {
	ConversationID string        `json:"conversationId"`
	CounterpartID  string        `json:"counterpartId"`
	Counterpart    *user.Profile `json:"counterpart,omitempty"`
	LastMessage    *Message      `json:"lastMessage"`
	UnreadCount    int           `json:"unreadCount"`
}
