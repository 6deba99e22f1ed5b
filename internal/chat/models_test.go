package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodchat/infrastructure"
)

func TestStatusCanAdvance(t *testing.T) {
	assert.True(t, StatusSent.CanAdvance(StatusDelivered))
	assert.True(t, StatusSent.CanAdvance(StatusRead))
	assert.True(t, StatusDelivered.CanAdvance(StatusRead))

	assert.False(t, StatusRead.CanAdvance(StatusDelivered))
	assert.False(t, StatusDelivered.CanAdvance(StatusDelivered))
	assert.False(t, StatusSending.CanAdvance(StatusSent))
	assert.False(t, StatusSent.CanAdvance(StatusError))

	assert.Equal(t, []string{"sent", "delivered"}, StatusRead.Below())
	assert.Equal(t, []string{"sent"}, StatusDelivered.Below())
	assert.Empty(t, StatusSent.Below())
}

func TestApplyReaction(t *testing.T) {
	heart, laugh := "heart", "laugh"

	r := ApplyReaction(nil, "u1", &heart)
	assert.Equal(t, []Reaction{{UserID: "u1", Type: "heart"}}, r)

	r = ApplyReaction(r, "u2", &laugh)
	r = ApplyReaction(r, "u1", &laugh)
	assert.Equal(t, []Reaction{{UserID: "u1", Type: "laugh"}, {UserID: "u2", Type: "laugh"}}, r)

	r = ApplyReaction(r, "u1", nil)
	assert.Equal(t, []Reaction{{UserID: "u2", Type: "laugh"}}, r)

	r = ApplyReaction(r, "u3", nil)
	assert.Equal(t, []Reaction{{UserID: "u2", Type: "laugh"}}, r)
}

func TestApplyReactionDoesNotAlias(t *testing.T) {
	heart := "heart"
	orig := []Reaction{{UserID: "u1", Type: "laugh"}}
	_ = ApplyReaction(orig, "u1", &heart)
	assert.Equal(t, "laugh", orig[0].Type)
}

func TestNewContent(t *testing.T) {
	c, err := NewContent("", "hi", "", "")
	require.NoError(t, err)
	assert.Equal(t, TextContent{Text: "hi"}, c)

	c, err = NewContent("IMAGE", "sunset", "https://cdn/a.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, ImageContent{URL: "https://cdn/a.png", FileType: "image/png", Caption: "sunset"}, c)

	c, err = NewContent("file", "report.pdf", "https://cdn/r.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, FileContent{URL: "https://cdn/r.pdf", Name: "report.pdf"}, c)

	_, err = NewContent("emoji", "", "", "")
	assert.ErrorIs(t, err, infrastructure.ErrInvalidInput)

	_, err = NewContent("voice", "", "", "")
	assert.ErrorIs(t, err, infrastructure.ErrInvalidInput)
}

func TestMessageJSONLayout(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := Message{
		ID:             "m1",
		ConversationID: "u1_u2",
		SenderID:       "u1",
		ReceiverID:     "u2",
		Content:        VoiceContent{URL: "https://cdn/v.webm", FileType: "audio/webm"},
		Status:         StatusSent,
		Mood:           "calm",
		CreatedAt:      created,
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "m1",
		"conversationId": "u1_u2",
		"senderId": "u1",
		"receiverId": "u2",
		"content": "",
		"contentType": "voice",
		"fileUrl": "https://cdn/v.webm",
		"fileType": "audio/webm",
		"status": "sent",
		"reactions": [],
		"mood": "calm",
		"createdAt": "2024-05-01T12:00:00Z"
	}`, string(data))

	var back Message
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, m.Content, back.Content)
	assert.True(t, created.Equal(back.CreatedAt))
}

func TestClockIsStrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 123, time.UTC)
	c := newClock(func() time.Time { return fixed })

	a, b := c.Now(), c.Now()
	assert.Equal(t, fixed.Truncate(time.Microsecond), a)
	assert.Equal(t, time.Microsecond, b.Sub(a))
}
