package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	frame, err := Encode(MessageDelivered, Delivered{PersistedID: "m1", TempID: "t1", Status: "delivered"})
	require.NoError(t, err)

	env, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, MessageDelivered, env.Event)

	var got Delivered
	require.NoError(t, env.Bind(&got))
	assert.Equal(t, "m1", got.PersistedID)
	assert.Equal(t, "t1", got.TempID)
}

func TestDecodeRejectsMissingEvent(t *testing.T) {
	_, err := Decode([]byte(`{"data":{}}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestBindMissingPayload(t *testing.T) {
	env := Envelope{Event: Typing}
	var req TypingRequest
	assert.Error(t, env.Bind(&req))
}

func TestJoinRequestForms(t *testing.T) {
	var bare JoinRequest
	require.NoError(t, json.Unmarshal([]byte(`" u1 "`), &bare))
	assert.Equal(t, "u1", bare.UserID)

	var obj JoinRequest
	require.NoError(t, json.Unmarshal([]byte(`{"userId":"u2"}`), &obj))
	assert.Equal(t, "u2", obj.UserID)
}

func TestReactRequestNullType(t *testing.T) {
	var req ReactRequest
	require.NoError(t, json.Unmarshal([]byte(`{"messageId":"m1","type":null,"userId":"u1"}`), &req))
	assert.Nil(t, req.Type)

	frame, err := Encode(MessageReaction, Reaction{MessageID: "m1", UserID: "u1"})
	require.NoError(t, err)
	assert.Contains(t, string(frame), `"type":null`)
}
