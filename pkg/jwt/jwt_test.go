package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	j := NewJWT([]byte("secret"), time.Minute)

	token, err := j.GenerateToken("u1")
	require.NoError(t, err)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestRejectsForeignSignature(t *testing.T) {
	token, err := NewJWT([]byte("other"), time.Minute).GenerateToken("u1")
	require.NoError(t, err)

	_, err = NewJWT([]byte("secret"), time.Minute).ValidateToken(token)
	assert.Error(t, err)
}

func TestRejectsExpired(t *testing.T) {
	j := NewJWT([]byte("secret"), -time.Minute)
	token, err := j.GenerateToken("u1")
	require.NoError(t, err)

	_, err = j.ValidateToken(token)
	assert.Error(t, err)
}
