package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrorMatchesInvalidInput(t *testing.T) {
	err := Required("senderId", "u1", "receiverId", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "receiverId")

	assert.NoError(t, Required("a", "x", "b", "y"))
}

func TestStatusCode(t *testing.T) {
	cases := map[error]int{
		&ValidationError{Field: "x"}:                        http.StatusBadRequest,
		fmt.Errorf("wrap: %w", ErrMessageNotFound):          http.StatusNotFound,
		ErrNotParticipant:                                   http.StatusForbidden,
		ErrMissingToken:                                     http.StatusUnauthorized,
		errors.New("connection reset"):                      http.StatusInternalServerError,
		fmt.Errorf("failed to create: %w", ErrUnauthorized): http.StatusUnauthorized,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusCode(err), err.Error())
	}
}

func TestWriteErrorHidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestTimeOperationLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "json")

	err := TimeOperation(context.Background(), logger, "messages.create", func() error {
		return errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Contains(t, buf.String(), "messages.create")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
