package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"moodchat/infrastructure"
	"moodchat/internal/events"
	"moodchat/internal/metrics"
	"moodchat/internal/presence"
)

// Session is the per-connection state kept by the socket transport.
type Session struct {
	Conn presence.Conn
	// Identity is the token subject, empty when authentication is off.
	Identity string

	mu     sync.Mutex
	userID string
}

func NewSession(conn presence.Conn, identity string) *Session {
	return &Session{Conn: conn, Identity: identity}
}

// UserID returns the joined user, or "" before join.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// SocketHandler routes inbound socket events to the chat service.
type SocketHandler struct {
	service  *ChatService
	registry *presence.Registry
	logger   *slog.Logger
}

func NewSocketHandler(service *ChatService, registry *presence.Registry, logger *slog.Logger) *SocketHandler {
	return &SocketHandler{service: service, registry: registry, logger: logger}
}

// Handle processes one inbound event. A rejected event is answered with an
// error event on the same connection and the error is returned for logging.
func (h *SocketHandler) Handle(ctx context.Context, sess *Session, env events.Envelope) error {
	tempID, err := h.dispatch(ctx, sess, env)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		h.fail(sess, env.Event, tempID, err)
	}
	metrics.InboundEvents.WithLabelValues(metricEvent(env.Event), outcome).Inc()
	return err
}

// Close unregisters the session's connection.
func (h *SocketHandler) Close(sess *Session) {
	if userID := sess.UserID(); userID != "" {
		h.registry.Unregister(userID, sess.Conn)
	}
}

func (h *SocketHandler) dispatch(ctx context.Context, sess *Session, env events.Envelope) (string, error) {
	if env.Event == events.Join {
		return "", h.join(sess, env)
	}

	userID := sess.UserID()
	if userID == "" {
		return "", infrastructure.ErrNotJoined
	}

	switch env.Event {
	case events.Typing:
		var req events.TypingRequest
		if err := bind(env, &req); err != nil {
			return "", err
		}
		if err := actAs(&req.SenderID, userID); err != nil {
			return "", err
		}
		return "", h.service.Typing(ctx, req)

	case events.SendMessage:
		var req events.SendMessageRequest
		if err := bind(env, &req); err != nil {
			return "", err
		}
		if err := actAs(&req.SenderID, userID); err != nil {
			return req.TempID, err
		}
		_, err := h.service.SendMessage(ctx, req)
		return req.TempID, err

	case events.MarkAsSeen:
		var req events.MarkAsSeenRequest
		if err := bind(env, &req); err != nil {
			return "", err
		}
		if err := actAs(&req.UserID, userID); err != nil {
			return "", err
		}
		_, err := h.service.MarkSeen(ctx, req.UserID, req.ContactID)
		return "", err

	case events.React:
		var req events.ReactRequest
		if err := bind(env, &req); err != nil {
			return "", err
		}
		if err := actAs(&req.UserID, userID); err != nil {
			return "", err
		}
		_, err := h.service.React(ctx, req)
		return "", err
	}
	return "", infrastructure.ErrUnknownEvent
}

func (h *SocketHandler) join(sess *Session, env events.Envelope) error {
	var req events.JoinRequest
	if err := bind(env, &req); err != nil {
		return err
	}
	if err := infrastructure.Required("userId", req.UserID); err != nil {
		return err
	}
	if sess.Identity != "" && sess.Identity != req.UserID {
		return infrastructure.ErrUnauthorized
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.userID != "" && sess.userID != req.UserID {
		return infrastructure.ErrAlreadyJoined
	}
	if err := h.registry.Register(req.UserID, sess.Conn); err != nil {
		return err
	}
	sess.userID = req.UserID
	return nil
}

func (h *SocketHandler) fail(sess *Session, event, tempID string, err error) {
	msg := err.Error()
	if !isClientError(err) {
		h.logger.Error("socket event failed", "event", event, "user", sess.UserID(), "error", err)
		msg = infrastructure.ErrInternalServer.Error()
	}
	frame, encErr := events.Encode(events.Error, events.Failure{Event: event, Message: msg, TempID: tempID})
	if encErr != nil {
		h.logger.Error("failed to encode error event", "error", encErr)
		return
	}
	if !sess.Conn.Send(frame) {
		metrics.DroppedEmits.Inc()
	}
}

// actAs fills an empty acting user with the joined user and rejects a
// mismatch.
func actAs(claimed *string, joined string) error {
	if *claimed == "" {
		*claimed = joined
		return nil
	}
	if *claimed != joined {
		return infrastructure.ErrUnauthorized
	}
	return nil
}

func bind(env events.Envelope, v any) error {
	if err := env.Bind(v); err != nil {
		return &infrastructure.ValidationError{Field: "payload", Reason: err.Error()}
	}
	return nil
}

func isClientError(err error) bool {
	for _, target := range []error{
		infrastructure.ErrInvalidInput,
		infrastructure.ErrMessageNotFound,
		infrastructure.ErrNotParticipant,
		infrastructure.ErrUnauthorized,
		infrastructure.ErrNotJoined,
		infrastructure.ErrAlreadyJoined,
		infrastructure.ErrUnknownEvent,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// metricEvent bounds the label set to known event names.
func metricEvent(name string) string {
	switch name {
	case events.Join, events.Typing, events.SendMessage, events.MarkAsSeen, events.React:
		return name
	}
	return "unknown"
}
