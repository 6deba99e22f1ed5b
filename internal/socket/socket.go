// Package socket is the websocket transport for chat events.
package socket

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"moodchat/infrastructure"
	"moodchat/internal/auth"
	"moodchat/internal/chat"
	"moodchat/internal/events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 256
)

type Options struct {
	AllowedOrigins []string
	EventRate      rate.Limit
	EventBurst     int
}

type Handler struct {
	dispatcher *chat.SocketHandler
	// auth is nil when tokens are not required.
	auth     *auth.Middleware
	upgrader websocket.Upgrader
	opts     Options
	logger   *slog.Logger
}

func NewHandler(dispatcher *chat.SocketHandler, authMiddleware *auth.Middleware, opts Options, logger *slog.Logger) *Handler {
	h := &Handler{
		dispatcher: dispatcher,
		auth:       authMiddleware,
		opts:       opts,
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var identity string
	if h.auth != nil {
		id, err := h.auth.Authenticate(r)
		if err != nil {
			infrastructure.WriteError(w, err)
			return
		}
		identity = id
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &connection{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	sess := chat.NewSession(c, identity)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer h.dispatcher.Close(sess)
	defer c.close()

	go c.writer()
	h.reader(ctx, c, sess)
}

func (h *Handler) reader(ctx context.Context, c *connection, sess *chat.Session) {
	limiter := rate.NewLimiter(h.opts.EventRate, h.opts.EventBurst)

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read failed", "conn", c.id, "error", err)
			}
			return
		}

		env, err := events.Decode(frame)
		if err != nil {
			h.reject(c, "", err.Error())
			continue
		}
		if !limiter.Allow() {
			h.reject(c, env.Event, "rate limit exceeded")
			continue
		}
		if err := h.dispatcher.Handle(ctx, sess, env); err != nil {
			h.logger.Debug("socket event rejected", "conn", c.id, "event", env.Event, "error", err)
		}
	}
}

func (h *Handler) reject(c *connection, event, reason string) {
	frame, err := events.Encode(events.Error, events.Failure{Event: event, Message: reason})
	if err != nil {
		return
	}
	c.Send(frame)
}

type connection struct {
	id string
	ws *websocket.Conn

	// Buffered channel of outbound frames. It is never closed; done stops
	// the writer instead.
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func (c *connection) ID() string { return c.id }

// Send queues a frame without blocking. Frames for a full or closed
// connection are dropped.
func (c *connection) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *connection) writer() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
