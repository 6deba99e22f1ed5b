// Package presence tracks which users hold live connections.
//
// Each user owns an entry with its own lock; membership changes for one user
// never take another user's lock. Connection sets are published as immutable
// snapshots so broadcasts and lookups read them without locking.
package presence

import (
	"log/slog"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"moodchat/infrastructure"
	"moodchat/internal/events"
	"moodchat/internal/metrics"
)

// Conn is a live connection handle. Send must not block: a frame that cannot
// be queued is dropped and Send reports false.
type Conn interface {
	ID() string
	Send(frame []byte) bool
}

type entry struct {
	mu    sync.Mutex
	conns atomic.Pointer[[]Conn]
	// dead is set once the entry has been removed from the map; a writer
	// that loaded it before removal must retry with a fresh entry.
	dead bool
}

func (e *entry) snapshot() []Conn {
	if p := e.conns.Load(); p != nil {
		return *p
	}
	return nil
}

type Registry struct {
	users  sync.Map // user id -> *entry
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = infrastructure.DiscardLogger()
	}
	return &Registry{logger: logger}
}

// Register adds c to the user's connection set. The first connection of a
// user announces userOnline to every other user; the caller always receives
// the full online list.
func (r *Registry) Register(userID string, c Conn) error {
	if err := infrastructure.Required("userId", userID); err != nil {
		return err
	}
	for {
		v, _ := r.users.LoadOrStore(userID, &entry{})
		e := v.(*entry)
		e.mu.Lock()
		if e.dead {
			e.mu.Unlock()
			continue
		}
		cur := e.snapshot()
		if slices.IndexFunc(cur, func(x Conn) bool { return x.ID() == c.ID() }) < 0 {
			next := append(slices.Clone(cur), c)
			e.conns.Store(&next)
			metrics.Connections.Inc()
			if len(cur) == 0 {
				metrics.OnlineUsers.Inc()
				r.logger.Info("user online", "user", userID)
				r.broadcastExcept(userID, events.UserOnline, userID)
			}
		}
		e.mu.Unlock()
		break
	}
	r.sendTo(c, events.OnlineUsers, r.OnlineUsers())
	return nil
}

// Unregister removes c. Removing the last connection deletes the entry and
// announces userOffline. Unknown users or handles are ignored.
func (r *Registry) Unregister(userID string, c Conn) {
	v, ok := r.users.Load(userID)
	if !ok {
		return
	}
	e := v.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		return
	}
	cur := e.snapshot()
	idx := slices.IndexFunc(cur, func(x Conn) bool { return x.ID() == c.ID() })
	if idx < 0 {
		return
	}
	next := slices.Delete(slices.Clone(cur), idx, idx+1)
	e.conns.Store(&next)
	metrics.Connections.Dec()
	if len(next) > 0 {
		return
	}
	e.dead = true
	r.users.CompareAndDelete(userID, e)
	metrics.OnlineUsers.Dec()
	r.logger.Info("user offline", "user", userID)
	r.broadcastExcept(userID, events.UserOffline, userID)
}

func (r *Registry) IsOnline(userID string) bool {
	return len(r.Connections(userID)) > 0
}

// Connections returns the user's current connection snapshot.
func (r *Registry) Connections(userID string) []Conn {
	v, ok := r.users.Load(userID)
	if !ok {
		return nil
	}
	return v.(*entry).snapshot()
}

// OnlineUsers lists users with a non-empty connection set, sorted.
func (r *Registry) OnlineUsers() []string {
	var out []string
	r.users.Range(func(k, v any) bool {
		if len(v.(*entry).snapshot()) > 0 {
			out = append(out, k.(string))
		}
		return true
	})
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out
}

// EmitTo sends the event to every connection of userID and returns how many
// connections accepted it.
func (r *Registry) EmitTo(userID, event string, payload any) int {
	conns := r.Connections(userID)
	if len(conns) == 0 {
		return 0
	}
	frame, err := events.Encode(event, payload)
	if err != nil {
		r.logger.Error("failed to encode event", "event", event, "error", err)
		return 0
	}
	sent := 0
	for _, c := range conns {
		if r.send(c, event, frame) {
			sent++
		}
	}
	return sent
}

func (r *Registry) broadcastExcept(userID, event string, payload any) {
	frame, err := events.Encode(event, payload)
	if err != nil {
		r.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}
	r.users.Range(func(k, v any) bool {
		if k.(string) == userID {
			return true
		}
		for _, c := range v.(*entry).snapshot() {
			r.send(c, event, frame)
		}
		return true
	})
}

func (r *Registry) sendTo(c Conn, event string, payload any) {
	frame, err := events.Encode(event, payload)
	if err != nil {
		r.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}
	r.send(c, event, frame)
}

func (r *Registry) send(c Conn, event string, frame []byte) bool {
	if c.Send(frame) {
		return true
	}
	metrics.DroppedEmits.Inc()
	r.logger.Warn("dropped event", "event", event, "conn", c.ID())
	return false
}
