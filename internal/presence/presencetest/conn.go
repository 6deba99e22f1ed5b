// Package presencetest provides a recording presence.Conn for tests.
package presencetest

import (
	"encoding/json"
	"sync"

	"moodchat/internal/events"
)

// Conn records every frame it accepts. Closed connections reject frames.
type Conn struct {
	id string

	mu     sync.Mutex
	frames []events.Envelope
	closed bool
}

func NewConn(id string) *Conn {
	return &Conn{id: id}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Send(frame []byte) bool {
	env, err := events.Decode(frame)
	if err != nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.frames = append(c.frames, env)
	return true
}

// Close makes later sends fail, like a connection whose buffer is gone.
func (c *Conn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Events returns the names of recorded events in arrival order.
func (c *Conn) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.frames))
	for i, f := range c.frames {
		out[i] = f.Event
	}
	return out
}

// Named returns the recorded envelopes for one event name.
func (c *Conn) Named(event string) []events.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Envelope
	for _, f := range c.frames {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

// Last decodes the payload of the most recent event with the given name into v.
// It reports false when no such event was recorded.
func (c *Conn) Last(event string, v any) bool {
	named := c.Named(event)
	if len(named) == 0 {
		return false
	}
	return json.Unmarshal(named[len(named)-1].Data, v) == nil
}

// Reset forgets recorded frames.
func (c *Conn) Reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}
