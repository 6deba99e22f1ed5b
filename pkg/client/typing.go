package client

import (
	"sort"
	"sync"
	"time"
)

// TypingExpiry is how long a typing signal stays visible without a repeat.
const TypingExpiry = 3 * time.Second

// TypingTracker turns typing signals into an indicator that clears itself.
type TypingTracker struct {
	expiry time.Duration
	now    func() time.Time

	mu    sync.Mutex
	until map[string]time.Time
}

func NewTypingTracker(expiry time.Duration, now func() time.Time) *TypingTracker {
	if now == nil {
		now = time.Now
	}
	return &TypingTracker{expiry: expiry, now: now, until: make(map[string]time.Time)}
}

// Observe records a typing signal from senderID.
func (t *TypingTracker) Observe(senderID string) {
	t.mu.Lock()
	t.until[senderID] = t.now().Add(t.expiry)
	t.mu.Unlock()
}

// Clear stops the indicator early, e.g. when the sender's message arrives.
func (t *TypingTracker) Clear(senderID string) {
	t.mu.Lock()
	delete(t.until, senderID)
	t.mu.Unlock()
}

func (t *TypingTracker) IsTyping(senderID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	until, ok := t.until[senderID]
	if !ok {
		return false
	}
	if !t.now().Before(until) {
		delete(t.until, senderID)
		return false
	}
	return true
}

// Active lists users currently typing.
func (t *TypingTracker) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	out := []string{}
	for id, until := range t.until {
		if now.Before(until) {
			out = append(out, id)
		} else {
			delete(t.until, id)
		}
	}
	sort.Strings(out)
	return out
}
