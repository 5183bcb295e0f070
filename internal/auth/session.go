package auth

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventSignedIn       EventKind = "SIGNED_IN"
	EventSignedOut      EventKind = "SIGNED_OUT"
	EventTokenRefreshed EventKind = "TOKEN_REFRESHED"
	EventUserUpdated    EventKind = "USER_UPDATED"
)

// Session is the authenticated principal of a request.
type Session struct {
	UserID       uint      `json:"user_id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`

	tokenID string
}

type Listener func(kind EventKind, s *Session)

// Holder fans auth transitions out to subscribers. There is one per process;
// Close detaches every subscriber.
type Holder struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]Listener
	closed    bool
}

func NewHolder() *Holder {
	return &Holder{listeners: make(map[int]Listener)}
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is safe to call more than once.
func (h *Holder) Subscribe(fn Listener) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return func() {}
	}

	id := h.next
	h.next++
	h.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.listeners, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers the event synchronously to every current subscriber.
// Session may be nil for signed-out events.
func (h *Holder) Publish(kind EventKind, s *Session) {
	h.mu.RLock()
	fns := make([]Listener, 0, len(h.listeners))
	for _, fn := range h.listeners {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		fn(kind, s)
	}
}

func (h *Holder) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

func (h *Holder) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.listeners = make(map[int]Listener)
}
