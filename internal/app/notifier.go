package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notice is a transient message for the notification region.
type Notice struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	PostedAt  time.Time `json:"postedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Notifier holds at most one notice; posting replaces the current one.
type Notifier struct {
	mu     sync.Mutex
	notice *Notice
	now    func() time.Time
}

// NewNotifier creates a notifier. A nil now uses time.Now.
func NewNotifier(now func() time.Time) *Notifier {
	if now == nil {
		now = time.Now
	}

	return &Notifier{now: now}
}

// Post publishes message for ttl and returns the stored notice.
func (n *Notifier) Post(message string, ttl time.Duration) Notice {
	n.mu.Lock()
	defer n.mu.Unlock()

	posted := n.now()
	notice := Notice{
		ID:        uuid.NewString(),
		Message:   message,
		PostedAt:  posted,
		ExpiresAt: posted.Add(ttl),
	}
	n.notice = &notice

	return notice
}

// Current returns the notice while it is still live.
func (n *Notifier) Current() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.notice == nil {
		return Notice{}, false
	}

	if !n.now().Before(n.notice.ExpiresAt) {
		n.notice = nil
		return Notice{}, false
	}

	return *n.notice, true
}
