package conversation

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jholhewres/streambot/pkg/streambot/platform"
)

const (
	// DefaultTTL is how long an idle conversation stays in the registry.
	DefaultTTL = 3600 * time.Second

	// addressWindow is how many trailing events a participant must appear in
	// to stay addressable in a long thread.
	addressWindow = 4

	// burstWindow is the maximum spread between a user's 1st- and
	// 3rd-most-recent posts before they are suspected of burst-posting.
	burstWindow = 30 * time.Second

	// burstMinPosts is the minimum number of posts before the timing
	// heuristic applies.
	burstMinPosts = 3
)

// Tracker owns the conversation registry. Every lookup sweeps expired
// entries, so registry size is bounded by traffic between sweeps rather
// than by a background timer.
type Tracker struct {
	mu     sync.Mutex
	byID   map[string]*Conversation
	ttl    time.Duration
	logger *slog.Logger

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewTracker creates a tracker with the default TTL.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		byID:   make(map[string]*Conversation),
		ttl:    DefaultTTL,
		logger: logger.With("component", "conversation"),
		now:    time.Now,
	}
}

// Resolve finds or creates the conversation for an event: keyed by the id
// the event replies to, else by the event's own id. Both ids are re-keyed to
// the resolved conversation so later replies-to-replies land in the same
// thread. Expired entries are swept as a side effect of every call.
func (t *Tracker) Resolve(ev *platform.Event) *Conversation {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()

	conv, ok := t.byID[ev.InReplyToID]
	if !ok {
		conv, ok = t.byID[ev.ID]
	}
	if !ok {
		conv = NewConversation(now)
	}

	if ev.InReplyToID != "" {
		t.byID[ev.InReplyToID] = conv
	}
	t.byID[ev.ID] = conv

	t.sweep(conv, now)
	return conv
}

// Record appends an event to its conversation and returns it.
func (t *Tracker) Record(ev *platform.Event) *Conversation {
	conv := t.Resolve(ev)
	t.mu.Lock()
	conv.Add(ev, t.now())
	t.mu.Unlock()
	return conv
}

// IsBotSuspect reports whether a participant looks automated: "ebooks" in
// the username, or more than two posts with the last three inside the burst
// window. Fewer than three posts never triggers the timing check.
func (t *Tracker) IsBotSuspect(conv *Conversation, username string) bool {
	if strings.Contains(strings.ToLower(username), "ebooks") {
		return true
	}
	if conv == nil {
		return false
	}

	t.mu.Lock()
	ts := conv.senderTimestamps(username)
	t.mu.Unlock()

	if len(ts) < burstMinPosts {
		return false
	}
	latest := ts[len(ts)-1]
	third := ts[len(ts)-burstMinPosts]
	return latest.Sub(third) < burstWindow
}

// CanAddress reports whether a username should be pulled into a reply
// prefix: always true for short threads, otherwise only if the user posted
// within the last few events. Keeps long-silent participants out of active
// replies.
func (t *Tracker) CanAddress(conv *Conversation, username string) bool {
	if conv == nil {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if conv.Len() <= addressWindow {
		return true
	}
	for _, sender := range conv.recentSenders(addressWindow) {
		if strings.EqualFold(sender, username) {
			return true
		}
	}
	return false
}

// Size returns the number of registry keys currently held.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

// sweep removes every entry whose conversation is idle past the TTL, except
// the conversation just touched. Caller holds the lock.
func (t *Tracker) sweep(active *Conversation, now time.Time) {
	removed := 0
	for id, conv := range t.byID {
		if conv == active {
			continue
		}
		if now.Sub(conv.LastUpdate()) > t.ttl {
			delete(t.byID, id)
			removed++
		}
	}
	if removed > 0 {
		t.logger.Debug("swept expired conversations", "removed", removed, "remaining", len(t.byID))
	}
}
