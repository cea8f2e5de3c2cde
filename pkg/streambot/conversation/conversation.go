// Package conversation tracks short-lived per-thread state: who has posted
// in a reply thread, how recently, and whether a participant looks like
// another automated account. State is memory-bounded and self-expiring; there
// is no persistent store.
package conversation

import (
	"strings"
	"time"

	"github.com/jholhewres/streambot/pkg/streambot/platform"
)

// Conversation holds the observed events of one reply thread, in
// chronological order of observation.
type Conversation struct {
	events     []*platform.Event
	lastUpdate time.Time
}

// NewConversation creates an empty conversation stamped at now.
func NewConversation(now time.Time) *Conversation {
	return &Conversation{lastUpdate: now}
}

// Add appends an event to the thread history. LastUpdate never decreases,
// even when the clock is adjusted backwards.
func (c *Conversation) Add(ev *platform.Event, now time.Time) {
	c.events = append(c.events, ev)
	if now.After(c.lastUpdate) {
		c.lastUpdate = now
	}
}

// Events returns the observed events in order.
func (c *Conversation) Events() []*platform.Event {
	return c.events
}

// Len returns the number of observed events.
func (c *Conversation) Len() int {
	return len(c.events)
}

// LastUpdate returns the time of the most recent Add (or creation).
func (c *Conversation) LastUpdate() time.Time {
	return c.lastUpdate
}

// senderTimestamps returns the timestamps of the given user's posts in this
// thread, in observation order.
func (c *Conversation) senderTimestamps(username string) []time.Time {
	var ts []time.Time
	for _, ev := range c.events {
		if strings.EqualFold(ev.Sender.Username, username) {
			ts = append(ts, ev.Timestamp)
		}
	}
	return ts
}

// recentSenders returns the usernames of the senders of the last n events.
func (c *Conversation) recentSenders(n int) []string {
	start := len(c.events) - n
	if start < 0 {
		start = 0
	}
	var senders []string
	for _, ev := range c.events[start:] {
		senders = append(senders, ev.Sender.Username)
	}
	return senders
}
