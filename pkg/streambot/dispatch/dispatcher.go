// Package dispatch routes inbound stream events to exactly one registered
// handler: startup, mention, timeline, direct message, or follow. Events may
// also be dropped (self-authored, empty, duplicate, deletion notices).
// Handlers are plain closures resolved once at setup; their failures are the
// caller's responsibility, the dispatcher never retries.
package dispatch

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jholhewres/streambot/pkg/streambot/conversation"
	"github.com/jholhewres/streambot/pkg/streambot/mention"
	"github.com/jholhewres/streambot/pkg/streambot/platform"
)

// Route names the outcome of dispatching one event.
type Route string

const (
	RouteStartup       Route = "startup"
	RouteMention       Route = "mention"
	RouteTimeline      Route = "timeline"
	RouteDirectMessage Route = "direct_message"
	RouteFollow        Route = "follow"
	RouteDuplicate     Route = "duplicate"
	RouteIgnored       Route = "ignored"
)

// Handlers holds the callbacks registered by the embedding application.
// Nil entries mean the category is silently ignored.
type Handlers struct {
	// Startup fires once on the connection-bootstrap notice.
	Startup func(ctx context.Context)

	// Mention fires for posts genuinely addressed to the bot.
	Mention func(ctx context.Context, ev *platform.Event, meta *mention.Meta, conv *conversation.Conversation)

	// Timeline fires for every other post on the stream.
	Timeline func(ctx context.Context, ev *platform.Event, meta *mention.Meta)

	// DirectMessage fires for private messages from other users.
	DirectMessage func(ctx context.Context, ev *platform.Event)

	// Follow fires when another user follows the bot.
	Follow func(ctx context.Context, ev *platform.Event)
}

// Dispatcher routes one inbound event at a time. It holds no state beyond
// the bounded seen-ids set; conversation state lives in the tracker.
type Dispatcher struct {
	self     string
	handlers Handlers
	tracker  *conversation.Tracker
	resolver *mention.Resolver
	seen     *seenSet
	logger   *slog.Logger
}

// New creates a dispatcher for the given bot identity.
func New(self string, handlers Handlers, tracker *conversation.Tracker, resolver *mention.Resolver, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		self:     self,
		handlers: handlers,
		tracker:  tracker,
		resolver: resolver,
		seen:     newSeenSet(0),
		logger:   logger.With("component", "dispatch"),
	}
}

// Dispatch classifies one event and invokes the matching handler. It returns
// the route taken and never fails on malformed or unexpected event shapes.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *platform.Event) Route {
	if ev == nil {
		return RouteIgnored
	}

	switch ev.Type {
	case platform.EventConnected:
		if d.handlers.Startup != nil {
			d.handlers.Startup(ctx)
		}
		return RouteStartup

	case platform.EventDirectMessage:
		if strings.EqualFold(ev.Sender.Username, d.self) {
			return RouteIgnored
		}
		if d.handlers.DirectMessage != nil {
			d.handlers.DirectMessage(ctx, ev)
		}
		return RouteDirectMessage

	case platform.EventFollow:
		if strings.EqualFold(ev.Sender.Username, d.self) {
			return RouteIgnored
		}
		if d.handlers.Follow != nil {
			d.handlers.Follow(ctx, ev)
		}
		return RouteFollow

	case platform.EventPost:
		return d.dispatchPost(ctx, ev)

	case platform.EventDeletion:
		return RouteIgnored

	default:
		d.logger.Debug("unhandled stream item", "type", ev.Type, "id", ev.ID)
		return RouteIgnored
	}
}

func (d *Dispatcher) dispatchPost(ctx context.Context, ev *platform.Event) Route {
	if strings.TrimSpace(ev.Text) == "" {
		return RouteIgnored
	}
	if strings.EqualFold(ev.Sender.Username, d.self) {
		return RouteIgnored
	}
	if d.seen.MarkSeen(ev.ID) {
		d.logger.Debug("duplicate event dropped", "id", ev.ID)
		return RouteDuplicate
	}

	conv := d.tracker.Resolve(ev)
	meta := d.resolver.Resolve(ev, conv)

	if meta.AddressedToMe {
		conv = d.tracker.Record(ev)
		if d.handlers.Mention != nil {
			d.handlers.Mention(ctx, ev, meta, conv)
		}
		return RouteMention
	}

	if d.handlers.Timeline != nil {
		d.handlers.Timeline(ctx, ev, meta)
	}
	return RouteTimeline
}
