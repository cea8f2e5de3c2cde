package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jholhewres/streambot/pkg/streambot/conversation"
	"github.com/jholhewres/streambot/pkg/streambot/dispatch"
	"github.com/jholhewres/streambot/pkg/streambot/media"
	"github.com/jholhewres/streambot/pkg/streambot/mention"
	"github.com/jholhewres/streambot/pkg/streambot/platform"
)

// HealthStatus is a snapshot of the bot's stream health.
type HealthStatus struct {
	Connected   bool
	LastEventAt time.Time
	ErrorCount  int
}

// Bot is one bot instance: a single logical worker that consumes the stream
// item-by-item, fully dispatching each event before reading the next.
// Multiple instances may run in one process; they share no state except the
// media store when one is injected.
type Bot struct {
	cfg    *Config
	self   string
	client platform.Client
	stream platform.StreamSource

	tracker    *conversation.Tracker
	resolver   *mention.Resolver
	dispatcher *dispatch.Dispatcher
	store      *media.Store
	uploader   *media.Uploader

	logger *slog.Logger

	connected  atomic.Bool
	lastEvent  atomic.Value // time.Time
	errorCount atomic.Int64
}

// New creates a bot. The identity comes from the config, falling back to the
// client's authenticated identity; missing identity is a fatal configuration
// error surfaced before the stream loop starts.
func New(cfg *Config, client platform.Client, stream platform.StreamSource, handlers dispatch.Handlers, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	self := cfg.Identity
	if self == "" && client != nil {
		self = client.CurrentIdentity()
	}
	if self == "" {
		return nil, fmt.Errorf("%w: bot identity is required", ErrConfiguration)
	}

	l := logger.With("component", "bot", "identity", self)

	tracker := conversation.NewTracker(logger)
	resolver := mention.NewResolver(self, tracker, logger)
	store := media.NewStore(cfg.Media.ScratchDir, logger)

	b := &Bot{
		cfg:        cfg,
		self:       self,
		client:     client,
		stream:     stream,
		tracker:    tracker,
		resolver:   resolver,
		dispatcher: dispatch.New(self, handlers, tracker, resolver, logger),
		store:      store,
		uploader:   media.NewUploader(store, client, logger),
		logger:     l,
	}
	return b, nil
}

// Identity returns the bot's username.
func (b *Bot) Identity() string { return b.self }

// Tracker returns the conversation tracker, for handlers that want to
// consult the bot-suspect heuristic.
func (b *Bot) Tracker() *conversation.Tracker { return b.tracker }

// Store returns the media store.
func (b *Bot) Store() *media.Store { return b.store }

// Run consumes the stream until the context is cancelled or the connection
// ends. Each event is fully dispatched before the next is read.
func (b *Bot) Run(ctx context.Context) error {
	b.connected.Store(true)
	defer b.connected.Store(false)

	b.logger.Info("entering stream loop")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("stream loop cancelled")
			return ctx.Err()
		case ev, ok := <-b.stream.Events():
			if !ok {
				b.logger.Warn("stream ended")
				return platform.ErrStreamClosed
			}
			b.lastEvent.Store(time.Now())
			b.dispatcher.Dispatch(ctx, ev)
		}
	}
}

// Health returns the current health snapshot.
func (b *Bot) Health() HealthStatus {
	var lastAt time.Time
	if v := b.lastEvent.Load(); v != nil {
		lastAt = v.(time.Time)
	}
	return HealthStatus{
		Connected:   b.connected.Load(),
		LastEventAt: lastAt,
		ErrorCount:  int(b.errorCount.Load()),
	}
}
