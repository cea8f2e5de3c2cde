package bot

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jholhewres/streambot/pkg/streambot/media"
	"github.com/jholhewres/streambot/pkg/streambot/mention"
	"github.com/jholhewres/streambot/pkg/streambot/platform"
)

// Post publishes a new post.
func (b *Bot) Post(ctx context.Context, text string, opts *platform.PostOptions) (string, error) {
	id, err := b.client.Post(ctx, text, opts)
	if err != nil {
		b.errorCount.Add(1)
		return "", err
	}
	b.logger.Info("posted", "id", id)
	return id, nil
}

// Reply publishes a reply to an event, prepending the computed address
// prefix and truncating the text to the remaining character budget.
func (b *Bot) Reply(ctx context.Context, ev *platform.Event, meta *mention.Meta, text string, opts *platform.PostOptions) (string, error) {
	full := text
	if meta != nil {
		// A mention-packed post can yield a prefix longer than the whole
		// character limit, leaving a negative budget.
		budget := meta.Budget
		if budget < 0 {
			budget = 0
		}
		runes := []rune(text)
		if len(runes) > budget {
			runes = runes[:budget]
		}
		full = meta.Prefix + string(runes)
	}

	id, err := b.client.Reply(ctx, full, ev.ID, opts)
	if err != nil {
		b.errorCount.Add(1)
		return "", err
	}
	b.logger.Info("replied", "id", id, "parent", ev.ID)
	return id, nil
}

// ReplyWithMedia runs the media pipeline over the given items and posts the
// reply with the uploaded attachments.
func (b *Bot) ReplyWithMedia(ctx context.Context, ev *platform.Event, meta *mention.Meta, text string, items []string, editFn func(path string) error) (string, error) {
	mediaIDs, _, err := b.uploader.Process(ctx, items, editFn)
	if err != nil {
		return "", err
	}
	return b.Reply(ctx, ev, meta, text, &platform.PostOptions{MediaIDs: mediaIDs})
}

// PostWithMedia runs the media pipeline and publishes a new post with the
// uploaded attachments.
func (b *Bot) PostWithMedia(ctx context.Context, text string, items []string, editFn func(path string) error) (string, error) {
	mediaIDs, _, err := b.uploader.Process(ctx, items, editFn)
	if err != nil {
		return "", err
	}
	return b.Post(ctx, text, &platform.PostOptions{MediaIDs: mediaIDs})
}

// UploadBatch exposes the media pipeline directly, returning the comma-
// joined attachment parameter and per-item results.
func (b *Bot) UploadBatch(ctx context.Context, items []string, editFn func(path string) error) (string, []media.ItemResult, error) {
	return b.uploader.Process(ctx, items, editFn)
}

// Favorite favorites a post. Already-favorited is not an error.
func (b *Bot) Favorite(ctx context.Context, id string) error {
	err := b.client.Favorite(ctx, id)
	if errors.Is(err, platform.ErrAlreadyFavorited) {
		b.logger.Debug("already favorited", "id", id)
		return nil
	}
	if err != nil {
		b.errorCount.Add(1)
	}
	return err
}

// Retweet reposts a post. Already-retweeted is not an error.
func (b *Bot) Retweet(ctx context.Context, id string) error {
	err := b.client.Retweet(ctx, id)
	if errors.Is(err, platform.ErrAlreadyRetweeted) {
		b.logger.Debug("already retweeted", "id", id)
		return nil
	}
	if err != nil {
		b.errorCount.Add(1)
	}
	return err
}

// Follow follows a user.
func (b *Bot) Follow(ctx context.Context, username string) error {
	return b.client.Follow(ctx, username)
}

// Unfollow unfollows a user.
func (b *Bot) Unfollow(ctx context.Context, username string) error {
	return b.client.Unfollow(ctx, username)
}

// Block blocks a user.
func (b *Bot) Block(ctx context.Context, username string) error {
	return b.client.Block(ctx, username)
}

// SendDirectMessage sends a private message.
func (b *Bot) SendDirectMessage(ctx context.Context, recipient, text string) error {
	return b.client.SendDirectMessage(ctx, recipient, text, nil)
}

// Delay blocks the caller for the given duration, pacing outbound actions.
func (b *Bot) Delay(d time.Duration) {
	time.Sleep(d)
}

// DelayRange blocks for a duration sampled uniformly from [min, max].
func (b *Bot) DelayRange(min, max time.Duration) {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	time.Sleep(d)
}

// Pace applies the configured pacing delay.
func (b *Bot) Pace() {
	min, max := b.cfg.Pacing.DelayBounds()
	if max > 0 {
		b.DelayRange(min, max)
	}
}
