// Package playground provides an in-memory platform driver for local runs
// and tests. It implements platform.Client and platform.StreamSource with
// thread-safe maps instead of network calls, matching the behavior patterns
// of the real platform (duplicate favorite/retweet detection, sequential
// post ids, media id allocation).
package playground

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jholhewres/streambot/pkg/streambot/platform"
)

// Post is a published post recorded by the playground.
type Post struct {
	ID        string
	Text      string
	ParentID  string
	MediaIDs  string
	CreatedAt time.Time
}

// Playground is an in-memory stand-in for the remote platform.
type Playground struct {
	identity string
	logger   *slog.Logger

	mu         sync.Mutex
	nextID     int64
	posts      []*Post
	favorites  map[string]bool
	retweets   map[string]bool
	following  map[string]bool
	blocked    map[string]bool
	dms        map[string][]string
	media      map[string][]byte
	nextMedia  int64

	events chan *platform.Event
}

// New creates a playground authenticated as the given username.
func New(identity string, logger *slog.Logger) *Playground {
	if logger == nil {
		logger = slog.Default()
	}
	return &Playground{
		identity:  identity,
		logger:    logger.With("component", "playground"),
		favorites: make(map[string]bool),
		retweets:  make(map[string]bool),
		following: make(map[string]bool),
		blocked:   make(map[string]bool),
		dms:       make(map[string][]string),
		media:     make(map[string][]byte),
		events:    make(chan *platform.Event, 64),
	}
}

// ---------- StreamSource ----------

// Events returns the incoming event channel.
func (p *Playground) Events() <-chan *platform.Event {
	return p.events
}

// Inject places an event on the stream. Used by scripts and tests.
func (p *Playground) Inject(ev *platform.Event) {
	p.events <- ev
}

// Close ends the stream.
func (p *Playground) Close() {
	close(p.events)
}

// ---------- Client ----------

// Post records a new post and returns its id.
func (p *Playground) Post(ctx context.Context, text string, opts *platform.PostOptions) (string, error) {
	return p.record(text, "", opts)
}

// Reply records a reply to the given parent post.
func (p *Playground) Reply(ctx context.Context, text, parentID string, opts *platform.PostOptions) (string, error) {
	return p.record(text, parentID, opts)
}

func (p *Playground) record(text, parentID string, opts *platform.PostOptions) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	post := &Post{
		ID:        fmt.Sprintf("%d", p.nextID),
		Text:      text,
		ParentID:  parentID,
		CreatedAt: time.Now(),
	}
	if opts != nil {
		post.MediaIDs = opts.MediaIDs
	}
	p.posts = append(p.posts, post)
	p.logger.Debug("post recorded", "id", post.ID, "reply_to", parentID)
	return post.ID, nil
}

// Favorite marks a post as favorited. Repeated calls return
// platform.ErrAlreadyFavorited, matching real platform behavior.
func (p *Playground) Favorite(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.favorites[id] {
		return platform.ErrAlreadyFavorited
	}
	p.favorites[id] = true
	return nil
}

// Retweet reposts a post. Repeated calls return platform.ErrAlreadyRetweeted.
func (p *Playground) Retweet(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.retweets[id] {
		return platform.ErrAlreadyRetweeted
	}
	p.retweets[id] = true
	return nil
}

// Follow follows a user.
func (p *Playground) Follow(ctx context.Context, username string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.following[username] = true
	return nil
}

// Unfollow unfollows a user.
func (p *Playground) Unfollow(ctx context.Context, username string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.following, username)
	return nil
}

// Block blocks a user.
func (p *Playground) Block(ctx context.Context, username string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blocked[username] = true
	return nil
}

// SendDirectMessage records a private message to the recipient.
func (p *Playground) SendDirectMessage(ctx context.Context, recipient, text string, opts *platform.PostOptions) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dms[recipient] = append(p.dms[recipient], text)
	return nil
}

// UploadMedia stores the bytes and returns an allocated media id.
func (p *Playground) UploadMedia(ctx context.Context, data []byte, filename string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("playground: empty media upload %q", filename)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextMedia++
	id := fmt.Sprintf("m%d", p.nextMedia)
	p.media[id] = data
	return id, nil
}

// CurrentIdentity returns the authenticated username.
func (p *Playground) CurrentIdentity() string { return p.identity }

// ---------- Inspection helpers ----------

// Posts returns a copy of all recorded posts.
func (p *Playground) Posts() []*Post {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Post, len(p.posts))
	copy(out, p.posts)
	return out
}

// DirectMessages returns the messages sent to a recipient.
func (p *Playground) DirectMessages(recipient string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.dms[recipient]...)
}

// IsFollowing reports whether the playground account follows the user.
func (p *Playground) IsFollowing(username string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.following[username]
}

// Compile-time interface verification.
var (
	_ platform.Client       = (*Playground)(nil)
	_ platform.StreamSource = (*Playground)(nil)
)
