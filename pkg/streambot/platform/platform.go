// Package platform defines the event model and collaborator interfaces for
// streambot. The live wire protocol (REST calls, streaming connection, OAuth)
// is owned by the embedding application; the framework only consumes these
// interfaces.
package platform

import (
	"context"
	"fmt"
	"time"
)

// CharacterLimit is the per-post character budget enforced by the platform.
const CharacterLimit = 280

// EventType identifies the kind of stream event.
type EventType string

const (
	// EventPost is an authored post on the public stream.
	EventPost EventType = "post"

	// EventDirectMessage is a private message to the bot.
	EventDirectMessage EventType = "direct_message"

	// EventFollow is a follow notice.
	EventFollow EventType = "follow"

	// EventDeletion is a post-deletion notice.
	EventDeletion EventType = "deletion"

	// EventConnected is the connection-bootstrap notice emitted once when the
	// stream is established.
	EventConnected EventType = "connected"

	// EventUnknown is any stream item the driver could not classify.
	EventUnknown EventType = "unknown"
)

// User identifies an account on the platform.
type User struct {
	ID       string
	Username string
	Name     string
}

// Mention is an in-text reference to a username, with its span in the text.
// Offsets are rune indices into Event.Text.
type Mention struct {
	Username string
	Start    int
	End      int
}

// Reshare marks an event as a repost of another author's post.
type Reshare struct {
	Author     User
	OriginalID string
}

// Event represents a single item from the stream.
type Event struct {
	// Type is the event classification.
	Type EventType

	// ID is the unique event identifier on the platform.
	ID string

	// Sender is the authoring account.
	Sender User

	// Text is the raw post or message text.
	Text string

	// InReplyToID is the id of the post this event replies to, if any.
	InReplyToID string

	// Timestamp is when the event was created on the platform.
	Timestamp time.Time

	// Mentions lists the in-text username references, in order of appearance.
	Mentions []Mention

	// Reshare is set when the event reposts another author's post.
	Reshare *Reshare

	// Metadata carries additional driver-specific data.
	Metadata map[string]any
}

// StreamSource yields stream events indefinitely until the connection ends.
// The framework consumes the sequence item-by-item and does not restart it.
type StreamSource interface {
	// Events returns the channel of incoming events. The driver closes it
	// when the connection ends.
	Events() <-chan *Event
}

// PostOptions carries optional parameters for outbound posts.
type PostOptions struct {
	// MediaIDs is the comma-joined attachment parameter produced by the
	// media upload pipeline.
	MediaIDs string
}

// Client is the outbound side of the platform connection.
type Client interface {
	// Post publishes a new post and returns its id.
	Post(ctx context.Context, text string, opts *PostOptions) (string, error)

	// Reply publishes a reply to the given parent post and returns its id.
	Reply(ctx context.Context, text, parentID string, opts *PostOptions) (string, error)

	// Favorite marks a post as favorited.
	Favorite(ctx context.Context, id string) error

	// Retweet reposts the given post.
	Retweet(ctx context.Context, id string) error

	// Follow follows the given user.
	Follow(ctx context.Context, username string) error

	// Unfollow unfollows the given user.
	Unfollow(ctx context.Context, username string) error

	// Block blocks the given user.
	Block(ctx context.Context, username string) error

	// SendDirectMessage sends a private message to the recipient.
	SendDirectMessage(ctx context.Context, recipient, text string, opts *PostOptions) error

	// UploadMedia uploads raw media bytes and returns the platform media id.
	UploadMedia(ctx context.Context, data []byte, filename string) (string, error)

	// CurrentIdentity returns the authenticated account's username.
	CurrentIdentity() string
}

// Errors.
var (
	// ErrAlreadyFavorited is returned by drivers when the post was favorited
	// before. The bot downgrades it to a log line.
	ErrAlreadyFavorited = fmt.Errorf("post already favorited")

	// ErrAlreadyRetweeted is returned by drivers when the post was reposted
	// before. The bot downgrades it to a log line.
	ErrAlreadyRetweeted = fmt.Errorf("post already retweeted")

	// ErrStreamClosed indicates the streaming connection ended.
	ErrStreamClosed = fmt.Errorf("stream connection closed")
)
