// Package mention computes reply addressing for inbound events: who to put
// in the reply prefix, how much of the character budget remains, what the
// text looks like with mentions stripped, and whether the event genuinely
// addresses the bot rather than quoting someone who did.
package mention

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/jholhewres/streambot/pkg/streambot/conversation"
	"github.com/jholhewres/streambot/pkg/streambot/platform"
)

// quotePattern matches second-hand mentions: a leading quote mark, or an
// attribution token (RT/via/by/from) immediately preceding an "@".
var quotePattern = regexp.MustCompile(`(?i)^\s*["'\x{201C}\x{201D}\x{2018}\x{2019}]|\b(?:rt|via|by|from)\W*@`)

// Meta is the derived addressing metadata for one event. Immutable once
// computed.
type Meta struct {
	// Mentions are the raw mentioned usernames, in order of appearance.
	Mentions []string

	// AddressList are the usernames selected for the reply prefix:
	// author first, deduplicated, never the bot itself.
	AddressList []string

	// Prefix is the composed reply prefix, e.g. "@alice @bob " (single
	// trailing space), or empty when nobody is addressable.
	Prefix string

	// Budget is the remaining character budget after the prefix.
	Budget int

	// StrippedText is the event text with all mention spans removed.
	StrippedText string

	// AddressedToMe is true when the event genuinely addresses the bot.
	AddressedToMe bool
}

// Resolver computes Meta for inbound events.
type Resolver struct {
	self    string
	limit   int
	tracker *conversation.Tracker
	logger  *slog.Logger
}

// NewResolver creates a resolver for the given bot identity. The tracker is
// consulted for addressability in long threads; it may be nil, in which case
// every mentioned user is addressable.
func NewResolver(self string, tracker *conversation.Tracker, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		self:    self,
		limit:   platform.CharacterLimit,
		tracker: tracker,
		logger:  logger.With("component", "mention"),
	}
}

// Resolve computes the addressing metadata for one event. It never fails:
// missing or malformed mention data degrades to an empty address list.
func (r *Resolver) Resolve(ev *platform.Event, conv *conversation.Conversation) *Meta {
	meta := &Meta{}

	for _, m := range ev.Mentions {
		if m.Username == "" {
			continue
		}
		meta.Mentions = append(meta.Mentions, m.Username)
	}

	meta.AddressList = r.addressList(ev, conv, meta.Mentions)
	if len(meta.AddressList) > 0 {
		meta.Prefix = "@" + strings.Join(meta.AddressList, " @") + " "
	}
	meta.Budget = r.limit - utf8.RuneCountInString(meta.Prefix)
	meta.StrippedText = stripMentions(ev.Text, ev.Mentions)
	meta.AddressedToMe = r.addressedToMe(ev, meta.Mentions)

	return meta
}

// addressList builds the reply address set: the author first, then every
// mentioned user that is neither the bot nor a long-silent participant,
// deduplicated preserving first occurrence.
func (r *Resolver) addressList(ev *platform.Event, conv *conversation.Conversation, mentions []string) []string {
	candidates := make([]string, 0, len(mentions)+1)
	if ev.Sender.Username != "" {
		candidates = append(candidates, ev.Sender.Username)
	}
	for _, username := range mentions {
		if strings.EqualFold(username, r.self) {
			continue
		}
		if r.tracker != nil && !r.tracker.CanAddress(conv, username) {
			r.logger.Debug("dropping long-silent participant from reply prefix", "user", username, "event", ev.ID)
			continue
		}
		candidates = append(candidates, username)
	}

	var list []string
	seen := make(map[string]bool, len(candidates))
	for _, username := range candidates {
		key := strings.ToLower(username)
		if seen[key] {
			continue
		}
		seen[key] = true
		list = append(list, username)
	}
	return list
}

// addressedToMe is true iff the bot is among the raw mentions, the event is
// not a reshare of another author's post, and the text does not look like a
// quote or attribution.
func (r *Resolver) addressedToMe(ev *platform.Event, mentions []string) bool {
	mentioned := false
	for _, username := range mentions {
		if strings.EqualFold(username, r.self) {
			mentioned = true
			break
		}
	}
	if !mentioned {
		return false
	}
	if ev.Reshare != nil && !strings.EqualFold(ev.Reshare.Author.Username, r.self) {
		return false
	}
	return !quotePattern.MatchString(ev.Text)
}

// stripMentions removes each mention span from the text, working from the
// last span to the first so earlier offsets stay valid, trimming whitespace
// at each excision point. Offsets are rune indices; out-of-range spans are
// ignored.
func stripMentions(text string, mentions []platform.Mention) string {
	if len(mentions) == 0 {
		return text
	}

	spans := make([]platform.Mention, len(mentions))
	copy(spans, mentions)
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start > spans[j].Start })

	runes := []rune(text)
	out := string(runes)
	for _, span := range spans {
		runes = []rune(out)
		if span.Start < 0 || span.End > len(runes) || span.Start >= span.End {
			continue
		}
		left := strings.TrimRight(string(runes[:span.Start]), " \t")
		right := strings.TrimLeft(string(runes[span.End:]), " \t")
		switch {
		case left == "":
			out = right
		case right == "":
			out = left
		default:
			out = left + " " + right
		}
	}
	return out
}
