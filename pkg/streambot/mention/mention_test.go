package mention

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jholhewres/streambot/pkg/streambot/conversation"
	"github.com/jholhewres/streambot/pkg/streambot/platform"
)

func event(author, text string, mentions ...platform.Mention) *platform.Event {
	return &platform.Event{
		Type:     platform.EventPost,
		ID:       "1",
		Sender:   platform.User{Username: author},
		Text:     text,
		Mentions: mentions,
	}
}

func TestStripMentions(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		mentions []platform.Mention
		want     string
	}{
		{
			name: "two mentions mid-text",
			text: "hi @bob and @carol!",
			mentions: []platform.Mention{
				{Username: "bob", Start: 3, End: 7},
				{Username: "carol", Start: 12, End: 18},
			},
			want: "hi and !",
		},
		{
			name: "leading mention",
			text: "@robot hello there",
			mentions: []platform.Mention{
				{Username: "robot", Start: 0, End: 6},
			},
			want: "hello there",
		},
		{
			name: "trailing mention",
			text: "good point @bob",
			mentions: []platform.Mention{
				{Username: "bob", Start: 11, End: 15},
			},
			want: "good point",
		},
		{
			name:     "no mentions",
			text:     "plain text",
			mentions: nil,
			want:     "plain text",
		},
		{
			name: "out of range span ignored",
			text: "short",
			mentions: []platform.Mention{
				{Username: "ghost", Start: 10, End: 20},
			},
			want: "short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripMentions(tt.text, tt.mentions); got != tt.want {
				t.Errorf("stripMentions(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestResolve_AddressList(t *testing.T) {
	r := NewResolver("robot", conversation.NewTracker(nil), nil)

	ev := event("alice", "@robot @bob @bob @alice look at this",
		platform.Mention{Username: "robot", Start: 0, End: 6},
		platform.Mention{Username: "bob", Start: 7, End: 11},
		platform.Mention{Username: "bob", Start: 12, End: 16},
		platform.Mention{Username: "alice", Start: 17, End: 23},
	)
	meta := r.Resolve(ev, nil)

	want := []string{"alice", "bob"}
	if len(meta.AddressList) != len(want) {
		t.Fatalf("AddressList = %v, want %v", meta.AddressList, want)
	}
	for i := range want {
		if meta.AddressList[i] != want[i] {
			t.Fatalf("AddressList = %v, want %v", meta.AddressList, want)
		}
	}
	if meta.Prefix != "@alice @bob " {
		t.Errorf("Prefix = %q", meta.Prefix)
	}
	if !strings.HasSuffix(meta.Prefix, " ") {
		t.Error("prefix must end with a single trailing space")
	}
	wantBudget := platform.CharacterLimit - utf8.RuneCountInString(meta.Prefix)
	if meta.Budget != wantBudget {
		t.Errorf("Budget = %d, want %d", meta.Budget, wantBudget)
	}
}

func TestResolve_EmptyMentionsDegrade(t *testing.T) {
	r := NewResolver("robot", nil, nil)

	ev := event("", "no entities here")
	meta := r.Resolve(ev, nil)

	if len(meta.AddressList) != 0 {
		t.Errorf("AddressList = %v, want empty", meta.AddressList)
	}
	if meta.Prefix != "" {
		t.Errorf("Prefix = %q, want empty", meta.Prefix)
	}
	if meta.Budget != platform.CharacterLimit {
		t.Errorf("Budget = %d, want %d", meta.Budget, platform.CharacterLimit)
	}
	if meta.AddressedToMe {
		t.Error("event with no mentions cannot address the bot")
	}
}

func TestResolve_AddressedToMe(t *testing.T) {
	robotMention := platform.Mention{Username: "robot", Start: 0, End: 6}

	tests := []struct {
		name string
		ev   *platform.Event
		want bool
	}{
		{
			name: "plain mention",
			ev:   event("alice", "@robot hello", robotMention),
			want: true,
		},
		{
			name: "mention with different case",
			ev: event("alice", "@Robot hello",
				platform.Mention{Username: "Robot", Start: 0, End: 6}),
			want: true,
		},
		{
			name: "manual retweet",
			ev: event("alice", "RT @robot: something clever",
				platform.Mention{Username: "robot", Start: 3, End: 9}),
			want: false,
		},
		{
			name: "via attribution",
			ev: event("alice", "great thread via @robot",
				platform.Mention{Username: "robot", Start: 17, End: 23}),
			want: false,
		},
		{
			name: "leading quote",
			ev: event("alice", `"@robot is down again"`,
				platform.Mention{Username: "robot", Start: 1, End: 7}),
			want: false,
		},
		{
			name: "reshare of another author",
			ev: &platform.Event{
				Sender:   platform.User{Username: "alice"},
				Text:     "@robot nice",
				Mentions: []platform.Mention{robotMention},
				Reshare:  &platform.Reshare{Author: platform.User{Username: "bob"}},
			},
			want: false,
		},
		{
			name: "not mentioned at all",
			ev:   event("alice", "talking about bots"),
			want: false,
		},
	}

	r := NewResolver("robot", nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := r.Resolve(tt.ev, nil)
			if meta.AddressedToMe != tt.want {
				t.Errorf("AddressedToMe = %v, want %v", meta.AddressedToMe, tt.want)
			}
		})
	}
}

func TestResolve_LongThreadDropsSilentParticipants(t *testing.T) {
	tr := conversation.NewTracker(nil)
	r := NewResolver("robot", tr, nil)

	// Build a long thread where "early" spoke only in the first event.
	now := time.Now()
	conv := conversation.NewConversation(now)
	senders := []string{"early", "alice", "bob", "carol", "dave", "erin"}
	for i, s := range senders {
		conv.Add(&platform.Event{
			ID:     string(rune('a' + i)),
			Sender: platform.User{Username: s},
		}, now)
	}

	ev := event("alice", "@early @bob hey",
		platform.Mention{Username: "early", Start: 0, End: 6},
		platform.Mention{Username: "bob", Start: 7, End: 11},
	)
	meta := r.Resolve(ev, conv)

	for _, u := range meta.AddressList {
		if u == "early" {
			t.Error("long-silent participant pulled back into the reply prefix")
		}
	}
	if meta.AddressList[0] != "alice" {
		t.Errorf("author must come first, got %v", meta.AddressList)
	}
}
