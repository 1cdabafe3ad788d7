// Package events defines the state-change notifications emitted by the
// engines for external observers such as the dashboard relay.
package events

import "context"

const (
	TypeAutofillStateChanged = "autofill.state_changed"
	TypeVoteChanged          = "vote.changed"
	TypeChatMessage          = "chat.message"
)

// Event is a typed notification with a JSON-serialisable payload.
type Event interface {
	Type() string
}

// Sink receives events. Publishing is fire-and-forget: implementations must
// not block the caller on slow observers and never report errors back.
type Sink interface {
	Publish(ctx context.Context, ev Event)
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event) {}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, ev Event)

func (f SinkFunc) Publish(ctx context.Context, ev Event) { f(ctx, ev) }

type AutofillStateChanged struct {
	Enabled   bool     `json:"enabled"`
	Playlists []string `json:"playlists,omitempty"`
	Issuer    string   `json:"issuer,omitempty"`
	Pending   string   `json:"pending,omitempty"`
	Reason    string   `json:"reason,omitempty"`
}

func (AutofillStateChanged) Type() string { return TypeAutofillStateChanged }

// VoteAction tells what happened to a vote.
type VoteAction string

const (
	VoteAdded     VoteAction = "added"
	VoteRemoved   VoteAction = "removed"
	VoteCompleted VoteAction = "completed"
)

type VoteChanged struct {
	VoteID     string     `json:"voteId"`
	Command    string     `json:"command"`
	VoterCount int        `json:"voterCount"`
	Needed     int        `json:"needed"`
	Action     VoteAction `json:"action"`
}

func (VoteChanged) Type() string { return TypeVoteChanged }

type ChatMessage struct {
	To   string `json:"to,omitempty"`
	Text string `json:"text"`
}

func (ChatMessage) Type() string { return TypeChatMessage }
