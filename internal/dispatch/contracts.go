// Package dispatch routes normalized inbound messages to handlers according
// to the platform's priority rules and owns the per-turn session lifecycle.
package dispatch

import (
	"context"

	"github.com/floramarket/florabot/internal/response"
	"github.com/floramarket/florabot/internal/session"
	"github.com/floramarket/florabot/internal/update"
)

// CommandHandler serves one slash command.
type CommandHandler interface {
	// Command returns the command token this handler serves, without the
	// leading slash.
	Command() string
	Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error)
	// RequiresAuth gates the handler behind the platform's authentication
	// predicate. Embed NoAuth for open commands.
	RequiresAuth() bool
}

// NoAuth is the embeddable default for commands that need no authentication.
type NoAuth struct{}

func (NoAuth) RequiresAuth() bool { return false }

// OwnerOnly is the embeddable marker for commands gated behind the
// authentication predicate.
type OwnerOnly struct{}

func (OwnerOnly) RequiresAuth() bool { return true }

// CallbackHandler serves callback queries whose data starts with its prefix.
// Matching is first-registered-wins, so overlapping prefixes are sensitive to
// registration order.
type CallbackHandler interface {
	Prefix() string
	Handle(ctx context.Context, msg *update.InboundMessage) (*response.Response, error)
}

// WebAppHandler serves structured payloads submitted from an embedded webapp.
type WebAppHandler interface {
	CanHandle(msg *update.InboundMessage) bool
	Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error)
}

// FlowHandler owns one or more session states of a multi-turn flow. It
// receives the full message, not just the classified kind, because a flow may
// branch on message shape itself (contact share vs typed phone, for example).
type FlowHandler interface {
	States() []session.State
	Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error)
}

// FallbackHandler serves text that matched no other rule, and unregistered
// commands that fell through the command and flow rules.
type FallbackHandler interface {
	Handle(ctx context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error)
}

// AuthPredicate decides whether the session's user may run gated commands.
type AuthPredicate func(ctx context.Context, msg *update.InboundMessage, sess *session.Session) bool
