package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/floramarket/florabot/internal/apperr"
	"github.com/floramarket/florabot/internal/response"
	"github.com/floramarket/florabot/internal/session"
	"github.com/floramarket/florabot/internal/tenant"
	"github.com/floramarket/florabot/internal/update"
)

// Fixed response copy. These strings are part of the dispatch contract and
// are asserted by tests, so handlers must not duplicate them.
const (
	AuthRequiredText    = "You need to be registered to use this command. Send /register to get started."
	UnknownCallbackText = "This button is no longer active."
	UnknownWebAppText   = "Could not process the submitted form."
	GenericErrorText    = "Sorry, something went wrong. Please try again."
)

// Dispatcher selects exactly one handler for a normalized message according
// to the priority rules and guards every invocation against faults.
type Dispatcher struct {
	registries map[tenant.BotKind]*Registry
	auth       AuthPredicate
	log        *slog.Logger
}

// NewDispatcher builds a Dispatcher from per-bot-kind handler sets.
func NewDispatcher(registries map[tenant.BotKind]*Registry, auth AuthPredicate, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	if auth == nil {
		auth = func(context.Context, *update.InboundMessage, *session.Session) bool { return false }
	}

	return &Dispatcher{
		registries: registries,
		auth:       auth,
		log:        log,
	}
}

// Dispatch applies the priority rules, first match wins:
//
//  1. registered command handler (behind the auth predicate when required)
//  2. callback handler by first-registered prefix match
//  3. webapp handler by first-registered CanHandle
//  4. flow handler for the session's current state
//  5. fallback handler for plain text and unregistered commands
//  6. no-op
//
// A nil response with a nil error means the turn produced nothing to send.
// A non-nil error always carries handler identity and means the session must
// not be persisted for this turn.
func (d *Dispatcher) Dispatch(ctx context.Context, kind tenant.BotKind, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	reg := d.registries[kind]
	if reg == nil {
		d.log.Warn("no handler set for bot kind", slog.String("kind", string(kind)))
		return nil, nil
	}

	if msg.Kind == update.KindCommand {
		if h := reg.command(msg.Command); h != nil {
			if h.RequiresAuth() && !d.auth(ctx, msg, sess) {
				return response.Text(msg.ChatID, AuthRequiredText), nil
			}
			return d.invoke(ctx, "command:"+msg.Command, func() (*response.Response, error) {
				return h.Handle(ctx, msg, sess)
			})
		}
		// Unregistered commands fall through to the flow and fallback rules.
	}

	if msg.Kind == update.KindCallbackQuery {
		return d.dispatchCallback(ctx, reg, msg)
	}

	if msg.Kind == update.KindWebAppData {
		return d.dispatchWebApp(ctx, reg, msg, sess)
	}

	if h := reg.flow(sess.State); h != nil {
		return d.invoke(ctx, "flow:"+string(sess.State), func() (*response.Response, error) {
			return h.Handle(ctx, msg, sess)
		})
	}

	if msg.Kind == update.KindText || msg.Kind == update.KindCommand {
		if reg.fallback != nil {
			return d.invoke(ctx, "fallback", func() (*response.Response, error) {
				return reg.fallback.Handle(ctx, msg, sess)
			})
		}
		if msg.Kind == update.KindCommand {
			return UnknownCommand(msg), nil
		}
	}

	d.log.Debug("no handler for update",
		slog.String("kind", string(msg.Kind)),
		slog.Int64("user_id", msg.UserID),
	)
	return nil, nil
}

func (d *Dispatcher) dispatchCallback(ctx context.Context, reg *Registry, msg *update.InboundMessage) (*response.Response, error) {
	for _, h := range reg.callbacks {
		if strings.HasPrefix(msg.CallbackData, h.Prefix()) {
			handler := h
			return d.invoke(ctx, "callback:"+handler.Prefix(), func() (*response.Response, error) {
				return handler.Handle(ctx, msg)
			})
		}
	}

	if !msg.CanRespond() {
		return nil, nil
	}

	resp := response.Text(msg.ChatID, UnknownCallbackText)
	if msg.CallbackID != "" {
		resp.AddAction(response.AnswerCallback(msg.CallbackID, ""))
	}
	return resp, nil
}

func (d *Dispatcher) dispatchWebApp(ctx context.Context, reg *Registry, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	for _, h := range reg.webapps {
		if h.CanHandle(msg) {
			handler := h
			return d.invoke(ctx, "webapp", func() (*response.Response, error) {
				return handler.Handle(ctx, msg, sess)
			})
		}
	}

	if !msg.CanRespond() {
		return nil, nil
	}
	return response.Text(msg.ChatID, UnknownWebAppText), nil
}

// invoke runs a handler behind the fault boundary. Panics become handler
// errors; both come back wrapped with the handler's identity.
func (d *Dispatcher) invoke(ctx context.Context, name string, fn func() (*response.Response, error)) (resp *response.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic recovered in handler",
				slog.String("handler", name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			resp = nil
			err = apperr.NewHandlerError(name, fmt.Errorf("panic: %v", r))
		}
	}()

	resp, err = fn()
	if err != nil {
		return nil, apperr.NewHandlerError(name, err)
	}

	return resp, nil
}

// UnknownCommand builds the fixed response for a command nobody serves.
func UnknownCommand(msg *update.InboundMessage) *response.Response {
	return response.Text(msg.ChatID, fmt.Sprintf("Unknown command: /%s", msg.Command))
}
