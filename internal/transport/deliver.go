package transport

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	telebot "gopkg.in/telebot.v3"

	"github.com/floramarket/florabot/internal/resilience"
	"github.com/floramarket/florabot/internal/response"
)

// Sender is the slice of telebot.Bot the delivery path needs. Narrowed for
// tests.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	Edit(msg telebot.Editable, what interface{}, opts ...interface{}) (*telebot.Message, error)
	Delete(msg telebot.Editable) error
	Respond(c *telebot.Callback, resp ...*telebot.CallbackResponse) error
}

// Deliver executes a response against the provider. The primary action must
// succeed; auxiliary actions run afterwards in order and their failures are
// swallowed. A nil response or a zero primary delivers nothing.
func Deliver(bot Sender, resp *response.Response) error {
	if resp == nil || resp.Primary.Kind == "" {
		return nil
	}

	// Flood-control errors are worth a few retries; everything else fails
	// the primary immediately.
	err := resilience.WithRetry(context.Background(), transientTelegram, func() error {
		return perform(bot, resp.Primary)
	})
	if err != nil {
		return fmt.Errorf("primary %s: %w", resp.Primary.Kind, err)
	}

	for _, action := range resp.Auxiliary {
		// Best-effort per contract.
		_ = perform(bot, action)
	}

	return nil
}

func perform(bot Sender, a response.Action) error {
	switch a.Kind {
	case response.ActionSend:
		_, err := bot.Send(telebot.ChatID(a.ChatID), a.Text, sendOptions(a)...)
		return err
	case response.ActionEdit:
		_, err := bot.Edit(editable(a), a.Text, sendOptions(a)...)
		return err
	case response.ActionDelete:
		return bot.Delete(editable(a))
	case response.ActionAnswerCallback:
		return bot.Respond(&telebot.Callback{ID: a.CallbackID}, &telebot.CallbackResponse{Text: a.Text})
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
}

func transientTelegram(err error) bool {
	var flood *telebot.FloodError
	return errors.As(err, &flood)
}

func sendOptions(a response.Action) []interface{} {
	if a.Markup == nil {
		return nil
	}
	return []interface{}{a.Markup}
}

func editable(a response.Action) telebot.Editable {
	return &telebot.StoredMessage{
		MessageID: strconv.Itoa(a.MessageID),
		ChatID:    a.ChatID,
	}
}
