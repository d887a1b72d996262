// Package response defines the canonical outbound response handlers return
// and the transport delivers.
package response

import telebot "gopkg.in/telebot.v3"

// ActionKind enumerates the delivery directives the transport understands.
type ActionKind string

const (
	ActionSend           ActionKind = "send"
	ActionEdit           ActionKind = "edit"
	ActionDelete         ActionKind = "delete"
	ActionAnswerCallback ActionKind = "answer_callback"
)

// Action is a single delivery directive.
type Action struct {
	Kind      ActionKind
	ChatID    int64
	MessageID int
	Text      string
	// CallbackID identifies the callback query to acknowledge for
	// ActionAnswerCallback.
	CallbackID string
	Markup     *telebot.ReplyMarkup
}

// Response pairs one primary action with zero or more auxiliary actions.
// Auxiliaries run after the primary, in order, best-effort: a failed
// auxiliary never rolls back or retries the primary.
type Response struct {
	Primary   Action
	Auxiliary []Action
}

// Text builds a response that sends text to a chat.
func Text(chatID int64, text string) *Response {
	return &Response{
		Primary: Action{Kind: ActionSend, ChatID: chatID, Text: text},
	}
}

// EditText builds a response that edits an existing message's text.
func EditText(chatID int64, messageID int, text string) *Response {
	return &Response{
		Primary: Action{Kind: ActionEdit, ChatID: chatID, MessageID: messageID, Text: text},
	}
}

// WithMarkup attaches reply markup to the primary action.
func (r *Response) WithMarkup(markup *telebot.ReplyMarkup) *Response {
	r.Primary.Markup = markup
	return r
}

// AddAction appends an auxiliary action, preserving order.
func (r *Response) AddAction(a Action) *Response {
	r.Auxiliary = append(r.Auxiliary, a)
	return r
}

// AnswerCallback builds the auxiliary action acknowledging a callback query.
func AnswerCallback(callbackID, text string) Action {
	return Action{Kind: ActionAnswerCallback, CallbackID: callbackID, Text: text}
}
