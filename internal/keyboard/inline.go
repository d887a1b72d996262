package keyboard

import (
	telebot "gopkg.in/telebot.v3"
)

// Button is a lightweight inline button definition collected by the builder
// before rendering telebot markup.
type Button struct {
	Text   string
	Action string   // Routing prefix handlers register on.
	Args   []string // Encoded into the callback payload after the action.
}

// Btn is shorthand for a Button literal.
func Btn(text, action string, args ...string) Button {
	return Button{Text: text, Action: action, Args: args}
}

// InlineBuilder accumulates rows of buttons before rendering inline markup.
type InlineBuilder struct {
	rows [][]Button
}

// NewInline creates an empty inline keyboard builder.
func NewInline() *InlineBuilder {
	return &InlineBuilder{rows: make([][]Button, 0)}
}

// Row appends a row of buttons. Empty rows are skipped.
func (b *InlineBuilder) Row(buttons ...Button) *InlineBuilder {
	if len(buttons) == 0 {
		return b
	}

	row := make([]Button, len(buttons))
	copy(row, buttons)
	b.rows = append(b.rows, row)
	return b
}

// Build renders the accumulated rows, encoding each button's callback data.
// Oversized payloads fail the whole keyboard rather than silently truncate.
func (b *InlineBuilder) Build() (*telebot.ReplyMarkup, error) {
	inline := make([][]telebot.InlineButton, len(b.rows))
	for i, row := range b.rows {
		inline[i] = make([]telebot.InlineButton, len(row))
		for j, btn := range row {
			data, err := Encode(btn.Action, btn.Args...)
			if err != nil {
				return nil, err
			}
			inline[i][j] = telebot.InlineButton{
				Text: btn.Text,
				Data: data,
			}
		}
	}

	return &telebot.ReplyMarkup{InlineKeyboard: inline}, nil
}
