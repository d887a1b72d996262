package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"
)

func textUpdate(text string) *telebot.Update {
	return &telebot.Update{
		ID: 1001,
		Message: &telebot.Message{
			ID:     55,
			Text:   text,
			Chat:   &telebot.Chat{ID: 7700},
			Sender: &telebot.User{ID: 42, LanguageCode: "en"},
		},
	}
}

func TestNormalize_Command(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		command  string
		args     []string
	}{
		{name: "bare command", text: "/start", command: "start", args: []string{}},
		{name: "command with args", text: "/addproduct Red Roses 25", command: "addproduct", args: []string{"Red", "Roses", "25"}},
		{name: "whitespace runs collapse", text: "/addproduct   Red   Roses", command: "addproduct", args: []string{"Red", "Roses"}},
		{name: "case is preserved", text: "/MyShops", command: "MyShops", args: []string{}},
		{name: "botname suffix stripped", text: "/start@rose_corner_bot", command: "start", args: []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := Normalize(textUpdate(tc.text), "rose-corner")

			assert.Equal(t, KindCommand, msg.Kind)
			assert.Equal(t, tc.command, msg.Command)
			require.NotNil(t, msg.CommandArgs)
			assert.Equal(t, tc.args, msg.CommandArgs)
			assert.Empty(t, msg.CallbackData)
			assert.Empty(t, msg.WebAppPayload)
			assert.Equal(t, int64(7700), msg.ChatID)
			assert.Equal(t, int64(42), msg.UserID)
		})
	}
}

func TestNormalize_PlainText(t *testing.T) {
	msg := Normalize(textUpdate("two dozen tulips please"), "rose-corner")

	assert.Equal(t, KindText, msg.Kind)
	assert.Equal(t, "two dozen tulips please", msg.RawText)
	assert.Empty(t, msg.Command)
}

func TestNormalize_WebAppBeatsText(t *testing.T) {
	upd := textUpdate("/checkout")
	upd.Message.WebAppData = &telebot.WebAppData{Data: `{"items":[{"sku":"rose-red","qty":12}]}`}

	msg := Normalize(upd, "rose-corner")

	assert.Equal(t, KindWebAppData, msg.Kind)
	assert.Equal(t, `{"items":[{"sku":"rose-red","qty":12}]}`, msg.WebAppPayload)
	assert.Empty(t, msg.Command)
	assert.Empty(t, msg.CallbackData)

	// Repeated normalization of the same raw event classifies identically.
	again := Normalize(upd, "rose-corner")
	assert.Equal(t, msg.Kind, again.Kind)
	assert.Equal(t, msg.WebAppPayload, again.WebAppPayload)
}

func TestNormalize_Media(t *testing.T) {
	upd := textUpdate("")
	upd.Message.Photo = &telebot.Photo{File: telebot.File{FileID: "photo-123"}}

	msg := Normalize(upd, "rose-corner")
	assert.Equal(t, KindPhoto, msg.Kind)
	assert.Equal(t, "photo-123", msg.Metadata["file_id"])

	upd = textUpdate("")
	upd.Message.Contact = &telebot.Contact{PhoneNumber: "+15550100"}

	msg = Normalize(upd, "rose-corner")
	assert.Equal(t, KindContact, msg.Kind)
	assert.Equal(t, "+15550100", msg.Metadata["phone_number"])
}

func TestNormalize_Callback(t *testing.T) {
	upd := &telebot.Update{
		ID: 1002,
		Callback: &telebot.Callback{
			ID:     "cb-77",
			Data:   "order:cancel:123",
			Sender: &telebot.User{ID: 42},
			Message: &telebot.Message{
				ID:   88,
				Chat: &telebot.Chat{ID: 7700},
			},
		},
	}

	msg := Normalize(upd, "rose-corner")

	assert.Equal(t, KindCallbackQuery, msg.Kind)
	assert.Equal(t, "order:cancel:123", msg.CallbackData)
	assert.Equal(t, "cb-77", msg.CallbackID)
	assert.Equal(t, int64(7700), msg.ChatID)
	assert.Equal(t, int64(42), msg.UserID)
	assert.Equal(t, "88", msg.Metadata["message_id"])
}

func TestNormalize_CallbackWithoutMessageHasNoChat(t *testing.T) {
	upd := &telebot.Update{
		Callback: &telebot.Callback{ID: "cb-1", Data: "noop", Sender: &telebot.User{ID: 42}},
	}

	msg := Normalize(upd, "")
	assert.Equal(t, KindCallbackQuery, msg.Kind)
	assert.False(t, msg.CanRespond())
}

func TestNormalize_MalformedUpdate(t *testing.T) {
	msg := Normalize(&telebot.Update{ID: 9}, "rose-corner")

	assert.Equal(t, KindUnknown, msg.Kind)
	assert.False(t, msg.CanRespond())
	assert.Equal(t, "9", msg.Metadata["update_id"])
}

func TestNormalize_ExactlyOnePayloadPopulated(t *testing.T) {
	command := Normalize(textUpdate("/start"), "")
	callback := Normalize(&telebot.Update{Callback: &telebot.Callback{Data: "x"}}, "")
	webapp := textUpdate("")
	webapp.Message.WebAppData = &telebot.WebAppData{Data: "{}"}
	web := Normalize(webapp, "")

	for name, msg := range map[string]InboundMessage{"command": command, "callback": callback, "webapp": web} {
		populated := 0
		if msg.Command != "" {
			populated++
		}
		if msg.CallbackData != "" {
			populated++
		}
		if msg.WebAppPayload != "" {
			populated++
		}
		assert.Equal(t, 1, populated, name)
	}
}
