package update

import (
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"github.com/floramarket/florabot/internal/tenant"
)

// Normalize converts a raw telebot update into an InboundMessage.
//
// Classification order is a behavioral contract:
//  1. WebApp payload present, regardless of accompanying text
//  2. text starting with "/" -> command
//  3. plain text
//  4. media (photo, document, location, contact, sticker, voice)
//  5. callback query
//  6. unknown
//
// Malformed events with no extractable chat or user come back as KindUnknown
// with a zero ChatID; the dispatcher logs and drops those.
func Normalize(upd *telebot.Update, tenantID tenant.ID) InboundMessage {
	msg := InboundMessage{
		TenantID: tenantID,
		Kind:     KindUnknown,
		Metadata: map[string]string{"update_id": strconv.Itoa(upd.ID)},
	}

	if upd.Callback != nil {
		return normalizeCallback(upd, msg)
	}

	source := upd.Message
	if source == nil {
		source = upd.EditedMessage
	}
	if source == nil {
		return msg
	}

	if source.Chat != nil {
		msg.ChatID = source.Chat.ID
	}
	if source.Sender != nil {
		msg.UserID = source.Sender.ID
		if source.Sender.LanguageCode != "" {
			msg.Metadata["language_code"] = source.Sender.LanguageCode
		}
	}
	msg.RawText = source.Text

	switch {
	case source.WebAppData != nil:
		msg.Kind = KindWebAppData
		msg.WebAppPayload = source.WebAppData.Data
	case strings.HasPrefix(source.Text, "/"):
		msg.Kind = KindCommand
		msg.Command, msg.CommandArgs = splitCommand(source.Text)
	case source.Text != "":
		msg.Kind = KindText
	case source.Photo != nil:
		msg.Kind = KindPhoto
		msg.Metadata["file_id"] = source.Photo.FileID
	case source.Document != nil:
		msg.Kind = KindDocument
		msg.Metadata["file_id"] = source.Document.FileID
	case source.Location != nil:
		msg.Kind = KindLocation
	case source.Contact != nil:
		msg.Kind = KindContact
		msg.Metadata["phone_number"] = source.Contact.PhoneNumber
	case source.Sticker != nil:
		msg.Kind = KindSticker
		msg.Metadata["file_id"] = source.Sticker.FileID
	case source.Voice != nil:
		msg.Kind = KindVoice
		msg.Metadata["file_id"] = source.Voice.FileID
	}

	return msg
}

func normalizeCallback(upd *telebot.Update, msg InboundMessage) InboundMessage {
	cb := upd.Callback

	msg.Kind = KindCallbackQuery
	msg.CallbackData = cb.Data
	msg.CallbackID = cb.ID

	if cb.Sender != nil {
		msg.UserID = cb.Sender.ID
		if cb.Sender.LanguageCode != "" {
			msg.Metadata["language_code"] = cb.Sender.LanguageCode
		}
	}

	// Chat id comes from the message the button was attached to; inline-mode
	// callbacks have none and stay unaddressable.
	if cb.Message != nil && cb.Message.Chat != nil {
		msg.ChatID = cb.Message.Chat.ID
		msg.Metadata["message_id"] = strconv.Itoa(cb.Message.ID)
	}

	return msg
}

// splitCommand parses "/cmd arg1  arg2" into the command token and its args.
// Args are split on whitespace runs; the slice is empty, never nil, when the
// command has no arguments.
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", []string{}
	}

	command := strings.TrimPrefix(fields[0], "/")
	// Strip the @botname suffix Telegram appends in group chats.
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}

	args := fields[1:]
	if args == nil {
		args = []string{}
	}

	return command, args
}
