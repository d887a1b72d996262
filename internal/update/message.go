// Package update converts raw Telegram updates into the canonical inbound
// message the dispatcher routes on.
package update

import "github.com/floramarket/florabot/internal/tenant"

// Kind classifies an inbound message. Exactly one kind applies per message.
type Kind string

const (
	KindCommand       Kind = "command"
	KindText          Kind = "text"
	KindCallbackQuery Kind = "callback_query"
	KindWebAppData    Kind = "web_app_data"
	KindPhoto         Kind = "photo"
	KindDocument      Kind = "document"
	KindLocation      Kind = "location"
	KindContact       Kind = "contact"
	KindSticker       Kind = "sticker"
	KindVoice         Kind = "voice"
	KindUnknown       Kind = "unknown"
)

// InboundMessage is the canonical, immutable form of a provider event.
// Exactly one of Command, CallbackData, and WebAppPayload is populated,
// consistent with Kind. A zero ChatID means the event is unroutable and no
// reply can be addressed.
type InboundMessage struct {
	TenantID tenant.ID
	ChatID   int64
	UserID   int64
	Kind     Kind

	RawText string

	// Command is the token after "/", kept exactly as the user typed it.
	// Case normalization is deliberately not applied.
	Command     string
	CommandArgs []string

	CallbackData string
	// CallbackID is needed to acknowledge the callback with the provider.
	CallbackID string

	WebAppPayload string

	Metadata map[string]string
}

// CanRespond reports whether the message carries a chat to reply into.
func (m *InboundMessage) CanRespond() bool {
	return m.ChatID != 0
}
