package domain

import "time"

// Shop is a florist's storefront. Each active shop with a bot token gets
// its own Telegram bot instance.
type Shop struct {
	ID          int64
	TenantID    string
	OwnerID     int64
	Name        string
	Description string
	City        string
	Address     string
	Hours       string
	BotToken    string
	BotUsername string
	Active      bool
	CreatedAt   time.Time
}
