package domain

import "time"

// Florist is a registered shop owner on the admin bot.
type Florist struct {
	ID         int64
	TelegramID int64
	Name       string
	Phone      string
	Email      string
	City       string
	CreatedAt  time.Time
}
