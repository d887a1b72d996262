package domain

import "time"

// Product is a catalog item belonging to one shop.
type Product struct {
	ID          int64
	ShopID      int64
	CategoryID  int64 // 0 means uncategorized
	Name        string
	Description string
	PriceCents  int64
	Currency    string
	Available   bool
	CreatedAt   time.Time
}

// Category groups products inside one shop's catalog.
type Category struct {
	ID     int64
	ShopID int64
	Name   string
}
