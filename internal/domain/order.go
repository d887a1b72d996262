package domain

import "time"

// OrderStatus is the lifecycle state of a customer order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderAccepted  OrderStatus = "accepted"
	OrderCancelled OrderStatus = "cancelled"
	OrderDelivered OrderStatus = "delivered"
)

// Order is a customer's purchase in one shop.
type Order struct {
	ID         int64
	ShopID     int64
	CustomerID int64
	Status     OrderStatus
	TotalCents int64
	Currency   string
	Comment    string
	CreatedAt  time.Time
	Items      []OrderItem
}

// OrderItem is one product line inside an order. Name and price are
// copied at order time so later catalog edits do not rewrite history.
type OrderItem struct {
	ID         int64
	OrderID    int64
	ProductID  int64
	Name       string
	PriceCents int64
	Quantity   int
}

// Customer is a shop-scoped buyer identity. The same Telegram user gets
// one customer row per shop they interact with.
type Customer struct {
	ID         int64
	ShopID     int64
	TelegramID int64
	Name       string
	Phone      string
	CreatedAt  time.Time
}
