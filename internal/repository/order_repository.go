package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/floramarket/florabot/internal/domain"
)

// OrderRepository defines persistence operations for customer orders.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByCustomer(ctx context.Context, shopID, customerID int64, limit int) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
}

type orderRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewOrderRepository creates a SQL-backed order repository.
func NewOrderRepository(db *sql.DB, log *slog.Logger) OrderRepository {
	return &orderRepository{db: db, log: log}
}

// Create persists an order together with its items in one transaction.
func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin order transaction: %w", err)
	}

	const orderQuery = `
		INSERT INTO orders (shop_id, customer_id, status, total_cents, currency, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err = tx.QueryRowContext(
		ctx,
		orderQuery,
		order.ShopID,
		order.CustomerID,
		order.Status,
		order.TotalCents,
		order.Currency,
		order.Comment,
		order.CreatedAt,
	).Scan(&order.ID)
	if err != nil {
		rollback(tx, r.log)
		return fmt.Errorf("insert order: %w", err)
	}

	const itemQuery = `
		INSERT INTO order_items (order_id, product_id, name, price_cents, quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		if err := tx.QueryRowContext(
			ctx,
			itemQuery,
			item.OrderID,
			item.ProductID,
			item.Name,
			item.PriceCents,
			item.Quantity,
		).Scan(&item.ID); err != nil {
			rollback(tx, r.log)
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}

	return nil
}

// FindByID retrieves an order with its items.
func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	const query = `
		SELECT id, shop_id, customer_id, status, total_cents, currency, comment, created_at
		FROM orders
		WHERE id = $1
	`

	var order domain.Order
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.ShopID,
		&order.CustomerID,
		&order.Status,
		&order.TotalCents,
		&order.Currency,
		&order.Comment,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	items, err := r.itemsFor(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

// ListByCustomer returns the customer's latest orders, without items.
func (r *orderRepository) ListByCustomer(ctx context.Context, shopID, customerID int64, limit int) ([]*domain.Order, error) {
	const query = `
		SELECT id, shop_id, customer_id, status, total_cents, currency, comment, created_at
		FROM orders
		WHERE shop_id = $1 AND customer_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, shopID, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.ShopID,
			&order.CustomerID,
			&order.Status,
			&order.TotalCents,
			&order.Currency,
			&order.Comment,
			&order.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	return orders, nil
}

// UpdateStatus moves an order to a new lifecycle state.
func (r *orderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`, id, status,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *orderRepository) itemsFor(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	const query = `
		SELECT id, order_id, product_id, name, price_cents, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.PriceCents,
			&item.Quantity,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return items, nil
}

func rollback(tx *sql.Tx, log *slog.Logger) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		if log != nil {
			log.Error("rollback error", slog.Any("error", err))
		}
	}
}
