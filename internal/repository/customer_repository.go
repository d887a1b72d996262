package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/floramarket/florabot/internal/domain"
)

// CustomerRepository defines persistence operations for shop customers.
type CustomerRepository interface {
	GetOrCreate(ctx context.Context, shopID, telegramID int64, name string) (*domain.Customer, error)
	FindByID(ctx context.Context, id int64) (*domain.Customer, error)
	ListByShop(ctx context.Context, shopID int64) ([]*domain.Customer, error)
}

type customerRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewCustomerRepository creates a SQL-backed customer repository.
func NewCustomerRepository(db *sql.DB, log *slog.Logger) CustomerRepository {
	return &customerRepository{db: db, log: log}
}

// GetOrCreate finds the customer row for this shop and Telegram user,
// inserting one on first contact.
func (r *customerRepository) GetOrCreate(ctx context.Context, shopID, telegramID int64, name string) (*domain.Customer, error) {
	const query = `
		INSERT INTO customers (shop_id, telegram_id, name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (shop_id, telegram_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, shop_id, telegram_id, name, phone, created_at
	`

	var customer domain.Customer
	if err := r.db.QueryRowContext(ctx, query, shopID, telegramID, name, time.Now().UTC()).Scan(
		&customer.ID,
		&customer.ShopID,
		&customer.TelegramID,
		&customer.Name,
		&customer.Phone,
		&customer.CreatedAt,
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to upsert customer",
				slog.Int64("shop_id", shopID),
				slog.Int64("telegram_id", telegramID),
				slog.Any("error", err))
		}
		return nil, fmt.Errorf("upsert customer: %w", err)
	}

	return &customer, nil
}

// ListByShop returns every customer who has ever talked to the shop's bot.
func (r *customerRepository) ListByShop(ctx context.Context, shopID int64) ([]*domain.Customer, error) {
	const query = `
		SELECT id, shop_id, telegram_id, name, phone, created_at
		FROM customers
		WHERE shop_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, shopID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []*domain.Customer
	for rows.Next() {
		var customer domain.Customer
		if err := rows.Scan(
			&customer.ID,
			&customer.ShopID,
			&customer.TelegramID,
			&customer.Name,
			&customer.Phone,
			&customer.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, &customer)
	}

	return customers, rows.Err()
}

// FindByID retrieves one customer.
func (r *customerRepository) FindByID(ctx context.Context, id int64) (*domain.Customer, error) {
	const query = `
		SELECT id, shop_id, telegram_id, name, phone, created_at
		FROM customers
		WHERE id = $1
	`

	var customer domain.Customer
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&customer.ID,
		&customer.ShopID,
		&customer.TelegramID,
		&customer.Name,
		&customer.Phone,
		&customer.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select customer: %w", err)
	}

	return &customer, nil
}
