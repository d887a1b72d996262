package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/floramarket/florabot/internal/domain"
)

// ProductRepository defines persistence operations for catalog items.
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	ListAvailable(ctx context.Context, shopID int64, limit, offset int) ([]*domain.Product, error)
	CountAvailable(ctx context.Context, shopID int64) (int, error)
	Create(ctx context.Context, product *domain.Product) error
	SetAvailable(ctx context.Context, id int64, available bool) error
}

type productRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewProductRepository creates a SQL-backed product repository.
func NewProductRepository(db *sql.DB, log *slog.Logger) ProductRepository {
	return &productRepository{db: db, log: log}
}

const productColumns = `
	id, shop_id, COALESCE(category_id, 0), name, description,
	price_cents, currency, available, created_at
`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.ShopID,
		&p.CategoryID,
		&p.Name,
		&p.Description,
		&p.PriceCents,
		&p.Currency,
		&p.Available,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByID retrieves one product.
func (r *productRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)

	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

// ListAvailable returns a page of the shop's sellable products.
func (r *productRepository) ListAvailable(ctx context.Context, shopID int64, limit, offset int) ([]*domain.Product, error) {
	const query = `
		SELECT ` + productColumns + `
		FROM products
		WHERE shop_id = $1 AND available
		ORDER BY id
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, shopID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// CountAvailable returns how many sellable products the shop has.
func (r *productRepository) CountAvailable(ctx context.Context, shopID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE shop_id = $1 AND available`, shopID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

// Create persists a new product and fills in the generated ID.
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	const query = `
		INSERT INTO products (shop_id, category_id, name, description, price_cents, currency, available, created_at)
		VALUES ($1, NULLIF($2, 0), $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		product.ShopID,
		product.CategoryID,
		product.Name,
		product.Description,
		product.PriceCents,
		product.Currency,
		product.Available,
		product.CreatedAt,
	).Scan(&product.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create product", slog.Int64("shop_id", product.ShopID), slog.Any("error", err))
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// SetAvailable toggles whether a product shows up in the catalog.
func (r *productRepository) SetAvailable(ctx context.Context, id int64, available bool) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE products SET available = $2 WHERE id = $1`, id, available,
	); err != nil {
		return fmt.Errorf("update product availability: %w", err)
	}
	return nil
}
