package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/floramarket/florabot/internal/domain"
)

// ShopRepository defines persistence operations for shops.
type ShopRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Shop, error)
	FindByTenantID(ctx context.Context, tenantID string) (*domain.Shop, error)
	FindByBotToken(ctx context.Context, token string) (*domain.Shop, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Shop, error)
	ListActive(ctx context.Context) ([]*domain.Shop, error)
	Create(ctx context.Context, shop *domain.Shop) error
	SetBotToken(ctx context.Context, id int64, token, username string) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type shopRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewShopRepository creates a SQL-backed shop repository.
func NewShopRepository(db *sql.DB, log *slog.Logger) ShopRepository {
	return &shopRepository{db: db, log: log}
}

const shopColumns = `
	id, tenant_id, owner_id, name, description, city, address, hours,
	bot_token, bot_username, active, created_at
`

func scanShop(row interface{ Scan(...any) error }) (*domain.Shop, error) {
	var shop domain.Shop
	err := row.Scan(
		&shop.ID,
		&shop.TenantID,
		&shop.OwnerID,
		&shop.Name,
		&shop.Description,
		&shop.City,
		&shop.Address,
		&shop.Hours,
		&shop.BotToken,
		&shop.BotUsername,
		&shop.Active,
		&shop.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *shopRepository) findOne(ctx context.Context, query string, arg any) (*domain.Shop, error) {
	shop, err := scanShop(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select shop: %w", err)
	}
	return shop, nil
}

// FindByID retrieves a shop by its primary key.
func (r *shopRepository) FindByID(ctx context.Context, id int64) (*domain.Shop, error) {
	return r.findOne(ctx, `SELECT `+shopColumns+` FROM shops WHERE id = $1`, id)
}

// FindByTenantID retrieves a shop by its tenant identifier.
func (r *shopRepository) FindByTenantID(ctx context.Context, tenantID string) (*domain.Shop, error) {
	return r.findOne(ctx, `SELECT `+shopColumns+` FROM shops WHERE tenant_id = $1`, tenantID)
}

// FindByBotToken retrieves a shop by its Telegram bot token.
func (r *shopRepository) FindByBotToken(ctx context.Context, token string) (*domain.Shop, error) {
	return r.findOne(ctx, `SELECT `+shopColumns+` FROM shops WHERE bot_token = $1`, token)
}

func (r *shopRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Shop, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select shops: %w", err)
	}
	defer rows.Close()

	var shops []*domain.Shop
	for rows.Next() {
		shop, err := scanShop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, shop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shops: %w", err)
	}

	return shops, nil
}

// ListByOwner returns all shops belonging to one florist, newest first.
func (r *shopRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Shop, error) {
	return r.list(ctx, `SELECT `+shopColumns+` FROM shops WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
}

// ListActive returns all shops that have a bot token and are switched on.
func (r *shopRepository) ListActive(ctx context.Context) ([]*domain.Shop, error) {
	return r.list(ctx, `SELECT `+shopColumns+` FROM shops WHERE active AND bot_token <> '' ORDER BY id`)
}

// Create persists a new shop and fills in the generated ID.
func (r *shopRepository) Create(ctx context.Context, shop *domain.Shop) error {
	const query = `
		INSERT INTO shops (tenant_id, owner_id, name, description, city, address, hours,
			bot_token, bot_username, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		shop.TenantID,
		shop.OwnerID,
		shop.Name,
		shop.Description,
		shop.City,
		shop.Address,
		shop.Hours,
		shop.BotToken,
		shop.BotUsername,
		shop.Active,
		shop.CreatedAt,
	).Scan(&shop.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create shop", slog.String("tenant_id", shop.TenantID), slog.Any("error", err))
		}
		return fmt.Errorf("insert shop: %w", err)
	}

	return nil
}

// SetBotToken stores the bot credentials for a shop.
func (r *shopRepository) SetBotToken(ctx context.Context, id int64, token, username string) error {
	const query = `UPDATE shops SET bot_token = $2, bot_username = $3 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, token, username); err != nil {
		return fmt.Errorf("update shop bot token: %w", err)
	}
	return nil
}

// SetActive toggles whether the shop's bot should be running.
func (r *shopRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE shops SET active = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, active); err != nil {
		return fmt.Errorf("update shop active flag: %w", err)
	}
	return nil
}
