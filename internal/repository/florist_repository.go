package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/floramarket/florabot/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("repository: not found")

// FloristRepository defines persistence operations for registered florists.
type FloristRepository interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*domain.Florist, error)
	Create(ctx context.Context, florist *domain.Florist) error
}

type floristRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewFloristRepository creates a SQL-backed florist repository.
func NewFloristRepository(db *sql.DB, log *slog.Logger) FloristRepository {
	return &floristRepository{db: db, log: log}
}

// FindByTelegramID retrieves a florist by their Telegram identifier.
func (r *floristRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*domain.Florist, error) {
	const query = `
		SELECT id, telegram_id, name, phone, email, city, created_at
		FROM florists
		WHERE telegram_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, telegramID)

	var florist domain.Florist
	if err := row.Scan(
		&florist.ID,
		&florist.TelegramID,
		&florist.Name,
		&florist.Phone,
		&florist.Email,
		&florist.City,
		&florist.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		if r.log != nil {
			r.log.Error("failed to fetch florist", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select florist by telegram id: %w", err)
	}

	return &florist, nil
}

// Create persists a new florist and fills in the generated ID.
func (r *floristRepository) Create(ctx context.Context, florist *domain.Florist) error {
	const query = `
		INSERT INTO florists (telegram_id, name, phone, email, city, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	if err := r.db.QueryRowContext(
		ctx,
		query,
		florist.TelegramID,
		florist.Name,
		florist.Phone,
		florist.Email,
		florist.City,
		florist.CreatedAt,
	).Scan(&florist.ID); err != nil {
		if r.log != nil {
			r.log.Error("failed to create florist", slog.Int64("telegram_id", florist.TelegramID), slog.Any("error", err))
		}
		return fmt.Errorf("insert florist: %w", err)
	}

	return nil
}
