package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/floramarket/florabot/internal/domain"
	"github.com/floramarket/florabot/internal/tenant"
)

// ShopDirectory adapts the shops table to the tenant.Directory lookups the
// bot registry falls back to on cache misses.
type ShopDirectory struct {
	shops ShopRepository
}

// NewShopDirectory wraps a shop repository as a tenant directory.
func NewShopDirectory(shops ShopRepository) *ShopDirectory {
	return &ShopDirectory{shops: shops}
}

var _ tenant.Directory = (*ShopDirectory)(nil)

// LookupByRoutingKey resolves a bot token to the shop that owns it.
func (d *ShopDirectory) LookupByRoutingKey(ctx context.Context, routingKey string) (*tenant.BotIdentity, error) {
	shop, err := d.shops.FindByBotToken(ctx, routingKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, tenant.ErrBotNotFound
		}
		return nil, fmt.Errorf("directory lookup: %w", err)
	}

	identity := identityFromShop(shop)
	return &identity, nil
}

// ListActiveTenants returns identities for every shop whose bot should run.
func (d *ShopDirectory) ListActiveTenants(ctx context.Context) ([]tenant.BotIdentity, error) {
	shops, err := d.shops.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("directory list: %w", err)
	}

	identities := make([]tenant.BotIdentity, 0, len(shops))
	for _, shop := range shops {
		identities = append(identities, identityFromShop(shop))
	}
	return identities, nil
}

func identityFromShop(shop *domain.Shop) tenant.BotIdentity {
	return tenant.BotIdentity{
		TenantID: tenant.ID(shop.TenantID),
		Token:    shop.BotToken,
		Username: shop.BotUsername,
		Kind:     tenant.KindTenant,
		Active:   shop.Active,
	}
}
