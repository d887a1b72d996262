package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floramarket/florabot/internal/domain"
	"github.com/floramarket/florabot/internal/tenant"
)

type stubShopRepo struct {
	shops []*domain.Shop
}

func (r *stubShopRepo) FindByID(_ context.Context, id int64) (*domain.Shop, error) {
	for _, s := range r.shops {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

func (r *stubShopRepo) FindByTenantID(_ context.Context, tenantID string) (*domain.Shop, error) {
	for _, s := range r.shops {
		if s.TenantID == tenantID {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

func (r *stubShopRepo) FindByBotToken(_ context.Context, token string) (*domain.Shop, error) {
	for _, s := range r.shops {
		if s.BotToken == token {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

func (r *stubShopRepo) ListByOwner(_ context.Context, ownerID int64) ([]*domain.Shop, error) {
	var out []*domain.Shop
	for _, s := range r.shops {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *stubShopRepo) ListActive(_ context.Context) ([]*domain.Shop, error) {
	var out []*domain.Shop
	for _, s := range r.shops {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *stubShopRepo) Create(_ context.Context, _ *domain.Shop) error { return nil }

func (r *stubShopRepo) SetBotToken(_ context.Context, _ int64, _, _ string) error { return nil }

func (r *stubShopRepo) SetActive(_ context.Context, _ int64, _ bool) error { return nil }

func TestShopDirectory_LookupByRoutingKey(t *testing.T) {
	dir := NewShopDirectory(&stubShopRepo{shops: []*domain.Shop{
		{ID: 1, TenantID: "tenant-1", BotToken: "tok-rose", BotUsername: "rose_bot", Active: true},
	}})

	identity, err := dir.LookupByRoutingKey(context.Background(), "tok-rose")

	require.NoError(t, err)
	assert.Equal(t, tenant.ID("tenant-1"), identity.TenantID)
	assert.Equal(t, tenant.KindTenant, identity.Kind)
	assert.True(t, identity.Active)
}

func TestShopDirectory_LookupUnknownToken(t *testing.T) {
	dir := NewShopDirectory(&stubShopRepo{})

	_, err := dir.LookupByRoutingKey(context.Background(), "tok-ghost")

	assert.ErrorIs(t, err, tenant.ErrBotNotFound)
}

func TestShopDirectory_ListActiveTenants(t *testing.T) {
	dir := NewShopDirectory(&stubShopRepo{shops: []*domain.Shop{
		{ID: 1, TenantID: "tenant-1", BotToken: "tok-rose", Active: true},
		{ID: 2, TenantID: "tenant-2", BotToken: "tok-tulip", Active: true},
	}})

	identities, err := dir.ListActiveTenants(context.Background())

	require.NoError(t, err)
	require.Len(t, identities, 2)
	assert.Equal(t, tenant.ID("tenant-1"), identities[0].TenantID)
	assert.Equal(t, "tok-tulip", identities[1].Token)
}
