package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Registry resolves inbound routing keys (bot tokens) to bot identities.
// It keeps an in-memory cache fed by the directory and by explicit
// registration calls, and falls back to the directory on cache misses.
type Registry struct {
	mu        sync.RWMutex
	byKey     map[string]*BotIdentity
	byTenant  map[ID]*BotIdentity
	admin     *BotIdentity
	directory Directory
	log       *slog.Logger
}

// NewRegistry builds a Registry backed by the provided directory.
func NewRegistry(directory Directory, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}

	return &Registry{
		byKey:     make(map[string]*BotIdentity),
		byTenant:  make(map[ID]*BotIdentity),
		directory: directory,
		log:       log,
	}
}

// Resolve maps a routing key to an active bot identity. Unknown or inactive
// keys yield ErrBotNotFound so the dispatch loop can drop the update quietly.
func (r *Registry) Resolve(ctx context.Context, routingKey string) (*BotIdentity, error) {
	if routingKey == "" {
		return nil, ErrBotNotFound
	}

	r.mu.RLock()
	identity := r.byKey[routingKey]
	r.mu.RUnlock()

	if identity != nil {
		if !identity.Active {
			return nil, ErrBotNotFound
		}
		copied := *identity
		return &copied, nil
	}

	if r.directory == nil {
		return nil, ErrBotNotFound
	}

	found, err := r.directory.LookupByRoutingKey(ctx, routingKey)
	if err != nil {
		if !errors.Is(err, ErrBotNotFound) {
			r.log.Error("directory lookup failed", slog.Any("error", err))
		}
		return nil, ErrBotNotFound
	}
	if found == nil || !found.Active {
		return nil, ErrBotNotFound
	}

	r.RegisterActive(*found)

	copied := *found
	return &copied, nil
}

// RefreshActive pulls every active identity from the directory into the
// cache and returns the snapshot, so callers can bring up one bot per
// tenant without waiting for inbound traffic to warm the cache.
func (r *Registry) RefreshActive(ctx context.Context) ([]BotIdentity, error) {
	if r.directory == nil {
		return nil, nil
	}

	identities, err := r.directory.ListActiveTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh active tenants: %w", err)
	}

	for _, identity := range identities {
		if identity.Active {
			r.RegisterActive(identity)
		}
	}

	return r.ActiveIdentities(), nil
}

// RegisterActive caches an identity as the active bot for its tenant.
// Exactly one admin identity exists at a time; registering a new admin
// replaces the previous one. At most one active identity exists per tenant.
func (r *Registry) RegisterActive(identity BotIdentity) {
	identity.Active = true

	r.mu.Lock()
	defer r.mu.Unlock()

	if identity.Kind == KindAdmin {
		if r.admin != nil {
			delete(r.byKey, r.admin.Token)
		}
		r.admin = &identity
	} else if prev := r.byTenant[identity.TenantID]; prev != nil {
		delete(r.byKey, prev.Token)
	}

	r.byKey[identity.Token] = &identity
	if identity.Kind != KindAdmin {
		r.byTenant[identity.TenantID] = &identity
	}

	r.log.Info("bot identity registered",
		slog.String("tenant_id", string(identity.TenantID)),
		slog.String("kind", string(identity.Kind)),
		slog.String("username", identity.Username),
	)
}

// Deactivate removes the active identity for a tenant. Subsequent Resolve
// calls for its routing key return ErrBotNotFound.
func (r *Registry) Deactivate(tenantID ID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity := r.byTenant[tenantID]
	if identity == nil {
		return
	}

	delete(r.byKey, identity.Token)
	delete(r.byTenant, tenantID)

	r.log.Info("bot identity deactivated", slog.String("tenant_id", string(tenantID)))
}

// Admin returns the current admin identity, or nil when none is registered.
func (r *Registry) Admin() *BotIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.admin == nil {
		return nil
	}

	copied := *r.admin
	return &copied
}

// ActiveIdentities returns a snapshot of all cached non-admin identities.
func (r *Registry) ActiveIdentities() []BotIdentity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identities := make([]BotIdentity, 0, len(r.byTenant))
	for _, identity := range r.byTenant {
		identities = append(identities, *identity)
	}

	return identities
}
