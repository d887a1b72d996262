// Package tenant defines tenant identity and the registry that maps inbound
// routing keys to bot identities.
package tenant

import (
	"context"
	"errors"
)

// ID identifies a single shop tenant. The empty ID denotes the admin bot's
// own namespace.
type ID string

// IsAdmin reports whether the id belongs to the admin namespace.
func (id ID) IsAdmin() bool {
	return id == ""
}

// BotKind distinguishes the roles a bot identity can play on the platform.
type BotKind string

const (
	KindAdmin  BotKind = "admin"
	KindTenant BotKind = "tenant"
	KindDriver BotKind = "driver"
)

// BotIdentity describes a single bot known to the platform. Identities are
// owned by the tenant-management collaborator; the registry only caches them.
type BotIdentity struct {
	TenantID ID      `json:"tenant_id"`
	Token    string  `json:"token"`
	Username string  `json:"username"`
	Kind     BotKind `json:"kind"`
	Active   bool    `json:"active"`
}

// ErrBotNotFound indicates that no active bot identity matches a routing key.
// Callers must treat it as a quiet no-reply outcome, never as a crash.
var ErrBotNotFound = errors.New("no bot registered for routing key")

// Directory supplies bot identities from the tenant-management store.
type Directory interface {
	LookupByRoutingKey(ctx context.Context, key string) (*BotIdentity, error)
	ListActiveTenants(ctx context.Context) ([]BotIdentity, error)
}
