// Package handlers implements the asynq task handlers for background jobs.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/floramarket/florabot/internal/jobs"
	"github.com/floramarket/florabot/internal/session"
	"github.com/floramarket/florabot/internal/tenant"
	"github.com/floramarket/florabot/pkg/metrics"
)

// SessionSweepHandler purges sessions idle past the configured window, for
// the admin namespace and every active tenant.
type SessionSweepHandler struct {
	store     session.Store
	directory tenant.Directory
	log       *slog.Logger
}

func NewSessionSweepHandler(store session.Store, directory tenant.Directory, log *slog.Logger) *SessionSweepHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SessionSweepHandler{store: store, directory: directory, log: log}
}

func (h *SessionSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.SessionSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "session sweep: failed to decode payload",
			slog.String("task_type", t.Type()), slog.Any("error", err))
		return err
	}

	cutoff := time.Now().Add(-payload.InactivityWindow)

	tenants := []tenant.ID{""}
	active, err := h.directory.ListActiveTenants(ctx)
	if err != nil {
		// Sweep what we can; the admin namespace still gets cleaned.
		h.log.ErrorContext(ctx, "session sweep: listing tenants failed", slog.Any("error", err))
	} else {
		for _, identity := range active {
			tenants = append(tenants, identity.TenantID)
		}
	}

	total := 0
	for _, tenantID := range tenants {
		n, err := h.store.DeleteStale(ctx, tenantID, cutoff)
		if err != nil {
			h.log.ErrorContext(ctx, "session sweep: tenant sweep failed",
				slog.String("tenant_id", string(tenantID)), slog.Any("error", err))
			continue
		}
		total += n
	}

	metrics.RecordSweptSessions(total)
	h.log.InfoContext(ctx, "session sweep finished",
		slog.Int("tenants", len(tenants)),
		slog.Int("swept", total),
		slog.Duration("window", payload.InactivityWindow),
	)

	return nil
}
