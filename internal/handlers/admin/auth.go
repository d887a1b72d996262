// Package admin implements the handler set for the platform's admin bot,
// where florists register and manage their shops.
package admin

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/floramarket/florabot/internal/dispatch"
	"github.com/floramarket/florabot/internal/repository"
	"github.com/floramarket/florabot/internal/session"
	"github.com/floramarket/florabot/internal/update"
)

// floristIDAttr caches the florist's database id on the session so the auth
// predicate hits the database once per session, not once per turn.
const floristIDAttr = "florist_id"

// NewAuthPredicate gates owner-only commands on a completed registration.
func NewAuthPredicate(florists repository.FloristRepository, log *slog.Logger) dispatch.AuthPredicate {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, msg *update.InboundMessage, sess *session.Session) bool {
		if _, ok := sess.Attribute(floristIDAttr); ok {
			return true
		}

		florist, err := florists.FindByTelegramID(ctx, msg.UserID)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				log.Error("auth lookup failed", slog.Int64("user_id", msg.UserID), slog.Any("error", err))
			}
			return false
		}

		sess.SetAttribute(floristIDAttr, strconv.FormatInt(florist.ID, 10))
		return true
	}
}

// floristID reads the cached database id from the session.
func floristID(sess *session.Session) (int64, bool) {
	raw, ok := sess.Attribute(floristIDAttr)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
