package apperr

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/floramarket/florabot/internal/tenant"
	"github.com/floramarket/florabot/pkg/logger"
)

const genericUserMessage = "Sorry, something went wrong. Please try again."

// Handler centralizes error reporting: structured log, optional Sentry event,
// and the text shown to the user.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Handle reports err and returns the user-facing message. An empty message
// means the user should not be notified at all.
func (h *Handler) Handle(ctx context.Context, err error) string {
	if err == nil {
		return ""
	}
	if ctx == nil {
		ctx = context.Background()
	}

	attrs := []any{}
	if tenantID, ok := tenant.FromContext(ctx); ok {
		attrs = append(attrs, slog.String("tenant_id", string(tenantID)))
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		attrs = append(attrs,
			slog.String("code", appErr.Code),
			slog.String("severity", string(appErr.Severity)),
			slog.Bool("retryable", appErr.Retryable),
		)
		if cause := appErr.Unwrap(); cause != nil {
			attrs = append(attrs, slog.Any("cause", cause))
		}

		h.log.Error(appErr.Message, attrs...)

		if h.sentryEnabled && (appErr.Severity == SeverityHigh || appErr.Severity == SeverityCritical) {
			h.sendToSentry(err)
		}

		return appErr.UserMessage
	}

	attrs = append(attrs, slog.Any("error", err))
	h.log.Error("unclassified error", attrs...)

	if h.sentryEnabled {
		h.sendToSentry(err)
	}

	return genericUserMessage
}

func (h *Handler) sendToSentry(err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		var appErr *AppError
		if errors.As(err, &appErr) && appErr != nil {
			if appErr.Code != "" {
				scope.SetTag("code", appErr.Code)
			}
			if appErr.Severity != "" {
				scope.SetTag("severity", string(appErr.Severity))
			}
		}

		sentry.CaptureException(err)
	})
}
