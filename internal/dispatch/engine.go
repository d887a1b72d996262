package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/floramarket/florabot/internal/apperr"
	"github.com/floramarket/florabot/internal/response"
	"github.com/floramarket/florabot/internal/session"
	"github.com/floramarket/florabot/internal/tenant"
	"github.com/floramarket/florabot/internal/update"
	"github.com/floramarket/florabot/pkg/logger"
	"github.com/floramarket/florabot/pkg/metrics"
)

// Filter inspects a normalized message before the session is loaded. A
// non-nil response short-circuits the turn (rate limit notices), a non-nil
// error drops it, and nil/nil lets the turn proceed.
type Filter func(ctx context.Context, msg *update.InboundMessage) (*response.Response, error)

// Engine runs one inbound update through the full pipeline: tenant
// resolution, normalization, filters, per-key locking, session load,
// dispatch, and save-on-success persistence.
type Engine struct {
	bots       *tenant.Registry
	store      session.Store
	locks      *session.KeyedLock
	dispatcher *Dispatcher
	errHandler *apperr.Handler
	filters    []Filter
	log        *slog.Logger
}

// NewEngine wires the dispatch pipeline.
func NewEngine(
	bots *tenant.Registry,
	store session.Store,
	dispatcher *Dispatcher,
	errHandler *apperr.Handler,
	log *slog.Logger,
	filters ...Filter,
) *Engine {
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		bots:       bots,
		store:      store,
		locks:      session.NewKeyedLock(),
		dispatcher: dispatcher,
		errHandler: errHandler,
		filters:    filters,
		log:        log,
	}
}

// Process handles one raw update addressed by routingKey. The returned
// response is what the transport should deliver; nil means stay silent.
// A returned error means the turn failed before a reply could be built and
// surfaces to the transport as a delivery failure.
func (e *Engine) Process(ctx context.Context, routingKey string, upd *telebot.Update) (*response.Response, error) {
	identity, err := e.bots.Resolve(ctx, routingKey)
	if err != nil {
		// Unknown or inactive bot: log and stay silent, never crash the loop.
		e.errHandler.Handle(ctx, apperr.NewRoutingError(routingKey))
		return nil, nil
	}

	ctx = tenant.NewContext(ctx, identity.TenantID)
	ctx = logger.WithCorrelationID(ctx)

	msg := update.Normalize(upd, identity.TenantID)

	if msg.UserID == 0 {
		e.log.Info("dropping unroutable update",
			slog.String("kind", string(msg.Kind)),
			slog.String("update_id", msg.Metadata["update_id"]),
		)
		return nil, nil
	}

	for _, filter := range e.filters {
		resp, err := filter(ctx, &msg)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
	}

	start := time.Now()
	resp, err := e.processTurn(ctx, identity, &msg)
	metrics.RecordDispatch(string(msg.Kind), statusLabel(err), time.Since(start))

	return resp, err
}

// processTurn holds the per-key lock for the whole read-modify-write cycle.
func (e *Engine) processTurn(ctx context.Context, identity *tenant.BotIdentity, msg *update.InboundMessage) (*response.Response, error) {
	if err := e.locks.Acquire(ctx, msg.TenantID, msg.UserID); err != nil {
		return nil, err
	}
	defer e.locks.Release(msg.TenantID, msg.UserID)

	sess, err := e.store.GetOrCreate(ctx, msg.TenantID, msg.UserID)
	if err != nil {
		// No session context exists to build a safe reply from, so the
		// turn surfaces as a delivery failure rather than a user message.
		storeErr := apperr.NewSessionStoreError(err)
		e.errHandler.Handle(ctx, storeErr)
		return nil, storeErr
	}

	if sess.Language == "" {
		if code, ok := msg.Metadata["language_code"]; ok {
			sess.Language = code
		}
	}

	// Handlers mutate a copy; the pre-turn snapshot stays untouched so a
	// failed turn leaves no partial state behind.
	work := sess.Clone()

	resp, err := e.dispatcher.Dispatch(ctx, identity.Kind, msg, work)
	if err != nil {
		userMsg := e.errHandler.Handle(ctx, err)
		if !msg.CanRespond() {
			return nil, nil
		}
		if userMsg == "" {
			userMsg = GenericErrorText
		}
		return response.Text(msg.ChatID, userMsg), nil
	}

	if err := e.store.Save(ctx, work); err != nil {
		storeErr := apperr.NewSessionStoreError(err)
		e.errHandler.Handle(ctx, storeErr)
		return nil, storeErr
	}
	metrics.RecordSessionState(string(sess.State), string(work.State))

	return resp, nil
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "error"
}
