// Package transport runs one telebot instance per active bot identity and
// bridges raw Telegram updates into the dispatch engine.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/floramarket/florabot/internal/dispatch"
	"github.com/floramarket/florabot/internal/resilience"
	"github.com/floramarket/florabot/internal/tenant"
	"github.com/floramarket/florabot/pkg/config"
	"github.com/floramarket/florabot/pkg/metrics"
)

// processTimeout bounds one update's trip through the dispatch pipeline.
const processTimeout = 30 * time.Second

// endpoints lists every telebot event the engine knows how to normalize.
var endpoints = []string{
	telebot.OnText,
	telebot.OnContact,
	telebot.OnLocation,
	telebot.OnPhoto,
	telebot.OnDocument,
	telebot.OnSticker,
	telebot.OnVoice,
	telebot.OnCallback,
	telebot.OnWebApp,
}

// Manager owns the fleet of polling bots: the single admin bot plus one bot
// per active shop tenant.
type Manager struct {
	cfg      config.BotConfig
	engine   *dispatch.Engine
	registry *tenant.Registry
	log      *slog.Logger

	mu      sync.Mutex
	runners map[tenant.ID]*runner
}

// NewManager creates the transport manager.
func NewManager(cfg config.BotConfig, engine *dispatch.Engine, registry *tenant.Registry, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cfg:      cfg,
		engine:   engine,
		registry: registry,
		log:      log,
		runners:  make(map[tenant.ID]*runner),
	}
}

// Start brings up the admin bot and one bot per active tenant from the
// directory. Tenant bots that fail to start are logged and skipped; the
// admin bot is mandatory.
func (m *Manager) Start(ctx context.Context) error {
	admin := tenant.BotIdentity{
		TenantID: "",
		Token:    m.cfg.AdminToken,
		Username: m.cfg.AdminUsername,
		Kind:     tenant.KindAdmin,
		Active:   true,
	}

	if err := m.StartIdentity(admin); err != nil {
		return fmt.Errorf("start admin bot: %w", err)
	}

	identities, err := m.registry.RefreshActive(ctx)
	if err != nil {
		return fmt.Errorf("load active tenants: %w", err)
	}

	for _, identity := range identities {
		if err := m.StartIdentity(identity); err != nil {
			m.log.Error("tenant bot failed to start",
				slog.String("tenant_id", string(identity.TenantID)),
				slog.Any("error", err),
			)
		}
	}

	return nil
}

// StartIdentity launches the polling loop for one identity and registers it
// for update routing. Starting an identity whose tenant already runs
// replaces the old runner.
func (m *Manager) StartIdentity(identity tenant.BotIdentity) error {
	r, err := m.newRunner(identity)
	if err != nil {
		return err
	}

	m.registry.RegisterActive(identity)

	m.mu.Lock()
	if prev := m.runners[identity.TenantID]; prev != nil {
		prev.bot.Stop()
	}
	m.runners[identity.TenantID] = r
	count := len(m.runners)
	m.mu.Unlock()

	go r.bot.Start()
	metrics.SetActiveBots(count)

	m.log.Info("bot started",
		slog.String("tenant_id", string(identity.TenantID)),
		slog.String("kind", string(identity.Kind)),
		slog.String("username", identity.Username),
	)
	return nil
}

// StopTenant stops the runner for one tenant and drops its registry entry.
func (m *Manager) StopTenant(tenantID tenant.ID) {
	m.mu.Lock()
	r := m.runners[tenantID]
	delete(m.runners, tenantID)
	count := len(m.runners)
	m.mu.Unlock()

	if r == nil {
		return
	}

	r.bot.Stop()
	m.registry.Deactivate(tenantID)
	metrics.SetActiveBots(count)

	m.log.Info("bot stopped", slog.String("tenant_id", string(tenantID)))
}

// Stop shuts down every runner.
func (m *Manager) Stop() {
	m.mu.Lock()
	runners := make([]*runner, 0, len(m.runners))
	for _, r := range m.runners {
		runners = append(runners, r)
	}
	m.runners = make(map[tenant.ID]*runner)
	m.mu.Unlock()

	for _, r := range runners {
		r.bot.Stop()
	}
	metrics.SetActiveBots(0)

	m.log.Info("all bots stopped", slog.Int("count", len(runners)))
}

// RunningCount reports how many bot instances are currently polling.
func (m *Manager) RunningCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runners)
}

// Send delivers a plain text message through the tenant's running bot.
// Used by background jobs; interactive replies go through Deliver.
func (m *Manager) Send(tenantID tenant.ID, chatID int64, text string) error {
	m.mu.Lock()
	r := m.runners[tenantID]
	m.mu.Unlock()

	if r == nil {
		return fmt.Errorf("no running bot for tenant %q", tenantID)
	}

	_, err := r.bot.Send(telebot.ChatID(chatID), text)
	return err
}

// runner binds one telebot instance to its identity. The breaker stops a
// tenant bot from hammering the Telegram API when deliveries keep failing.
type runner struct {
	identity tenant.BotIdentity
	bot      *telebot.Bot
	breaker  *resilience.CircuitBreaker
}

func (m *Manager) newRunner(identity tenant.BotIdentity) (*runner, error) {
	settings := telebot.Settings{Token: identity.Token}

	if m.cfg.Mode == "webhook" {
		settings.Poller = &telebot.Webhook{Listen: m.cfg.WebhookListen}
	} else {
		settings.Poller = &telebot.LongPoller{Timeout: m.cfg.PollTimeout}
	}

	bot, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot for tenant %q: %w", identity.TenantID, err)
	}

	r := &runner{identity: identity, bot: bot, breaker: resilience.NewCircuitBreaker()}

	handle := m.handlerFor(r)
	for _, endpoint := range endpoints {
		bot.Handle(endpoint, handle)
	}

	return r, nil
}

// handlerFor adapts every telebot event into one engine.Process call. The
// bot token doubles as the routing key, so the engine re-resolves the tenant
// on each update and deactivated bots go quiet without a restart.
func (m *Manager) handlerFor(r *runner) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
		defer cancel()

		upd := c.Update()
		resp, err := m.engine.Process(ctx, r.identity.Token, &upd)
		if err != nil {
			m.log.Error("update processing failed",
				slog.String("tenant_id", string(r.identity.TenantID)),
				slog.Any("error", err),
			)
			return nil
		}

		if err := r.breaker.Call(func() error { return Deliver(r.bot, resp) }); err != nil {
			m.log.Error("delivery failed",
				slog.String("tenant_id", string(r.identity.TenantID)),
				slog.Any("error", err),
			)
		}
		return nil
	}
}
