package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floramarket/florabot/internal/domain"
	"github.com/floramarket/florabot/internal/i18n"
	"github.com/floramarket/florabot/internal/jobs"
	"github.com/floramarket/florabot/internal/repository"
	"github.com/floramarket/florabot/internal/session"
	"github.com/floramarket/florabot/internal/tenant"
	"github.com/floramarket/florabot/internal/update"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeFloristRepo struct {
	florists map[int64]*domain.Florist
}

func (r *fakeFloristRepo) FindByTelegramID(_ context.Context, telegramID int64) (*domain.Florist, error) {
	if f, ok := r.florists[telegramID]; ok {
		return f, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeFloristRepo) Create(_ context.Context, f *domain.Florist) error {
	f.ID = int64(len(r.florists) + 1)
	if r.florists == nil {
		r.florists = make(map[int64]*domain.Florist)
	}
	r.florists[f.TelegramID] = f
	return nil
}

type fakeShopRepo struct {
	shops []*domain.Shop
}

func (r *fakeShopRepo) FindByID(_ context.Context, id int64) (*domain.Shop, error) {
	for _, s := range r.shops {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeShopRepo) FindByTenantID(context.Context, string) (*domain.Shop, error) {
	return nil, repository.ErrNotFound
}

func (r *fakeShopRepo) FindByBotToken(context.Context, string) (*domain.Shop, error) {
	return nil, repository.ErrNotFound
}

func (r *fakeShopRepo) ListByOwner(_ context.Context, ownerID int64) ([]*domain.Shop, error) {
	var out []*domain.Shop
	for _, s := range r.shops {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeShopRepo) ListActive(context.Context) ([]*domain.Shop, error) { return nil, nil }

func (r *fakeShopRepo) Create(_ context.Context, s *domain.Shop) error {
	s.ID = int64(len(r.shops) + 1)
	r.shops = append(r.shops, s)
	return nil
}

func (r *fakeShopRepo) SetBotToken(_ context.Context, id int64, token, username string) error {
	for _, s := range r.shops {
		if s.ID == id {
			s.BotToken = token
			s.BotUsername = username
		}
	}
	return nil
}

func (r *fakeShopRepo) SetActive(_ context.Context, id int64, active bool) error {
	for _, s := range r.shops {
		if s.ID == id {
			s.Active = active
		}
	}
	return nil
}

type fakeFleet struct {
	started []tenant.BotIdentity
	stopped []tenant.ID
	err     error
}

func (f *fakeFleet) StartIdentity(identity tenant.BotIdentity) error {
	if f.err != nil {
		return f.err
	}
	f.started = append(f.started, identity)
	return nil
}

func (f *fakeFleet) StopTenant(tenantID tenant.ID) {
	f.stopped = append(f.stopped, tenantID)
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func (q *fakeQueue) Close() error { return nil }

func newHandlers(t *testing.T, florists *fakeFloristRepo, shops *fakeShopRepo) *Handlers {
	t.Helper()
	return newHandlersWithQueue(t, florists, shops, &fakeQueue{})
}

func newHandlersWithQueue(t *testing.T, florists *fakeFloristRepo, shops *fakeShopRepo, queue *fakeQueue) *Handlers {
	t.Helper()

	catalog, err := i18n.Load("en")
	require.NoError(t, err)
	return New(florists, shops, catalog, queue, testLogger())
}

func command(name string) *update.InboundMessage {
	return &update.InboundMessage{
		ChatID:  42,
		UserID:  42,
		Kind:    update.KindCommand,
		Command: name,
	}
}

func TestStartCommand_NewUser(t *testing.T) {
	h := newHandlers(t, &fakeFloristRepo{}, &fakeShopRepo{})
	sess := &session.Session{State: session.StateNew}

	resp, err := (&startCommand{h}).Handle(context.Background(), command("start"), sess)
	require.NoError(t, err)

	assert.Contains(t, resp.Primary.Text, "/register")
	assert.Equal(t, session.StateNew, sess.State, "start never changes state")
}

func TestStartCommand_Registered(t *testing.T) {
	florists := &fakeFloristRepo{florists: map[int64]*domain.Florist{
		42: {ID: 1, TelegramID: 42, Name: "Maria"},
	}}
	h := newHandlers(t, florists, &fakeShopRepo{})
	sess := &session.Session{State: session.StateMainMenu}

	resp, err := (&startCommand{h}).Handle(context.Background(), command("start"), sess)
	require.NoError(t, err)
	assert.Contains(t, resp.Primary.Text, "Welcome back, Maria!")
}

func TestRegisterCommand_StartsFlow(t *testing.T) {
	h := newHandlers(t, &fakeFloristRepo{}, &fakeShopRepo{})
	sess := &session.Session{State: session.StateNew}

	resp, err := (&registerCommand{h}).Handle(context.Background(), command("register"), sess)
	require.NoError(t, err)

	assert.Equal(t, session.StateRegistrationName, sess.State)
	assert.NotNil(t, sess.FlowData.Registration)
	assert.Contains(t, resp.Primary.Text, "full name")
}

func TestRegisterCommand_AlreadyRegistered(t *testing.T) {
	florists := &fakeFloristRepo{florists: map[int64]*domain.Florist{
		42: {ID: 1, TelegramID: 42, Name: "Maria"},
	}}
	h := newHandlers(t, florists, &fakeShopRepo{})
	sess := &session.Session{State: session.StateMainMenu}

	resp, err := (&registerCommand{h}).Handle(context.Background(), command("register"), sess)
	require.NoError(t, err)

	assert.Contains(t, resp.Primary.Text, "already registered")
	assert.Equal(t, session.StateMainMenu, sess.State)
}

func TestMyShopsCommand(t *testing.T) {
	shops := &fakeShopRepo{shops: []*domain.Shop{
		{ID: 1, OwnerID: 7, Name: "Roses & Co", City: "Riga", Active: true},
		{ID: 2, OwnerID: 7, Name: "Tulip Corner", City: "Riga", Active: false},
		{ID: 3, OwnerID: 8, Name: "Not mine", City: "Oslo", Active: true},
	}}
	h := newHandlers(t, &fakeFloristRepo{}, shops)

	sess := &session.Session{State: session.StateMainMenu}
	sess.SetAttribute("florist_id", "7")

	resp, err := (&myShopsCommand{h}).Handle(context.Background(), command("myshops"), sess)
	require.NoError(t, err)

	assert.Contains(t, resp.Primary.Text, "#1 Roses & Co (Riga), bot on")
	assert.Contains(t, resp.Primary.Text, "#2 Tulip Corner (Riga), bot off")
	assert.NotContains(t, resp.Primary.Text, "Not mine")
}

func TestMyShopsCommand_NoShops(t *testing.T) {
	h := newHandlers(t, &fakeFloristRepo{}, &fakeShopRepo{})

	sess := &session.Session{State: session.StateMainMenu}
	sess.SetAttribute("florist_id", "7")

	resp, err := (&myShopsCommand{h}).Handle(context.Background(), command("myshops"), sess)
	require.NoError(t, err)
	assert.Contains(t, resp.Primary.Text, "no shops yet")
}

func TestNewShopCommand_StartsFlow(t *testing.T) {
	h := newHandlers(t, &fakeFloristRepo{}, &fakeShopRepo{})
	sess := &session.Session{State: session.StateMainMenu}

	resp, err := (&newShopCommand{h}).Handle(context.Background(), command("newshop"), sess)
	require.NoError(t, err)

	assert.Equal(t, session.StateShopSetupName, sess.State)
	assert.NotNil(t, sess.FlowData.ShopSetup)
	assert.Contains(t, resp.Primary.Text, "called")
}

func TestCancelCommand(t *testing.T) {
	h := newHandlers(t, &fakeFloristRepo{}, &fakeShopRepo{})

	t.Run("nothing to cancel at rest", func(t *testing.T) {
		sess := &session.Session{State: session.StateMainMenu}

		resp, err := (&cancelCommand{h}).Handle(context.Background(), command("cancel"), sess)
		require.NoError(t, err)
		assert.Contains(t, resp.Primary.Text, "Nothing to cancel")
	})

	t.Run("mid-flow registered user returns to main menu", func(t *testing.T) {
		sess := &session.Session{State: session.StateShopSetupCity}
		sess.FlowData.StartShopSetup()
		sess.SetAttribute("florist_id", "7")

		resp, err := (&cancelCommand{h}).Handle(context.Background(), command("cancel"), sess)
		require.NoError(t, err)
		assert.Contains(t, resp.Primary.Text, "cancelled")
		assert.Equal(t, session.StateMainMenu, sess.State)
		assert.Nil(t, sess.FlowData.ShopSetup)
	})

	t.Run("mid-flow unregistered user returns to new", func(t *testing.T) {
		sess := &session.Session{State: session.StateRegistrationPhone}
		sess.FlowData.StartRegistration()

		_, err := (&cancelCommand{h}).Handle(context.Background(), command("cancel"), sess)
		require.NoError(t, err)
		assert.Equal(t, session.StateNew, sess.State)
	})
}

func TestFallback(t *testing.T) {
	h := newHandlers(t, &fakeFloristRepo{}, &fakeShopRepo{})
	sess := &session.Session{State: session.StateMainMenu}

	t.Run("unknown command", func(t *testing.T) {
		resp, err := (&fallback{h}).Handle(context.Background(), command("frobnicate"), sess)
		require.NoError(t, err)
		assert.Equal(t, "Unknown command: /frobnicate", resp.Primary.Text)
	})

	t.Run("stray text gets the welcome", func(t *testing.T) {
		msg := &update.InboundMessage{ChatID: 42, UserID: 42, Kind: update.KindText, RawText: "hello"}

		resp, err := (&fallback{h}).Handle(context.Background(), msg, sess)
		require.NoError(t, err)
		assert.Contains(t, resp.Primary.Text, "/register")
	})
}

func TestAuthPredicate(t *testing.T) {
	florists := &fakeFloristRepo{florists: map[int64]*domain.Florist{
		42: {ID: 9, TelegramID: 42, Name: "Maria"},
	}}
	predicate := NewAuthPredicate(florists, testLogger())

	t.Run("registered user passes and is cached", func(t *testing.T) {
		sess := &session.Session{}
		msg := command("myshops")

		assert.True(t, predicate(context.Background(), msg, sess))

		id, ok := sess.Attribute("florist_id")
		require.True(t, ok)
		assert.Equal(t, "9", id)
	})

	t.Run("unregistered user is rejected", func(t *testing.T) {
		sess := &session.Session{}
		msg := &update.InboundMessage{ChatID: 1, UserID: 1, Kind: update.KindCommand, Command: "myshops"}

		assert.False(t, predicate(context.Background(), msg, sess))
	})

	t.Run("cached id skips the lookup", func(t *testing.T) {
		sess := &session.Session{}
		sess.SetAttribute("florist_id", "5")
		msg := &update.InboundMessage{ChatID: 2, UserID: 2, Kind: update.KindCommand, Command: "myshops"}

		assert.True(t, predicate(context.Background(), msg, sess))
	})
}

func TestBroadcastCommand(t *testing.T) {
	florists := &fakeFloristRepo{florists: map[int64]*domain.Florist{
		42: {ID: 9, TelegramID: 42, Name: "Maria"},
	}}
	shops := &fakeShopRepo{shops: []*domain.Shop{
		{ID: 1, OwnerID: 9, TenantID: "tenant-1", Name: "Roses & Co", Active: true},
		{ID: 2, OwnerID: 9, TenantID: "tenant-2", Name: "Dormant", Active: false},
	}}
	queue := &fakeQueue{}
	h := newHandlersWithQueue(t, florists, shops, queue)

	msg := command("broadcast")
	msg.CommandArgs = []string{"Fresh", "peonies", "in", "stock!"}

	resp, err := (&broadcastCommand{h}).Handle(context.Background(), msg, &session.Session{})
	require.NoError(t, err)

	assert.Contains(t, resp.Primary.Text, "1")
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, jobs.TaskTypeBroadcast, queue.tasks[0].Type())

	var payload jobs.BroadcastPayload
	require.NoError(t, json.Unmarshal(queue.tasks[0].Payload(), &payload))
	assert.Equal(t, "tenant-1", payload.TenantID)
	assert.Equal(t, "Fresh peonies in stock!", payload.Text)
}

func TestBroadcastCommand_NoText(t *testing.T) {
	queue := &fakeQueue{}
	h := newHandlersWithQueue(t, &fakeFloristRepo{}, &fakeShopRepo{}, queue)

	resp, err := (&broadcastCommand{h}).Handle(context.Background(), command("broadcast"), &session.Session{})
	require.NoError(t, err)

	assert.Contains(t, resp.Primary.Text, "/broadcast")
	assert.Empty(t, queue.tasks)
}

func TestBroadcastCommand_NoActiveShops(t *testing.T) {
	florists := &fakeFloristRepo{florists: map[int64]*domain.Florist{
		42: {ID: 9, TelegramID: 42, Name: "Maria"},
	}}
	queue := &fakeQueue{}
	h := newHandlersWithQueue(t, florists, &fakeShopRepo{}, queue)

	msg := command("broadcast")
	msg.CommandArgs = []string{"hello"}

	resp, err := (&broadcastCommand{h}).Handle(context.Background(), msg, &session.Session{})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Primary.Text)
	assert.Empty(t, queue.tasks)
}

func authedSession() *session.Session {
	sess := &session.Session{State: session.StateMainMenu}
	sess.SetAttribute("florist_id", "7")
	return sess
}

func commandWithArgs(name string, args ...string) *update.InboundMessage {
	msg := command(name)
	msg.CommandArgs = args
	return msg
}

func TestSetTokenCommand(t *testing.T) {
	shops := &fakeShopRepo{shops: []*domain.Shop{
		{ID: 1, OwnerID: 7, TenantID: "tenant-1", Name: "Roses & Co", Active: true},
	}}
	fleet := &fakeFleet{}
	h := newHandlers(t, &fakeFloristRepo{}, shops)
	h.AttachFleet(fleet)

	resp, err := (&setTokenCommand{h}).Handle(context.Background(),
		commandWithArgs("settoken", "1", "12345:new-token", "roses_bot"), authedSession())
	require.NoError(t, err)

	assert.Contains(t, resp.Primary.Text, "Roses & Co")
	assert.Equal(t, "12345:new-token", shops.shops[0].BotToken)
	assert.Equal(t, "roses_bot", shops.shops[0].BotUsername)

	// Active shop: the runner restarts on the new token.
	require.Len(t, fleet.started, 1)
	assert.Equal(t, "12345:new-token", fleet.started[0].Token)
	assert.Equal(t, tenant.ID("tenant-1"), fleet.started[0].TenantID)
}

func TestSetTokenCommand_InactiveShopDoesNotStart(t *testing.T) {
	shops := &fakeShopRepo{shops: []*domain.Shop{
		{ID: 1, OwnerID: 7, TenantID: "tenant-1", Name: "Roses & Co", Active: false},
	}}
	fleet := &fakeFleet{}
	h := newHandlers(t, &fakeFloristRepo{}, shops)
	h.AttachFleet(fleet)

	_, err := (&setTokenCommand{h}).Handle(context.Background(),
		commandWithArgs("settoken", "1", "12345:tok"), authedSession())
	require.NoError(t, err)

	assert.Empty(t, fleet.started)
}

func TestSetTokenCommand_Usage(t *testing.T) {
	h := newHandlers(t, &fakeFloristRepo{}, &fakeShopRepo{})

	resp, err := (&setTokenCommand{h}).Handle(context.Background(),
		commandWithArgs("settoken", "1"), authedSession())
	require.NoError(t, err)
	assert.Contains(t, resp.Primary.Text, "/settoken")
}

func TestSetTokenCommand_ForeignShop(t *testing.T) {
	shops := &fakeShopRepo{shops: []*domain.Shop{
		{ID: 3, OwnerID: 8, TenantID: "tenant-3", Name: "Not mine"},
	}}
	h := newHandlers(t, &fakeFloristRepo{}, shops)

	resp, err := (&setTokenCommand{h}).Handle(context.Background(),
		commandWithArgs("settoken", "3", "12345:tok"), authedSession())
	require.NoError(t, err)

	assert.Contains(t, resp.Primary.Text, "/myshops")
	assert.Empty(t, shops.shops[0].BotToken)
}

func TestActivateCommand(t *testing.T) {
	shops := &fakeShopRepo{shops: []*domain.Shop{
		{ID: 1, OwnerID: 7, TenantID: "tenant-1", Name: "Roses & Co", BotToken: "12345:tok"},
	}}
	fleet := &fakeFleet{}
	h := newHandlers(t, &fakeFloristRepo{}, shops)
	h.AttachFleet(fleet)

	resp, err := (&activateCommand{h}).Handle(context.Background(),
		commandWithArgs("activate", "1"), authedSession())
	require.NoError(t, err)

	assert.Contains(t, resp.Primary.Text, "Roses & Co")
	assert.True(t, shops.shops[0].Active)
	require.Len(t, fleet.started, 1)
	assert.Equal(t, tenant.ID("tenant-1"), fleet.started[0].TenantID)
}

func TestActivateCommand_NoToken(t *testing.T) {
	shops := &fakeShopRepo{shops: []*domain.Shop{
		{ID: 1, OwnerID: 7, TenantID: "tenant-1", Name: "Roses & Co"},
	}}
	fleet := &fakeFleet{}
	h := newHandlers(t, &fakeFloristRepo{}, shops)
	h.AttachFleet(fleet)

	resp, err := (&activateCommand{h}).Handle(context.Background(),
		commandWithArgs("activate", "1"), authedSession())
	require.NoError(t, err)

	assert.Contains(t, resp.Primary.Text, "/settoken")
	assert.False(t, shops.shops[0].Active)
	assert.Empty(t, fleet.started)
}

func TestActivateCommand_StartFailureRollsBack(t *testing.T) {
	shops := &fakeShopRepo{shops: []*domain.Shop{
		{ID: 1, OwnerID: 7, TenantID: "tenant-1", Name: "Roses & Co", BotToken: "bad:tok"},
	}}
	fleet := &fakeFleet{err: errors.New("telegram rejected token")}
	h := newHandlers(t, &fakeFloristRepo{}, shops)
	h.AttachFleet(fleet)

	_, err := (&activateCommand{h}).Handle(context.Background(),
		commandWithArgs("activate", "1"), authedSession())
	require.Error(t, err)

	assert.False(t, shops.shops[0].Active)
}

func TestDeactivateCommand(t *testing.T) {
	shops := &fakeShopRepo{shops: []*domain.Shop{
		{ID: 1, OwnerID: 7, TenantID: "tenant-1", Name: "Roses & Co", BotToken: "12345:tok", Active: true},
	}}
	fleet := &fakeFleet{}
	h := newHandlers(t, &fakeFloristRepo{}, shops)
	h.AttachFleet(fleet)

	resp, err := (&deactivateCommand{h}).Handle(context.Background(),
		commandWithArgs("deactivate", "1"), authedSession())
	require.NoError(t, err)

	assert.Contains(t, resp.Primary.Text, "Roses & Co")
	assert.False(t, shops.shops[0].Active)
	assert.Equal(t, []tenant.ID{"tenant-1"}, fleet.stopped)
}
