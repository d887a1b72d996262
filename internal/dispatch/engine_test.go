package dispatch

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/floramarket/florabot/internal/apperr"
	"github.com/floramarket/florabot/internal/response"
	"github.com/floramarket/florabot/internal/session"
	"github.com/floramarket/florabot/internal/tenant"
	"github.com/floramarket/florabot/internal/update"
)

const testToken = "tok-rose"

func newTestEngine(t *testing.T, reg *Registry, store session.Store, filters ...Filter) *Engine {
	t.Helper()

	bots := tenant.NewRegistry(nil, testLogger())
	bots.RegisterActive(tenant.BotIdentity{
		TenantID: "rose-corner",
		Token:    testToken,
		Kind:     tenant.KindTenant,
	})

	d := NewDispatcher(map[tenant.BotKind]*Registry{tenant.KindTenant: reg}, nil, testLogger())
	errHandler := apperr.NewHandler(testLogger(), false)

	return NewEngine(bots, store, d, errHandler, testLogger(), filters...)
}

func startUpdate(userID int64) *telebot.Update {
	return &telebot.Update{
		ID: int(userID),
		Message: &telebot.Message{
			Text:   "/start",
			Chat:   &telebot.Chat{ID: userID * 100},
			Sender: &telebot.User{ID: userID},
		},
	}
}

func TestEngine_SuccessfulTurnPersistsSession(t *testing.T) {
	store := session.NewMemoryStore()
	cmd := &fakeCommand{name: "start", mutate: func(s *session.Session) {
		s.State = session.StateMainMenu
	}}
	engine := newTestEngine(t, NewRegistry(RegistryConfig{Commands: []CommandHandler{cmd}}), store)

	resp, err := engine.Process(context.Background(), testToken, startUpdate(42))
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "ran start", resp.Primary.Text)

	sess, err := store.GetOrCreate(context.Background(), "rose-corner", 42)
	require.NoError(t, err)
	assert.Equal(t, session.StateMainMenu, sess.State)
}

func TestEngine_UnknownBotStaysSilent(t *testing.T) {
	engine := newTestEngine(t, NewRegistry(RegistryConfig{}), session.NewMemoryStore())

	resp, err := engine.Process(context.Background(), "no-such-token", startUpdate(42))
	assert.Nil(t, resp)
	assert.NoError(t, err)
}

func TestEngine_HandlerFaultDiscardsSessionMutations(t *testing.T) {
	store := session.NewMemoryStore()

	// The handler mutates before failing to prove the mutation is discarded.
	failing := &fakeCommand{
		name:   "start",
		fail:   errors.New("mid-handler failure"),
		mutate: func(s *session.Session) { s.State = session.StateMainMenu },
	}

	engine := newTestEngine(t, NewRegistry(RegistryConfig{Commands: []CommandHandler{failing}}), store)

	resp, err := engine.Process(context.Background(), testToken, startUpdate(42))
	require.NoError(t, err)

	// Exactly one generic error message to the originating chat.
	require.NotNil(t, resp)
	assert.Equal(t, GenericErrorText, resp.Primary.Text)
	assert.Equal(t, int64(4200), resp.Primary.ChatID)
	assert.Empty(t, resp.Auxiliary)

	// No session mutation persisted.
	sess, err := store.GetOrCreate(context.Background(), "rose-corner", 42)
	require.NoError(t, err)
	assert.Equal(t, session.StateNew, sess.State)
}

type failingStore struct {
	session.MemoryStore
}

func (f *failingStore) GetOrCreate(context.Context, tenant.ID, int64) (*session.Session, error) {
	return nil, session.ErrStoreUnavailable
}

func TestEngine_StoreUnavailableIsFatalForTurn(t *testing.T) {
	engine := newTestEngine(t, NewRegistry(RegistryConfig{}), &failingStore{})

	resp, err := engine.Process(context.Background(), testToken, startUpdate(42))
	assert.Nil(t, resp, "no reply can be attempted without session context")
	require.Error(t, err)

	var appErr *apperr.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "E400", appErr.Code)
}

func TestEngine_FilterShortCircuits(t *testing.T) {
	store := session.NewMemoryStore()
	cmd := &fakeCommand{name: "start"}

	limit := func(_ context.Context, msg *update.InboundMessage) (*response.Response, error) {
		return response.Text(msg.ChatID, "slow down"), nil
	}
	engine := newTestEngine(t, NewRegistry(RegistryConfig{Commands: []CommandHandler{cmd}}), store, limit)

	resp, err := engine.Process(context.Background(), testToken, startUpdate(42))
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, "slow down", resp.Primary.Text)
	assert.Zero(t, cmd.calls)
}

// slowMutatingFlow copies flow data out, sleeps, then writes it back,
// making lost updates observable if two turns interleave.
type slowMutatingFlow struct{}

func (slowMutatingFlow) States() []session.State { return []session.State{session.StateNew} }

func (slowMutatingFlow) Handle(_ context.Context, msg *update.InboundMessage, sess *session.Session) (*response.Response, error) {
	count := 0
	if raw, ok := sess.Attribute("turns"); ok {
		count, _ = strconv.Atoi(raw)
	}

	time.Sleep(2 * time.Millisecond)

	sess.SetAttribute("turns", strconv.Itoa(count+1))
	return response.Text(msg.ChatID, "ok"), nil
}

func TestEngine_ConcurrentTurnsForSameUserAreAtomic(t *testing.T) {
	store := session.NewMemoryStore()
	engine := newTestEngine(t, NewRegistry(RegistryConfig{Flows: []FlowHandler{slowMutatingFlow{}}}), store)

	const turns = 10
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			upd := &telebot.Update{
				Message: &telebot.Message{
					Text:   "hello",
					Chat:   &telebot.Chat{ID: 4200},
					Sender: &telebot.User{ID: 42},
				},
			}
			_, err := engine.Process(context.Background(), testToken, upd)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sess, err := store.GetOrCreate(context.Background(), "rose-corner", 42)
	require.NoError(t, err)

	raw, ok := sess.Attribute("turns")
	require.True(t, ok)
	assert.Equal(t, strconv.Itoa(turns), raw, "every turn's mutation must survive")
}

func TestEngine_SessionRoundTripRefreshesActivity(t *testing.T) {
	store := session.NewMemoryStore()
	flow := &fakeFlow{states: []session.State{session.StateNew}}
	engine := newTestEngine(t, NewRegistry(RegistryConfig{Flows: []FlowHandler{flow}}), store)

	upd := &telebot.Update{
		Message: &telebot.Message{
			Text:   "hi",
			Chat:   &telebot.Chat{ID: 4200},
			Sender: &telebot.User{ID: 42},
		},
	}

	_, err := engine.Process(context.Background(), testToken, upd)
	require.NoError(t, err)

	first, err := store.GetOrCreate(context.Background(), "rose-corner", 42)
	require.NoError(t, err)

	_, err = engine.Process(context.Background(), testToken, upd)
	require.NoError(t, err)

	second, err := store.GetOrCreate(context.Background(), "rose-corner", 42)
	require.NoError(t, err)

	assert.Equal(t, first.State, second.State)
	assert.False(t, second.LastActivityAt.Before(first.LastActivityAt))
}
