package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestClient_RequestRequiresReady(t *testing.T) {
	c := NewClient(testConfig(), &fakeDialer{t: t}, nil, nil)
	_, err := c.Request(context.Background(), TraderReq, AccountRequest{CtidTraderAccountID: 1})
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestClient_ReconnectsToReadyAfterFailures(t *testing.T) {
	d := &fakeDialer{t: t, fails: 3, reply: authOK(nil)}

	var (
		mu     sync.Mutex
		states []ConnectionState
	)
	c := NewClient(testConfig(), d, nil, nil)
	c.OnStateChange(func(s ConnectionState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	var fatal atomic.Int32
	c.OnFatal(func(error) { fatal.Add(1) })

	c.Start(context.Background())
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	waitState(t, c, StateReady)
	assert.Equal(t, int32(4), d.dials.Load())
	assert.Zero(t, fatal.Load())

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, StateConnecting)
	assert.Contains(t, states, StateDisconnected)
	assert.Contains(t, states, StateAppAuthenticated)
	assert.Contains(t, states, StateAccountAuthenticated)
	assert.Equal(t, StateReady, states[len(states)-1])
}

func TestClient_ExhaustedIsFatalOnce(t *testing.T) {
	cfg := testConfig()
	cfg.Backoff.MaxAttempts = 2
	d := &fakeDialer{t: t, fails: 1000}

	c := NewClient(cfg, d, nil, nil)
	var fatal atomic.Int32
	c.OnFatal(func(error) { fatal.Add(1) })

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrReconnectExhausted)
	assert.Equal(t, int32(3), d.dials.Load(), "первая попытка и две повторные")
	assert.Equal(t, int32(1), fatal.Load())

	c.fatal(err)
	assert.Equal(t, int32(1), fatal.Load(), "OnFatal не вызывается повторно")
}

func TestClient_FatalAuthStopsReconnect(t *testing.T) {
	d := &fakeDialer{t: t, reply: func(_ *fakeConn, env *Envelope) []*Envelope {
		if env.PayloadType == ApplicationAuthReq {
			return []*Envelope{respond(env, ErrorRes, ErrorResponse{ErrorCode: "CH_CLIENT_AUTH_FAILURE", Description: "bad secret"})}
		}
		return nil
	}}

	c := NewClient(testConfig(), d, nil, nil)
	var fatal atomic.Int32
	c.OnFatal(func(error) { fatal.Add(1) })

	err := c.Run(context.Background())
	assert.ErrorIs(t, err, ErrFatalAuth)
	assert.Equal(t, int32(1), d.dials.Load(), "после фатальной ошибки не переподключаемся")
	assert.Equal(t, int32(1), fatal.Load())
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClient_NonFatalAuthErrorRetries(t *testing.T) {
	var attempts atomic.Int32
	d := &fakeDialer{t: t}
	d.reply = authOK(nil)
	inner := d.reply
	d.reply = func(conn *fakeConn, env *Envelope) []*Envelope {
		if env.PayloadType == AccountAuthReq && attempts.Add(1) == 1 {
			return []*Envelope{respond(env, ErrorRes, ErrorResponse{ErrorCode: "INVALID_REQUEST"})}
		}
		return inner(conn, env)
	}

	c := startClient(t, testConfig(), d)
	waitState(t, c, StateReady)
	assert.GreaterOrEqual(t, d.dials.Load(), int32(2))
}

func TestClient_TokenInvalidatedIsFatal(t *testing.T) {
	d := &fakeDialer{t: t, reply: authOK(nil)}
	c := NewClient(testConfig(), d, nil, nil)
	var fatal atomic.Int32
	c.OnFatal(func(error) { fatal.Add(1) })

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	waitState(t, c, StateReady)
	push(d.last(), &Envelope{PayloadType: AccountsTokenInvalidated, Payload: []byte(`{"ctidTraderAccountIds":[1],"reason":"revoked"}`)})

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrFatalAuth)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Equal(t, int32(1), fatal.Load())
}

func TestClient_TokenInvalidatedDuringAuthIsFatal(t *testing.T) {
	d := &fakeDialer{t: t, reply: func(conn *fakeConn, env *Envelope) []*Envelope {
		if env.PayloadType != AccountAuthReq {
			return authOK(nil)(conn, env)
		}
		var req AccountAuthRequest
		_ = env.DecodePayload(&req)
		if req.CtidTraderAccountID != 2 {
			return authOK(nil)(conn, env)
		}
		// вместо ответа на авторизацию брокер отзывает токен
		return []*Envelope{{PayloadType: AccountsTokenInvalidated, Payload: []byte(`{"ctidTraderAccountIds":[2],"reason":"revoked"}`)}}
	}}
	cfg := testConfig()
	cfg.Backoff.MaxAttempts = 3
	c := NewClient(cfg, d, nil, nil)
	var fatal atomic.Int32
	c.OnFatal(func(error) { fatal.Add(1) })

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrFatalAuth)
		assert.NotErrorIs(t, err, ErrReconnectExhausted)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	assert.Equal(t, int32(1), d.dials.Load())
	assert.Equal(t, int32(1), fatal.Load())
}

func TestClient_RequestRoundTrip(t *testing.T) {
	d := &fakeDialer{t: t, reply: authOK(func(_ *fakeConn, env *Envelope) []*Envelope {
		if env.PayloadType != TraderReq {
			return nil
		}
		var req AccountRequest
		_ = env.DecodePayload(&req)
		return []*Envelope{
			// чужое событие без id и незнакомый тип не мешают корреляции
			{PayloadType: SpotEvent, Payload: []byte(`{}`)},
			{PayloadType: PayloadType(9999), Payload: []byte(`{}`)},
			respond(env, TraderRes, TraderResponse{
				CtidTraderAccountID: req.CtidTraderAccountID,
				Trader:              Trader{Balance: 105075, MoneyDigits: 2},
			}),
		}
	})}

	c := startClient(t, testConfig(), d)
	var events atomic.Int32
	c.OnEvent(func(env *Envelope) { events.Add(1) })
	waitState(t, c, StateReady)

	env, err := c.Request(context.Background(), TraderReq, AccountRequest{CtidTraderAccountID: 2})
	require.NoError(t, err)
	require.Equal(t, TraderRes, env.PayloadType)

	var res TraderResponse
	require.NoError(t, env.DecodePayload(&res))
	assert.Equal(t, int64(2), res.CtidTraderAccountID)
	assert.Equal(t, int64(105075), res.Trader.Balance)
	assert.Equal(t, 0, c.Pending())
	assert.Eventually(t, func() bool { return events.Load() == 1 }, time.Second, time.Millisecond)
	assert.False(t, c.LastInbound().IsZero())
}

func TestClient_ConcurrentRequestsResolveIndependently(t *testing.T) {
	d := &fakeDialer{t: t, reply: authOK(func(_ *fakeConn, env *Envelope) []*Envelope {
		var req AccountRequest
		_ = env.DecodePayload(&req)
		return []*Envelope{respond(env, TraderRes, TraderResponse{CtidTraderAccountID: req.CtidTraderAccountID})}
	})}
	c := startClient(t, testConfig(), d)
	waitState(t, c, StateReady)

	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env, err := c.Request(context.Background(), TraderReq, AccountRequest{CtidTraderAccountID: i})
			if !assert.NoError(t, err) {
				return
			}
			var res TraderResponse
			_ = env.DecodePayload(&res)
			assert.Equal(t, i, res.CtidTraderAccountID)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, c.Pending())
}

func TestClient_RequestTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.RequestTimeout = 30 * time.Millisecond
	d := &fakeDialer{t: t, reply: authOK(nil)} // на ордера брокер молчит

	c := startClient(t, cfg, d)
	waitState(t, c, StateReady)

	_, err := c.Request(context.Background(), NewOrderReq, NewOrderRequest{CtidTraderAccountID: 1})
	assert.ErrorIs(t, err, ErrRequestTimeout)
	assert.Equal(t, 0, c.Pending(), "ожидание снято после таймаута")
}

func TestClient_FailedRequestLogsLatency(t *testing.T) {
	cfg := testConfig()
	cfg.RequestTimeout = 30 * time.Millisecond
	d := &fakeDialer{t: t, reply: authOK(nil)}

	core, logs := observer.New(zap.WarnLevel)
	c := NewClient(cfg, d, zap.New(core), nil)
	c.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = c.Stop(ctx)
	})
	waitState(t, c, StateReady)

	_, err := c.Request(context.Background(), NewOrderReq, NewOrderRequest{CtidTraderAccountID: 1})
	require.ErrorIs(t, err, ErrRequestTimeout)

	failed := logs.FilterMessage("request failed").All()
	require.Len(t, failed, 1)
	fields := failed[0].ContextMap()
	assert.NotEmpty(t, fields["correlation_id"])
	require.Contains(t, fields, "latency")
	assert.GreaterOrEqual(t, fields["latency"].(time.Duration), 25*time.Millisecond)
}

func TestClient_DisconnectFailsPendingAndReconnects(t *testing.T) {
	d := &fakeDialer{t: t}
	d.reply = authOK(func(conn *fakeConn, env *Envelope) []*Envelope {
		if env.PayloadType == ReconcileReq {
			_ = conn.Close()
		}
		return nil
	})

	c := startClient(t, testConfig(), d)
	waitState(t, c, StateReady)

	_, err := c.Request(context.Background(), ReconcileReq, AccountRequest{CtidTraderAccountID: 1})
	assert.ErrorIs(t, err, ErrDisconnected)

	require.Eventually(t, func() bool { return d.dials.Load() >= 2 }, 2*time.Second, time.Millisecond)
	waitState(t, c, StateReady)
}

func TestClient_ServerDisconnectEventReconnects(t *testing.T) {
	d := &fakeDialer{t: t, reply: authOK(nil)}
	c := startClient(t, testConfig(), d)
	waitState(t, c, StateReady)

	push(d.last(), &Envelope{PayloadType: ClientDisconnectEvent, Payload: []byte(`{"reason":"maintenance"}`)})

	require.Eventually(t, func() bool { return d.dials.Load() >= 2 }, 2*time.Second, time.Millisecond)
	waitState(t, c, StateReady)
}

func TestClient_HeartbeatAndReadyHooks(t *testing.T) {
	cfg := testConfig()
	cfg.HeartbeatInterval = 5 * time.Millisecond

	var beats atomic.Int32
	d := &fakeDialer{t: t}
	inner := authOK(nil)
	d.reply = func(conn *fakeConn, env *Envelope) []*Envelope {
		if env.PayloadType == HeartbeatEvent {
			beats.Add(1)
			return nil
		}
		return inner(conn, env)
	}

	c := NewClient(cfg, d, nil, nil)
	var ready atomic.Int32
	c.OnReady(func(ctx context.Context) { ready.Add(1) })
	c.Start(context.Background())
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	require.Eventually(t, func() bool { return beats.Load() >= 3 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, int32(1), ready.Load())

	// после реконнекта хуки отрабатывают снова
	_ = d.last().Close()
	require.Eventually(t, func() bool { return ready.Load() == 2 }, 2*time.Second, time.Millisecond)
}

func TestClient_StopFailsInFlight(t *testing.T) {
	d := &fakeDialer{t: t, reply: authOK(nil)}
	c := NewClient(testConfig(), d, nil, nil)
	c.Start(context.Background())
	waitState(t, c, StateReady)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Request(context.Background(), NewOrderReq, NewOrderRequest{})
		errCh <- err
	}()
	require.Eventually(t, func() bool { return c.Pending() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, c.Stop(context.Background()))
	assert.ErrorIs(t, <-errCh, ErrDisconnected)
	assert.Equal(t, StateDisconnected, c.State())
}

// Настоящий websocket через httptest и gorilla upgrader.
func TestClient_WebsocketRoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			env, err := Decode(data)
			if err != nil {
				continue
			}

			var out *Envelope
			switch env.PayloadType {
			case ApplicationAuthReq:
				out = respond(env, ApplicationAuthRes, nil)
			case AccountAuthReq:
				out = respond(env, AccountAuthRes, nil)
			case SymbolsListReq:
				out = respond(env, SymbolsListRes, SymbolsListResponse{
					Symbol: []LightSymbol{{SymbolID: 41, SymbolName: "XAUUSD"}, {SymbolID: 1, SymbolName: "EURUSD"}},
				})
			}
			if out == nil {
				continue
			}
			frame, err := Encode(out.ClientMsgID, out.PayloadType, rawPayload(out.Payload))
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.URL = "ws" + strings.TrimPrefix(srv.URL, "http")
	cfg.AccountIDs = []int64{77}

	c := NewClient(cfg, NewWSDialer(), nil, nil)
	index := NewSymbolIndex(c)
	c.OnReady(func(ctx context.Context) { _ = index.RefreshAll(ctx, c.AccountIDs()) })
	c.Start(context.Background())
	t.Cleanup(func() { _ = c.Stop(context.Background()) })

	waitState(t, c, StateReady)
	require.Eventually(t, func() bool { return index.Loaded(77) }, 2*time.Second, time.Millisecond)

	symbolID, err := index.Resolve(context.Background(), 77, "xauusd")
	require.NoError(t, err)
	assert.Equal(t, int64(41), symbolID)
}
