package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var errConnClosed = errors.New("fake conn closed")

// fakeConn — сокет в памяти: in — от брокера к клиенту, out — от клиента.
type fakeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 64),
		out:    make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case b := <-c.in:
		return websocket.TextMessage, b, nil
	case <-c.closed:
		return 0, nil, errConnClosed
	}
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	select {
	case c.out <- data:
		return nil
	case <-c.closed:
		return errConnClosed
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// replyFunc решает, что брокер ответит на кадр. nil — молчим.
type replyFunc func(conn *fakeConn, env *Envelope) []*Envelope

// fakeBroker обслуживает одно соединение.
func fakeBroker(t *testing.T, conn *fakeConn, reply replyFunc) {
	t.Helper()
	go func() {
		for {
			select {
			case <-conn.closed:
				return
			case data := <-conn.out:
				env, err := Decode(data)
				if err != nil {
					continue
				}
				for _, r := range reply(conn, env) {
					push(conn, r)
				}
			}
		}
	}()
}

func push(conn *fakeConn, env *Envelope) {
	data, err := Encode(env.ClientMsgID, env.PayloadType, rawPayload(env.Payload))
	if err != nil {
		panic(err)
	}
	select {
	case conn.in <- data:
	case <-conn.closed:
	}
}

type rawPayload []byte

func (r rawPayload) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("{}"), nil
	}
	return r, nil
}

func respond(req *Envelope, pt PayloadType, payload any) *Envelope {
	env := &Envelope{ClientMsgID: req.ClientMsgID, PayloadType: pt}
	if payload != nil {
		data, err := sonic.Marshal(payload)
		if err != nil {
			panic(err)
		}
		env.Payload = data
	}
	return env
}

// authOK — брокер, который принимает любую авторизацию и делегирует остальное next.
func authOK(next replyFunc) replyFunc {
	return func(conn *fakeConn, env *Envelope) []*Envelope {
		switch env.PayloadType {
		case ApplicationAuthReq:
			return []*Envelope{respond(env, ApplicationAuthRes, nil)}
		case AccountAuthReq:
			var req AccountAuthRequest
			_ = env.DecodePayload(&req)
			return []*Envelope{respond(env, AccountAuthRes, AccountAuthResponse{CtidTraderAccountID: req.CtidTraderAccountID})}
		case HeartbeatEvent:
			return nil
		}
		if next != nil {
			return next(conn, env)
		}
		return nil
	}
}

// fakeDialer: первые fails попыток падают, дальше отдаёт новое соединение с брокером.
type fakeDialer struct {
	t     *testing.T
	fails int32
	reply replyFunc

	dials atomic.Int32
	mu    sync.Mutex
	conns []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (Conn, error) {
	n := d.dials.Add(1)
	if n <= d.fails {
		return nil, errors.New("connection refused")
	}
	conn := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	fakeBroker(d.t, conn, d.reply)
	return conn, nil
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func testConfig() Config {
	return Config{
		URL:               "wss://fake",
		ClientID:          "id",
		ClientSecret:      "secret",
		AccessToken:       "token",
		AccountIDs:        []int64{1, 2},
		HeartbeatInterval: time.Hour,
		RequestTimeout:    time.Second,
		Backoff: Backoff{
			Initial:     time.Millisecond,
			Factor:      1.5,
			Max:         5 * time.Millisecond,
			MaxAttempts: 5,
		},
	}
}

func startClient(t *testing.T, cfg Config, d Dialer) *Client {
	t.Helper()
	c := NewClient(cfg, d, nil, nil)
	c.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = c.Stop(ctx)
	})
	return c
}

func waitState(t *testing.T, c *Client, want ConnectionState) {
	t.Helper()
	require.Eventually(t, func() bool { return c.State() == want }, 2*time.Second, time.Millisecond,
		"state %s, want %s", c.State(), want)
}
