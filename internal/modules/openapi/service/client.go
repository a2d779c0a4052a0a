package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"signal_relay/pkg/id"
	"signal_relay/pkg/metrics"
)

type Config struct {
	URL          string
	ClientID     string
	ClientSecret string
	AccessToken  string
	AccountIDs   []int64

	HeartbeatInterval time.Duration
	RequestTimeout    time.Duration
	Backoff           Backoff
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 15 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.Backoff.Initial <= 0 {
		c.Backoff = DefaultBackoff()
	}
	return c
}

// EventHandler получает неподписанные события: исполнения, ошибки ордеров, спот, обновления трейдера.
type EventHandler func(env *Envelope)

// Client — единственное соединение с брокером: авторизация, сердцебиение, реконнект,
// корреляция запросов.
type Client struct {
	cfg     Config
	dialer  Dialer
	log     *zap.Logger
	metrics *metrics.Metrics
	corr    *Correlator
	newID   func() string

	mu        sync.RWMutex
	state     ConnectionState
	sess      *session
	observers []func(ConnectionState)
	onReady   []func(ctx context.Context)
	onEvent   []EventHandler
	onFatal   func(error)

	lastInbound time.Time
	fatalOnce   sync.Once

	cancel context.CancelFunc
	done   chan struct{}
}

func NewClient(cfg Config, dialer Dialer, log *zap.Logger, m *metrics.Metrics) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:     cfg.withDefaults(),
		dialer:  dialer,
		log:     log.Named("openapi"),
		metrics: m,
		corr:    NewCorrelator(),
		newID:   id.New,
	}
}

// OnStateChange — наблюдатель переходов (health, метрики). Регистрировать до Start.
func (c *Client) OnStateChange(fn func(ConnectionState)) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// OnReady — вызывается в отдельной горутине при каждом выходе в Ready (в т.ч. после реконнекта).
func (c *Client) OnReady(fn func(ctx context.Context)) {
	c.mu.Lock()
	c.onReady = append(c.onReady, fn)
	c.mu.Unlock()
}

func (c *Client) OnEvent(fn EventHandler) {
	c.mu.Lock()
	c.onEvent = append(c.onEvent, fn)
	c.mu.Unlock()
}

// OnFatal вызывается ровно один раз: исчерпаны попытки или отозваны креды.
func (c *Client) OnFatal(fn func(error)) {
	c.mu.Lock()
	c.onFatal = fn
	c.mu.Unlock()
}

func (c *Client) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastInbound() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastInbound
}

func (c *Client) Pending() int { return c.corr.Len() }

func (c *Client) AccountIDs() []int64 {
	out := make([]int64, len(c.cfg.AccountIDs))
	copy(out, c.cfg.AccountIDs)
	return out
}

func (c *Client) setState(s ConnectionState) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = s
	observers := append([]func(ConnectionState){}, c.observers...)
	c.mu.Unlock()

	c.log.Info("connection state", zap.Stringer("from", prev), zap.Stringer("to", s))
	c.metrics.SetConnectionState(int(s))
	for _, fn := range observers {
		fn(s)
	}
}

// Start запускает цикл соединения в фоне.
func (c *Client) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		_ = c.Run(runCtx)
	}()
}

// Stop останавливает цикл и ждёт его завершения.
func (c *Client) Stop(ctx context.Context) error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run держит соединение до отмены ctx или фатальной ошибки.
func (c *Client) Run(ctx context.Context) error {
	policy := c.cfg.Backoff.Policy()
	attempt := 0
	for {
		reachedReady, err := c.runSession(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if reachedReady {
			attempt = 0
			policy.Reset()
		}

		if IsFatalAuth(err) {
			c.fatal(err)
			return err
		}

		attempt++
		if c.cfg.Backoff.Exhausted(attempt) {
			err = fmt.Errorf("%w after %d attempts: %v", ErrReconnectExhausted, attempt-1, err)
			c.fatal(err)
			return err
		}

		delay := policy.NextBackOff()
		c.log.Warn("session ended, reconnecting",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
		)
		c.metrics.IncReconnect()

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

func (c *Client) fatal(err error) {
	c.fatalOnce.Do(func() {
		c.log.Error("fatal connection error, giving up", zap.Error(err))
		c.mu.RLock()
		fn := c.onFatal
		c.mu.RUnlock()
		if fn != nil {
			fn(err)
		}
	})
}

// runSession: dial → auth → Ready → heartbeat до обрыва.
func (c *Client) runSession(ctx context.Context) (reachedReady bool, err error) {
	c.setState(StateConnecting)

	conn, err := c.dialer.Dial(ctx, c.cfg.URL)
	if err != nil {
		c.setState(StateDisconnected)
		return false, fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	sess := newSession(conn)
	sessCtx, cancel := context.WithCancel(ctx)

	go sess.writeLoop()
	go sess.readLoop(func(data []byte) { c.dispatch(sess, data) })

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	defer func() {
		cancel()
		sess.close()

		c.mu.Lock()
		c.sess = nil
		c.mu.Unlock()

		if n := c.corr.FailAll(ErrDisconnected); n > 0 {
			c.log.Warn("pending requests failed on disconnect", zap.Int("count", n))
		}
		c.metrics.SetPending(0)
		c.setState(StateDisconnected)
	}()

	if err := c.authenticate(sessCtx, sess); err != nil {
		return false, err
	}

	c.setState(StateReady)
	c.runReadyHooks(sessCtx)

	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return true, nil
		case <-sess.done:
			return true, sess.Err()
		case <-ticker.C:
			frame, err := Encode("", HeartbeatEvent, nil)
			if err != nil {
				return true, err
			}
			if err := sess.send(sessCtx, frame); err != nil {
				return true, fmt.Errorf("heartbeat: %w", err)
			}
		}
	}
}

func (c *Client) authenticate(ctx context.Context, sess *session) error {
	_, err := c.roundTrip(ctx, sess, ApplicationAuthReq, ApplicationAuthRequest{
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
	})
	if err != nil {
		return authError("application auth", err)
	}
	c.setState(StateAppAuthenticated)

	g, gctx := errgroup.WithContext(ctx)
	for _, accountID := range c.cfg.AccountIDs {
		g.Go(func() error {
			_, err := c.roundTrip(gctx, sess, AccountAuthReq, AccountAuthRequest{
				CtidTraderAccountID: accountID,
				AccessToken:         c.cfg.AccessToken,
			})
			if err != nil {
				return authError(fmt.Sprintf("account %d auth", accountID), err)
			}
			c.log.Info("account authenticated", zap.Int64("account_id", accountID))
			c.setState(StateAccountAuthenticated)
			return nil
		})
	}
	return g.Wait()
}

func authError(step string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.FatalAuth() {
		return fmt.Errorf("%s: %w: %w", step, ErrFatalAuth, err)
	}
	return fmt.Errorf("%s: %w", step, err)
}

func (c *Client) runReadyHooks(ctx context.Context) {
	c.mu.RLock()
	hooks := append([]func(context.Context){}, c.onReady...)
	c.mu.RUnlock()

	for _, fn := range hooks {
		go fn(ctx)
	}
}

// Request — коррелированный запрос; доступен только в Ready.
func (c *Client) Request(ctx context.Context, pt PayloadType, payload any) (*Envelope, error) {
	c.mu.RLock()
	sess, state := c.sess, c.state
	c.mu.RUnlock()

	if state != StateReady || sess == nil {
		return nil, ErrNotReady
	}
	return c.roundTrip(ctx, sess, pt, payload)
}

func (c *Client) roundTrip(ctx context.Context, sess *session, pt PayloadType, payload any) (*Envelope, error) {
	msgID := c.newID()
	frame, err := Encode(msgID, pt, payload)
	if err != nil {
		return nil, err
	}

	ch := c.corr.Register(msgID)
	c.metrics.SetPending(c.corr.Len())
	started := time.Now()

	log := c.log.With(zap.String("correlation_id", msgID), zap.Stringer("payload_type", pt))

	if err := sess.send(ctx, frame); err != nil {
		c.corr.Cancel(msgID, err)
	} else {
		timer := time.NewTimer(c.cfg.RequestTimeout)
		select {
		case res := <-ch:
			timer.Stop()
			c.observe(pt, res.Err, started)
			if res.Err != nil {
				log.Warn("request rejected", zap.Error(res.Err), latency(msgID))
			} else {
				log.Debug("request completed", latency(msgID))
			}
			return res.Env, res.Err
		case <-timer.C:
			c.corr.Cancel(msgID, ErrRequestTimeout)
		case <-sess.done:
			timer.Stop()
			c.corr.Cancel(msgID, sess.disconnected())
		case <-ctx.Done():
			timer.Stop()
			c.corr.Cancel(msgID, ctx.Err())
		}
	}

	// ответ мог прийти одновременно с отменой: в канале ровно один результат
	res := <-ch
	c.observe(pt, res.Err, started)
	if res.Err != nil {
		log.Warn("request failed", zap.Error(res.Err), latency(msgID))
	}
	return res.Env, res.Err
}

// latency считается по метке времени внутри clientMsgId.
func latency(msgID string) zap.Field {
	age, ok := id.Age(msgID, time.Now())
	if !ok {
		return zap.Skip()
	}
	return zap.Duration("latency", age)
}

func (c *Client) observe(pt PayloadType, err error, started time.Time) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrRequestTimeout):
		result = "timeout"
	case errors.Is(err, ErrDisconnected):
		result = "disconnected"
	default:
		result = "error"
	}
	c.metrics.ObserveRequest(pt.String(), result, time.Since(started).Seconds())
	c.metrics.SetPending(c.corr.Len())
}

// dispatch — путь чтения: корреляция, иначе неподписанные события.
func (c *Client) dispatch(sess *session, data []byte) {
	env, err := Decode(data)
	if err != nil {
		c.log.Warn("undecodable frame", zap.Error(err), zap.ByteString("frame", data))
		return
	}

	c.mu.Lock()
	c.lastInbound = time.Now()
	c.mu.Unlock()

	if c.corr.Resolve(env) {
		return
	}

	switch env.PayloadType {
	case HeartbeatEvent:
		c.log.Debug("heartbeat received")

	case ClientDisconnectEvent:
		var p ClientDisconnectPayload
		_ = env.DecodePayload(&p)
		sess.fail(fmt.Errorf("%w: server closed session: %s", ErrDisconnected, p.Reason))

	case AccountDisconnectEvent:
		sess.fail(fmt.Errorf("%w: account disconnected", ErrDisconnected))

	case AccountsTokenInvalidated:
		var p AccountsTokenInvalidatedPayload
		_ = env.DecodePayload(&p)
		sess.fail(fmt.Errorf("%w: token invalidated for %v: %s", ErrFatalAuth, p.CtidTraderAccountIDs, p.Reason))

	case ExecutionEvent, OrderErrorEvent, SpotEvent, TraderUpdateEvent, ErrorRes:
		c.log.Debug("unsolicited event",
			zap.Stringer("payload_type", env.PayloadType),
			zap.String("correlation_id", env.ClientMsgID),
		)
		c.mu.RLock()
		handlers := append([]EventHandler{}, c.onEvent...)
		c.mu.RUnlock()
		for _, fn := range handlers {
			fn(env)
		}

	default:
		if !env.PayloadType.Known() {
			c.log.Info("unknown payload type ignored", zap.Int("payload_type", int(env.PayloadType)))
			return
		}
		c.log.Debug("uncorrelated message", zap.Stringer("payload_type", env.PayloadType))
	}
}
