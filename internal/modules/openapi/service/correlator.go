package service

import "sync"

// Result — единственный исход ожидающего запроса.
type Result struct {
	Env *Envelope
	Err error
}

// Correlator сопоставляет входящие кадры с ожидающими запросами по clientMsgId.
// Каждый зарегистрированный канал получает ровно один Result.
type Correlator struct {
	mu      sync.Mutex
	pending map[string]chan Result
}

func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[string]chan Result)}
}

// Register заводит ожидание. Регистрировать нужно до отправки кадра.
func (c *Correlator) Register(id string) <-chan Result {
	ch := make(chan Result, 1)

	c.mu.Lock()
	if _, exists := c.pending[id]; exists {
		c.mu.Unlock()
		ch <- Result{Err: ErrDuplicateID}
		return ch
	}
	c.pending[id] = ch
	c.mu.Unlock()

	return ch
}

// take снимает ожидание под локом: второй resolve того же id ничего не найдёт.
func (c *Correlator) take(id string) (chan Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	return ch, ok
}

// Resolve: true, если кадр ответил на наш запрос. ERROR_RES и ORDER_ERROR_EVENT
// завершают запрос ошибкой *APIError.
func (c *Correlator) Resolve(env *Envelope) bool {
	if env == nil || env.ClientMsgID == "" {
		return false
	}
	ch, ok := c.take(env.ClientMsgID)
	if !ok {
		return false
	}

	if err := apiErrorFrom(env); err != nil {
		ch <- Result{Env: env, Err: err}
		return true
	}
	ch <- Result{Env: env}
	return true
}

// Cancel завершает ожидание ошибкой (таймаут, отмена контекста, обрыв).
func (c *Correlator) Cancel(id string, err error) bool {
	ch, ok := c.take(id)
	if !ok {
		return false
	}
	ch <- Result{Err: err}
	return true
}

// FailAll — при разрыве сессии: всё ожидающее падает с err.
func (c *Correlator) FailAll(err error) int {
	c.mu.Lock()
	pending := c.pending
	c.pending = make(map[string]chan Result)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- Result{Err: err}
	}
	return len(pending)
}

func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
