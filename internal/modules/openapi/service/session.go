package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn — то, что нужно от сокета. *websocket.Conn подходит как есть.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WSDialer — gorilla/websocket.
type WSDialer struct {
	Dialer *websocket.Dialer
}

func NewWSDialer() *WSDialer {
	return &WSDialer{Dialer: &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 15 * time.Second,
	}}
}

func (d *WSDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := d.Dialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type writeReq struct {
	data   []byte
	result chan error
}

// session — один сокет от dial до обрыва. В сокет пишет только writeLoop.
type session struct {
	conn Conn
	out  chan writeReq
	done chan struct{}

	once sync.Once
	err  error
}

func newSession(conn Conn) *session {
	return &session{
		conn: conn,
		out:  make(chan writeReq),
		done: make(chan struct{}),
	}
}

// send ставит кадр в очередь писателя и ждёт результат записи.
func (s *session) send(ctx context.Context, data []byte) error {
	req := writeReq{data: data, result: make(chan error, 1)}

	select {
	case s.out <- req:
	case <-s.done:
		return s.disconnected()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.result:
		return err
	case <-s.done:
		return s.disconnected()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case req := <-s.out:
			err := s.conn.WriteMessage(websocket.TextMessage, req.data)
			req.result <- err
			if err != nil {
				s.fail(fmt.Errorf("write: %w", err))
				return
			}
		}
	}
}

func (s *session) readLoop(handle func(data []byte)) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.fail(fmt.Errorf("read: %w", err))
			return
		}
		handle(data)
	}
}

// fail завершает сессию; первая причина побеждает.
func (s *session) fail(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

// Err — причина обрыва; читать после <-done.
func (s *session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// disconnected сохраняет причину обрыва (например ErrFatalAuth) под ErrDisconnected.
func (s *session) disconnected() error {
	cause := s.Err()
	if cause == nil || errors.Is(cause, ErrDisconnected) {
		return ErrDisconnected
	}
	return fmt.Errorf("%w: %w", ErrDisconnected, cause)
}

func (s *session) close() {
	s.fail(ErrDisconnected)
	_ = s.conn.Close()
}
