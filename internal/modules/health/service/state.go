package service

import (
	"sync/atomic"
	"time"

	openapi "signal_relay/internal/modules/openapi/service"
)

// Source — то, что health читает у клиента напрямую.
type Source interface {
	Pending() int
	LastInbound() time.Time
}

type State struct {
	startedAt time.Time
	source    Source

	conn      atomic.Int32 // openapi.ConnectionState
	reconnect atomic.Int64
}

func NewState(source Source) *State {
	return &State{startedAt: time.Now(), source: source}
}

// Observe — подписка на переходы клиента (OnStateChange).
func (s *State) Observe(cs openapi.ConnectionState) {
	prev := openapi.ConnectionState(s.conn.Swap(int32(cs)))
	if prev == openapi.StateReady && cs != openapi.StateReady {
		s.reconnect.Add(1)
	}
}

func (s *State) Connection() openapi.ConnectionState {
	return openapi.ConnectionState(s.conn.Load())
}

func (s *State) Ready() bool { return s.Connection() == openapi.StateReady }

// Drops — сколько раз теряли Ready.
func (s *State) Drops() int64 { return s.reconnect.Load() }

func (s *State) Pending() int {
	if s.source == nil {
		return 0
	}
	return s.source.Pending()
}

func (s *State) LastInbound() time.Time {
	if s.source == nil {
		return time.Time{}
	}
	return s.source.LastInbound()
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
